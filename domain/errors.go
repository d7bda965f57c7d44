package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a conversation failure by the stage that produced it.
type Kind int

const (
	KindUnknown Kind = iota
	KindToken
	KindAsr
	KindEmptyAsr
	KindAiAgent
	KindTts
	KindPermissionDenied
	KindMic
	KindPlayer
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindAsr:
		return "asr"
	case KindEmptyAsr:
		return "empty_asr"
	case KindAiAgent:
		return "ai_agent"
	case KindTts:
		return "tts"
	case KindPermissionDenied:
		return "permission_denied"
	case KindMic:
		return "mic"
	case KindPlayer:
		return "player"
	default:
		return "unknown"
	}
}

// Error is a stage failure that terminates the current conversation turn.
// Cancellation is never represented as an Error; the constructors pass
// context cancellation through untouched so callers can re-raise it.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("conversation error: %s", e.Kind)
	}
	return fmt.Sprintf("conversation error: %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewTokenError wraps a token issuance failure.
func NewTokenError(cause error) error { return wrap(KindToken, cause) }

// NewAsrError wraps a speech recognition failure.
func NewAsrError(cause error) error { return wrap(KindAsr, cause) }

// NewEmptyAsrError reports that recognition succeeded but produced no text.
func NewEmptyAsrError() error { return &Error{Kind: KindEmptyAsr} }

// NewAiAgentError wraps a generative AI backend failure.
func NewAiAgentError(cause error) error { return wrap(KindAiAgent, cause) }

// NewTtsError wraps a speech synthesis failure.
func NewTtsError(cause error) error { return wrap(KindTts, cause) }

// NewPermissionDeniedError reports a denied microphone permission.
func NewPermissionDeniedError() error { return &Error{Kind: KindPermissionDenied} }

// NewMicError wraps an audio capture failure.
func NewMicError(cause error) error { return wrap(KindMic, cause) }

// NewPlayerError wraps an audio playback failure.
func NewPlayerError(cause error) error { return wrap(KindPlayer, cause) }

func wrap(kind Kind, cause error) error {
	if IsCancellation(cause) {
		return cause
	}
	return &Error{Kind: kind, Cause: cause}
}

// KindOf returns the kind of err, or KindUnknown when err is not a
// conversation error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsCancellation reports whether err stems from context cancellation or
// deadline expiry, possibly wrapped by a transport.
func IsCancellation(err error) bool {
	return err != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
