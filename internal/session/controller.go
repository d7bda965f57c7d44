// Package session owns the UI-observable conversation state: the record
// button state machine, the audio buffer of the current recording, and
// the mapping of pipeline failures to user-facing messages.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
	"github.com/FairyDevicesRD/ai.chat.kmp/usecase"
)

// MaxImageLongSide bounds captured photos before they are attached to a
// question.
const MaxImageLongSide = 800

// ButtonState is the record button state.
type ButtonState string

const (
	ButtonReady     ButtonState = "ready"
	ButtonRecording ButtonState = "recording"
	ButtonDisabled  ButtonState = "disabled"
)

// State is the UI-observable snapshot. ButtonState is Disabled whenever
// IsThinking is set.
type State struct {
	ButtonState  ButtonState `json:"buttonState"`
	IsThinking   bool        `json:"isThinking"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	AsrText      string      `json:"asrText,omitempty"`
	AiText       string      `json:"aiText,omitempty"`
	HasImage     bool        `json:"hasImage"`
}

// Conversation runs one conversation turn. Satisfied by
// usecase.ConversationUseCase.
type Conversation interface {
	Execute(ctx context.Context, pcm []byte, jpeg []byte, callback usecase.ConversationCallback) error
}

// Controller drives one recording/conversation lifecycle at a time.
// Starting a recording while one is active is a no-op.
type Controller struct {
	conversation Conversation
	capture      repositories.CaptureSource
	player       repositories.PlaybackSink
	codec        repositories.ImageCodec
	logger       *zap.Logger

	mu           sync.Mutex
	state        State
	image        []byte
	chunks       [][]byte
	recordCancel context.CancelFunc
	subscribers  map[int]chan State
	nextSub      int

	turnWG sync.WaitGroup
}

// NewController creates a controller in the Ready state and hooks the
// playback-completed notification that returns it there after a turn.
func NewController(
	conversation Conversation,
	capture repositories.CaptureSource,
	player repositories.PlaybackSink,
	codec repositories.ImageCodec,
	logger *zap.Logger,
) *Controller {
	c := &Controller{
		conversation: conversation,
		capture:      capture,
		player:       player,
		codec:        codec,
		logger:       logger,
		state:        State{ButtonState: ButtonReady},
		subscribers:  make(map[int]chan State),
	}
	player.SetCompletedListener(func() {
		c.setState(func(s *State) {
			s.IsThinking = false
			s.ButtonState = ButtonReady
		})
	})
	return c
}

// ToggleRecord handles a record button activation: Ready starts a
// recording, Recording stops it, anything else (including thinking) is
// ignored.
func (c *Controller) ToggleRecord() {
	c.mu.Lock()
	if c.state.IsThinking {
		c.mu.Unlock()
		return
	}
	buttonState := c.state.ButtonState
	c.mu.Unlock()

	switch buttonState {
	case ButtonReady:
		c.startRecording()
	case ButtonRecording:
		c.stopRecording()
	}
}

// CapturedImage resizes a captured photo and stores it for the next
// question. Allowed while idle; does not affect the button state.
func (c *Controller) CapturedImage(jpegBytes []byte) error {
	resized, err := c.codec.ResizeJpeg(jpegBytes, MaxImageLongSide)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.image = resized
	c.mu.Unlock()
	c.setState(func(s *State) { s.HasImage = true })
	return nil
}

// ClearError clears the user-facing error message.
func (c *Controller) ClearError() {
	c.setState(func(s *State) { s.ErrorMessage = "" })
}

// Snapshot returns the current UI state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Image returns the pending captured image, or nil.
func (c *Controller) Image() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image
}

// Subscribe registers a state observer. The returned channel receives a
// snapshot after every change; slow observers miss intermediate states.
func (c *Controller) Subscribe() (int, <-chan State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 16)
	c.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a state observer and closes its channel.
func (c *Controller) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.subscribers[id]; ok {
		delete(c.subscribers, id)
		close(ch)
	}
}

// Close stops any active recording and playback.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel := c.recordCancel
	c.recordCancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.player.Stop()
	c.turnWG.Wait()
}

func (c *Controller) startRecording() {
	c.mu.Lock()
	if c.recordCancel != nil {
		// A capture lifecycle is already active.
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.recordCancel = cancel
	c.chunks = nil
	c.mu.Unlock()

	c.logger.Debug("recording started")
	c.setState(func(s *State) {
		s.ButtonState = ButtonRecording
		s.ErrorMessage = ""
		s.AsrText = ""
		s.AiText = ""
	})

	chunks, err := c.capture.Start(ctx)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.recordCancel = nil
		c.mu.Unlock()
		c.handleError(captureError(err))
		return
	}

	c.turnWG.Add(1)
	go func() {
		defer c.turnWG.Done()
		defer cancel()

		for chunk := range chunks {
			c.mu.Lock()
			c.chunks = append(c.chunks, chunk)
			c.mu.Unlock()
		}

		if err := c.capture.Err(); err != nil {
			c.mu.Lock()
			c.recordCancel = nil
			c.mu.Unlock()
			c.handleError(captureError(err))
			return
		}
		// Clean stop: the user ended the recording, run the pipeline.
		c.processAudio()
	}()
}

func (c *Controller) stopRecording() {
	c.mu.Lock()
	cancel := c.recordCancel
	c.recordCancel = nil
	c.mu.Unlock()

	c.logger.Debug("recording stopped")
	c.setState(func(s *State) {
		s.ButtonState = ButtonDisabled
		s.IsThinking = true
	})
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) processAudio() {
	c.mu.Lock()
	total := 0
	for _, chunk := range c.chunks {
		total += len(chunk)
	}
	pcm := make([]byte, 0, total)
	for _, chunk := range c.chunks {
		pcm = append(pcm, chunk...)
	}
	jpeg := c.image
	c.mu.Unlock()

	c.logger.Debug("processing recorded audio", zap.Int("bytes", len(pcm)))
	err := c.conversation.Execute(context.Background(), pcm, jpeg, &turnCallback{controller: c})
	if err != nil {
		c.handleError(err)
	}
}

func (c *Controller) handleError(err error) {
	message := messageFor(err)
	c.logger.Warn("conversation turn failed", zap.Error(err))
	c.setState(func(s *State) {
		s.IsThinking = false
		s.ButtonState = ButtonReady
		s.ErrorMessage = message
	})
}

func (c *Controller) setState(update func(*State)) {
	c.mu.Lock()
	update(&c.state)
	state := c.state
	observers := make([]chan State, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		observers = append(observers, ch)
	}
	c.mu.Unlock()

	for _, ch := range observers {
		select {
		case ch <- state:
		default:
		}
	}
}

// turnCallback forwards pipeline results into the UI state and the
// playback queue.
type turnCallback struct {
	controller *Controller
}

func (t *turnCallback) OnAsrRecognized(text string) {
	t.controller.setState(func(s *State) { s.AsrText = text })
}

func (t *turnCallback) OnAiAnswer(text string) {
	t.controller.setState(func(s *State) { s.AiText = text })
}

func (t *turnCallback) OnTtsSynthesized(pcm []byte) {
	if err := t.controller.player.Play(pcm); err != nil {
		t.controller.handleError(domain.NewPlayerError(err))
		t.controller.player.Stop()
	}
}

func captureError(err error) error {
	if errors.Is(err, repositories.ErrPermissionDenied) {
		return domain.NewPermissionDeniedError()
	}
	return domain.NewMicError(err)
}

func messageFor(err error) string {
	switch domain.KindOf(err) {
	case domain.KindToken:
		return "Failed to connect to the server"
	case domain.KindAsr:
		return "Failed to recognize speech"
	case domain.KindEmptyAsr:
		return "Recognized speech result is empty"
	case domain.KindTts:
		return "Failed to synthesize speech"
	case domain.KindAiAgent:
		return "Failed to communicate with the AI agent"
	case domain.KindPermissionDenied:
		return "Permission denied"
	case domain.KindPlayer:
		return "Failed to play audio"
	case domain.KindMic:
		return "Failed to record audio"
	default:
		return "Unexpected error"
	}
}
