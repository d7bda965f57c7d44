package repositories

import (
	"context"
	"errors"
)

// Audio format shared by capture, backends and playback.
const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
)

// ErrPermissionDenied is returned by CaptureSource.Start when microphone
// access is not granted.
var ErrPermissionDenied = errors.New("microphone permission denied")

// CaptureSource produces a restartable stream of raw PCM chunks from the
// microphone.
type CaptureSource interface {
	// Start begins capturing and returns a channel of PCM chunks in
	// delivery order. The channel is closed when ctx is cancelled or the
	// device fails; check Err afterwards to distinguish the two. The
	// underlying input resource is released on close even when
	// cancellation happened mid-transfer.
	Start(ctx context.Context) (<-chan []byte, error)

	// Err reports the capture failure that closed the most recent
	// stream, or nil after a clean stop.
	Err() error
}

// PlaybackSink plays PCM segments sequentially. A newly queued segment
// only begins once previously queued segments have finished.
type PlaybackSink interface {
	// Play queues one PCM segment for playback.
	Play(pcm []byte) error

	// Stop cancels pending playback and releases the output device.
	Stop()

	// SetCompletedListener registers the callback fired once after the
	// last queued segment finishes playing.
	SetCompletedListener(listener func())
}
