// Package audio implements the capture source and playback sink on top of
// PortAudio. Both sides use the pipeline's fixed format: 16 kHz, mono,
// 16-bit little-endian PCM.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

const framesPerBuffer = 1024

// Recorder implements repositories.CaptureSource with the default input
// device.
type Recorder struct {
	logger *zap.Logger

	mu  sync.Mutex
	err error
}

var _ repositories.CaptureSource = (*Recorder)(nil)

// NewRecorder creates a new microphone recorder.
func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Start opens the default input device and streams PCM chunks until ctx
// is cancelled. The device is released when the stream ends, even when
// cancellation happened mid-transfer.
func (r *Recorder) Start(ctx context.Context) (<-chan []byte, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audio subsystem: %w", err)
	}

	buffer := make([]int16, framesPerBuffer*repositories.Channels)
	stream, err := portaudio.OpenDefaultStream(
		repositories.Channels, 0, float64(repositories.SampleRate), framesPerBuffer, buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open microphone: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start microphone: %w", err)
	}

	r.setErr(nil)
	chunks := make(chan []byte, 8)

	go func() {
		defer close(chunks)
		defer func() {
			// Cleanup must run even on a cancelled transfer; a failing
			// Stop on flaky hardware must not leak the device.
			if err := stream.Stop(); err != nil {
				r.logger.Warn("failed to stop microphone stream", zap.Error(err))
			}
			if err := stream.Close(); err != nil {
				r.logger.Warn("failed to close microphone stream", zap.Error(err))
			}
			portaudio.Terminate()
		}()

		for {
			if ctx.Err() != nil {
				return
			}
			if err := stream.Read(); err != nil {
				if ctx.Err() == nil {
					r.setErr(fmt.Errorf("failed to read microphone: %w", err))
				}
				return
			}
			chunk := make([]byte, len(buffer)*repositories.BytesPerSample)
			for i, sample := range buffer {
				binary.LittleEndian.PutUint16(chunk[i*2:], uint16(sample))
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

// Err reports the capture failure that closed the most recent stream.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}
