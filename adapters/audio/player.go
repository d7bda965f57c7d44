package audio

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

// Player implements repositories.PlaybackSink with a single sequential
// playback queue over the default output device. Segments play in the
// order they were queued, never overlapping.
type Player struct {
	logger *zap.Logger

	mu        sync.Mutex
	queue     [][]byte
	playing   bool
	cancel    context.CancelFunc
	completed func()
}

var _ repositories.PlaybackSink = (*Player)(nil)

// NewPlayer creates a new playback sink.
func NewPlayer(logger *zap.Logger) *Player {
	return &Player{logger: logger}
}

// SetCompletedListener registers the callback fired once after the queue
// drains.
func (p *Player) SetCompletedListener(listener func()) {
	p.mu.Lock()
	p.completed = listener
	p.mu.Unlock()
}

// Play queues one PCM segment. The drain goroutine is started lazily on
// the first segment and exits once the queue empties.
func (p *Player) Play(pcm []byte) error {
	p.mu.Lock()
	p.queue = append(p.queue, pcm)
	if p.playing {
		p.mu.Unlock()
		return nil
	}
	p.playing = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.drain(ctx)
	return nil
}

// Stop cancels pending playback and clears the queue.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.queue = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Player) drain(ctx context.Context) {
	// On a normal drain next() flips playing under the lock; the deferred
	// reset covers only cancelled or failed playback, so a Play racing the
	// end of a clean drain starts a fresh goroutine instead of losing its
	// segment.
	aborted := true
	defer func() {
		if aborted {
			p.mu.Lock()
			p.playing = false
			p.queue = nil
			p.mu.Unlock()
		}
	}()

	if err := portaudio.Initialize(); err != nil {
		p.logger.Error("failed to initialize audio subsystem", zap.Error(err))
		return
	}
	defer portaudio.Terminate()

	out := make([]int16, framesPerBuffer*repositories.Channels)
	stream, err := portaudio.OpenDefaultStream(
		0, repositories.Channels, float64(repositories.SampleRate), framesPerBuffer, out,
	)
	if err != nil {
		p.logger.Error("failed to open playback device", zap.Error(err))
		return
	}
	defer func() {
		// Release the device even when playback was cancelled mid-write.
		if err := stream.Stop(); err != nil {
			p.logger.Warn("failed to stop playback stream", zap.Error(err))
		}
		if err := stream.Close(); err != nil {
			p.logger.Warn("failed to close playback stream", zap.Error(err))
		}
	}()
	if err := stream.Start(); err != nil {
		p.logger.Error("failed to start playback stream", zap.Error(err))
		return
	}

	for {
		segment, ok := p.next()
		if !ok {
			aborted = false
			break
		}
		if !p.write(ctx, stream, out, segment) {
			return
		}
	}

	if listener := p.completedListener(); listener != nil {
		listener()
	}
}

// write plays one segment buffer by buffer, padding the tail with
// silence. It returns false when playback was cancelled or the device
// failed.
func (p *Player) write(ctx context.Context, stream *portaudio.Stream, out []int16, segment []byte) bool {
	for offset := 0; offset+1 < len(segment); {
		if ctx.Err() != nil {
			return false
		}
		n := 0
		for ; n < len(out) && offset+1 < len(segment); n++ {
			out[n] = int16(binary.LittleEndian.Uint16(segment[offset:]))
			offset += repositories.BytesPerSample
		}
		for ; n < len(out); n++ {
			out[n] = 0
		}
		if err := stream.Write(); err != nil {
			p.logger.Warn("playback write failed", zap.Error(err))
			return false
		}
	}
	return true
}

func (p *Player) next() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		p.playing = false
		return nil, false
	}
	segment := p.queue[0]
	p.queue = p.queue[1:]
	return segment, true
}

func (p *Player) completedListener() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}
