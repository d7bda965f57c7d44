package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
	"github.com/FairyDevicesRD/ai.chat.kmp/usecase"
)

type fakeCapture struct {
	chunks    [][]byte
	startErr  error
	streamErr error // closes the stream mid-capture when set

	mu     sync.Mutex
	starts int
}

func (f *fakeCapture) Start(ctx context.Context) (<-chan []byte, error) {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()

	if f.startErr != nil {
		return nil, f.startErr
	}

	ch := make(chan []byte, len(f.chunks)+1)
	for _, chunk := range f.chunks {
		ch <- chunk
	}
	if f.streamErr != nil {
		close(ch)
		return ch, nil
	}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeCapture) Err() error { return f.streamErr }

func (f *fakeCapture) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakePlayer struct {
	playErr error

	mu        sync.Mutex
	played    [][]byte
	stops     int
	completed func()
}

func (f *fakePlayer) Play(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, pcm)
	return nil
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakePlayer) SetCompletedListener(listener func()) {
	f.mu.Lock()
	f.completed = listener
	f.mu.Unlock()
}

func (f *fakePlayer) finishPlayback() {
	f.mu.Lock()
	listener := f.completed
	f.mu.Unlock()
	listener()
}

type fakeCodec struct{}

func (fakeCodec) ResizeJpeg(jpegBytes []byte, _ int) ([]byte, error) {
	return append([]byte("resized:"), jpegBytes...), nil
}

func (fakeCodec) EncodeJpeg(image.Image) ([]byte, error) { return nil, nil }

type fakeConversation struct {
	err error
	run func(callback usecase.ConversationCallback)

	mu      sync.Mutex
	gotPCM  []byte
	gotJpeg []byte
	calls   int
}

func (f *fakeConversation) Execute(_ context.Context, pcm []byte, jpeg []byte, callback usecase.ConversationCallback) error {
	f.mu.Lock()
	f.gotPCM = pcm
	f.gotJpeg = jpeg
	f.calls++
	f.mu.Unlock()
	if f.run != nil {
		f.run(callback)
	}
	return f.err
}

func (f *fakeConversation) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestController(t *testing.T, conv *fakeConversation, capture *fakeCapture, player *fakePlayer) *Controller {
	t.Helper()
	return NewController(conv, capture, player, fakeCodec{}, zaptest.NewLogger(t))
}

func TestRecordStopRunsPipelineWithConcatenatedAudio(t *testing.T) {
	capture := &fakeCapture{chunks: [][]byte{[]byte("A"), []byte("B")}}
	player := &fakePlayer{}
	conv := &fakeConversation{run: func(cb usecase.ConversationCallback) {
		cb.OnAsrRecognized("question")
		cb.OnAiAnswer("answer")
		cb.OnTtsSynthesized([]byte("pcm"))
	}}
	c := newTestController(t, conv, capture, player)

	c.ToggleRecord() // start
	if got := c.Snapshot().ButtonState; got != ButtonRecording {
		t.Fatalf("Expected recording state, got %s", got)
	}
	c.ToggleRecord() // stop
	c.turnWG.Wait()

	if string(conv.gotPCM) != "AB" {
		t.Errorf("Expected concatenated audio AB, got %q", conv.gotPCM)
	}

	state := c.Snapshot()
	if state.AsrText != "question" || state.AiText != "answer" {
		t.Errorf("Expected transcript and answer in state, got %+v", state)
	}
	if !state.IsThinking || state.ButtonState != ButtonDisabled {
		t.Errorf("Expected thinking until playback completes, got %+v", state)
	}
	if len(player.played) != 1 {
		t.Fatalf("Expected one queued segment, got %d", len(player.played))
	}

	player.finishPlayback()
	state = c.Snapshot()
	if state.IsThinking || state.ButtonState != ButtonReady {
		t.Errorf("Expected ready after playback completion, got %+v", state)
	}
}

func TestStartRecordingTwiceIsNoOp(t *testing.T) {
	capture := &fakeCapture{chunks: [][]byte{[]byte("A")}}
	c := newTestController(t, &fakeConversation{}, capture, &fakePlayer{})

	c.startRecording()

	// Wait for the buffered chunk to land.
	deadline := time.Now().Add(time.Second)
	for {
		c.mu.Lock()
		buffered := len(c.chunks)
		c.mu.Unlock()
		if buffered == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for audio chunk")
		}
		time.Sleep(time.Millisecond)
	}

	c.startRecording()

	if got := capture.startCount(); got != 1 {
		t.Errorf("Expected exactly one capture subscription, got %d", got)
	}
	c.mu.Lock()
	buffered := len(c.chunks)
	c.mu.Unlock()
	if buffered != 1 {
		t.Errorf("Second start must not reset the audio buffer, got %d chunks", buffered)
	}

	c.Close()
}

func TestToggleIgnoredWhileThinking(t *testing.T) {
	capture := &fakeCapture{}
	c := newTestController(t, &fakeConversation{}, capture, &fakePlayer{})

	c.ToggleRecord()
	c.ToggleRecord()
	c.turnWG.Wait()

	// Pipeline finished without playback: still thinking.
	if !c.Snapshot().IsThinking {
		t.Fatal("Expected thinking state after stop")
	}
	c.ToggleRecord()
	if got := capture.startCount(); got != 1 {
		t.Errorf("Toggle while thinking must be ignored, got %d starts", got)
	}
}

func TestPipelineErrorResetsToReady(t *testing.T) {
	capture := &fakeCapture{}
	conv := &fakeConversation{err: domain.NewAsrError(errors.New("backend down"))}
	c := newTestController(t, conv, capture, &fakePlayer{})

	c.ToggleRecord()
	c.ToggleRecord()
	c.turnWG.Wait()

	state := c.Snapshot()
	if state.ButtonState != ButtonReady || state.IsThinking {
		t.Errorf("Expected immediate reset to ready, got %+v", state)
	}
	if state.ErrorMessage != "Failed to recognize speech" {
		t.Errorf("Unexpected error message %q", state.ErrorMessage)
	}
}

func TestEmptyRecognitionMessage(t *testing.T) {
	conv := &fakeConversation{err: domain.NewEmptyAsrError()}
	c := newTestController(t, conv, &fakeCapture{}, &fakePlayer{})

	c.ToggleRecord()
	c.ToggleRecord()
	c.turnWG.Wait()

	if got := c.Snapshot().ErrorMessage; got != "Recognized speech result is empty" {
		t.Errorf("Unexpected error message %q", got)
	}
}

func TestPermissionDenied(t *testing.T) {
	capture := &fakeCapture{startErr: repositories.ErrPermissionDenied}
	conv := &fakeConversation{}
	c := newTestController(t, conv, capture, &fakePlayer{})

	c.ToggleRecord()

	state := c.Snapshot()
	if state.ErrorMessage != "Permission denied" {
		t.Errorf("Unexpected error message %q", state.ErrorMessage)
	}
	if state.ButtonState != ButtonReady {
		t.Errorf("Expected ready after permission denial, got %s", state.ButtonState)
	}
	if conv.callCount() != 0 {
		t.Error("Pipeline must not run after permission denial")
	}
}

func TestMicFailureMidCapture(t *testing.T) {
	capture := &fakeCapture{chunks: [][]byte{[]byte("A")}, streamErr: errors.New("device lost")}
	conv := &fakeConversation{}
	c := newTestController(t, conv, capture, &fakePlayer{})

	c.ToggleRecord()
	c.turnWG.Wait()

	state := c.Snapshot()
	if state.ErrorMessage != "Failed to record audio" {
		t.Errorf("Unexpected error message %q", state.ErrorMessage)
	}
	if state.ButtonState != ButtonReady {
		t.Errorf("Expected ready after mic failure, got %s", state.ButtonState)
	}
	if conv.callCount() != 0 {
		t.Error("Pipeline must not run after a capture failure")
	}
}

func TestPlayerErrorStopsPlayback(t *testing.T) {
	player := &fakePlayer{playErr: errors.New("no device")}
	conv := &fakeConversation{run: func(cb usecase.ConversationCallback) {
		cb.OnTtsSynthesized([]byte("pcm"))
	}}
	c := newTestController(t, conv, &fakeCapture{}, player)

	c.ToggleRecord()
	c.ToggleRecord()
	c.turnWG.Wait()

	state := c.Snapshot()
	if state.ErrorMessage != "Failed to play audio" {
		t.Errorf("Unexpected error message %q", state.ErrorMessage)
	}
	if player.stops != 1 {
		t.Errorf("Expected playback stopped once, got %d", player.stops)
	}
}

func TestCapturedImageFlowsIntoNextTurn(t *testing.T) {
	conv := &fakeConversation{}
	c := newTestController(t, conv, &fakeCapture{}, &fakePlayer{})

	if err := c.CapturedImage([]byte("photo")); err != nil {
		t.Fatalf("CapturedImage failed: %v", err)
	}
	if !c.Snapshot().HasImage {
		t.Error("Expected HasImage after capture")
	}
	if string(c.Image()) != "resized:photo" {
		t.Errorf("Expected resized image, got %q", c.Image())
	}

	c.ToggleRecord()
	c.ToggleRecord()
	c.turnWG.Wait()

	if string(conv.gotJpeg) != "resized:photo" {
		t.Errorf("Expected image attached to the turn, got %q", conv.gotJpeg)
	}
}

func TestStartClearsPreviousTurn(t *testing.T) {
	conv := &fakeConversation{err: domain.NewAiAgentError(errors.New("quota"))}
	c := newTestController(t, conv, &fakeCapture{}, &fakePlayer{})

	c.ToggleRecord()
	c.ToggleRecord()
	c.turnWG.Wait()
	if c.Snapshot().ErrorMessage == "" {
		t.Fatal("Expected an error message from the first turn")
	}

	c.ToggleRecord()
	state := c.Snapshot()
	if state.ErrorMessage != "" || state.AsrText != "" || state.AiText != "" {
		t.Errorf("Starting a recording must clear the previous turn, got %+v", state)
	}
	c.Close()
}

func TestSubscribeReceivesStateChanges(t *testing.T) {
	c := newTestController(t, &fakeConversation{}, &fakeCapture{}, &fakePlayer{})

	id, ch := c.Subscribe()
	defer c.Unsubscribe(id)

	c.ClearError()
	select {
	case state := <-ch:
		if state.ButtonState != ButtonReady {
			t.Errorf("Unexpected state %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for state notification")
	}
}
