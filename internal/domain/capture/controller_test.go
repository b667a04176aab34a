package capture

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
	"go.uber.org/zap"
)

func nopLogger() *logger.ZapLogger {
	return logger.NewZapLogger(zap.NewNop().Sugar())
}

type fakeHandle struct {
	ch   chan []byte
	once sync.Once
}

func (h *fakeHandle) Chunks() <-chan []byte { return h.ch }

func (h *fakeHandle) Close() error {
	h.once.Do(func() { close(h.ch) })
	return nil
}

type fakeSource struct {
	err    error
	handle *fakeHandle
}

func (s *fakeSource) Open(context.Context) (ports.AudioHandle, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.handle = &fakeHandle{ch: make(chan []byte, 16)}
	return s.handle, nil
}

type item struct {
	ev  models.RecognitionEvent
	err error
}

type fakeStream struct {
	items  chan item
	closed chan struct{}

	mu        sync.Mutex
	sent      [][]byte
	closeSent bool

	sendOnce  sync.Once
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{items: make(chan item), closed: make(chan struct{})}
}

func (s *fakeStream) Send(chunk []byte) error {
	s.mu.Lock()
	s.sent = append(s.sent, chunk)
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) CloseSend() error {
	s.mu.Lock()
	s.closeSent = true
	s.mu.Unlock()
	s.sendOnce.Do(func() { close(s.items) })
	return nil
}

func (s *fakeStream) Events() iter.Seq2[models.RecognitionEvent, error] {
	return func(yield func(models.RecognitionEvent, error) bool) {
		for {
			select {
			case it, ok := <-s.items:
				if !ok || !yield(it.ev, it.err) {
					return
				}
				if it.err != nil {
					return
				}
			case <-s.closed:
				return
			}
		}
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type fakeLive struct {
	stream *fakeStream
	cfg    ports.LiveConfig
	err    error
}

func (l *fakeLive) Open(_ context.Context, cfg ports.LiveConfig) (ports.RecognitionStream, error) {
	l.cfg = cfg
	if l.err != nil {
		return nil, l.err
	}
	return l.stream, nil
}

func interim(text string) item { return item{ev: models.RecognitionEvent{Transcript: text}} }
func final(text string) item   { return item{ev: models.RecognitionEvent{Transcript: text, Final: true}} }

// drain closes the controller and returns every non-status event.
func drain(t *testing.T, c *Controller) []Event {
	t.Helper()
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var out []Event
	for ev := range c.Events() {
		if ev.Kind != EventStatus {
			out = append(out, ev)
		}
	}
	return out
}

func TestControllerAppendsFinalsInOrder(t *testing.T) {
	stream := newFakeStream()
	live := &fakeLive{stream: stream}
	src := &fakeSource{}
	c := NewController(src, live, Config{Language: "en"}, nopLogger())

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Status() != models.StatusRecording {
		t.Fatalf("status = %s", c.Status())
	}
	if live.cfg.Language != "en" || !live.cfg.InterimResults {
		t.Fatalf("live config = %+v", live.cfg)
	}

	src.handle.ch <- []byte("a")
	src.handle.ch <- []byte("b")

	stream.items <- interim("pat")
	stream.items <- final("patient reports")
	stream.items <- interim("chest")
	stream.items <- final("chest pain")

	res, err := c.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.Transcript != "patient reports chest pain" {
		t.Fatalf("transcript = %q", res.Transcript)
	}
	if len(res.Segments) != 2 || res.Segments[0] != "patient reports" || res.Segments[1] != "chest pain" {
		t.Fatalf("segments = %q", res.Segments)
	}
	if string(res.Audio) != "ab" || res.Chunks != 2 {
		t.Fatalf("audio = %q chunks %d", res.Audio, res.Chunks)
	}
	if len(stream.sent) != 2 || !stream.closeSent {
		t.Fatalf("sent %d chunks, closeSent %v", len(stream.sent), stream.closeSent)
	}
	if c.Status() != models.StatusIdle {
		t.Fatalf("status after stop = %s", c.Status())
	}

	want := []Event{
		{Kind: EventInterim, Text: "pat"},
		{Kind: EventTranscript, Text: "patient reports"},
		{Kind: EventInterim, Text: "patient reports chest"},
		{Kind: EventTranscript, Text: "patient reports chest pain"},
	}
	got := drain(t, c)
	if len(got) != len(want) {
		t.Fatalf("events = %+v", got)
	}
	for i := range want {
		if got[i].Kind != want[i].Kind || got[i].Text != want[i].Text {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestControllerDeviceUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("permission denied")}
	c := NewController(src, nil, Config{}, nopLogger())

	err := c.Start(context.Background())
	if !errors.Is(err, domain.ErrDeviceUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if c.Status() != models.StatusIdle {
		t.Fatalf("status = %s", c.Status())
	}
}

func TestControllerStopWhileIdle(t *testing.T) {
	c := NewController(&fakeSource{}, nil, Config{}, nopLogger())
	res, err := c.Stop(context.Background())
	if err != nil || res.Transcript != "" || res.Audio != nil {
		t.Fatalf("Stop while idle = %+v, %v", res, err)
	}
}

func TestControllerRejectsSecondStart(t *testing.T) {
	c := NewController(&fakeSource{}, nil, Config{}, nopLogger())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(ctx); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start err = %v", err)
	}
	drain(t, c)
	if err := c.Start(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Close err = %v", err)
	}
}

func TestControllerStreamErrorKeepsTranscript(t *testing.T) {
	stream := newFakeStream()
	src := &fakeSource{}
	c := NewController(src, &fakeLive{stream: stream}, Config{}, nopLogger())

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	boom := errors.New("socket closed")
	stream.items <- final("hello")
	stream.items <- item{err: boom}

	// audio keeps accumulating after the recognizer died
	src.handle.ch <- []byte("tail")

	res, err := c.Stop(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("Stop err = %v, want stream error", err)
	}
	if string(res.Audio) != "tail" {
		t.Fatalf("audio = %q", res.Audio)
	}
	if res.Transcript != "hello" {
		t.Fatalf("transcript = %q", res.Transcript)
	}
	if stream.closeSent {
		t.Fatal("CloseSend on a dead stream")
	}

	got := drain(t, c)
	if len(got) != 2 || got[1].Kind != EventStreamError {
		t.Fatalf("events = %+v", got)
	}
}

func TestControllerBatchFallback(t *testing.T) {
	var gotAudio []byte
	fallback := func(_ context.Context, audio []byte) (string, error) {
		gotAudio = audio
		return "fallback text", nil
	}
	src := &fakeSource{}
	live := &fakeLive{err: domain.ErrConfiguration}
	c := NewController(src, live, Config{Fallback: fallback}, nopLogger())

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.handle.ch <- []byte("web")
	src.handle.ch <- []byte("m")

	res, err := c.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if string(gotAudio) != "webm" {
		t.Fatalf("fallback audio = %q", gotAudio)
	}
	if res.Transcript != "fallback text" {
		t.Fatalf("transcript = %q", res.Transcript)
	}

	got := drain(t, c)
	if len(got) != 1 || got[0].Kind != EventTranscript || got[0].Text != "fallback text" {
		t.Fatalf("events = %+v", got)
	}
}

func TestControllerSkipsFallbackWithLiveTranscript(t *testing.T) {
	called := false
	fallback := func(context.Context, []byte) (string, error) {
		called = true
		return "", nil
	}
	stream := newFakeStream()
	src := &fakeSource{}
	c := NewController(src, &fakeLive{stream: stream}, Config{Fallback: fallback}, nopLogger())

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.handle.ch <- []byte("x")
	stream.items <- final("live words")

	if _, err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if called {
		t.Fatal("fallback ran with a live transcript")
	}
	drain(t, c)
}

func TestControllerRestartResetsTranscript(t *testing.T) {
	stream := newFakeStream()
	live := &fakeLive{stream: stream}
	c := NewController(&fakeSource{}, live, Config{}, nopLogger())

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	stream.items <- final("first session")
	if _, err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	live.stream = newFakeStream()
	c.SetLanguage("es")
	if err := c.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if c.Transcript() != "" {
		t.Fatalf("transcript carried over: %q", c.Transcript())
	}
	if live.cfg.Language != "es" {
		t.Fatalf("language = %q", live.cfg.Language)
	}
	drain(t, c)
}

type blockingLive struct {
	entered chan struct{}
	release chan struct{}
}

func (l *blockingLive) Open(context.Context, ports.LiveConfig) (ports.RecognitionStream, error) {
	close(l.entered)
	<-l.release
	return newFakeStream(), nil
}

func TestControllerStatusNotBlockedByDial(t *testing.T) {
	live := &blockingLive{entered: make(chan struct{}), release: make(chan struct{})}
	c := NewController(&fakeSource{}, live, Config{}, nopLogger())

	started := make(chan error, 1)
	go func() { started <- c.Start(context.Background()) }()
	<-live.entered

	done := make(chan models.SessionStatus, 1)
	go func() {
		c.SetLanguage("fr")
		done <- c.Status()
	}()
	select {
	case st := <-done:
		if st != models.StatusIdle {
			t.Fatalf("status while opening = %s", st)
		}
	case <-time.After(time.Second):
		t.Fatal("Status blocked while the recognizer was dialing")
	}

	close(live.release)
	if err := <-started; err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Status() != models.StatusRecording {
		t.Fatalf("status = %s", c.Status())
	}
	drain(t, c)
}

func TestControllerCloseWaitsForStop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fallback := func(context.Context, []byte) (string, error) {
		close(entered)
		<-release
		return "late text", nil
	}
	src := &fakeSource{}
	c := NewController(src, nil, Config{Fallback: fallback}, nopLogger())

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.handle.ch <- []byte("audio")

	stopped := make(chan error, 1)
	go func() {
		_, err := c.Stop(ctx)
		stopped <- err
	}()
	<-entered

	closed := make(chan error, 1)
	go func() { closed <- c.Close(ctx) }()

	select {
	case <-closed:
		t.Fatal("Close returned while Stop was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-closed; err != nil {
		t.Fatalf("Close: %v", err)
	}

	var sawIdle, sawText bool
	for ev := range c.Events() {
		if ev.Kind == EventStatus && ev.Status == models.StatusIdle {
			sawIdle = true
		}
		if ev.Kind == EventTranscript && ev.Text == "late text" {
			sawText = true
		}
	}
	if !sawIdle || !sawText {
		t.Fatalf("idle %v text %v", sawIdle, sawText)
	}
}
