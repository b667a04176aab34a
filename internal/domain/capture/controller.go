// Package capture owns the microphone recording session and turns live
// recognition results into an append-only transcript.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrClosed           = errors.New("capture controller closed")
)

type EventKind string

const (
	EventStatus      EventKind = "status"
	EventInterim     EventKind = "interim"
	EventTranscript  EventKind = "transcript"
	EventStreamError EventKind = "stream_error"
)

type Event struct {
	Kind   EventKind
	Status models.SessionStatus
	Text   string
	Err    error
}

// BatchFallback transcribes the accumulated audio when live recognition
// produced nothing.
type BatchFallback func(ctx context.Context, audio []byte) (string, error)

type Config struct {
	Language    string
	Fallback    BatchFallback
	DrainWait   time.Duration // how long Stop waits for trailing final results
	EventBuffer int
}

type Result struct {
	Transcript string
	Segments   []string
	Audio      []byte
	Chunks     int
}

type Controller struct {
	source ports.AudioSource
	live   ports.LiveRecognizer
	cfg    Config
	log    *logger.ZapLogger

	opMu sync.Mutex // serializes Start, Stop and Close

	mu     sync.Mutex
	status models.SessionStatus
	sess   *session
	closed bool

	tmu        sync.Mutex
	transcript models.Transcript

	events chan Event
}

type session struct {
	handle ports.AudioHandle
	stream ports.RecognitionStream
	alive  atomic.Bool

	cancel   context.CancelFunc
	group    *errgroup.Group
	pumpDone chan struct{}
	recvDone chan struct{}

	amu    sync.Mutex
	chunks [][]byte
}

func NewController(source ports.AudioSource, live ports.LiveRecognizer, cfg Config, log *logger.ZapLogger) *Controller {
	if cfg.DrainWait <= 0 {
		cfg.DrainWait = 2 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &Controller{
		source: source,
		live:   live,
		cfg:    cfg,
		log:    log,
		status: models.StatusIdle,
		events: make(chan Event, cfg.EventBuffer),
	}
}

func (c *Controller) Events() <-chan Event { return c.events }

func (c *Controller) Status() models.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Transcript() string {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	return c.transcript.Text()
}

func (c *Controller) Segments() []string {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	return c.transcript.Segments()
}

// SetLanguage sets the recognition language for the next session.
func (c *Controller) SetLanguage(code string) {
	c.mu.Lock()
	c.cfg.Language = code
	c.mu.Unlock()
}

// Start moves Idle -> Recording. The session lives until Stop or until ctx
// is cancelled. Status stays Idle while the input and the recognizer are
// being opened.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	closed, status, lang := c.closed, c.status, c.cfg.Language
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if status != models.StatusIdle {
		return ErrAlreadyRecording
	}

	handle, err := c.source.Open(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	s := &session{
		handle:   handle,
		cancel:   cancel,
		pumpDone: make(chan struct{}),
	}

	stream, err := c.openStream(sessCtx, lang)
	if err != nil {
		c.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "live recognition unavailable, recording audio only",
			Error:   err,
		})
	} else {
		s.stream = stream
		s.alive.Store(true)
		s.recvDone = make(chan struct{})
	}

	c.tmu.Lock()
	c.transcript.Reset()
	c.tmu.Unlock()

	// A recognition failure ends the consumer only; audio keeps
	// accumulating on sessCtx for the batch fallback.
	g, gctx := errgroup.WithContext(sessCtx)
	s.group = g
	g.Go(func() error {
		defer close(s.pumpDone)
		c.pump(sessCtx, s)
		return nil
	})
	if s.stream != nil {
		g.Go(func() error {
			defer close(s.recvDone)
			return c.consume(gctx, s)
		})
	}

	c.mu.Lock()
	c.sess = s
	c.status = models.StatusRecording
	c.mu.Unlock()

	c.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "recording started",
		Fields:  map[string]any{"live": s.stream != nil},
	})
	c.emit(ctx, Event{Kind: EventStatus, Status: models.StatusRecording})
	return nil
}

// Stop moves Recording -> Idle. Calling it while idle is a no-op. The
// returned error carries teardown failures and the recognition stream error,
// if the stream died during the session.
func (c *Controller) Stop(ctx context.Context) (Result, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stop(ctx)
}

func (c *Controller) stop(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.status != models.StatusRecording {
		c.mu.Unlock()
		return Result{}, nil
	}
	s := c.sess
	c.status = models.StatusStopping
	c.mu.Unlock()

	c.emit(ctx, Event{Kind: EventStatus, Status: models.StatusStopping})

	errs := s.handle.Close()
	select {
	case <-s.pumpDone:
	case <-ctx.Done():
	}

	if s.stream != nil {
		if s.alive.Load() {
			if err := s.stream.CloseSend(); err != nil {
				c.log.Log(logger.LogEntry{Level: "warn", Message: "recognition finalize failed", Error: err})
			}
		}
		select {
		case <-s.recvDone:
		case <-time.After(c.cfg.DrainWait):
			c.log.Log(logger.LogEntry{Level: "warn", Message: "recognition drain timeout"})
		case <-ctx.Done():
		}
		errs = multierr.Append(errs, s.stream.Close())
	}

	s.cancel()
	errs = multierr.Append(errs, s.group.Wait())

	res := Result{Audio: s.audio(), Chunks: s.chunkCount()}

	if c.Transcript() == "" && len(res.Audio) > 0 && c.cfg.Fallback != nil {
		c.runFallback(ctx, res.Audio)
	}
	res.Transcript = c.Transcript()
	res.Segments = c.Segments()

	c.mu.Lock()
	c.status = models.StatusIdle
	c.sess = nil
	c.mu.Unlock()

	c.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "recording stopped",
		Fields: map[string]any{
			"chunks":   res.Chunks,
			"bytes":    len(res.Audio),
			"segments": len(res.Segments),
		},
	})
	c.emit(ctx, Event{Kind: EventStatus, Status: models.StatusIdle})
	return res, errs
}

// Close stops any active session, waiting for a Stop already in progress,
// and closes the event channel.
func (c *Controller) Close(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	_, err := c.stop(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return err
}

func (c *Controller) openStream(ctx context.Context, lang string) (ports.RecognitionStream, error) {
	if c.live == nil {
		return nil, errors.New("no live recognizer configured")
	}
	return c.live.Open(ctx, ports.LiveConfig{Language: lang, InterimResults: true})
}

func (c *Controller) pump(ctx context.Context, s *session) {
	chunks := s.handle.Chunks()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if len(chunk) == 0 {
				continue
			}
			s.amu.Lock()
			s.chunks = append(s.chunks, chunk)
			s.amu.Unlock()

			if s.stream == nil || !s.alive.Load() {
				continue
			}
			if err := s.stream.Send(chunk); err != nil {
				s.alive.Store(false)
				c.log.Log(logger.LogEntry{Level: "error", Message: "recognition send failed", Error: err})
			}
		}
	}
}

// consume is the only writer of the transcript while a session runs. It
// returns the stream error, if any.
func (c *Controller) consume(ctx context.Context, s *session) error {
	for ev, err := range s.stream.Events() {
		if err != nil {
			s.alive.Store(false)
			c.log.Log(logger.LogEntry{
				Level:   "error",
				Message: "recognition stream terminated",
				Error:   err,
			})
			c.emit(ctx, Event{Kind: EventStreamError, Err: err})
			return fmt.Errorf("recognition stream: %w", err)
		}

		if !ev.Final {
			c.tmu.Lock()
			display := c.transcript.WithInterim(ev.Transcript)
			c.tmu.Unlock()
			c.emit(ctx, Event{Kind: EventInterim, Text: display})
			continue
		}

		if full, ok := c.appendFinal(ev.Transcript); ok {
			c.emit(ctx, Event{Kind: EventTranscript, Text: full})
		}
	}
	return nil
}

func (c *Controller) runFallback(ctx context.Context, audio []byte) {
	text, err := c.cfg.Fallback(ctx, audio)
	if err != nil {
		c.log.Log(logger.LogEntry{Level: "warn", Message: "batch transcription failed", Error: err})
		return
	}
	if full, ok := c.appendFinal(text); ok {
		c.emit(ctx, Event{Kind: EventTranscript, Text: full})
	}
}

func (c *Controller) appendFinal(text string) (string, bool) {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	return c.transcript.Append(text)
}

func (c *Controller) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

func (s *session) audio() []byte {
	s.amu.Lock()
	defer s.amu.Unlock()
	return bytes.Join(s.chunks, nil)
}

func (s *session) chunkCount() int {
	s.amu.Lock()
	defer s.amu.Unlock()
	return len(s.chunks)
}
