// Package pipeline retranslates the whole transcript on every change and
// feeds newly translated text to speech synthesis when auto-speak is on.
package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

const (
	MsgTranslationFailed = "Translation failed. Please try again."
	MsgSpeechFailed      = "Could not play translated audio."
)

type UpdateKind string

const (
	UpdateTranslation UpdateKind = "translation"
	UpdateCleared     UpdateKind = "cleared"
	UpdateFailed      UpdateKind = "translation_failed"
	UpdateSpeechError UpdateKind = "speech_failed"
)

type Update struct {
	Kind    UpdateKind
	Seq     uint64
	State   models.TranslationState
	Message string
}

// Player accepts synthesized audio for playback.
type Player interface {
	Enqueue(audio []byte) bool
}

type utterance struct {
	text string
	gen  uint64
}

type Pipeline struct {
	translator ports.Translator
	speaker    ports.Speaker
	player     Player
	notify     func(Update)
	log        *logger.ZapLogger

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	flush    chan chan struct{}
	loopDone chan struct{}

	mu        sync.Mutex
	state     models.TranslationState
	source    string
	autoSpeak bool
	issued    uint64 // last request sequence handed out
	applied   uint64 // last request sequence whose outcome was applied
	gen       uint64 // bumped when queued speech stops being current
	pending   []utterance
	wake      chan struct{}
}

func New(
	translator ports.Translator,
	speaker ports.Speaker,
	player Player,
	target string,
	notify func(Update),
	log *logger.ZapLogger,
) *Pipeline {
	if notify == nil {
		notify = func(Update) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		translator: translator,
		speaker:    speaker,
		player:     player,
		notify:     notify,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		state:      models.TranslationState{TargetLanguage: target},
		wake:       make(chan struct{}, 1),
		flush:      make(chan chan struct{}),
		loopDone:   make(chan struct{}),
	}
	go p.speakLoop()
	return p
}

// OnTranscript issues a translation of the full text. Every call issues a
// request; nothing is coalesced.
func (p *Pipeline) OnTranscript(text string) {
	p.mu.Lock()
	p.source = text
	if strings.TrimSpace(text) == "" {
		p.applied = p.issued
		p.gen++
		p.state.Reset(p.state.TargetLanguage)
		p.pending = nil
		st := p.state
		p.mu.Unlock()
		p.notify(Update{Kind: UpdateCleared, State: st})
		return
	}
	p.issued++
	seq, target := p.issued, p.state.TargetLanguage
	p.mu.Unlock()

	p.dispatch(seq, text, target)
}

// SetTargetLanguage switches the output language and retranslates the
// current text. The spoken offset restarts from zero.
func (p *Pipeline) SetTargetLanguage(code string) {
	p.mu.Lock()
	if code == "" || code == p.state.TargetLanguage {
		p.mu.Unlock()
		return
	}
	p.state.Reset(code)
	p.pending = nil
	p.applied = p.issued
	p.gen++
	src := p.source
	if strings.TrimSpace(src) == "" {
		p.mu.Unlock()
		return
	}
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	p.dispatch(seq, src, code)
}

func (p *Pipeline) SetAutoSpeak(on bool) {
	p.mu.Lock()
	p.autoSpeak = on
	p.mu.Unlock()
}

// Reset starts over for a new recording session. Responses to requests
// issued before the reset are dropped, and so is speech synthesized for
// them.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.applied = p.issued
	p.gen++
	p.source = ""
	p.pending = nil
	p.state.Reset(p.state.TargetLanguage)
	st := p.state
	p.mu.Unlock()
	p.notify(Update{Kind: UpdateCleared, State: st})
}

func (p *Pipeline) State() models.TranslationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Wait blocks until in-flight translations and queued speech are done.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
	done := make(chan struct{})
	select {
	case p.flush <- done:
		<-done
	case <-p.loopDone:
	}
}

// Close cancels in-flight work and waits for it.
func (p *Pipeline) Close() {
	p.cancel()
	p.inflight.Wait()
	<-p.loopDone
}

func (p *Pipeline) dispatch(seq uint64, text, target string) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.translate(seq, text, target)
	}()
}

func (p *Pipeline) translate(seq uint64, text, target string) {
	out, err := p.translator.Translate(p.ctx, text, target)

	p.mu.Lock()
	if seq <= p.applied {
		p.mu.Unlock()
		p.log.Log(logger.LogEntry{
			Level:   "info",
			Message: "stale translation dropped",
			Fields:  map[string]any{"seq": seq},
		})
		return
	}
	p.applied = seq

	if err != nil {
		st := p.state
		p.mu.Unlock()
		if p.ctx.Err() != nil {
			return
		}
		p.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "translation failed",
			Error:   err,
			Fields:  map[string]any{"seq": seq, "target": target},
		})
		p.notify(Update{Kind: UpdateFailed, Seq: seq, State: st, Message: MsgTranslationFailed})
		return
	}

	p.state.Apply(text, target, out)
	if p.autoSpeak {
		if suffix := p.state.MarkSpoken(); strings.TrimSpace(suffix) != "" {
			p.pending = append(p.pending, utterance{text: suffix, gen: p.gen})
			select {
			case p.wake <- struct{}{}:
			default:
			}
		}
	}
	st := p.state
	p.mu.Unlock()

	p.notify(Update{Kind: UpdateTranslation, Seq: seq, State: st})
}

// speakLoop synthesizes queued suffixes one by one so clips reach the
// player in the order the text was translated.
func (p *Pipeline) speakLoop() {
	defer close(p.loopDone)
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.wake:
			p.drain()
		case done := <-p.flush:
			p.drain()
			close(done)
		}
	}
}

func (p *Pipeline) drain() {
	for p.ctx.Err() == nil {
		p.mu.Lock()
		if len(p.pending) == 0 {
			p.mu.Unlock()
			return
		}
		u := p.pending[0]
		p.pending = p.pending[1:]
		p.mu.Unlock()

		p.speak(u)
	}
}

func (p *Pipeline) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen
}

func (p *Pipeline) speak(u utterance) {
	if p.speaker == nil || p.player == nil {
		return
	}
	audio, err := p.speaker.Speak(p.ctx, u.text)
	if err != nil {
		if p.ctx.Err() != nil || !p.current(u.gen) {
			return
		}
		p.log.Log(logger.LogEntry{Level: "error", Message: "speech synthesis failed", Error: err})
		p.notify(Update{Kind: UpdateSpeechError, Message: MsgSpeechFailed})
		return
	}
	if !p.current(u.gen) {
		p.log.Log(logger.LogEntry{Level: "info", Message: "stale speech dropped"})
		return
	}
	if !p.player.Enqueue(audio) {
		p.log.Log(logger.LogEntry{Level: "warn", Message: "playback queue full, clip dropped"})
	}
}
