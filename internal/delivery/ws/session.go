package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/domain/capture"
	"github.com/Vovarama1992/healthscribe/internal/domain/pipeline"
	"github.com/Vovarama1992/healthscribe/internal/domain/playback"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

const closeTimeout = 5 * time.Second

// Deps are the collaborators shared by every session.
type Deps struct {
	Live          ports.LiveRecognizer
	Translator    ports.Translator
	Speaker       ports.Speaker
	Transcriber   ports.Transcriber
	BatchFallback bool
	Log           *logger.ZapLogger
}

// Session is one client's recording + translation state.
type Session struct {
	id     string
	hub    *Hub
	log    *logger.ZapLogger
	source *frameSource
	ctrl   *capture.Controller
	pipe   *pipeline.Pipeline
	player *playback.Manager
	pair   models.LanguagePair

	runDone chan struct{}
}

// NewSession wires a controller, pipeline and player whose output goes to
// the hub room id.
func NewSession(id string, hub *Hub, deps Deps) *Session {
	s := &Session{
		id:     id,
		hub:    hub,
		log:    deps.Log,
		source: newFrameSource(),
		pair:   models.DefaultLanguagePair(),

		runDone: make(chan struct{}),
	}

	cfg := capture.Config{Language: s.pair.Input}
	if deps.BatchFallback && deps.Transcriber != nil {
		cfg.Fallback = func(ctx context.Context, audio []byte) (string, error) {
			rec, err := deps.Transcriber.TranscribeAudio(ctx, audio)
			return rec.Transcript, err
		}
	}

	s.ctrl = capture.NewController(s.source, deps.Live, cfg, deps.Log)
	s.player = playback.NewManager(roomSink{hub: hub, room: id}, 16, deps.Log)
	s.pipe = pipeline.New(deps.Translator, deps.Speaker, s.player, s.pair.Output, s.onUpdate, deps.Log)
	return s
}

func (s *Session) ID() string { return s.id }

// Run forwards controller events and plays audio until ctx ends.
func (s *Session) Run(ctx context.Context) {
	defer close(s.runDone)
	go s.player.Run(ctx)

	for ev := range s.ctrl.Events() {
		switch ev.Kind {
		case capture.EventStatus:
			s.send(outbound{Type: MsgStatus, Status: string(ev.Status)})
		case capture.EventInterim:
			s.send(outbound{Type: MsgInterim, Text: ev.Text})
		case capture.EventTranscript:
			s.send(outbound{Type: MsgTranscript, Text: ev.Text})
			s.pipe.OnTranscript(ev.Text)
		case capture.EventStreamError:
			s.send(outbound{Type: MsgError, Message: errLiveRecognizer})
		}
	}
}

// PushAudio forwards one binary frame from the browser.
func (s *Session) PushAudio(chunk []byte) {
	s.source.Push(chunk)
}

// Handle applies one client control message.
func (s *Session) Handle(ctx context.Context, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.send(outbound{Type: MsgError, Message: "invalid message"})
		return
	}

	switch msg.Type {
	case MsgStart:
		s.start(ctx, msg)
	case MsgStop:
		s.stop(ctx)
	case MsgLanguage:
		if !models.IsSupported(msg.OutputLanguage) {
			s.send(outbound{Type: MsgError, Message: "unsupported language"})
			return
		}
		s.pair.Output = msg.OutputLanguage
		s.pipe.SetTargetLanguage(msg.OutputLanguage)
	case MsgAutoSpeak:
		s.pipe.SetAutoSpeak(msg.Enabled)
	case MsgVolume:
		if msg.Value == nil {
			s.send(outbound{Type: MsgError, Message: "volume value is required"})
			return
		}
		if err := s.player.SetVolume(*msg.Value); err != nil {
			s.send(outbound{Type: MsgError, Message: err.Error()})
		}
	default:
		s.send(outbound{Type: MsgError, Message: "unknown message type"})
	}
}

func (s *Session) start(ctx context.Context, msg inbound) {
	pair := s.pair
	if msg.InputLanguage != "" {
		pair.Input = msg.InputLanguage
	}
	if msg.OutputLanguage != "" {
		pair.Output = msg.OutputLanguage
	}
	if err := pair.Validate(); err != nil {
		s.send(outbound{Type: MsgError, Message: err.Error()})
		return
	}
	s.pair = pair

	s.source.Allow(msg.Microphone == nil || *msg.Microphone)
	s.ctrl.SetLanguage(pair.Input)
	s.pipe.Reset()
	if n := s.player.Flush(); n > 0 {
		s.log.Log(logger.LogEntry{
			Level:   "info",
			Message: "dropped clips from previous recording",
			Fields:  map[string]any{"session": s.id, "clips": n},
		})
	}
	s.pipe.SetTargetLanguage(pair.Output)
	if msg.AutoSpeak != nil {
		s.pipe.SetAutoSpeak(*msg.AutoSpeak)
	}

	err := s.ctrl.Start(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDeviceUnavailable):
		s.send(outbound{Type: MsgAlert, Message: alertMicrophone})
	default:
		s.send(outbound{Type: MsgError, Message: err.Error()})
	}
}

func (s *Session) stop(ctx context.Context) {
	res, err := s.ctrl.Stop(ctx)
	if err != nil {
		s.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "recording teardown",
			Error:   err,
			Fields:  map[string]any{"session": s.id},
		})
	}
	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "session recording finished",
		Fields: map[string]any{
			"session":  s.id,
			"segments": len(res.Segments),
			"bytes":    len(res.Audio),
		},
	})
}

// Close ends the recording, drops in-flight work and closes the event stream.
func (s *Session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.ctrl.Close(ctx); err != nil {
		s.log.Log(logger.LogEntry{Level: "warn", Message: "session close", Error: err})
	}
	<-s.runDone
	s.pipe.Close()
}

func (s *Session) onUpdate(u pipeline.Update) {
	switch u.Kind {
	case pipeline.UpdateTranslation:
		s.send(outbound{
			Type:     MsgTranslation,
			Text:     u.State.TranslatedText,
			Language: u.State.TargetLanguage,
			Seq:      u.Seq,
		})
	case pipeline.UpdateCleared:
		s.send(outbound{Type: MsgTranslation, Language: u.State.TargetLanguage})
	case pipeline.UpdateFailed, pipeline.UpdateSpeechError:
		s.send(outbound{Type: MsgError, Message: u.Message})
	}
}

func (s *Session) send(m outbound) {
	s.hub.SendJSON(s.id, m)
}

type roomSink struct {
	hub  *Hub
	room string
}

func (r roomSink) Play(_ context.Context, clip models.SpeechAudioClip) error {
	vol := clip.Volume
	r.hub.SendJSON(r.room, outbound{
		Type:         MsgAudio,
		Seq:          clip.Seq,
		AudioContent: base64.StdEncoding.EncodeToString(clip.Audio),
		Volume:       &vol,
	})
	return nil
}
