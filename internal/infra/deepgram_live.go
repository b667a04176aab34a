package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
	"github.com/gorilla/websocket"
)

const (
	DeepgramListenURL = "wss://api.deepgram.com/v1/listen"
	deepgramModel     = "nova-2-medical"
)

type DeepgramLive struct {
	apiKey  string
	baseURL string
	dialer  *websocket.Dialer
	log     *logger.ZapLogger
}

func NewDeepgramLive(apiKey, baseURL string, log *logger.ZapLogger) *DeepgramLive {
	if baseURL == "" {
		baseURL = DeepgramListenURL
	}
	return &DeepgramLive{
		apiKey:  apiKey,
		baseURL: baseURL,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:     log,
	}
}

var _ ports.LiveRecognizer = (*DeepgramLive)(nil)

type deepgramResponse struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (d *DeepgramLive) Open(ctx context.Context, cfg ports.LiveConfig) (ports.RecognitionStream, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is not set", domain.ErrConfiguration)
	}

	endpoint, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, err
	}
	q := endpoint.Query()
	q.Set("model", deepgramModel)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if cfg.InterimResults {
		q.Set("interim_results", "true")
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	endpoint.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	conn, resp, err := d.dialer.DialContext(ctx, endpoint.String(), headers)
	if err != nil {
		ue := &domain.UpstreamError{Op: "deepgram dial", Err: err}
		if resp != nil {
			ue.Status = resp.StatusCode
		}
		return nil, ue
	}

	s := &deepgramStream{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	d.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "live recognition connected",
		Fields:  map[string]any{"language": cfg.Language},
	})
	return s, nil
}

type deepgramStream struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	used   atomic.Bool
	closed atomic.Bool
	once   sync.Once
	done   chan struct{}
}

func (s *deepgramStream) Send(chunk []byte) error {
	if s.closed.Load() {
		return net.ErrClosed
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// CloseSend asks the service to flush pending results and close.
func (s *deepgramStream) CloseSend() error {
	if s.closed.Load() {
		return nil
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
}

func (s *deepgramStream) Events() iter.Seq2[models.RecognitionEvent, error] {
	return func(yield func(models.RecognitionEvent, error) bool) {
		if !s.used.CompareAndSwap(false, true) {
			return
		}
		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return
				}
				yield(models.RecognitionEvent{}, err)
				return
			}

			var resp deepgramResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				continue
			}
			if resp.Type != "Results" || len(resp.Channel.Alternatives) == 0 {
				continue
			}

			text := strings.TrimSpace(resp.Channel.Alternatives[0].Transcript)
			if text == "" {
				continue
			}
			ev := models.RecognitionEvent{
				Transcript: text,
				Final:      resp.IsFinal || resp.FromFinalize,
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func (s *deepgramStream) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wmu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.wmu.Unlock()
		err = s.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
