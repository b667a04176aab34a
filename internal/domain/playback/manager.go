// Package playback serializes synthesized clips for one client session.
//
// Policy: clips are played strictly one after another in the order they
// were enqueued. The volume is read when a clip starts, so a volume change
// affects queued clips but never re-synthesizes anything.
package playback

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/models"
)

const DefaultVolume = 0.5

// Sink plays one clip and returns when it is done (or handed off).
type Sink interface {
	Play(ctx context.Context, clip models.SpeechAudioClip) error
}

type Manager struct {
	sink   Sink
	log    *logger.ZapLogger
	queue  chan []byte
	volume atomic.Uint64
	seq    atomic.Uint64
}

func NewManager(sink Sink, depth int, log *logger.ZapLogger) *Manager {
	if depth <= 0 {
		depth = 16
	}
	m := &Manager{
		sink:  sink,
		log:   log,
		queue: make(chan []byte, depth),
	}
	m.volume.Store(math.Float64bits(DefaultVolume))
	return m
}

func (m *Manager) SetVolume(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: volume must be between 0 and 1", domain.ErrInvalidInput)
	}
	m.volume.Store(math.Float64bits(v))
	return nil
}

func (m *Manager) Volume() float64 {
	return math.Float64frombits(m.volume.Load())
}

// Enqueue never blocks; it reports false when the queue is full.
func (m *Manager) Enqueue(audio []byte) bool {
	if len(audio) == 0 {
		return false
	}
	select {
	case m.queue <- audio:
		return true
	default:
		return false
	}
}

// Flush drops every clip still waiting in the queue and returns how many
// were dropped. A clip already handed to the sink is not affected.
func (m *Manager) Flush() int {
	n := 0
	for {
		select {
		case <-m.queue:
			n++
		default:
			return n
		}
	}
}

// Run plays queued clips until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case audio := <-m.queue:
			clip := models.SpeechAudioClip{
				Seq:    m.seq.Add(1),
				Audio:  audio,
				Volume: m.Volume(),
			}
			if err := m.sink.Play(ctx, clip); err != nil {
				m.log.Log(logger.LogEntry{
					Level:   "error",
					Message: "playback failed",
					Error:   err,
					Fields:  map[string]any{"clip": clip.Seq},
				})
			}
		}
	}
}
