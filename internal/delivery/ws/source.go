package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

const frameBuffer = 256

// frameSource exposes the browser microphone, delivered as binary
// WebSocket frames, as an exclusive audio input.
type frameSource struct {
	mu      sync.Mutex
	allowed bool
	active  *frameHandle
}

func newFrameSource() *frameSource {
	return &frameSource{}
}

// Allow records whether the browser obtained microphone permission.
func (f *frameSource) Allow(ok bool) {
	f.mu.Lock()
	f.allowed = ok
	f.mu.Unlock()
}

func (f *frameSource) Open(_ context.Context) (ports.AudioHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.allowed {
		return nil, fmt.Errorf("%w: microphone permission denied", domain.ErrDeviceUnavailable)
	}
	if f.active != nil {
		return nil, fmt.Errorf("%w: microphone already in use", domain.ErrDeviceUnavailable)
	}

	h := &frameHandle{
		src:  f,
		ch:   make(chan []byte, frameBuffer),
		done: make(chan struct{}),
	}
	f.active = h
	return h, nil
}

// Push hands a frame to the open handle. Frames arriving while no session
// holds the input are dropped.
func (f *frameSource) Push(chunk []byte) bool {
	f.mu.Lock()
	h := f.active
	f.mu.Unlock()
	if h == nil {
		return false
	}
	return h.push(chunk)
}

func (f *frameSource) release(h *frameHandle) {
	f.mu.Lock()
	if f.active == h {
		f.active = nil
	}
	f.mu.Unlock()
}

type frameHandle struct {
	src  *frameSource
	ch   chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

func (h *frameHandle) Chunks() <-chan []byte { return h.ch }

func (h *frameHandle) push(chunk []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return false
	}
	select {
	case h.ch <- chunk:
		return true
	case <-h.done:
		return false
	}
}

func (h *frameHandle) Close() error {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		h.closed = true
		close(h.ch)
		h.mu.Unlock()
		h.src.release(h)
	})
	return nil
}
