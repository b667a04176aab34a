package domain

import (
	"context"
	"sync"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
	"go.uber.org/zap"
)

func nopLogger() *logger.ZapLogger {
	return logger.NewZapLogger(zap.NewNop().Sugar())
}

type fakeGPT struct {
	mu    sync.Mutex
	calls []ports.CompletionRequest
	reply func(req ports.CompletionRequest) (string, error)
}

func (f *fakeGPT) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.reply == nil {
		return "", nil
	}
	return f.reply(req)
}

func (f *fakeGPT) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTTS struct {
	calls int
	audio []byte
	err   error
}

func (f *fakeTTS) Synthesize(context.Context, string) ([]byte, error) {
	f.calls++
	return f.audio, f.err
}

type fakeSTT struct {
	calls   int
	results []models.Recognition
	errs    []error
}

func (f *fakeSTT) Recognize(context.Context, []byte) (models.Recognition, error) {
	i := f.calls
	f.calls++
	var (
		rec models.Recognition
		err error
	)
	if i < len(f.results) {
		rec = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return rec, err
}
