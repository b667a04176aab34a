package stations

import (
	"context"
	"errors"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

const retryTimeout = 20 * time.Second

type S2Recognize struct {
	stt     ports.STTService
	log     *logger.ZapLogger
	noRetry []error
}

// NewS2Recognize retries a failed recognition once, unless the failure
// matches one of noRetry.
func NewS2Recognize(stt ports.STTService, log *logger.ZapLogger, noRetry ...error) *S2Recognize {
	return &S2Recognize{stt: stt, log: log, noRetry: noRetry}
}

func (s *S2Recognize) Run(ctx context.Context, audio []byte) (models.Recognition, error) {
	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[S2][START]",
		Fields:  map[string]any{"bytes": len(audio)},
	})

	rec, err := s.stt.Recognize(ctx, audio)
	if err == nil {
		s.log.Log(logger.LogEntry{Level: "info", Message: "[S2][OK]"})
		return rec, nil
	}
	if !s.retryable(ctx, err) {
		return models.Recognition{}, err
	}

	s.log.Log(logger.LogEntry{Level: "warn", Message: "[S2][ERR][FIRST]", Error: err})

	retryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), retryTimeout)
	defer cancel()

	rec, err2 := s.stt.Recognize(retryCtx, audio)
	if err2 == nil {
		s.log.Log(logger.LogEntry{Level: "info", Message: "[S2][OK][RETRY]"})
		return rec, nil
	}

	s.log.Log(logger.LogEntry{Level: "error", Message: "[S2][ERR][RETRY]", Error: err2})
	return models.Recognition{}, err2
}

func (s *S2Recognize) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	for _, target := range s.noRetry {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}
