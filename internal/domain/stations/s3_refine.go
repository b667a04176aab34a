package stations

import (
	"context"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

type S3Refine struct {
	refiner ports.Refiner
	log     *logger.ZapLogger
}

func NewS3Refine(refiner ports.Refiner, log *logger.ZapLogger) *S3Refine {
	return &S3Refine{refiner: refiner, log: log}
}

func (s *S3Refine) Run(ctx context.Context, raw string) (string, error) {
	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[S3][IN-raw]",
		Fields:  map[string]any{"text": trim(raw, 180)},
	})

	out, err := s.refiner.Refine(ctx, models.RefineRequest{Text: raw})
	if err != nil {
		s.log.Log(logger.LogEntry{Level: "error", Message: "[S3][ERR]", Error: err})
		return "", err
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[S3][REFINED]",
		Fields:  map[string]any{"text": trim(out.Text, 220)},
	})
	return out.Text, nil
}
