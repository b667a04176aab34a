package domain

import (
	"context"
	"errors"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/domain/stations"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

// TranscribeService is the batch path: decode -> recognize -> refine.
type TranscribeService struct {
	s1  *stations.S1DecodeAudio
	s2  *stations.S2Recognize
	s3  *stations.S3Refine
	log *logger.ZapLogger
}

func NewTranscribeService(stt ports.STTService, refiner ports.Refiner, log *logger.ZapLogger) *TranscribeService {
	return &TranscribeService{
		s1:  stations.NewS1DecodeAudio(),
		s2:  stations.NewS2Recognize(stt, log, ErrNoSpeech, ErrConfiguration, ErrInvalidInput),
		s3:  stations.NewS3Refine(refiner, log),
		log: log,
	}
}

func (t *TranscribeService) Transcribe(ctx context.Context, audioContent string) (models.Recognition, error) {
	audio, err := t.s1.Run(audioContent)
	if err != nil {
		if errors.Is(err, stations.ErrNoAudio) {
			return models.Recognition{}, invalid("audio content is required")
		}
		return models.Recognition{}, invalid(err.Error())
	}
	return t.TranscribeAudio(ctx, audio)
}

func (t *TranscribeService) TranscribeAudio(ctx context.Context, audio []byte) (models.Recognition, error) {
	if len(audio) == 0 {
		return models.Recognition{}, invalid("audio content is required")
	}
	start := time.Now()

	rec, err := t.s2.Run(ctx, audio)
	if err != nil {
		if errors.Is(err, ErrNoSpeech) {
			return models.Recognition{}, err
		}
		return models.Recognition{}, upstream("recognize speech", err)
	}
	if rec.Transcript == "" {
		return models.Recognition{}, ErrNoSpeech
	}

	refined, err := t.s3.Run(ctx, rec.Transcript)
	if err != nil {
		return models.Recognition{}, err
	}

	t.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "audio transcribed",
		Fields: map[string]any{
			"bytes":      len(audio),
			"confidence": rec.Confidence,
			"dur":        time.Since(start).String(),
		},
	})
	return models.Recognition{Transcript: refined, Confidence: rec.Confidence}, nil
}
