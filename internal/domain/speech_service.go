package domain

import (
	"context"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

type SpeechService struct {
	tts ports.TTSService
	log *logger.ZapLogger
}

func NewSpeechService(tts ports.TTSService, log *logger.ZapLogger) *SpeechService {
	return &SpeechService{tts: tts, log: log}
}

// Speak returns compressed audio for text. Volume is not applied here.
func (s *SpeechService) Speak(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalid("text is required")
	}

	audio, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, upstream("synthesize speech", err)
	}
	if len(audio) == 0 {
		return nil, upstream("synthesize speech", errEmptyAudio)
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "speech generated",
		Fields:  map[string]any{"chars": len(text), "bytes": len(audio)},
	})
	return audio, nil
}
