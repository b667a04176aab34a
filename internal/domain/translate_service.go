package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

type TranslateService struct {
	gpt   ports.GPTService
	model string
	log   *logger.ZapLogger
}

func NewTranslateService(gpt ports.GPTService, model string, log *logger.ZapLogger) *TranslateService {
	return &TranslateService{gpt: gpt, model: model, log: log}
}

func TranslatePrompt(text, targetLanguage string) string {
	return fmt.Sprintf("Translate the following text to %s. The text is: %q",
		models.LanguageName(targetLanguage), text)
}

// Translate is single-shot: no earlier turns are sent along.
func (s *TranslateService) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	text = strings.TrimSpace(text)
	targetLanguage = strings.TrimSpace(targetLanguage)
	if text == "" || targetLanguage == "" {
		return "", invalid("text and target language are required")
	}

	out, err := s.gpt.Complete(ctx, ports.CompletionRequest{
		Model:        s.model,
		SystemPrompt: TranslatePrompt(text, targetLanguage),
		MaxTokens:    100,
		Temperature:  0.3,
	})
	if err != nil {
		return "", upstream("translate", err)
	}

	translation := strings.TrimSpace(out)
	if translation == "" {
		return "", upstream("translate", errEmptyCompletion)
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "text translated",
		Fields: map[string]any{
			"target": targetLanguage,
			"in":     len(text),
			"out":    len(translation),
		},
	})
	return translation, nil
}
