package ports

import (
	"context"

	"github.com/Vovarama1992/healthscribe/internal/models"
)

type Refiner interface {
	Refine(ctx context.Context, req models.RefineRequest) (models.RefineResult, error)
}

type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioContent string) (models.Recognition, error)
	TranscribeAudio(ctx context.Context, audio []byte) (models.Recognition, error)
}
