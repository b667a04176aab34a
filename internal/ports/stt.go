package ports

import (
	"context"
	"iter"

	"github.com/Vovarama1992/healthscribe/internal/models"
)

// STTService is the batch speech-to-text collaborator.
type STTService interface {
	Recognize(ctx context.Context, audio []byte) (models.Recognition, error)
}

type LiveConfig struct {
	Language       string
	InterimResults bool
}

// LiveRecognizer opens streaming recognition sessions.
type LiveRecognizer interface {
	Open(ctx context.Context, cfg LiveConfig) (RecognitionStream, error)
}

// RecognitionStream is one live recognition session. Events may be ranged
// over once; the sequence ends when the stream is closed, the context is
// cancelled or the upstream fails (the error is yielded last).
type RecognitionStream interface {
	Send(chunk []byte) error
	CloseSend() error
	Events() iter.Seq2[models.RecognitionEvent, error]
	Close() error
}
