package ports

import "context"

type TTSService interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
