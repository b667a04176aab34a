package ports

import "context"

type CompletionRequest struct {
	Model            string
	SystemPrompt     string
	UserMessage      string
	MaxTokens        int
	Temperature      float32
	PresencePenalty  float32
	FrequencyPenalty float32
}

type GPTService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
