package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/ports"
	"github.com/sashabaranov/go-openai"
)

const gptAttempts = 3

type GPTClient struct {
	client  *openai.Client
	log     *logger.ZapLogger
	backoff time.Duration
}

// NewGPTClient returns a client even without a key; calls then fail with a
// configuration error.
func NewGPTClient(apiKey, baseURL string, log *logger.ZapLogger) *GPTClient {
	g := &GPTClient{log: log, backoff: 300 * time.Millisecond}
	if apiKey == "" {
		return g
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	g.client = openai.NewClientWithConfig(cfg)
	return g
}

var _ ports.GPTService = (*GPTClient)(nil)

// sanitize: drop broken UTF-8
func sanitize(s string) string {
	return strings.ToValidUTF8(s, "")
}

func (g *GPTClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrConfiguration)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: sanitize(req.SystemPrompt)},
	}
	if req.UserMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: sanitize(req.UserMessage),
		})
	}

	creq := openai.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         messages,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	}

	var lastErr error
	for attempt := 1; attempt <= gptAttempts; attempt++ {
		resp, err := g.client.CreateChatCompletion(ctx, creq)
		if err == nil {
			if len(resp.Choices) == 0 {
				lastErr = errors.New("no choices in completion")
				continue
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = err
		status := openAIStatus(err)
		g.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "chat completion failed",
			Error:   err,
			Fields:  map[string]any{"attempt": attempt, "status": status, "model": req.Model},
		})
		if ctx.Err() != nil || !retryableStatus(status) {
			break
		}
		if attempt < gptAttempts && !sleepCtx(ctx, g.backoff*time.Duration(attempt)) {
			break
		}
	}

	return "", &domain.UpstreamError{Op: "chat completion", Status: openAIStatus(lastErr), Err: lastErr}
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// retryableStatus: transport errors (0), rate limits and server faults.
func retryableStatus(status int) bool {
	return status == 0 || status == 429 || status >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
