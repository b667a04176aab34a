package infra

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/ports"
	"google.golang.org/api/texttospeech/v1"
)

type GoogleTTSService struct {
	svc     *texttospeech.Service
	initErr error
}

func NewGoogleTTSService(ctx context.Context, apiKey, endpoint string) *GoogleTTSService {
	s := &GoogleTTSService{}
	if apiKey == "" {
		s.initErr = fmt.Errorf("%w: GOOGLE_CLOUD_API_KEY is not set", domain.ErrConfiguration)
		return s
	}
	s.svc, s.initErr = texttospeech.NewService(ctx, googleOptions(apiKey, endpoint)...)
	return s
}

var _ ports.TTSService = (*GoogleTTSService)(nil)

// Synthesize always uses the en-US female voice and MP3 output.
func (s *GoogleTTSService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: "en-US",
			SsmlGender:   "FEMALE",
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}

	resp, err := s.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, googleError("text synthesize", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "text synthesize", Err: fmt.Errorf("decode audio: %w", err)}
	}
	return audio, nil
}
