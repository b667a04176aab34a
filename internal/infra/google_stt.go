package infra

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/speech/v1"
)

// Phrases the recognizer should favour in clinical conversations.
var medicalPhrases = []string{
	"patient",
	"diagnosis",
	"treatment",
	"symptoms",
	"medication",
	"prescription",
	"dosage",
	"MRI",
}

type GoogleSTTService struct {
	svc      *speech.Service
	initErr  error
	language string
}

func NewGoogleSTTService(ctx context.Context, apiKey, endpoint, language string) *GoogleSTTService {
	s := &GoogleSTTService{language: language}
	if apiKey == "" {
		s.initErr = fmt.Errorf("%w: GOOGLE_CLOUD_API_KEY is not set", domain.ErrConfiguration)
		return s
	}
	s.svc, s.initErr = speech.NewService(ctx, googleOptions(apiKey, endpoint)...)
	return s
}

var _ ports.STTService = (*GoogleSTTService)(nil)

func googleOptions(apiKey, endpoint string) []option.ClientOption {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

func (s *GoogleSTTService) Recognize(ctx context.Context, audio []byte) (models.Recognition, error) {
	if s.initErr != nil {
		return models.Recognition{}, s.initErr
	}

	req := &speech.RecognizeRequest{
		Audio: &speech.RecognitionAudio{Content: base64.StdEncoding.EncodeToString(audio)},
		Config: &speech.RecognitionConfig{
			Encoding:                   "WEBM_OPUS",
			LanguageCode:               s.language,
			Model:                      "phone_call",
			UseEnhanced:                true,
			EnableAutomaticPunctuation: true,
			MaxAlternatives:            5,
			ProfanityFilter:            true,
			SpeechContexts: []*speech.SpeechContext{
				{Phrases: medicalPhrases, Boost: 15},
			},
		},
	}

	resp, err := s.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return models.Recognition{}, googleError("speech recognize", err)
	}

	best, ok := BestAlternative(resp)
	if !ok {
		return models.Recognition{}, domain.ErrNoSpeech
	}
	return best, nil
}

// BestAlternative picks the top alternative of each result and keeps the one
// with the highest confidence.
func BestAlternative(resp *speech.RecognizeResponse) (models.Recognition, bool) {
	if resp == nil {
		return models.Recognition{}, false
	}
	var best models.Recognition
	found := false
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		if !found || alt.Confidence > best.Confidence {
			best = models.Recognition{Transcript: alt.Transcript, Confidence: alt.Confidence}
			found = true
		}
	}
	if !found || best.Transcript == "" {
		return models.Recognition{}, false
	}
	return best, true
}

func googleError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &domain.UpstreamError{Op: op, Status: gerr.Code, Err: err}
	}
	return &domain.UpstreamError{Op: op, Err: err}
}
