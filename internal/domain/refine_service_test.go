package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

func TestRefineRejectsEmptyText(t *testing.T) {
	gpt := &fakeGPT{}
	svc := NewRefineService(gpt, "gpt-4", nopLogger())

	for _, text := range []string{"", "   \n"} {
		_, err := svc.Refine(context.Background(), models.RefineRequest{Text: text})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Refine(%q) err = %v, want ErrInvalidInput", text, err)
		}
	}
	if gpt.count() != 0 {
		t.Fatalf("completion called %d times", gpt.count())
	}
}

func TestRefineRequestShape(t *testing.T) {
	gpt := &fakeGPT{reply: func(ports.CompletionRequest) (string, error) {
		return "Dr. Smith: Patient has a fever.", nil
	}}
	svc := NewRefineService(gpt, "gpt-4", nopLogger())

	res, err := svc.Refine(context.Background(), models.RefineRequest{
		Text:       "patient has a fever",
		Speakers:   []string{"Dr. Smith"},
		Timestamps: true,
	})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if res.Model != "gpt-4" || !res.Metadata.HasSpeakers || !res.Metadata.HasTimestamps {
		t.Fatalf("unexpected result %+v", res)
	}

	req := gpt.calls[0]
	if req.MaxTokens != 2000 || req.Temperature != 0.1 {
		t.Fatalf("max tokens %d temperature %v", req.MaxTokens, req.Temperature)
	}
	if req.PresencePenalty != -0.5 || req.FrequencyPenalty != -0.5 {
		t.Fatalf("penalties %v %v", req.PresencePenalty, req.FrequencyPenalty)
	}
	if req.UserMessage != "patient has a fever" {
		t.Fatalf("user message %q", req.UserMessage)
	}
	if !strings.Contains(req.SystemPrompt, "Dr. Smith") || !strings.Contains(req.SystemPrompt, "[HH:MM:SS]") {
		t.Fatalf("prompt missing speaker or timestamp rule:\n%s", req.SystemPrompt)
	}
}

func TestRefinePropagatesUpstreamStatus(t *testing.T) {
	gpt := &fakeGPT{reply: func(ports.CompletionRequest) (string, error) {
		return "", &UpstreamError{Op: "openai completion", Status: 429, Err: errors.New("rate limited")}
	}}
	svc := NewRefineService(gpt, "gpt-4", nopLogger())

	_, err := svc.Refine(context.Background(), models.RefineRequest{Text: "hello"})
	if StatusCode(err) != 429 {
		t.Fatalf("status = %d, want 429 (err %v)", StatusCode(err), err)
	}
}

func TestRefineEmptyCompletionIsUpstream(t *testing.T) {
	gpt := &fakeGPT{reply: func(ports.CompletionRequest) (string, error) { return "  ", nil }}
	svc := NewRefineService(gpt, "gpt-4", nopLogger())

	_, err := svc.Refine(context.Background(), models.RefineRequest{Text: "hello"})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
}

func TestWordsPreservedDisfluencies(t *testing.T) {
	raw := "um patient has a fever uh"

	cases := []struct {
		refined string
		want    bool
	}{
		{"Um, patient has a fever, uh.", true},
		{"[um] Patient has a fever. [uh]", true},
		{"Patient has a fever.", false},
		{"Patient has a high fever.", false},
		{"Um, patient had a fever, uh.", false},
	}
	for _, tc := range cases {
		if got := WordsPreserved(raw, tc.refined, nil); got != tc.want {
			t.Fatalf("WordsPreserved(%q) = %v, want %v", tc.refined, got, tc.want)
		}
	}
}

func TestWordsPreservedSpeakersAndCues(t *testing.T) {
	raw := "how are you feeling today not great"
	refined := "Doctor: How are you feeling today?\nPatient: [sighs] Not great."
	if !WordsPreserved(raw, refined, []string{"Doctor", "Patient"}) {
		t.Fatal("speaker labels or cues counted as words")
	}
	if WordsPreserved(raw, refined, nil) {
		t.Fatal("unknown speaker labels should count as added words")
	}
}

func TestRefineDisfluencyScenario(t *testing.T) {
	gpt := &fakeGPT{reply: func(ports.CompletionRequest) (string, error) {
		return "Um, patient has a fever, uh.", nil
	}}
	svc := NewRefineService(gpt, "gpt-4", nopLogger())

	res, err := svc.Refine(context.Background(), models.RefineRequest{Text: "um patient has a fever uh"})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !WordsPreserved("um patient has a fever uh", res.Text, nil) {
		t.Fatalf("refined text lost words: %q", res.Text)
	}
}
