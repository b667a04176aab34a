package domain

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

const refineBasePrompt = `You are an expert transcription refinement system. Your task is to:
1. Maintain 100% accuracy of the spoken words - do not add, remove, or change any words
2. Format the text with proper punctuation, capitalization, and paragraphing
3. Identify and label speakers if multiple voices are present
4. Preserve any timing information
5. Handle speech disfluencies (um, uh, etc.) accurately
6. Include non-verbal audio cues in [brackets] (e.g., [laughter], [pause], [background noise])
7. Format overlapping speech with appropriate notation
8. Maintain proper spacing between sentences and paragraphs

Please refine the following transcription while ensuring complete word-for-word accuracy.`

type RefineService struct {
	gpt   ports.GPTService
	model string
	log   *logger.ZapLogger
}

func NewRefineService(gpt ports.GPTService, model string, log *logger.ZapLogger) *RefineService {
	return &RefineService{gpt: gpt, model: model, log: log}
}

func RefinePrompt(speakers []string, timestamps bool) string {
	var sb strings.Builder
	sb.WriteString(refineBasePrompt)
	if len(speakers) > 0 {
		sb.WriteString("\nSpeakers in this transcription: ")
		sb.WriteString(strings.Join(speakers, ", "))
		sb.WriteString("\nPlease prefix each speaker's dialogue with their name followed by a colon.")
	}
	if timestamps {
		sb.WriteString("\nPlease preserve all timestamp information in [HH:MM:SS] format at the start of each paragraph or speaker change.")
	}
	return sb.String()
}

func (s *RefineService) Refine(ctx context.Context, req models.RefineRequest) (models.RefineResult, error) {
	raw := strings.TrimSpace(req.Text)
	if raw == "" {
		return models.RefineResult{}, invalid("valid transcription text is required")
	}

	out, err := s.gpt.Complete(ctx, ports.CompletionRequest{
		Model:            s.model,
		SystemPrompt:     RefinePrompt(req.Speakers, req.Timestamps),
		UserMessage:      raw,
		MaxTokens:        2000,
		Temperature:      0.1,
		PresencePenalty:  -0.5,
		FrequencyPenalty: -0.5,
	})
	if err != nil {
		return models.RefineResult{}, upstream("refine transcription", err)
	}

	refined := strings.TrimSpace(out)
	if refined == "" {
		return models.RefineResult{}, upstream("refine transcription", errEmptyCompletion)
	}

	if !WordsPreserved(raw, refined, req.Speakers) {
		s.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "refinement changed spoken words",
			Fields: map[string]any{
				"raw":     trim(raw, 180),
				"refined": trim(refined, 180),
			},
		})
	}

	return models.RefineResult{
		Text:  refined,
		Model: s.model,
		Metadata: models.RefineMetadata{
			HasSpeakers:   len(req.Speakers) > 0,
			HasTimestamps: req.Timestamps,
		},
	}, nil
}

var annotationRe = regexp.MustCompile(`\[[^\]]*\]`)

// WordsPreserved reports whether refined carries exactly the spoken words of
// raw. Bracket annotations and speaker prefixes are ignored; a raw word that
// only shows up inside an annotation (e.g. "[um]") still counts as present.
func WordsPreserved(raw, refined string, speakers []string) bool {
	rawWords := wordCounts(raw)

	var annotated []string
	body := annotationRe.ReplaceAllStringFunc(refined, func(a string) string {
		annotated = append(annotated, a)
		return " "
	})
	body = stripSpeakerPrefixes(body, speakers)

	refWords := wordCounts(body)
	annWords := wordCounts(strings.Join(annotated, " "))

	for w, n := range refWords {
		if n > rawWords[w] {
			return false
		}
	}
	for w, n := range rawWords {
		if missing := n - refWords[w]; missing > 0 && annWords[w] < missing {
			return false
		}
	}
	return true
}

func stripSpeakerPrefixes(text string, speakers []string) string {
	if len(speakers) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		for _, sp := range speakers {
			prefix := sp + ":"
			if len(trimmed) >= len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
				lines[i] = trimmed[len(prefix):]
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

func wordCounts(s string) map[string]int {
	counts := make(map[string]int)
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			counts[f]++
		}
	}
	return counts
}
