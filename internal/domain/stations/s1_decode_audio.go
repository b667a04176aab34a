package stations

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNoAudio  = errors.New("audio content is required")
	ErrBadAudio = errors.New("audio content is not valid base64")
)

var dataURIPrefix = regexp.MustCompile(`^data:audio/[\w.+-]+(;[\w=.+-]+)*;base64,`)

type S1DecodeAudio struct{}

func NewS1DecodeAudio() *S1DecodeAudio { return &S1DecodeAudio{} }

// Run strips an optional data-URI prefix and decodes the base64 payload.
func (s *S1DecodeAudio) Run(audioContent string) ([]byte, error) {
	content := strings.TrimSpace(audioContent)
	content = dataURIPrefix.ReplaceAllString(content, "")
	if content == "" {
		return nil, ErrNoAudio
	}

	audio, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		// browsers sometimes drop padding
		if audio, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(content, "=")); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadAudio, err)
		}
	}
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}
	return audio, nil
}
