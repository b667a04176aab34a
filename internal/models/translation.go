package models

import "unicode/utf8"

type TranslationState struct {
	SourceText     string `json:"sourceText"`
	TargetLanguage string `json:"targetLanguage"`
	TranslatedText string `json:"translatedText"`
	SpokenOffset   int    `json:"spokenOffset"` // runes already handed to synthesis
}

// Apply stores a new translation and clamps the spoken offset so it never
// points past the end of the text.
func (s *TranslationState) Apply(source, target, translated string) {
	s.SourceText = source
	s.TargetLanguage = target
	s.TranslatedText = translated
	if n := utf8.RuneCountInString(translated); s.SpokenOffset > n {
		s.SpokenOffset = n
	}
}

// Unspoken is the part of the translation past the spoken offset.
func (s *TranslationState) Unspoken() string {
	runes := []rune(s.TranslatedText)
	if s.SpokenOffset >= len(runes) {
		return ""
	}
	return string(runes[s.SpokenOffset:])
}

// MarkSpoken advances the offset to the end of the current translation and
// returns the suffix that was not yet spoken.
func (s *TranslationState) MarkSpoken() string {
	suffix := s.Unspoken()
	s.SpokenOffset = utf8.RuneCountInString(s.TranslatedText)
	return suffix
}

func (s *TranslationState) Reset(target string) {
	*s = TranslationState{TargetLanguage: target}
}
