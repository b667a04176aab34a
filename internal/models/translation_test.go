package models

import (
	"testing"
	"unicode/utf8"
)

func TestSpokenOffsetNeverExceedsText(t *testing.T) {
	var s TranslationState
	steps := []string{"Hola", "Hola mundo", "Hola", "", "Hola señor"}
	for _, tr := range steps {
		s.Apply("src", "es", tr)
		if n := utf8.RuneCountInString(s.TranslatedText); s.SpokenOffset > n {
			t.Fatalf("offset %d past text %q", s.SpokenOffset, s.TranslatedText)
		}
		s.MarkSpoken()
		if n := utf8.RuneCountInString(s.TranslatedText); s.SpokenOffset != n {
			t.Fatalf("offset %d after mark, want %d", s.SpokenOffset, n)
		}
	}
}

func TestMarkSpokenReturnsOnlyNewSuffix(t *testing.T) {
	var s TranslationState
	s.Apply("hello", "es", "Hola")
	if got := s.MarkSpoken(); got != "Hola" {
		t.Fatalf("first suffix = %q", got)
	}
	s.Apply("hello world", "es", "Hola mundo")
	if got := s.MarkSpoken(); got != " mundo" {
		t.Fatalf("second suffix = %q", got)
	}
	if got := s.MarkSpoken(); got != "" {
		t.Fatalf("repeated mark = %q", got)
	}
}

func TestSpokenOffsetCountsRunes(t *testing.T) {
	var s TranslationState
	s.Apply("x", "es", "¿Qué")
	s.MarkSpoken()
	if s.SpokenOffset != 4 {
		t.Fatalf("offset = %d, want 4", s.SpokenOffset)
	}
	s.Apply("x", "es", "¿Qué tal?")
	if got := s.Unspoken(); got != " tal?" {
		t.Fatalf("unspoken = %q", got)
	}
}

func TestResetKeepsTarget(t *testing.T) {
	s := TranslationState{SourceText: "a", TranslatedText: "b", SpokenOffset: 1, TargetLanguage: "es"}
	s.Reset("fr")
	if s != (TranslationState{TargetLanguage: "fr"}) {
		t.Fatalf("reset = %+v", s)
	}
}
