package models

import "testing"

func TestLanguages(t *testing.T) {
	langs := Languages()
	want := map[string]string{"en": "English", "es": "Spanish", "fr": "French", "de": "German"}
	if len(langs) != len(want) {
		t.Fatalf("got %d languages", len(langs))
	}
	for _, l := range langs {
		if want[l.Code] != l.Label {
			t.Fatalf("%s label = %q, want %q", l.Code, l.Label, want[l.Code])
		}
	}
}

func TestLanguagePairValidate(t *testing.T) {
	if err := DefaultLanguagePair().Validate(); err != nil {
		t.Fatalf("default pair invalid: %v", err)
	}
	if err := (LanguagePair{Input: "en", Output: "ja"}).Validate(); err == nil {
		t.Fatal("ja accepted as output")
	}
	if err := (LanguagePair{Input: "", Output: "es"}).Validate(); err == nil {
		t.Fatal("empty input accepted")
	}
}

func TestLanguageName(t *testing.T) {
	cases := map[string]string{
		"es":    "Spanish",
		"de":    "German",
		"%%bad": "%%bad",
	}
	for code, want := range cases {
		if got := LanguageName(code); got != want {
			t.Fatalf("LanguageName(%q) = %q, want %q", code, got, want)
		}
	}
}
