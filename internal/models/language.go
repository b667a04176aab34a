package models

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Supported is the fixed set of languages offered for input and output.
var Supported = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
}

type Language struct {
	Code  string `json:"value"`
	Label string `json:"label"`
}

type LanguagePair struct {
	Input  string `json:"inputLanguage"`
	Output string `json:"outputLanguage"`
}

func DefaultLanguagePair() LanguagePair {
	return LanguagePair{Input: "en", Output: "es"}
}

func (p LanguagePair) Validate() error {
	if !IsSupported(p.Input) {
		return fmt.Errorf("unsupported input language %q", p.Input)
	}
	if !IsSupported(p.Output) {
		return fmt.Errorf("unsupported output language %q", p.Output)
	}
	return nil
}

func Languages() []Language {
	namer := display.English.Languages()
	out := make([]Language, 0, len(Supported))
	for _, tag := range Supported {
		base, _ := tag.Base()
		out = append(out, Language{Code: base.String(), Label: namer.Name(tag)})
	}
	return out
}

func IsSupported(code string) bool {
	for _, l := range Languages() {
		if l.Code == code {
			return true
		}
	}
	return false
}

// LanguageName returns the English display name for a code ("es" -> "Spanish").
// Codes that do not parse are returned unchanged.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}
	return name
}
