package models

import "strings"

// Transcript holds the finalized segments of one recording session.
// Segments are only ever appended.
type Transcript struct {
	segments []string
}

// Append adds a final segment and returns the new full text.
// Blank segments are ignored.
func (t *Transcript) Append(segment string) (string, bool) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return t.Text(), false
	}
	t.segments = append(t.segments, segment)
	return t.Text(), true
}

func (t *Transcript) Text() string {
	return strings.Join(t.segments, " ")
}

func (t *Transcript) Segments() []string {
	out := make([]string, len(t.segments))
	copy(out, t.segments)
	return out
}

func (t *Transcript) Len() int { return len(t.segments) }

func (t *Transcript) Reset() { t.segments = nil }

// WithInterim is the display text while a hypothesis is still open.
func (t *Transcript) WithInterim(interim string) string {
	interim = strings.TrimSpace(interim)
	full := t.Text()
	switch {
	case interim == "":
		return full
	case full == "":
		return interim
	default:
		return full + " " + interim
	}
}
