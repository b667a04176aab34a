package domain

import "errors"

var errEmptyCompletion = errors.New("empty completion")

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

var errEmptyAudio = errors.New("no audio content returned")
