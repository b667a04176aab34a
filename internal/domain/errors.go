package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDeviceUnavailable = errors.New("audio input unavailable")
	ErrConfiguration     = errors.New("missing configuration")
	ErrNoSpeech          = errors.New("no speech detected")
)

// UpstreamError wraps a failed collaborator call. Status is the upstream
// HTTP status when it could be determined, otherwise zero.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func upstream(op string, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}

// StatusCode maps an error from this package to an HTTP status.
func StatusCode(err error) int {
	var ue *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoSpeech):
		return http.StatusBadRequest
	case errors.Is(err, ErrConfiguration):
		return http.StatusInternalServerError
	case errors.As(err, &ue) && ue.Status >= 400 && ue.Status < 600:
		return ue.Status
	default:
		return http.StatusInternalServerError
	}
}
