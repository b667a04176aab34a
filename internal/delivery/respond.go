package delivery

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/domain"
)

const maxBodyBytes = 25 << 20

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := errorBody{Error: msg}
	if err != nil {
		body.Details = err.Error()
	}
	writeJSON(w, status, body)
}

// failure converts a service error into the endpoint's JSON error.
// badInput is the message for invalid input, failed for everything else.
func failure(w http.ResponseWriter, log *logger.ZapLogger, op string, err error, badInput, failed string) {
	status := domain.StatusCode(err)

	msg := failed
	switch {
	case errors.Is(err, domain.ErrNoSpeech):
		msg = "No speech detected. Please try again."
	case errors.Is(err, domain.ErrInvalidInput):
		msg = badInput
	}

	level := "error"
	if status < http.StatusInternalServerError {
		level = "warn"
	}
	log.Log(logger.LogEntry{
		Level:   level,
		Message: op + " failed",
		Error:   err,
		Fields:  map[string]any{"status": status},
	})

	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNoSpeech) {
		writeError(w, status, msg, nil)
		return
	}
	writeError(w, status, msg, err)
}
