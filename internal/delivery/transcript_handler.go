package delivery

import (
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

type TranscriptHandler struct {
	refiner     ports.Refiner
	transcriber ports.Transcriber
	log         *logger.ZapLogger
}

func NewTranscriptHandler(refiner ports.Refiner, transcriber ports.Transcriber, log *logger.ZapLogger) *TranscriptHandler {
	return &TranscriptHandler{
		refiner:     refiner,
		transcriber: transcriber,
		log:         log,
	}
}

type refineResponse struct {
	RefinedTranscription string                `json:"refinedTranscription"`
	Model                string                `json:"model"`
	Metadata             models.RefineMetadata `json:"metadata"`
}

// POST /api/refine
func (h *TranscriptHandler) Refine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcription string   `json:"transcription"`
		Speakers      []string `json:"speakers"`
		Timestamps    bool     `json:"timestamps"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Valid transcription text is required", err)
		return
	}

	res, err := h.refiner.Refine(r.Context(), models.RefineRequest{
		Text:       req.Transcription,
		Speakers:   req.Speakers,
		Timestamps: req.Timestamps,
	})
	if err != nil {
		failure(w, h.log, "refine", err,
			"Valid transcription text is required",
			"Failed to refine transcription")
		return
	}

	writeJSON(w, http.StatusOK, refineResponse{
		RefinedTranscription: res.Text,
		Model:                res.Model,
		Metadata:             res.Metadata,
	})
}

// POST /api/transcribe
func (h *TranscriptHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AudioContent string `json:"audioContent"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Audio content is required", err)
		return
	}

	rec, err := h.transcriber.Transcribe(r.Context(), req.AudioContent)
	if err != nil {
		failure(w, h.log, "transcribe", err,
			"Audio content is required",
			"Failed to transcribe audio. Please try again.")
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "transcription served",
		Fields:  map[string]any{"confidence": rec.Confidence, "length": len(rec.Transcript)},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"transcription": rec.Transcript,
		"confidence":    rec.Confidence,
	})
}
