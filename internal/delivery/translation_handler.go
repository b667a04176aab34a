package delivery

import (
	"encoding/base64"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/Vovarama1992/healthscribe/internal/ports"
)

type TranslationHandler struct {
	translator ports.Translator
	speaker    ports.Speaker
	log        *logger.ZapLogger
}

func NewTranslationHandler(translator ports.Translator, speaker ports.Speaker, log *logger.ZapLogger) *TranslationHandler {
	return &TranslationHandler{
		translator: translator,
		speaker:    speaker,
		log:        log,
	}
}

// POST /api/translate
func (h *TranslationHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text           string `json:"text"`
		TargetLanguage string `json:"targetLanguage"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Text and target language are required.", err)
		return
	}

	out, err := h.translator.Translate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		failure(w, h.log, "translate", err,
			"Text and target language are required.",
			"Translation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"translation": out})
}

// POST /api/speak
func (h *TranslationHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Text is required", err)
		return
	}

	audio, err := h.speaker.Speak(r.Context(), req.Text)
	if err != nil {
		failure(w, h.log, "speak", err, "Text is required", "Failed to generate speech")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"audioContent": base64.StdEncoding.EncodeToString(audio),
	})
}

// GET /api/languages
func (h *TranslationHandler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": models.Languages(),
		"default":   models.DefaultLanguagePair(),
	})
}
