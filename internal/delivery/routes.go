package delivery

import (
	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, hTranscript *TranscriptHandler, hTranslation *TranslationHandler) {
	r.Route("/api", func(r chi.Router) {
		// transcript
		r.Post("/refine", hTranscript.Refine)
		r.Post("/openai", hTranscript.Refine) // path used by the first web client
		r.Post("/transcribe", hTranscript.Transcribe)

		// translation + speech
		r.Post("/translate", hTranslation.Translate)
		r.Post("/speak", hTranslation.Speak)
		r.Get("/languages", hTranslation.Languages)
	})
}
