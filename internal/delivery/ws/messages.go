package ws

// Client -> server
const (
	MsgStart     = "start"
	MsgStop      = "stop"
	MsgLanguage  = "language"
	MsgAutoSpeak = "autoSpeak"
	MsgVolume    = "volume"
)

// Server -> client
const (
	MsgSession     = "session"
	MsgStatus      = "status"
	MsgInterim     = "interim"
	MsgTranscript  = "transcript"
	MsgTranslation = "translation"
	MsgError       = "error"
	MsgAlert       = "alert"
	MsgAudio       = "audio"
)

// StatusEnded is the last status a room sees before it is closed.
const StatusEnded = "ended"

const (
	alertMicrophone   = "Could not access microphone. Please enable microphone permissions."
	errLiveRecognizer = "Live transcription stopped. Stop and start recording again."
)

type inbound struct {
	Type           string   `json:"type"`
	InputLanguage  string   `json:"inputLanguage"`
	OutputLanguage string   `json:"outputLanguage"`
	AutoSpeak      *bool    `json:"autoSpeak"`
	Microphone     *bool    `json:"microphone"`
	Enabled        bool     `json:"enabled"`
	Value          *float64 `json:"value"`
}

type outbound struct {
	Type         string   `json:"type"`
	SessionID    string   `json:"sessionId,omitempty"`
	Status       string   `json:"status,omitempty"`
	Text         string   `json:"text,omitempty"`
	Language     string   `json:"language,omitempty"`
	Seq          uint64   `json:"seq,omitempty"`
	Message      string   `json:"message,omitempty"`
	AudioContent string   `json:"audioContent,omitempty"`
	Volume       *float64 `json:"volume,omitempty"`
}
