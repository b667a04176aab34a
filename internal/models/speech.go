package models

type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusRecording SessionStatus = "recording"
	StatusStopping  SessionStatus = "stopping"
)

type SpeechAudioClip struct {
	Seq    uint64
	Audio  []byte
	Volume float64
}

// Recognition is the best alternative returned by a batch recognizer.
type Recognition struct {
	Transcript string
	Confidence float64
}

type RecognitionEvent struct {
	Transcript string
	Final      bool
}

type RefineMetadata struct {
	HasSpeakers   bool `json:"hasSpeakers"`
	HasTimestamps bool `json:"hasTimestamps"`
}

type RefineRequest struct {
	Text       string
	Speakers   []string
	Timestamps bool
}

type RefineResult struct {
	Text     string
	Model    string
	Metadata RefineMetadata
}
