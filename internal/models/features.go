package models

import "time"

// Modality names used on MQTT topics and in fused feature keys.
const (
	ModalityVisual     = "visual"
	ModalityBehavioral = "behavioral"
	ModalityAudio      = "audio"
)

// FeatureSample is one window of extracted features from a single
// modality, published by a capture agent.
type FeatureSample struct {
	Timestamp time.Time          `json:"timestamp"`
	SessionID string             `json:"session_id"`
	Modality  string             `json:"modality"`
	Features  map[string]float64 `json:"features"`
}

// AudioChunkPayload is the raw audio frame published by the audio
// capture agent when feature extraction happens server-side.
type AudioChunkPayload struct {
	Data       []byte  `json:"data"` // base64-decoded 16-bit PCM
	SampleRate int     `json:"sample_rate"`
	Duration   float64 `json:"duration"` // seconds
}
