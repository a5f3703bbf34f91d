package models

import "time"

// LoadLevel is the categorical cognitive load classification.
type LoadLevel string

const (
	LoadLow    LoadLevel = "low"
	LoadMedium LoadLevel = "medium"
	LoadHigh   LoadLevel = "high"
)

// Int maps a load level to its numeric rank (low=0, medium=1, high=2).
// Unknown levels map to -1.
func (l LoadLevel) Int() int {
	switch l {
	case LoadLow:
		return 0
	case LoadMedium:
		return 1
	case LoadHigh:
		return 2
	}
	return -1
}

// Valid reports whether l is one of the three known levels.
func (l LoadLevel) Valid() bool {
	return l == LoadLow || l == LoadMedium || l == LoadHigh
}

// ModalityScores holds per-modality contribution scores in [0, 1].
// Audio is zero when the audio sensor is disabled.
type ModalityScores struct {
	Visual     float64 `json:"visual"`
	Behavioral float64 `json:"behavioral"`
	Audio      float64 `json:"audio"`
}

// Probabilities holds the per-class probability distribution.
// Values sum to 1.0 within floating tolerance (server-guaranteed).
type Probabilities struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// Reading is one cognitive load prediction pushed to clients.
// This is the wire shape of every data frame on /ws/load.
type Reading struct {
	LoadLevel      LoadLevel      `json:"load_level"`
	Confidence     float64        `json:"confidence"` // 0-1
	ModalityScores ModalityScores `json:"modality_scores"`
	Probabilities  Probabilities  `json:"probabilities"`
	Timestamp      time.Time      `json:"timestamp"`
	SessionID      string         `json:"session_id,omitempty"`
}
