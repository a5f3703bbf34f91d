package models

import "time"

// CaptureSession spans sensor activation to deactivation for one user sitting.
type CaptureSession struct {
	SessionID     string     `json:"session_id"`
	Scenario      string     `json:"scenario"` // general | coding | exam | interview
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	IsActive      bool       `json:"is_active"`
	WebcamEnabled bool       `json:"webcam_enabled"`
	AudioEnabled  bool       `json:"audio_enabled"`
	AvgConfidence float64    `json:"avg_confidence"`
	Notes         string     `json:"notes,omitempty"`
}

// SessionAnalysis summarizes load patterns across a finished session.
type SessionAnalysis struct {
	SessionID        string         `json:"session_id"`
	Scenario         string         `json:"scenario"`
	AvgLoadLevel     string         `json:"avg_load_level"`
	AvgConfidence    float64        `json:"avg_confidence"`
	PeakLoadLevel    string         `json:"peak_load_level"`
	PeakTimestamp    *time.Time     `json:"peak_timestamp,omitempty"`
	TotalPredictions int            `json:"total_predictions"`
	TimeInHigh       float64        `json:"time_in_high"`   // percent
	TimeInMedium     float64        `json:"time_in_medium"` // percent
	TimeInLow        float64        `json:"time_in_low"`    // percent
	ModalityAverages ModalityScores `json:"modality_averages"`
	Recommendations  []string       `json:"recommendations"`
}
