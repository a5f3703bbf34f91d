package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"cognisense-backend/internal/models"
)

// SessionStore persists capture sessions and serves their predictions.
type SessionStore interface {
	UpsertSession(session *models.CaptureSession) error
	GetSession(sessionID string) (*models.CaptureSession, error)
	GetSessionPredictions(sessionID string) ([]models.Reading, error)
	GetRecentPredictions(sessionID string, limit int) ([]models.Reading, error)
	GetAverageConfidence(sessionID string) (float64, error)
}

// SessionService owns the capture session lifecycle and session-level
// load analysis.
type SessionService struct {
	store SessionStore
}

// NewSessionService creates a new session service
func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{store: store}
}

// StartSession creates and persists a new capture session.
func (s *SessionService) StartSession(scenario string, webcamEnabled, audioEnabled bool, notes string) (*models.CaptureSession, error) {
	if scenario == "" {
		scenario = "general"
	}

	session := &models.CaptureSession{
		SessionID:     uuid.New().String(),
		Scenario:      scenario,
		StartedAt:     time.Now().UTC(),
		IsActive:      true,
		WebcamEnabled: webcamEnabled,
		AudioEnabled:  audioEnabled,
		Notes:         notes,
	}

	if err := s.store.UpsertSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	log.Printf("Started capture session %s (scenario=%s)", session.SessionID, scenario)
	return session, nil
}

// StopSession marks a session inactive and records its average
// confidence. Stopping an unknown or already-stopped session is not an
// error; the current row is returned unchanged.
func (s *SessionService) StopSession(sessionID string) (*models.CaptureSession, error) {
	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || !session.IsActive {
		return session, nil
	}

	now := time.Now().UTC()
	session.IsActive = false
	session.EndedAt = &now

	if avg, err := s.store.GetAverageConfidence(sessionID); err == nil {
		session.AvgConfidence = avg
	} else {
		log.Printf("Error computing average confidence for %s: %v", sessionID, err)
	}

	if err := s.store.UpsertSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist stopped session: %w", err)
	}

	log.Printf("Stopped capture session %s", sessionID)
	return session, nil
}

// History returns up to limit readings for a session, newest first.
func (s *SessionService) History(sessionID string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.GetRecentPredictions(sessionID, limit)
}

// Analyze computes the full session analysis: time distribution across
// load levels, the peak prediction, per-modality averages, and
// recommendations derived from the load pattern.
func (s *SessionService) Analyze(sessionID string) (*models.SessionAnalysis, error) {
	predictions, err := s.store.GetSessionPredictions(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}

	scenario := "general"
	if session, err := s.store.GetSession(sessionID); err == nil && session != nil {
		scenario = session.Scenario
	}

	if len(predictions) == 0 {
		return emptyAnalysis(sessionID, scenario), nil
	}

	total := len(predictions)

	var highCount, medCount, lowCount int
	var sumConfidence, sumLevel float64
	var sumVisual, sumBehavioral, sumAudio float64
	peak := predictions[0]

	for _, p := range predictions {
		switch p.LoadLevel {
		case models.LoadHigh:
			highCount++
		case models.LoadMedium:
			medCount++
		case models.LoadLow:
			lowCount++
		}
		sumConfidence += p.Confidence
		sumLevel += float64(p.LoadLevel.Int())
		sumVisual += p.ModalityScores.Visual
		sumBehavioral += p.ModalityScores.Behavioral
		sumAudio += p.ModalityScores.Audio
		if p.Confidence > peak.Confidence {
			peak = p
		}
	}

	timeInHigh := round1(float64(highCount) / float64(total) * 100)
	timeInMedium := round1(float64(medCount) / float64(total) * 100)
	timeInLow := round1(float64(lowCount) / float64(total) * 100)

	avgLoadNum := sumLevel / float64(total)
	avgLoadLevel := string(models.LoadHigh)
	if avgLoadNum < 0.8 {
		avgLoadLevel = string(models.LoadLow)
	} else if avgLoadNum < 1.5 {
		avgLoadLevel = string(models.LoadMedium)
	}

	modalityAverages := models.ModalityScores{
		Visual:     round3(sumVisual / float64(total)),
		Behavioral: round3(sumBehavioral / float64(total)),
		Audio:      round3(sumAudio / float64(total)),
	}

	peakTS := peak.Timestamp
	return &models.SessionAnalysis{
		SessionID:        sessionID,
		Scenario:         scenario,
		AvgLoadLevel:     avgLoadLevel,
		AvgConfidence:    round3(sumConfidence / float64(total)),
		PeakLoadLevel:    string(peak.LoadLevel),
		PeakTimestamp:    &peakTS,
		TotalPredictions: total,
		TimeInHigh:       timeInHigh,
		TimeInMedium:     timeInMedium,
		TimeInLow:        timeInLow,
		ModalityAverages: modalityAverages,
		Recommendations:  recommendations(timeInHigh, modalityAverages, avgLoadLevel),
	}, nil
}

// recommendations derives actionable guidance from session load patterns.
func recommendations(timeInHigh float64, modalityAvg models.ModalityScores, avgLevel string) []string {
	var recs []string

	if timeInHigh > 40 {
		recs = append(recs, "High cognitive load detected for >40% of session. Consider taking breaks every 25 minutes.")
	}
	if timeInHigh > 60 {
		recs = append(recs, "Sustained high load is unsustainable. Reduce task complexity or switch contexts.")
	}

	if modalityAvg.Visual > 0.5 {
		recs = append(recs, "Visual stress indicators are elevated. Reduce screen brightness or increase text size.")
	}
	if modalityAvg.Behavioral > 0.5 {
		recs = append(recs, "Typing and mouse patterns suggest frustration. Consider restructuring the task.")
	}
	if modalityAvg.Audio > 0.5 {
		recs = append(recs, "Voice stress is high. Take deep breaths and slow speech pace.")
	}

	if avgLevel == string(models.LoadLow) && timeInHigh < 10 {
		recs = append(recs, "Overall cognitive load is healthy. Performance should be sustainable.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Moderate cognitive load detected. Monitor for extended periods.")
	}

	return recs
}

func emptyAnalysis(sessionID, scenario string) *models.SessionAnalysis {
	return &models.SessionAnalysis{
		SessionID:       sessionID,
		Scenario:        scenario,
		AvgLoadLevel:    "unknown",
		PeakLoadLevel:   "unknown",
		Recommendations: []string{"No data available for analysis."},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
