package services

import (
	"context"
	"log"
	"sync"
	"time"

	"cognisense-backend/internal/models"
	"cognisense-backend/internal/scoring"
)

// PredictionStore persists readings and raw feature windows.
type PredictionStore interface {
	SavePrediction(reading *models.Reading, modelVersion string) error
	SaveFeatureSample(sample *models.FeatureSample) error
}

// sessionState holds the latest feature sample per modality for one
// active session.
type sessionState struct {
	visual     *models.FeatureSample
	behavioral *models.FeatureSample
	audio      *models.FeatureSample
	updatedAt  time.Time
}

// ScoringService consumes per-modality feature channels, fuses the
// latest window per session at a fixed rate, runs the load classifier
// and emits readings on ReadingChan.
type ScoringService struct {
	store      PredictionStore
	classifier *scoring.Classifier

	interval   time.Duration
	staleAfter time.Duration

	// Input channels from MQTT subscriber
	VisualChan     chan *models.FeatureSample
	BehavioralChan chan *models.FeatureSample
	AudioChan      chan *models.FeatureSample

	// Output channel of emitted readings
	ReadingChan chan *models.Reading

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// ScoringServiceConfig holds configuration for the scoring service
type ScoringServiceConfig struct {
	Interval        time.Duration // emit rate, 1s in production
	StaleAfter      time.Duration // stop scoring sessions without fresh features
	FeatureChanSize int
	ReadingChanSize int
}

// DefaultScoringServiceConfig returns default configuration
func DefaultScoringServiceConfig() ScoringServiceConfig {
	return ScoringServiceConfig{
		Interval:        time.Second,
		StaleAfter:      15 * time.Second,
		FeatureChanSize: 100,
		ReadingChanSize: 50,
	}
}

// NewScoringService creates a new scoring service
func NewScoringService(store PredictionStore, classifier *scoring.Classifier, config ScoringServiceConfig) *ScoringService {
	return &ScoringService{
		store:          store,
		classifier:     classifier,
		interval:       config.Interval,
		staleAfter:     config.StaleAfter,
		VisualChan:     make(chan *models.FeatureSample, config.FeatureChanSize),
		BehavioralChan: make(chan *models.FeatureSample, config.FeatureChanSize),
		AudioChan:      make(chan *models.FeatureSample, config.FeatureChanSize),
		ReadingChan:    make(chan *models.Reading, config.ReadingChanSize),
		sessions:       make(map[string]*sessionState),
	}
}

// Start begins ingesting features and emitting readings.
// Runs until context is cancelled.
func (s *ScoringService) Start(ctx context.Context) {
	log.Println("ScoringService: Starting...")

	go s.ingestLoop(ctx, s.VisualChan)
	go s.ingestLoop(ctx, s.BehavioralChan)
	go s.ingestLoop(ctx, s.AudioChan)
	go s.scoreLoop(ctx)

	<-ctx.Done()
	log.Println("ScoringService: Shutting down...")
}

// ingestLoop records incoming samples as the latest state for their
// session and persists the raw window.
func (s *ScoringService) ingestLoop(ctx context.Context, in chan *models.FeatureSample) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-in:
			if !ok {
				return
			}
			s.Ingest(sample)
		}
	}
}

// Ingest records one feature sample.
func (s *ScoringService) Ingest(sample *models.FeatureSample) {
	switch sample.Modality {
	case models.ModalityVisual, models.ModalityBehavioral, models.ModalityAudio:
	default:
		log.Printf("ScoringService: Unknown modality %q from %s, dropping", sample.Modality, sample.SessionID)
		return
	}

	s.mu.Lock()
	state, exists := s.sessions[sample.SessionID]
	if !exists {
		state = &sessionState{}
		s.sessions[sample.SessionID] = state
		log.Printf("ScoringService: Now tracking session %s", sample.SessionID)
	}
	switch sample.Modality {
	case models.ModalityVisual:
		state.visual = sample
	case models.ModalityBehavioral:
		state.behavioral = sample
	case models.ModalityAudio:
		state.audio = sample
	}
	state.updatedAt = time.Now()
	s.mu.Unlock()

	if s.store != nil {
		// Best effort - scoring continues even if persistence fails
		if err := s.store.SaveFeatureSample(sample); err != nil {
			log.Printf("Error saving feature sample: %v", err)
		}
	}
}

// scoreLoop emits one reading per fresh session at each tick.
func (s *ScoringService) scoreLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(s.ReadingChan)
			return
		case <-ticker.C:
			s.scoreAll()
		}
	}
}

// scoreAll scores every session that has fresh feature data.
func (s *ScoringService) scoreAll() {
	now := time.Now()

	s.mu.RLock()
	pending := make(map[string]*sessionState, len(s.sessions))
	for sessionID, state := range s.sessions {
		if now.Sub(state.updatedAt) <= s.staleAfter {
			pending[sessionID] = state
		}
	}
	s.mu.RUnlock()

	for sessionID, state := range pending {
		reading := s.Score(sessionID, state)
		if reading == nil {
			continue
		}

		if s.store != nil {
			if err := s.store.SavePrediction(reading, s.classifier.Version()); err != nil {
				log.Printf("Error saving prediction: %v", err)
			}
		}

		// Send to channel (non-blocking with timeout)
		select {
		case s.ReadingChan <- reading:
			// Successfully sent
		case <-time.After(1 * time.Second):
			log.Printf("Warning: Reading channel full, dropping reading for %s", sessionID)
		}
	}
}

// Score fuses a session's latest modality windows and classifies them.
// Returns nil when no modality has reported yet.
func (s *ScoringService) Score(sessionID string, state *sessionState) *models.Reading {
	s.mu.RLock()
	visual := featureMap(state.visual)
	behavioral := featureMap(state.behavioral)
	audio := featureMap(state.audio)
	s.mu.RUnlock()

	if len(visual) == 0 && len(behavioral) == 0 && len(audio) == 0 {
		return nil
	}

	fused := scoring.Fuse(visual, behavioral, audio)
	level, confidence, probs := s.classifier.Predict(fused)

	return &models.Reading{
		LoadLevel:      level,
		Confidence:     confidence,
		ModalityScores: scoring.Contributions(visual, behavioral, audio),
		Probabilities:  probs,
		Timestamp:      time.Now().UTC(),
		SessionID:      sessionID,
	}
}

// DropSession stops tracking a session (called when it is stopped).
func (s *ScoringService) DropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// TrackedSessions returns the IDs of sessions with buffered features.
func (s *ScoringService) TrackedSessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for sessionID := range s.sessions {
		ids = append(ids, sessionID)
	}
	return ids
}

func featureMap(sample *models.FeatureSample) map[string]float64 {
	if sample == nil {
		return nil
	}
	return sample.Features
}
