package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cognisense-backend/internal/models"
	"cognisense-backend/internal/scoring"
)

func testClassifier(t *testing.T) *scoring.Classifier {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, scoring.CreateSampleModel(path))
	classifier, err := scoring.NewClassifier(path)
	require.NoError(t, err)
	return classifier
}

func newTestScoringService(t *testing.T, store PredictionStore) *ScoringService {
	t.Helper()
	config := DefaultScoringServiceConfig()
	config.Interval = 10 * time.Millisecond
	return NewScoringService(store, testClassifier(t), config)
}

func sample(sessionID, modality string, features map[string]float64) *models.FeatureSample {
	return &models.FeatureSample{
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Modality:  modality,
		Features:  features,
	}
}

func TestIngestTracksSessionAndPersists(t *testing.T) {
	store := newFakeStore()
	svc := newTestScoringService(t, store)

	svc.Ingest(sample("s1", models.ModalityVisual, map[string]float64{"blink_rate": 0.3}))
	svc.Ingest(sample("s1", models.ModalityBehavioral, map[string]float64{"typing_speed": 0.6}))
	svc.Ingest(sample("s2", models.ModalityVisual, map[string]float64{"blink_rate": 0.1}))

	assert.ElementsMatch(t, []string{"s1", "s2"}, svc.TrackedSessions())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.samples, 3)
}

func TestIngestDropsUnknownModality(t *testing.T) {
	store := newFakeStore()
	svc := newTestScoringService(t, store)

	svc.Ingest(sample("s1", "olfactory", map[string]float64{"x": 1}))

	assert.Empty(t, svc.TrackedSessions())
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.samples)
}

func TestScoreAllEmitsReading(t *testing.T) {
	store := newFakeStore()
	svc := newTestScoringService(t, store)

	svc.Ingest(sample("s1", models.ModalityVisual, map[string]float64{
		"blink_rate": 0.8,
		"gaze_fix":   0.7,
	}))
	svc.Ingest(sample("s1", models.ModalityBehavioral, map[string]float64{
		"typing_speed": 0.9,
	}))

	svc.scoreAll()

	var reading *models.Reading
	select {
	case reading = <-svc.ReadingChan:
	default:
		t.Fatal("expected a reading on ReadingChan")
	}

	assert.Equal(t, "s1", reading.SessionID)
	assert.True(t, reading.LoadLevel.Valid())
	assert.Greater(t, reading.Confidence, 0.0)
	assert.LessOrEqual(t, reading.Confidence, 1.0)

	sum := reading.Probabilities.Low + reading.Probabilities.Medium + reading.Probabilities.High
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.False(t, reading.Timestamp.IsZero())

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.predictions["s1"], 1)
}

func TestScoreAllSkipsStaleSessions(t *testing.T) {
	store := newFakeStore()
	config := DefaultScoringServiceConfig()
	config.StaleAfter = 1 * time.Millisecond
	svc := NewScoringService(store, testClassifier(t), config)

	svc.Ingest(sample("s1", models.ModalityVisual, map[string]float64{"blink_rate": 0.5}))
	time.Sleep(5 * time.Millisecond)

	svc.scoreAll()

	select {
	case reading := <-svc.ReadingChan:
		t.Fatalf("expected no reading for stale session, got one for %s", reading.SessionID)
	default:
	}
}

func TestScoreWithoutFeaturesReturnsNil(t *testing.T) {
	svc := newTestScoringService(t, newFakeStore())

	reading := svc.Score("s1", &sessionState{})
	assert.Nil(t, reading)
}

func TestDropSessionStopsScoring(t *testing.T) {
	store := newFakeStore()
	svc := newTestScoringService(t, store)

	svc.Ingest(sample("s1", models.ModalityVisual, map[string]float64{"blink_rate": 0.5}))
	svc.DropSession("s1")

	assert.Empty(t, svc.TrackedSessions())

	svc.scoreAll()
	select {
	case <-svc.ReadingChan:
		t.Fatal("expected no reading after DropSession")
	default:
	}
}
