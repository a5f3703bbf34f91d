package scoring

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cognisense-backend/internal/models"
)

func sampleClassifier(t *testing.T) *Classifier {
	t.Helper()
	modelPath := filepath.Join(t.TempDir(), "load_classifier.json")
	require.NoError(t, CreateSampleModel(modelPath))

	classifier, err := NewClassifier(modelPath)
	require.NoError(t, err)
	return classifier
}

func TestNewClassifierMissingFile(t *testing.T) {
	_, err := NewClassifier(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestPredictHighLoad(t *testing.T) {
	classifier := sampleClassifier(t)
	assert.Equal(t, "sample-v1", classifier.Version())

	fused := Fuse(
		map[string]float64{"blink_rate": 0.9, "brow_furrow": 0.9},
		map[string]float64{"typing_speed": 0.2, "error_rate": 0.9, "mouse_jitter": 0.8},
		map[string]float64{"stress": 0.9},
	)

	level, confidence, probs := classifier.Predict(fused)
	assert.Equal(t, models.LoadHigh, level)
	assert.Greater(t, confidence, 0.5)
	assert.InDelta(t, 1.0, probs.Low+probs.Medium+probs.High, 1e-9)
	assert.Equal(t, confidence, probs.High)
}

func TestPredictLowLoad(t *testing.T) {
	classifier := sampleClassifier(t)

	fused := Fuse(
		map[string]float64{"blink_rate": 0.1, "brow_furrow": 0.05},
		map[string]float64{"typing_speed": 0.9, "error_rate": 0.05, "mouse_jitter": 0.1},
		map[string]float64{"stress": 0.05},
	)

	level, confidence, probs := classifier.Predict(fused)
	assert.Equal(t, models.LoadLow, level)
	assert.InDelta(t, 1.0, probs.Low+probs.Medium+probs.High, 1e-9)
	assert.Equal(t, confidence, probs.Low)
}

func TestPredictIgnoresUnknownFeatures(t *testing.T) {
	classifier := sampleClassifier(t)

	baseline := map[string]float64{"vis_blink_rate": 0.5}
	withNoise := map[string]float64{"vis_blink_rate": 0.5, "vis_nonsense": 42.0}

	levelA, confA, _ := classifier.Predict(baseline)
	levelB, confB, _ := classifier.Predict(withNoise)
	assert.Equal(t, levelA, levelB)
	assert.InDelta(t, confA, confB, 1e-9)
}

func TestFusePrefixesByModality(t *testing.T) {
	fused := Fuse(
		map[string]float64{"blink_rate": 0.4},
		map[string]float64{"error_rate": 0.2},
		map[string]float64{"stress": 0.7},
	)

	assert.Equal(t, map[string]float64{
		"vis_blink_rate": 0.4,
		"beh_error_rate": 0.2,
		"aud_stress":     0.7,
	}, fused)
}

func TestFuseAudioAbsent(t *testing.T) {
	fused := Fuse(
		map[string]float64{"blink_rate": 0.4},
		map[string]float64{"error_rate": 0.2},
		nil,
	)

	assert.Len(t, fused, 2)
	assert.NotContains(t, fused, "aud_stress")
}

func TestContributions(t *testing.T) {
	scores := Contributions(
		map[string]float64{"a": 0.2, "b": 0.4},
		map[string]float64{"c": 3.0}, // clamped to 1
		nil,                          // absent modality scores zero
	)

	assert.InDelta(t, 0.3, scores.Visual, 1e-9)
	assert.InDelta(t, 1.0, scores.Behavioral, 1e-9)
	assert.InDelta(t, 0.0, scores.Audio, 1e-9)
}
