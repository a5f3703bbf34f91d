package scoring

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"cognisense-backend/internal/models"
)

// Model is a multinomial logistic regression over fused features.
// One coefficient map and intercept per load class; class scores go
// through softmax to produce the probability distribution.
type Model struct {
	Coefficients map[string]map[string]float64 `json:"coefficients"` // class -> feature -> weight
	Intercepts   map[string]float64            `json:"intercepts"`
	ModelVersion string                        `json:"model_version"`
}

// Classifier turns fused feature vectors into load predictions.
type Classifier struct {
	model *Model
}

// classOrder fixes low/medium/high evaluation order so argmax
// tie-breaking is deterministic.
var classOrder = []models.LoadLevel{models.LoadLow, models.LoadMedium, models.LoadHigh}

// NewClassifier loads the trained model from a JSON file.
func NewClassifier(modelPath string) (*Classifier, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	for _, class := range classOrder {
		if _, ok := model.Coefficients[string(class)]; !ok {
			return nil, fmt.Errorf("model is missing coefficients for class %q", class)
		}
	}

	log.Printf("Loaded load classifier %s from %s", model.ModelVersion, modelPath)
	return &Classifier{model: &model}, nil
}

// Version returns the loaded model's version tag.
func (c *Classifier) Version() string {
	return c.model.ModelVersion
}

// Predict scores a fused feature vector and returns the predicted
// level, its confidence (the winning probability), and the full
// per-class distribution.
func (c *Classifier) Predict(features map[string]float64) (models.LoadLevel, float64, models.Probabilities) {
	scores := make([]float64, len(classOrder))
	for i, class := range classOrder {
		score := c.model.Intercepts[string(class)]
		for feature, coef := range c.model.Coefficients[string(class)] {
			if value, ok := features[feature]; ok {
				score += coef * value
			}
		}
		scores[i] = score
	}

	probs := softmax(scores)

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}

	distribution := models.Probabilities{
		Low:    probs[0],
		Medium: probs[1],
		High:   probs[2],
	}
	return classOrder[best], probs[best], distribution
}

// softmax converts raw class scores to a probability distribution.
// Scores are shifted by their maximum for numerical stability.
func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}

	exps := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		exps[i] = math.Exp(s - max)
		sum += exps[i]
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}

// CreateSampleModel writes a small hand-tuned model file, used when no
// trained model exists yet. Elevated blink rate, typing error bursts
// and vocal stress all push toward the high class.
func CreateSampleModel(path string) error {
	model := Model{
		Coefficients: map[string]map[string]float64{
			string(models.LoadLow): {
				"vis_blink_rate":   -1.2,
				"vis_brow_furrow":  -1.0,
				"beh_typing_speed": 0.8,
				"beh_error_rate":   -1.5,
				"beh_mouse_jitter": -0.9,
				"aud_stress":       -1.1,
			},
			string(models.LoadMedium): {
				"vis_blink_rate":   0.2,
				"vis_brow_furrow":  0.3,
				"beh_typing_speed": -0.1,
				"beh_error_rate":   0.4,
				"beh_mouse_jitter": 0.2,
				"aud_stress":       0.3,
			},
			string(models.LoadHigh): {
				"vis_blink_rate":   1.1,
				"vis_brow_furrow":  1.3,
				"beh_typing_speed": -0.7,
				"beh_error_rate":   1.6,
				"beh_mouse_jitter": 1.0,
				"aud_stress":       1.4,
			},
		},
		Intercepts: map[string]float64{
			string(models.LoadLow):    0.3,
			string(models.LoadMedium): 0.1,
			string(models.LoadHigh):   -0.4,
		},
		ModelVersion: "sample-v1",
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	log.Printf("Created sample load classifier at %s", path)
	return nil
}
