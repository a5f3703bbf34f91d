package scoring

import "cognisense-backend/internal/models"

// Modality prefixes applied during fusion so every fused feature
// remains traceable to its source channel.
const (
	prefixVisual     = "vis_"
	prefixBehavioral = "beh_"
	prefixAudio      = "aud_"
)

// Fuse merges per-modality feature maps into a single vector for the
// classifier, prefixing each key with its modality. An absent modality
// (audio disabled) contributes nothing.
func Fuse(visual, behavioral, audio map[string]float64) map[string]float64 {
	fused := make(map[string]float64, len(visual)+len(behavioral)+len(audio))
	for k, v := range visual {
		fused[prefixVisual+k] = v
	}
	for k, v := range behavioral {
		fused[prefixBehavioral+k] = v
	}
	for k, v := range audio {
		fused[prefixAudio+k] = v
	}
	return fused
}

// Contributions derives per-modality contribution scores from the raw
// feature maps: the mean feature value per modality, clamped to [0, 1].
func Contributions(visual, behavioral, audio map[string]float64) models.ModalityScores {
	return models.ModalityScores{
		Visual:     clampedMean(visual),
		Behavioral: clampedMean(behavioral),
		Audio:      clampedMean(audio),
	}
}

func clampedMean(features map[string]float64) float64 {
	if len(features) == 0 {
		return 0
	}
	var sum float64
	for _, v := range features {
		sum += v
	}
	mean := sum / float64(len(features))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}
