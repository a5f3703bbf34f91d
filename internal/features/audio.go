package features

import (
	"encoding/binary"
	"math"
)

// AudioConfig holds parameters for PCM volume extraction.
type AudioConfig struct {
	BitsPerSample  int     // 16 for 16-bit PCM
	ReferenceLevel float64 // reference for dB calculation (32768.0 for 16-bit)
	MinimumRMS     float64 // silence floor, avoids log(0)
}

// DefaultAudioConfig returns the standard 16-bit PCM configuration.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		BitsPerSample:  16,
		ReferenceLevel: 32768.0,
		MinimumRMS:     1.0,
	}
}

const (
	silenceDB = -80.0 // practical silence floor
	maxDB     = 0.0   // clipping boundary for 16-bit audio
)

// ExtractSoundVolume returns the volume of a 16-bit little-endian PCM
// chunk in dB, clamped to [-80, 0].
func ExtractSoundVolume(audioData []byte) float64 {
	config := DefaultAudioConfig()

	rms := calculateRMS16Bit(audioData)
	if rms < config.MinimumRMS {
		rms = config.MinimumRMS
	}
	return calculateDecibels(rms, config.ReferenceLevel)
}

// VoiceStress maps a dB volume into a [0, 1] stress feature for the
// classifier. Silence maps to 0, sustained loud speech toward 1.
func VoiceStress(volumeDB float64) float64 {
	stress := (volumeDB - silenceDB) / (maxDB - silenceDB)
	if stress < 0 {
		return 0
	}
	if stress > 1 {
		return 1
	}
	return stress
}

// AudioFeatures extracts the audio feature map published into the
// scoring pipeline from one raw PCM chunk.
func AudioFeatures(audioData []byte, sampleRate int) map[string]float64 {
	volume := ExtractSoundVolume(audioData)
	return map[string]float64{
		"volume_db":   volume,
		"stress":      VoiceStress(volume),
		"sample_rate": float64(sampleRate),
	}
}

// calculateRMS16Bit computes RMS over 16-bit little-endian samples.
func calculateRMS16Bit(audioData []byte) float64 {
	if len(audioData) < 2 {
		return 0.0
	}

	var sumSquares float64
	sampleCount := len(audioData) / 2

	for i := 0; i+1 < len(audioData); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(audioData[i : i+2]))
		floatSample := float64(sample)
		sumSquares += floatSample * floatSample
	}

	return math.Sqrt(sumSquares / float64(sampleCount))
}

// calculateDecibels converts an RMS value to dB relative to reference.
func calculateDecibels(rms, reference float64) float64 {
	if rms <= 0 || reference <= 0 {
		return -60.0
	}

	db := 20.0 * math.Log10(rms/reference)
	if db < silenceDB {
		db = silenceDB
	}
	if db > maxDB {
		db = maxDB
	}
	return db
}
