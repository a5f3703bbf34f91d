package features

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pcmFrom(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

func TestExtractSoundVolumeSilence(t *testing.T) {
	silence := pcmFrom(make([]int16, 1024))
	assert.InDelta(t, -80.0, ExtractSoundVolume(silence), 1e-6)
}

func TestExtractSoundVolumeEmptyData(t *testing.T) {
	assert.InDelta(t, -80.0, ExtractSoundVolume(nil), 1e-6)
}

func TestExtractSoundVolumeFullScale(t *testing.T) {
	// Full-scale square wave sits at the clipping boundary.
	samples := make([]int16, 1024)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 32767
		} else {
			samples[i] = -32768
		}
	}

	volume := ExtractSoundVolume(pcmFrom(samples))
	assert.InDelta(t, 0.0, volume, 0.01)
}

func TestVolumeOrdering(t *testing.T) {
	quiet := make([]int16, 512)
	loud := make([]int16, 512)
	for i := range quiet {
		quiet[i] = 100
		loud[i] = 10000
	}

	quietDB := ExtractSoundVolume(pcmFrom(quiet))
	loudDB := ExtractSoundVolume(pcmFrom(loud))
	assert.Less(t, quietDB, loudDB)
}

func TestVoiceStressBounds(t *testing.T) {
	assert.InDelta(t, 0.0, VoiceStress(-80.0), 1e-9)
	assert.InDelta(t, 1.0, VoiceStress(0.0), 1e-9)
	assert.InDelta(t, 0.5, VoiceStress(-40.0), 1e-9)

	// Out-of-range volumes clamp rather than escape [0, 1].
	assert.Equal(t, 0.0, VoiceStress(-120.0))
	assert.Equal(t, 1.0, VoiceStress(10.0))
}

func TestAudioFeatures(t *testing.T) {
	feats := AudioFeatures(pcmFrom(make([]int16, 256)), 16000)

	assert.InDelta(t, -80.0, feats["volume_db"], 1e-6)
	assert.InDelta(t, 0.0, feats["stress"], 1e-6)
	assert.InDelta(t, 16000.0, feats["sample_rate"], 1e-9)
}
