package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "features/+/visual", cfg.MQTTTopicVisual)
	assert.Equal(t, "load/{session_id}/score", cfg.MQTTTopicReading)
	assert.Equal(t, 60, cfg.HistoryCap)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, time.Second, cfg.ScoreInterval)
	assert.False(t, cfg.AudioEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("STREAM_HISTORY_CAP", "120")
	t.Setenv("STREAM_RECONNECT_DELAY", "5s")
	t.Setenv("AUDIO_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 120, cfg.HistoryCap)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.True(t, cfg.AudioEnabled)
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("STREAM_HISTORY_CAP", "not-a-number")
	t.Setenv("STREAM_RECONNECT_DELAY", "sideways")
	t.Setenv("AUDIO_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 60, cfg.HistoryCap)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.False(t, cfg.AudioEnabled)
}
