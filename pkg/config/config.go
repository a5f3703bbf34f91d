package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Server Configuration
	ListenAddr string

	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Per-modality feature topics
	MQTTTopicVisual     string
	MQTTTopicBehavioral string
	MQTTTopicAudio      string

	// Outbound reading topic
	MQTTTopicReading string

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// ML Model Configuration
	ModelPath string

	// Scoring
	ScoreInterval time.Duration
	AudioEnabled  bool

	// Live stream client (cmd/monitor and embedded consumers)
	StreamURL      string
	HistoryCap     int
	ReconnectDelay time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// HTTP Server Configuration
		ListenAddr: getEnv("LISTEN_ADDR", ":8000"),

		// MQTT Configuration
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "cognisense-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// Per-modality feature topics
		MQTTTopicVisual:     getEnv("MQTT_TOPIC_VISUAL", "features/+/visual"),
		MQTTTopicBehavioral: getEnv("MQTT_TOPIC_BEHAVIORAL", "features/+/behavioral"),
		MQTTTopicAudio:      getEnv("MQTT_TOPIC_AUDIO", "features/+/audio"),

		// Outbound reading topic
		MQTTTopicReading: getEnv("MQTT_TOPIC_READING", "load/{session_id}/score"),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "cognisense"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		// ML Model Configuration
		ModelPath: getEnv("MODEL_PATH", "./model/load_classifier.json"),

		// Scoring
		ScoreInterval: getEnvDuration("SCORE_INTERVAL", time.Second),
		AudioEnabled:  getEnvBool("AUDIO_ENABLED", false),

		// Live stream client
		StreamURL:      getEnv("STREAM_URL", "ws://localhost:8000/ws/load"),
		HistoryCap:     getEnvInt("STREAM_HISTORY_CAP", 60),
		ReconnectDelay: getEnvDuration("STREAM_RECONNECT_DELAY", 3*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return duration
}
