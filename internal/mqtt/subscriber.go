package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cognisense-backend/internal/features"
	"cognisense-backend/internal/models"
)

// Subscriber handles MQTT subscriptions and writes feature samples to
// channels consumed by the scoring service.
type Subscriber struct {
	client mqtt.Client

	// Output channels (written by subscriber, read by services)
	VisualChan     chan *models.FeatureSample
	BehavioralChan chan *models.FeatureSample
	AudioChan      chan *models.FeatureSample

	// Topic patterns
	visualTopic     string
	behavioralTopic string
	audioTopic      string
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	VisualTopic     string // e.g., "features/+/visual"
	BehavioralTopic string // e.g., "features/+/behavioral"
	AudioTopic      string // e.g., "features/+/audio"
}

// NewSubscriber creates a new MQTT subscriber with channels
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	visualChan chan *models.FeatureSample,
	behavioralChan chan *models.FeatureSample,
	audioChan chan *models.FeatureSample,
) *Subscriber {
	return &Subscriber{
		client:          client,
		VisualChan:      visualChan,
		BehavioralChan:  behavioralChan,
		AudioChan:       audioChan,
		visualTopic:     config.VisualTopic,
		behavioralTopic: config.BehavioralTopic,
		audioTopic:      config.AudioTopic,
	}
}

// SubscribeAll subscribes to all configured modality topics
func (s *Subscriber) SubscribeAll() error {
	if s.visualTopic != "" {
		if err := s.subscribeToTopic(s.visualTopic, s.handleVisual); err != nil {
			return fmt.Errorf("failed to subscribe to visual topic: %w", err)
		}
		log.Printf("Subscribed to visual features topic: %s", s.visualTopic)
	}

	if s.behavioralTopic != "" {
		if err := s.subscribeToTopic(s.behavioralTopic, s.handleBehavioral); err != nil {
			return fmt.Errorf("failed to subscribe to behavioral topic: %w", err)
		}
		log.Printf("Subscribed to behavioral features topic: %s", s.behavioralTopic)
	}

	if s.audioTopic != "" {
		if err := s.subscribeToTopic(s.audioTopic, s.handleAudio); err != nil {
			return fmt.Errorf("failed to subscribe to audio topic: %w", err)
		}
		log.Printf("Subscribed to audio topic: %s", s.audioTopic)
	}

	return nil
}

// subscribeToTopic is a helper function to subscribe to a topic with a handler
func (s *Subscriber) subscribeToTopic(topic string, handler mqtt.MessageHandler) error {
	token := s.client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// handleVisual processes face-landmark feature messages and writes to channel
func (s *Subscriber) handleVisual(client mqtt.Client, msg mqtt.Message) {
	s.handleFeatureSample(msg, models.ModalityVisual, s.VisualChan)
}

// handleBehavioral processes keystroke/mouse feature messages and writes to channel
func (s *Subscriber) handleBehavioral(client mqtt.Client, msg mqtt.Message) {
	s.handleFeatureSample(msg, models.ModalityBehavioral, s.BehavioralChan)
}

// handleFeatureSample parses a pre-extracted feature payload from a
// capture agent and forwards it on the modality's channel.
func (s *Subscriber) handleFeatureSample(msg mqtt.Message, modality string, out chan *models.FeatureSample) {
	var sample models.FeatureSample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		log.Printf("Error unmarshaling %s features: %v", modality, err)
		return
	}

	// Extract session ID from topic (features/{session_id}/{modality})
	sessionID := extractSessionID(msg.Topic())
	if sessionID == "" {
		log.Printf("Could not extract session ID from topic: %s", msg.Topic())
		return
	}

	// Timestamp server-side; capture agent clocks are not trusted
	sample.Timestamp = time.Now()
	sample.SessionID = sessionID
	sample.Modality = modality

	log.Printf("Received %s features from %s: %d values", modality, sessionID, len(sample.Features))

	// Write to channel (non-blocking with timeout)
	select {
	case out <- &sample:
		// Successfully sent
	case <-time.After(1 * time.Second):
		log.Printf("Warning: %s channel full, dropping sample from %s", modality, sessionID)
	}
}

// handleAudio processes raw audio chunks: unlike visual/behavioral,
// audio features are extracted server-side from the PCM payload.
func (s *Subscriber) handleAudio(client mqtt.Client, msg mqtt.Message) {
	var payload models.AudioChunkPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		log.Printf("Error unmarshaling audio chunk: %v", err)
		return
	}

	sessionID := extractSessionID(msg.Topic())
	if sessionID == "" {
		log.Printf("Could not extract session ID from topic: %s", msg.Topic())
		return
	}

	sample := &models.FeatureSample{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Modality:  models.ModalityAudio,
		Features:  features.AudioFeatures(payload.Data, payload.SampleRate),
	}

	log.Printf("Received audio from %s: %.2fs @ %dHz", sessionID, payload.Duration, payload.SampleRate)

	// Write to channel (non-blocking with timeout)
	select {
	case s.AudioChan <- sample:
		// Successfully sent
	case <-time.After(2 * time.Second): // Longer timeout for audio
		log.Printf("Warning: Audio channel full, dropping chunk from %s", sessionID)
	}
}

// extractSessionID extracts the session ID from an MQTT topic
// Example: "features/6f1d.../visual" -> "6f1d..."
func extractSessionID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
