package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cognisense-backend/internal/models"
)

// Publisher republishes emitted readings to MQTT so non-dashboard
// consumers (loggers, automations) can subscribe without touching the
// WebSocket endpoint.
type Publisher struct {
	client mqtt.Client

	// Input channel (read by publisher, written by the scoring service)
	ReadingChan chan *models.Reading

	// Topic pattern
	readingTopic string // e.g., "load/{session_id}/score"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	ReadingTopic string // e.g., "load/{session_id}/score"
}

// NewPublisher creates a new MQTT publisher with channels
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	readingChan chan *models.Reading,
) *Publisher {
	return &Publisher{
		client:       client,
		ReadingChan:  readingChan,
		readingTopic: config.ReadingTopic,
	}
}

// Start begins publishing readings from the channel.
// Runs until context is cancelled or channel is closed.
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case reading, ok := <-p.ReadingChan:
			if !ok {
				log.Println("MQTT Publisher: Reading channel closed, shutting down...")
				return
			}

			if err := p.publishReading(reading); err != nil {
				log.Printf("Error publishing reading: %v", err)
			}
		}
	}
}

// publishReading publishes one cognitive load reading.
func (p *Publisher) publishReading(reading *models.Reading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	topic := formatTopic(p.readingTopic, reading.SessionID)

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish reading: %w", token.Error())
	}

	return nil
}

// formatTopic replaces the {session_id} placeholder with the actual session ID
func formatTopic(topicPattern, sessionID string) string {
	return strings.ReplaceAll(topicPattern, "{session_id}", sessionID)
}
