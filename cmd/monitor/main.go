package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"cognisense-backend/internal/models"
	"cognisense-backend/pkg/config"
	"cognisense-backend/pkg/stream"
)

// monitor is a terminal consumer of the live load stream, useful for
// watching a session without the dashboard.
func main() {
	cfg := config.Load()

	log.Printf("Connecting to live load stream at %s", cfg.StreamURL)

	client := stream.NewClient(stream.Options{
		URL:            cfg.StreamURL,
		HistoryCap:     cfg.HistoryCap,
		ReconnectDelay: cfg.ReconnectDelay,
		OnStateChange: func(state stream.ConnectionState) {
			log.Printf("Stream %s", state)
		},
		OnReading: func(r models.Reading) {
			log.Printf("load=%-6s confidence=%.2f visual=%.2f behavioral=%.2f audio=%.2f",
				r.LoadLevel,
				r.Confidence,
				r.ModalityScores.Visual,
				r.ModalityScores.Behavioral,
				r.ModalityScores.Audio,
			)
		},
	})
	client.Connect()
	defer client.Disconnect()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	history := client.History()
	log.Printf("Disconnecting (%d readings in rolling history)", len(history))
}
