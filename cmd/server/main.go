package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cognisense-backend/internal/database"
	"cognisense-backend/internal/models"
	"cognisense-backend/internal/mqtt"
	"cognisense-backend/internal/scoring"
	"cognisense-backend/internal/server"
	"cognisense-backend/internal/services"
	"cognisense-backend/pkg/config"
)

func main() {
	log.Println("Starting CogniSense Backend Service...")

	// Load configuration
	cfg := config.Load()

	// Initialize ClickHouse database
	db, err := database.NewClickHouseDB(
		cfg.ClickHouseAddr,
		cfg.ClickHouseDB,
		cfg.ClickHouseUser,
		cfg.ClickHousePass,
	)
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	defer db.Close()

	// Load the trained load classifier; fall back to the sample model
	// on a fresh install.
	classifier, err := scoring.NewClassifier(cfg.ModelPath)
	if err != nil {
		log.Printf("No usable model at %s (%v), creating sample model", cfg.ModelPath, err)
		if err := scoring.CreateSampleModel(cfg.ModelPath); err != nil {
			log.Fatalf("Failed to create sample model: %v", err)
		}
		if classifier, err = scoring.NewClassifier(cfg.ModelPath); err != nil {
			log.Fatalf("Failed to load sample model: %v", err)
		}
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Initialize Scoring Service ===
	log.Println("Initializing scoring service...")
	scoringConfig := services.DefaultScoringServiceConfig()
	scoringConfig.Interval = cfg.ScoreInterval

	scoringService := services.NewScoringService(db, classifier, scoringConfig)

	// === Initialize MQTT Client ===
	log.Println("Connecting to MQTT broker...")
	mqttConfig := mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}

	mqttClient, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Close()

	// === Initialize MQTT Subscriber ===
	log.Println("Setting up MQTT subscriber...")
	subscriberConfig := mqtt.SubscriberConfig{
		VisualTopic:     cfg.MQTTTopicVisual,
		BehavioralTopic: cfg.MQTTTopicBehavioral,
		AudioTopic:      cfg.MQTTTopicAudio,
	}

	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		subscriberConfig,
		scoringService.VisualChan,
		scoringService.BehavioralChan,
		scoringService.AudioChan,
	)

	// Subscribe to all modality topics
	if err := subscriber.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
	}

	// === Initialize MQTT Publisher ===
	log.Println("Setting up MQTT publisher...")
	publisherChan := make(chan *models.Reading, 50)
	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{ReadingTopic: cfg.MQTTTopicReading},
		publisherChan,
	)
	go publisher.Start(ctx)

	// === Initialize WebSocket Hub ===
	hub := server.NewHub()
	hubChan := make(chan *models.Reading, 50)
	go hub.Start(ctx, hubChan)

	// Fan readings out to the hub and the MQTT publisher
	go dispatchReadings(ctx, scoringService.ReadingChan, hubChan, publisherChan)

	// Start scoring service
	go scoringService.Start(ctx)

	// === Initialize Session Service & HTTP API ===
	sessionService := services.NewSessionService(db)
	engine := server.NewRouter(sessionService, scoringService, hub)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: engine,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// === Log startup info ===
	log.Println("=== CogniSense Backend Service is running ===")
	log.Printf("Live stream:     ws://%s/ws/load", cfg.ListenAddr)
	log.Printf("Score interval:  %v", cfg.ScoreInterval)
	log.Printf("MQTT Topics:")
	log.Printf("  - Visual:      %s", cfg.MQTTTopicVisual)
	log.Printf("  - Behavioral:  %s", cfg.MQTTTopicBehavioral)
	log.Printf("  - Audio:       %s", cfg.MQTTTopicAudio)
	log.Printf("  - Readings:    %s", cfg.MQTTTopicReading)
	log.Println("Press Ctrl+C to exit...")

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	log.Println("Shutdown signal received, stopping services...")
	cancel() // Cancel context to stop all goroutines

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}

	// Give services time to finish processing
	time.Sleep(1 * time.Second)

	log.Println("Shutdown complete. Goodbye!")
}

// dispatchReadings copies each emitted reading to every consumer,
// dropping for slow consumers rather than stalling the pipeline.
func dispatchReadings(ctx context.Context, in <-chan *models.Reading, outs ...chan *models.Reading) {
	for {
		select {
		case <-ctx.Done():
			return
		case reading, ok := <-in:
			if !ok {
				return
			}
			for _, out := range outs {
				select {
				case out <- reading:
				default:
					log.Printf("Warning: reading consumer busy, dropping reading for %s", reading.SessionID)
				}
			}
		}
	}
}
