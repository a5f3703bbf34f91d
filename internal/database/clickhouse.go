package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"cognisense-backend/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()

	tables := AllTables()
	for _, tableSQL := range tables {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SavePrediction stores one emitted cognitive load reading.
func (db *ClickHouseDB) SavePrediction(reading *models.Reading, modelVersion string) error {
	ctx := context.Background()

	query := `
		INSERT INTO predictions (
			timestamp, session_id, load_level, load_level_int, confidence,
			prob_low, prob_medium, prob_high,
			visual_score, behavioral_score, audio_score, model_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		reading.Timestamp,
		reading.SessionID,
		string(reading.LoadLevel),
		int8(reading.LoadLevel.Int()),
		reading.Confidence,
		reading.Probabilities.Low,
		reading.Probabilities.Medium,
		reading.Probabilities.High,
		reading.ModalityScores.Visual,
		reading.ModalityScores.Behavioral,
		reading.ModalityScores.Audio,
		modelVersion,
	)

	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

// SaveFeatureSample stores one raw per-modality feature window.
func (db *ClickHouseDB) SaveFeatureSample(sample *models.FeatureSample) error {
	ctx := context.Background()

	featuresJSON, err := json.Marshal(sample.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	query := `
		INSERT INTO feature_samples (timestamp, session_id, modality, features)
		VALUES (?, ?, ?, ?)
	`

	err = db.conn.Exec(ctx, query,
		sample.Timestamp,
		sample.SessionID,
		sample.Modality,
		string(featuresJSON),
	)

	if err != nil {
		return fmt.Errorf("failed to insert feature sample: %w", err)
	}

	return nil
}

// UpsertSession inserts or updates a capture session row.
func (db *ClickHouseDB) UpsertSession(session *models.CaptureSession) error {
	ctx := context.Background()

	query := `
		INSERT INTO capture_sessions (
			session_id, scenario, started_at, ended_at, is_active,
			webcam_enabled, audio_enabled, avg_confidence, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		session.SessionID,
		session.Scenario,
		session.StartedAt,
		session.EndedAt,
		session.IsActive,
		session.WebcamEnabled,
		session.AudioEnabled,
		session.AvgConfidence,
		session.Notes,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// GetSession returns the latest row for a session, or nil if unknown.
func (db *ClickHouseDB) GetSession(sessionID string) (*models.CaptureSession, error) {
	ctx := context.Background()

	query := `
		SELECT session_id, scenario, started_at, ended_at, is_active,
		       webcam_enabled, audio_enabled, avg_confidence, notes
		FROM capture_sessions FINAL
		WHERE session_id = ?
		LIMIT 1
	`

	var session models.CaptureSession
	row := db.conn.QueryRow(ctx, query, sessionID)
	err := row.Scan(
		&session.SessionID,
		&session.Scenario,
		&session.StartedAt,
		&session.EndedAt,
		&session.IsActive,
		&session.WebcamEnabled,
		&session.AudioEnabled,
		&session.AvgConfidence,
		&session.Notes,
	)
	if err != nil {
		// No matching session
		return nil, nil
	}

	return &session, nil
}

// GetSessionPredictions returns a session's readings oldest first, for
// session analysis.
func (db *ClickHouseDB) GetSessionPredictions(sessionID string) ([]models.Reading, error) {
	ctx := context.Background()

	query := `
		SELECT timestamp, load_level, confidence,
		       prob_low, prob_medium, prob_high,
		       visual_score, behavioral_score, audio_score
		FROM predictions
		WHERE session_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := db.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows, sessionID)
}

// GetRecentPredictions returns up to limit readings for a session,
// newest first, for the history endpoint.
func (db *ClickHouseDB) GetRecentPredictions(sessionID string, limit int) ([]models.Reading, error) {
	ctx := context.Background()

	query := `
		SELECT timestamp, load_level, confidence,
		       prob_low, prob_medium, prob_high,
		       visual_score, behavioral_score, audio_score
		FROM predictions
		WHERE session_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent predictions: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows, sessionID)
}

// GetAverageConfidence computes the mean confidence over a session.
func (db *ClickHouseDB) GetAverageConfidence(sessionID string) (float64, error) {
	ctx := context.Background()

	query := `
		SELECT avg(confidence)
		FROM predictions
		WHERE session_id = ?
	`

	var avg float64
	row := db.conn.QueryRow(ctx, query, sessionID)
	if err := row.Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to compute average confidence: %w", err)
	}

	return avg, nil
}

func scanReadings(rows driver.Rows, sessionID string) ([]models.Reading, error) {
	var readings []models.Reading
	for rows.Next() {
		var (
			reading models.Reading
			level   string
		)
		err := rows.Scan(
			&reading.Timestamp,
			&level,
			&reading.Confidence,
			&reading.Probabilities.Low,
			&reading.Probabilities.Medium,
			&reading.Probabilities.High,
			&reading.ModalityScores.Visual,
			&reading.ModalityScores.Behavioral,
			&reading.ModalityScores.Audio,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", err)
		}
		reading.LoadLevel = models.LoadLevel(level)
		reading.SessionID = sessionID
		readings = append(readings, reading)
	}

	return readings, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
