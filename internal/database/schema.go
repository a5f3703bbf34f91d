package database

// SQL schemas for all ClickHouse tables

const (
	// CaptureSessionsTableSQL creates the capture_sessions table.
	// ReplacingMergeTree keyed on session_id so stop/updates collapse
	// to the latest row.
	CaptureSessionsTableSQL = `
		CREATE TABLE IF NOT EXISTS capture_sessions (
			session_id String,
			scenario String,
			started_at DateTime64(3),
			ended_at Nullable(DateTime64(3)),
			is_active Bool,
			webcam_enabled Bool,
			audio_enabled Bool,
			avg_confidence Float64,
			notes String
		) ENGINE = ReplacingMergeTree(started_at)
		ORDER BY session_id
	`

	// PredictionsTableSQL creates the predictions table holding one row
	// per emitted cognitive load reading.
	PredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS predictions (
			timestamp DateTime64(3),
			session_id String,
			load_level String,
			load_level_int Int8,
			confidence Float64,
			prob_low Float64,
			prob_medium Float64,
			prob_high Float64,
			visual_score Float64,
			behavioral_score Float64,
			audio_score Float64,
			model_version String
		) ENGINE = MergeTree()
		ORDER BY (session_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// FeatureSamplesTableSQL creates the feature_samples table storing
	// raw per-modality feature windows for model retraining.
	FeatureSamplesTableSQL = `
		CREATE TABLE IF NOT EXISTS feature_samples (
			timestamp DateTime64(3),
			session_id String,
			modality String,
			features String
		) ENGINE = MergeTree()
		ORDER BY (session_id, modality, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		CaptureSessionsTableSQL,
		PredictionsTableSQL,
		FeatureSamplesTableSQL,
	}
}
