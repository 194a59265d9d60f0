package utils

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ModelRegistry records trained models and their held-out metrics in a
// SQLite database so serving and audits can see what was trained when.
type ModelRegistry struct {
	db   *sql.DB
	path string
}

// ModelRecord is one registered model artifact.
type ModelRecord struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Name         string    `json:"name"`
	ArtifactPath string    `json:"artifact_path"`
	ROCAUC       float64   `json:"roc_auc"`
	PRAUC        float64   `json:"pr_auc"`
	BestF1       float64   `json:"best_f1"`
	Selected     bool      `json:"selected"`
	CreatedAt    time.Time `json:"created_at"`
}

// TrainingRun is one end-to-end training invocation.
type TrainingRun struct {
	ID          string    `json:"id"`
	InputPath   string    `json:"input_path"`
	NumSamples  int       `json:"num_samples"`
	NumFeatures int       `json:"num_features"`
	Seed        int64     `json:"seed"`
	Config      string    `json:"config,omitempty"` // JSON blob
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// NewModelRegistry opens (creating if needed) the registry database.
func NewModelRegistry(dbPath string) (*ModelRegistry, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	r := &ModelRegistry{db: db, path: dbPath}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize registry schema: %w", err)
	}
	return r, nil
}

// initSchema creates the registry tables.
func (r *ModelRegistry) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		num_samples INTEGER NOT NULL,
		num_features INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		config TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		artifact_path TEXT NOT NULL,
		roc_auc REAL NOT NULL,
		pr_auc REAL NOT NULL,
		best_f1 REAL NOT NULL,
		selected BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (run_id) REFERENCES training_runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_models_run_id ON models(run_id);
	CREATE INDEX IF NOT EXISTS idx_models_selected ON models(selected);
	`
	_, err := r.db.Exec(schema)
	return err
}

// BeginRun records the start of a training invocation and returns its ID.
func (r *ModelRegistry) BeginRun(ctx context.Context, inputPath string, numSamples, numFeatures int, seed int64, config any) (string, error) {
	id := uuid.New().String()

	configJSON := ""
	if config != nil {
		data, err := json.Marshal(config)
		if err != nil {
			return "", fmt.Errorf("failed to serialize run config: %w", err)
		}
		configJSON = string(data)
	}

	query := `
		INSERT INTO training_runs (id, input_path, num_samples, num_features, seed, config, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, id, inputPath, numSamples, numFeatures, seed, configJSON, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to record training run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's completion time.
func (r *ModelRegistry) FinishRun(ctx context.Context, runID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE training_runs SET finished_at = ? WHERE id = ?`,
		time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish training run: %w", err)
	}
	return nil
}

// RegisterModel records one trained model under a run. Selected marks the
// model the run exported for serving.
func (r *ModelRegistry) RegisterModel(ctx context.Context, rec *ModelRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO models (id, run_id, name, artifact_path, roc_auc, pr_auc, best_f1, selected, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.RunID, rec.Name, rec.ArtifactPath,
		rec.ROCAUC, rec.PRAUC, rec.BestF1, rec.Selected, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to register model %s: %w", rec.Name, err)
	}
	return nil
}

// ListModels returns the registered models, newest first.
func (r *ModelRegistry) ListModels(ctx context.Context, limit int) ([]*ModelRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, run_id, name, artifact_path, roc_auc, pr_auc, best_f1, selected, created_at
		FROM models
		ORDER BY created_at DESC, roc_auc DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var records []*ModelRecord
	for rows.Next() {
		rec := &ModelRecord{}
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Name, &rec.ArtifactPath,
			&rec.ROCAUC, &rec.PRAUC, &rec.BestF1, &rec.Selected, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SelectedModel returns the most recently registered serving model, or nil
// when nothing has been trained yet.
func (r *ModelRegistry) SelectedModel(ctx context.Context) (*ModelRecord, error) {
	query := `
		SELECT id, run_id, name, artifact_path, roc_auc, pr_auc, best_f1, selected, created_at
		FROM models
		WHERE selected = 1
		ORDER BY created_at DESC
		LIMIT 1
	`
	rec := &ModelRecord{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&rec.ID, &rec.RunID, &rec.Name, &rec.ArtifactPath,
		&rec.ROCAUC, &rec.PRAUC, &rec.BestF1, &rec.Selected, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query selected model: %w", err)
	}
	return rec, nil
}

// Close releases the underlying database handle.
func (r *ModelRegistry) Close() error {
	return r.db.Close()
}
