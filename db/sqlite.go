package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"termdeposit/ml"
)

// TrainingRun is one row of the training history.
type TrainingRun struct {
	RunID        string           `json:"run_id"`
	TrainedAt    time.Time        `json:"trained_at"`
	Iterations   int              `json:"iterations"`
	Folds        int              `json:"folds"`
	Rows         int              `json:"rows"`
	Positives    int              `json:"positives"`
	Negatives    int              `json:"negatives"`
	BestCVAUC    float64          `json:"best_cv_auc"`
	HoldoutAUC   float64          `json:"holdout_auc"`
	BestParams   ml.BoosterParams `json:"best_params"`
	ArtifactPath string           `json:"artifact_path"`
}

// Store is the sqlite training run log.
type Store struct {
	database *sql.DB
}

// Open opens (and creates if needed) the training run log at path.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        trained_at DATETIME NOT NULL,
        iterations INTEGER NOT NULL,
        folds INTEGER NOT NULL,
        data_points INTEGER NOT NULL,
        positives INTEGER NOT NULL,
        negatives INTEGER NOT NULL,
        best_cv_auc REAL NOT NULL,
        holdout_auc REAL NOT NULL,
        best_params TEXT NOT NULL,
        artifact_path TEXT NOT NULL,
        UNIQUE(run_id)
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("init training_runs: %w", err)
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}

// SaveTrainingRun appends run, assigning a run id and timestamp when unset.
// It returns the stored run.
func (s *Store) SaveTrainingRun(run TrainingRun) (TrainingRun, error) {
	if s == nil || s.database == nil {
		return run, errors.New("database not initialized")
	}
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.TrainedAt.IsZero() {
		run.TrainedAt = time.Now().UTC()
	}
	params, err := json.Marshal(run.BestParams)
	if err != nil {
		return run, err
	}

	_, err = s.database.Exec(`
        INSERT INTO training_runs (
            run_id, trained_at, iterations, folds, data_points, positives, negatives,
            best_cv_auc, holdout_auc, best_params, artifact_path
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.RunID,
		run.TrainedAt,
		run.Iterations,
		run.Folds,
		run.Rows,
		run.Positives,
		run.Negatives,
		run.BestCVAUC,
		run.HoldoutAUC,
		string(params),
		run.ArtifactPath,
	)
	return run, err
}

// LoadTrainingRuns returns up to limit runs, newest first. limit <= 0 means
// all of them.
func (s *Store) LoadTrainingRuns(limit int) ([]TrainingRun, error) {
	if s == nil || s.database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.database.Query(`
        SELECT run_id, trained_at, iterations, folds, data_points, positives, negatives,
               best_cv_auc, holdout_auc, best_params, artifact_path
        FROM training_runs
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var (
			run    TrainingRun
			params string
		)
		err := rows.Scan(&run.RunID, &run.TrainedAt, &run.Iterations, &run.Folds, &run.Rows,
			&run.Positives, &run.Negatives, &run.BestCVAUC, &run.HoldoutAUC, &params, &run.ArtifactPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(params), &run.BestParams); err != nil {
			return nil, fmt.Errorf("run %s: decode params: %w", run.RunID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
