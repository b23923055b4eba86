// Package history persists run records into a per-case SQLite database so
// that past pipeline invocations can be inspected after the fact. Dry runs
// are never recorded; they have no side effects by definition.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/philipcardiff/snek5000/internal/pipeline"
)

// Store provides SQLite-backed run history for one case.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run and all of its stage results in one transaction.
func (s *Store) SaveRun(run *pipeline.Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, case_dir, background, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.CaseDir, run.Background, run.StartedAt, run.FinishedAt)
	if err != nil {
		return err
	}

	for i, stage := range run.Stages {
		_, err = tx.Exec(`
			INSERT INTO stage_results (run_id, position, stage, status, command, output, pid, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, stage.Name, string(stage.Status), stage.Command.String(),
			stage.Output, stage.PID, stage.StartedAt, stage.FinishedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RunRecord is a persisted run with its stage outcomes in request order.
type RunRecord struct {
	ID         string
	CaseDir    string
	Background bool
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageRecord
}

// StageRecord is one persisted stage result.
type StageRecord struct {
	Stage      string
	Status     string
	Command    string
	PID        int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]*RunRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, case_dir, background, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec := &RunRecord{}
		if err := rows.Scan(&rec.ID, &rec.CaseDir, &rec.Background, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := s.loadStages(rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) loadStages(rec *RunRecord) error {
	rows, err := s.db.Query(`
		SELECT stage, status, command, pid, started_at, finished_at
		FROM stage_results WHERE run_id = ? ORDER BY position
	`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var stage StageRecord
		if err := rows.Scan(&stage.Stage, &stage.Status, &stage.Command, &stage.PID, &stage.StartedAt, &stage.FinishedAt); err != nil {
			return err
		}
		rec.Stages = append(rec.Stages, stage)
	}
	return rows.Err()
}
