package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"sitesafety/internal/model"
	"sitesafety/internal/repository"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert adds a new run record to the journal.
func (r *RunRepository) Insert(run *model.Run) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO runs (id, mode, source, started_at, ended_at, frames, failed_frames, last_count, state, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Mode), run.Source, run.StartedAt, endedAt(run), run.Frames, run.FailedFrames,
		run.LastCount, string(run.State), run.Error)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Update stores the progress and outcome of an existing run.
func (r *RunRepository) Update(run *model.Run) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE runs SET ended_at = ?, frames = ?, failed_frames = ?, last_count = ?, state = ?, error = ?
		WHERE id = ?
	`, endedAt(run), run.Frames, run.FailedFrames, run.LastCount, string(run.State), run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its id.
func (r *RunRepository) GetByID(id string) (*model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, mode, source, started_at, ended_at, frames, failed_frames, last_count, state, error
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetRecent returns up to limit runs, newest first.
func (r *RunRepository) GetRecent(limit int) ([]model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, mode, source, started_at, ended_at, frames, failed_frames, last_count, state, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteAll empties the journal.
func (r *RunRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM runs`); err != nil {
		return fmt.Errorf("failed to delete runs: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.Run, error) {
	var (
		run   model.Run
		mode  string
		state string
		ended sql.NullTime
	)
	if err := s.Scan(&run.ID, &mode, &run.Source, &run.StartedAt, &ended, &run.Frames, &run.FailedFrames,
		&run.LastCount, &state, &run.Error); err != nil {
		return nil, err
	}
	run.Mode = model.Mode(mode)
	run.State = model.StreamState(state)
	if ended.Valid {
		run.EndedAt = ended.Time
	}
	return &run, nil
}

func endedAt(run *model.Run) sql.NullTime {
	return sql.NullTime{Time: run.EndedAt, Valid: !run.EndedAt.IsZero()}
}
