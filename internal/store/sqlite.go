package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"combat-mc/internal/montecarlo"
)

// ErrNotFound is returned when a batch id is not in the archive.
var ErrNotFound = errors.New("batch not found")

// Batch status values.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Batch describes one archived batch.
type Batch struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	NumRuns    int       `json:"numRuns"`
	BaseSeed   int64     `json:"baseSeed"`
	MaxSimTime float64   `json:"maxSimTime"`
	StepSize   float64   `json:"stepSize"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `json:"status"`
	// Trials is the number of stored trials. Filled by ListBatches and LoadBatch.
	Trials int `json:"trials"`
}

// SQLiteStore keeps batches, trials, engagements and survival records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveBatch stores a batch and all of its trials in one transaction. Saving an id that already
// exists replaces it.
func (s *SQLiteStore) SaveBatch(ctx context.Context, b Batch, results []montecarlo.TrialResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if b.Status == "" {
		b.Status = StatusCompleted
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, b.ID); err != nil {
		return fmt.Errorf("failed to replace batch: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (id, scenario, num_runs, base_seed, max_sim_time, step_size, started_at, finished_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Scenario, b.NumRuns, b.BaseSeed, b.MaxSimTime, b.StepSize,
		b.StartedAt.UTC().Format(timeLayout), b.FinishedAt.UTC().Format(timeLayout), b.Status)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	for _, r := range results {
		if err = insertTrial(ctx, tx, b.ID, r); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func insertTrial(ctx context.Context, tx *sql.Tx, batch string, r montecarlo.TrialResult) error {
	var kind, msg sql.NullString
	var errTime sql.NullFloat64
	if r.Error != nil {
		kind = sql.NullString{String: r.Error.Kind, Valid: true}
		errTime = sql.NullFloat64{Float64: r.Error.SimTime, Valid: true}
		if r.Error.Err != nil {
			msg = sql.NullString{String: r.Error.Err.Error(), Valid: true}
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO trials (batch_id, run_index, seed, sim_time_final, error_kind, error_time, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch, r.RunIndex, r.Seed, r.SimTimeFinal, kind, errTime, msg)
	if err != nil {
		return fmt.Errorf("failed to insert trial %d: %w", r.RunIndex, err)
	}

	for i, ev := range r.EngagementLog {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO engagements (batch_id, run_index, seq, time, source_id, source_name, source_team,
				target_id, target_name, result, weapon_type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			batch, r.RunIndex, i, ev.Time, ev.SourceID, ev.SourceName, ev.SourceTeam,
			ev.TargetID, ev.TargetName, ev.Result, ev.WeaponType)
		if err != nil {
			return fmt.Errorf("failed to insert engagement %d of trial %d: %w", i, r.RunIndex, err)
		}
	}

	for id, s := range r.EntitySurvival {
		var role sql.NullString
		if s.Role != "" {
			role = sql.NullString{String: s.Role, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO survival (batch_id, run_index, entity_id, name, team, type, role, alive, destroyed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			batch, r.RunIndex, id, s.Name, s.Team, s.Type, role, s.Alive, s.Destroyed)
		if err != nil {
			return fmt.Errorf("failed to insert survival %s of trial %d: %w", id, r.RunIndex, err)
		}
	}
	return nil
}

const batchColumns = `b.id, b.scenario, b.num_runs, b.base_seed, b.max_sim_time, b.step_size, b.started_at, b.finished_at, b.status,
	(SELECT COUNT(*) FROM trials t WHERE t.batch_id = b.id)`

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (Batch, error) {
	var b Batch
	var started, finished string
	if err := row.Scan(&b.ID, &b.Scenario, &b.NumRuns, &b.BaseSeed, &b.MaxSimTime, &b.StepSize, &started, &finished, &b.Status, &b.Trials); err != nil {
		return Batch{}, err
	}
	var err error
	if b.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Batch{}, fmt.Errorf("batch %s: bad started_at: %w", b.ID, err)
	}
	if b.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Batch{}, fmt.Errorf("batch %s: bad finished_at: %w", b.ID, err)
	}
	return b, nil
}

// ListBatches returns all archived batches, newest first.
func (s *SQLiteStore) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batches b ORDER BY b.started_at DESC, b.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LoadBatch returns a batch and its trials ordered by run index.
func (s *SQLiteStore) LoadBatch(ctx context.Context, id string) (Batch, []montecarlo.TrialResult, error) {
	b, err := scanBatch(s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches b WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Batch{}, nil, fmt.Errorf("failed to load batch %s: %w", id, err)
	}

	results, index, err := s.loadTrials(ctx, id)
	if err != nil {
		return Batch{}, nil, err
	}
	if err := s.loadEngagements(ctx, id, results, index); err != nil {
		return Batch{}, nil, err
	}
	if err := s.loadSurvival(ctx, id, results, index); err != nil {
		return Batch{}, nil, err
	}
	return b, results, nil
}

func (s *SQLiteStore) loadTrials(ctx context.Context, id string) ([]montecarlo.TrialResult, map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_index, seed, sim_time_final, error_kind, error_time, error_message
		FROM trials WHERE batch_id = ? ORDER BY run_index`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load trials: %w", err)
	}
	defer rows.Close()

	var results []montecarlo.TrialResult
	index := make(map[int]int)
	for rows.Next() {
		var r montecarlo.TrialResult
		var kind, msg sql.NullString
		var errTime sql.NullFloat64
		if err := rows.Scan(&r.RunIndex, &r.Seed, &r.SimTimeFinal, &kind, &errTime, &msg); err != nil {
			return nil, nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		if kind.Valid {
			r.Error = &montecarlo.TrialError{Kind: kind.String, SimTime: errTime.Float64, Err: errors.New(msg.String)}
		}
		r.EngagementLog = []montecarlo.EngagementEvent{}
		r.EntitySurvival = make(map[string]montecarlo.SurvivalRecord)
		index[r.RunIndex] = len(results)
		results = append(results, r)
	}
	return results, index, rows.Err()
}

func (s *SQLiteStore) loadEngagements(ctx context.Context, id string, results []montecarlo.TrialResult, index map[int]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_index, time, source_id, source_name, source_team, target_id, target_name, result, weapon_type
		FROM engagements WHERE batch_id = ? ORDER BY run_index, seq`, id)
	if err != nil {
		return fmt.Errorf("failed to load engagements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var run int
		var ev montecarlo.EngagementEvent
		if err := rows.Scan(&run, &ev.Time, &ev.SourceID, &ev.SourceName, &ev.SourceTeam,
			&ev.TargetID, &ev.TargetName, &ev.Result, &ev.WeaponType); err != nil {
			return fmt.Errorf("failed to scan engagement: %w", err)
		}
		i := index[run]
		results[i].EngagementLog = append(results[i].EngagementLog, ev)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadSurvival(ctx context.Context, id string, results []montecarlo.TrialResult, index map[int]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_index, entity_id, name, team, type, role, alive, destroyed
		FROM survival WHERE batch_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to load survival: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var run int
		var entity string
		var role sql.NullString
		var rec montecarlo.SurvivalRecord
		if err := rows.Scan(&run, &entity, &rec.Name, &rec.Team, &rec.Type, &role, &rec.Alive, &rec.Destroyed); err != nil {
			return fmt.Errorf("failed to scan survival: %w", err)
		}
		rec.Role = role.String
		results[index[run]].EntitySurvival[entity] = rec
	}
	return rows.Err()
}

// DeleteBatch removes a batch and everything recorded for it.
func (s *SQLiteStore) DeleteBatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete batch %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
