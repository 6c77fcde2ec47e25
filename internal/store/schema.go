// Package store archives completed batches in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    scenario TEXT NOT NULL,
    num_runs INTEGER NOT NULL,
    base_seed INTEGER NOT NULL,
    max_sim_time REAL NOT NULL,
    step_size REAL NOT NULL DEFAULT 0.1,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
    batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    run_index INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    sim_time_final REAL NOT NULL,
    error_kind TEXT,         -- 'build' or 'tick'
    error_time REAL,
    error_message TEXT,
    PRIMARY KEY (batch_id, run_index)
);

CREATE TABLE IF NOT EXISTS engagements (
    batch_id TEXT NOT NULL,
    run_index INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    time REAL NOT NULL,
    source_id TEXT NOT NULL,
    source_name TEXT NOT NULL,
    source_team TEXT NOT NULL,
    target_id TEXT NOT NULL,
    target_name TEXT NOT NULL,
    result TEXT NOT NULL,
    weapon_type TEXT NOT NULL,
    PRIMARY KEY (batch_id, run_index, seq),
    FOREIGN KEY (batch_id, run_index) REFERENCES trials(batch_id, run_index) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_engagements_weapon ON engagements(weapon_type, result);

CREATE TABLE IF NOT EXISTS survival (
    batch_id TEXT NOT NULL,
    run_index INTEGER NOT NULL,
    entity_id TEXT NOT NULL,
    name TEXT NOT NULL,
    team TEXT NOT NULL,
    type TEXT NOT NULL,
    role TEXT,
    alive INTEGER NOT NULL,
    destroyed INTEGER NOT NULL,
    PRIMARY KEY (batch_id, run_index, entity_id),
    FOREIGN KEY (batch_id, run_index) REFERENCES trials(batch_id, run_index) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InitSchema creates the tables if they do not exist and records the schema version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	if version < SchemaVersion {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}
