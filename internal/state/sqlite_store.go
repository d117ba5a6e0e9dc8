package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/opsgate/unit-sentinel/internal/nagios"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	target       TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	severity     INTEGER NOT NULL,
	summary      TEXT NOT NULL,
	units_json   TEXT NOT NULL,
	evaluated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_by_target ON runs (target, evaluated_at DESC);

CREATE TABLE IF NOT EXISTS latest (
	target  TEXT PRIMARY KEY,
	run_id  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// SQLiteStore persists the latest snapshot per target plus an append-only
// run history, so operators can ask what a target looked like N runs ago.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens the database at path and runs migrations.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the latest snapshot for every target.
func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.target, r.run_id, r.fingerprint, r.severity, r.summary, r.units_json, r.evaluated_at
		FROM latest l JOIN runs r ON l.run_id = r.run_id`)
	if err != nil {
		return State{}, fmt.Errorf("load latest runs: %w", err)
	}
	defer rows.Close()

	state := State{Targets: map[string]TargetSnapshot{}}
	for rows.Next() {
		var target string
		snapshot, err := scanSnapshot(rows, &target)
		if err != nil {
			s.logger.Warn().Err(err).Msg("skipping unreadable run row")
			continue
		}
		state.Targets[target] = snapshot
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("load latest runs: %w", err)
	}
	return state, nil
}

// Save appends one run row per target and repoints the latest marker.
// Snapshots without a run id get one assigned.
func (s *SQLiteStore) Save(ctx context.Context, state State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for target, snapshot := range state.Targets {
		if snapshot.RunID == "" {
			snapshot.RunID = uuid.New().String()
		}
		if snapshot.EvaluatedAt.IsZero() {
			snapshot.EvaluatedAt = time.Now().UTC()
		}

		unitsJSON, err := json.Marshal(snapshot.Units)
		if err != nil {
			return fmt.Errorf("marshal units for %s: %w", target, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO runs (run_id, target, fingerprint, severity, summary, units_json, evaluated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id) DO NOTHING`,
			snapshot.RunID, target, snapshot.Fingerprint, int(snapshot.Severity),
			snapshot.Summary, string(unitsJSON), snapshot.EvaluatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert run for %s: %w", target, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO latest (target, run_id) VALUES (?, ?)
			ON CONFLICT(target) DO UPDATE SET run_id = excluded.run_id`,
			target, snapshot.RunID)
		if err != nil {
			return fmt.Errorf("update latest for %s: %w", target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// History returns up to limit past snapshots for a target, newest first.
func (s *SQLiteStore) History(ctx context.Context, target string, limit int) ([]TargetSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT target, run_id, fingerprint, severity, summary, units_json, evaluated_at
		FROM runs WHERE target = ?
		ORDER BY evaluated_at DESC LIMIT ?`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	snapshots := make([]TargetSnapshot, 0, limit)
	for rows.Next() {
		var ignored string
		snapshot, err := scanSnapshot(rows, &ignored)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return snapshots, nil
}

func scanSnapshot(rows *sql.Rows, target *string) (TargetSnapshot, error) {
	var (
		snapshot    TargetSnapshot
		severity    int
		unitsJSON   string
		evaluatedAt string
	)
	if err := rows.Scan(target, &snapshot.RunID, &snapshot.Fingerprint, &severity,
		&snapshot.Summary, &unitsJSON, &evaluatedAt); err != nil {
		return TargetSnapshot{}, fmt.Errorf("scan run row: %w", err)
	}

	snapshot.Severity = nagios.Severity(severity)
	if err := json.Unmarshal([]byte(unitsJSON), &snapshot.Units); err != nil {
		return TargetSnapshot{}, fmt.Errorf("unmarshal units: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, evaluatedAt)
	if err != nil {
		return TargetSnapshot{}, fmt.Errorf("parse evaluated_at: %w", err)
	}
	snapshot.EvaluatedAt = parsed
	return snapshot, nil
}
