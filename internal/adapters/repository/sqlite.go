package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
	"github.com/ciwomuli/eve-wormhole/pkg/metrics"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates its schema. ":memory:" keeps everything in memory.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite serialises writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	metrics.UpdateRepositoryShardCount(1)
	metrics.UpdateTotalWormholes(s.Count(ctx))
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS wormholes (
		id TEXT PRIMARY KEY,
		submitter_id TEXT NOT NULL,
		submitter_name TEXT NOT NULL DEFAULT '',
		signature TEXT NOT NULL,
		source_system TEXT NOT NULL,
		target_system TEXT NOT NULL,
		type TEXT NOT NULL,
		life TEXT NOT NULL,
		mass TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		submitted_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wormholes_submitter ON wormholes(submitter_id, submitted_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Save implements Store.Save.
func (s *SQLiteStore) Save(ctx context.Context, w model.Wormhole) error { //nolint:gocritic // mirrors Store
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := validate(&w); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wormholes (id, submitter_id, submitter_name, signature, source_system, target_system,
			type, life, mass, note, submitted_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			submitter_id = excluded.submitter_id,
			submitter_name = excluded.submitter_name,
			signature = excluded.signature,
			source_system = excluded.source_system,
			target_system = excluded.target_system,
			type = excluded.type,
			life = excluded.life,
			mass = excluded.mass,
			note = excluded.note,
			submitted_at = excluded.submitted_at,
			expires_at = excluded.expires_at
	`, w.ID, w.SubmitterID, w.SubmitterName, w.Signature, w.SourceSystem, w.TargetSystem,
		w.Type, string(w.Life), string(w.Mass), w.Note, formatTime(w.SubmittedAt), formatTime(w.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save wormhole %s: %w", w.ID, err)
	}
	return nil
}

// ListBySubmitter implements Store.ListBySubmitter.
func (s *SQLiteStore) ListBySubmitter(ctx context.Context, submitterID string) ([]model.Wormhole, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if submitterID == "" {
		return nil, ErrEmptySubmitter
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, submitter_id, submitter_name, signature, source_system, target_system,
			type, life, mass, note, submitted_at, expires_at
		FROM wormholes WHERE submitter_id = ?
	`, submitterID)
	if err != nil {
		return nil, fmt.Errorf("query wormholes: %w", err)
	}
	defer rows.Close()

	out := []model.Wormhole{}
	for rows.Next() {
		var (
			w                     model.Wormhole
			life, mass            string
			submitted, expiresRaw string
		)
		if err := rows.Scan(&w.ID, &w.SubmitterID, &w.SubmitterName, &w.Signature, &w.SourceSystem,
			&w.TargetSystem, &w.Type, &life, &mass, &w.Note, &submitted, &expiresRaw); err != nil {
			return nil, fmt.Errorf("scan wormhole: %w", err)
		}
		w.Life, w.Mass = model.Life(life), model.Mass(mass)
		if w.SubmittedAt, err = parseTime(submitted); err != nil {
			return nil, fmt.Errorf("wormhole %s: submitted_at: %w", w.ID, err)
		}
		if w.ExpiresAt, err = parseTime(expiresRaw); err != nil {
			return nil, fmt.Errorf("wormhole %s: expires_at: %w", w.ID, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wormholes: %w", err)
	}

	// RFC3339Nano trims trailing zeros, so the text column does not sort lexically.
	sortNewestFirst(out)
	return out, nil
}

// Count implements Store.Count. Query failures count as zero.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM wormholes").Scan(&n); err != nil {
		metrics.RecordErrorByComponent("repository", "count_failed")
		return 0
	}
	return n
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}
