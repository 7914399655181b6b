// Package checkpoint persists the dedup filter's per-platform watermarks so a
// restarted service keeps rejecting events it has already scored.
package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/kira/internal/domain/model"
	_ "modernc.org/sqlite"
)

// Store loads and saves watermarks.
type Store interface {
	Load(ctx context.Context) (map[model.Platform]time.Time, error)
	Save(ctx context.Context, marks map[model.Platform]time.Time) error
	Close() error
}

// SQLiteStore keeps one row per platform. Watermarks are stored with
// millisecond precision and never move backward.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (or creates) a SQLite database at path.
// Pass ":memory:" for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping checkpoint: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS watermarks (
		platform TEXT PRIMARY KEY,
		high_water_ms INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns every stored watermark. Rows for unknown platforms are skipped.
func (s *SQLiteStore) Load(ctx context.Context) (map[model.Platform]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT platform, high_water_ms FROM watermarks`)
	if err != nil {
		return nil, fmt.Errorf("load watermarks: %w", err)
	}
	defer rows.Close()

	marks := make(map[model.Platform]time.Time)
	for rows.Next() {
		var platform string
		var ms int64
		if err := rows.Scan(&platform, &ms); err != nil {
			return nil, fmt.Errorf("scan watermark: %w", err)
		}
		p := model.Platform(platform)
		if !p.Valid() {
			continue
		}
		marks[p] = time.UnixMilli(ms).UTC()
	}
	return marks, rows.Err()
}

// Save upserts marks in one transaction, keeping the larger of the stored and given value.
func (s *SQLiteStore) Save(ctx context.Context, marks map[model.Platform]time.Time) error {
	if len(marks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for p, t := range marks {
		if t.IsZero() {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO watermarks (platform, high_water_ms) VALUES (?, ?)
			 ON CONFLICT(platform) DO UPDATE SET high_water_ms = MAX(high_water_ms, excluded.high_water_ms)`,
			string(p), t.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("save watermark %s: %w", p, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
