// Package cache persists the cross-session building summary in a local
// SQLite database. Both directions are best-effort: a cache that cannot be
// read or written behaves like an empty cache and never disturbs ingestion.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// Store is the SQLite-backed summary cache.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the cache database at path and applies the
// recommended pragmas plus the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite performs best with a single write connection. WAL enables concurrent readers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	// modernc.org/sqlite requires SQL statements for pragmas, not DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS summaries (
			id           INTEGER  PRIMARY KEY CHECK (id = 1),
			version      INTEGER  NOT NULL,
			generated_at DATETIME NOT NULL,
			payload      TEXT     NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create summaries table: %w", err)
	}
	return nil
}

// LoadSummary returns the cached summary if one exists and its schema
// version matches. Any failure, including a version mismatch, reports no
// summary; errors are logged, never surfaced.
func (s *Store) LoadSummary(ctx context.Context) (*models.CachedSummary, bool) {
	var (
		version int
		payload []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT version, payload FROM summaries WHERE id = 1",
	).Scan(&version, &payload)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("summary cache read failed", zap.Error(err))
		return nil, false
	}
	if version != models.SummaryVersion {
		s.logger.Info("ignoring cached summary with mismatched schema version",
			zap.Int("cached", version),
			zap.Int("current", models.SummaryVersion),
		)
		return nil, false
	}

	var summary models.CachedSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		s.logger.Warn("summary cache payload corrupt", zap.Error(err))
		return nil, false
	}
	if summary.Version != models.SummaryVersion {
		return nil, false
	}
	return &summary, true
}

// SaveSummary replaces the cached summary. Failures are logged and
// swallowed; ingestion proceeds as if no cache existed.
func (s *Store) SaveSummary(ctx context.Context, summary models.CachedSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn("summary cache encode failed", zap.Error(err))
		return
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO summaries (id, version, generated_at, payload)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			version = excluded.version,
			generated_at = excluded.generated_at,
			payload = excluded.payload
	`, summary.Version, summary.GeneratedAt, payload)
	if err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
