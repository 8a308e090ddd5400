// Package index caches snapshot metadata in an embedded SQLite
// database for fast listings.
//
// The snapshot repositories remain the source of truth; the index is a
// read-optimized mirror fed by the watch daemon's notification path and
// rebuildable from the store's history at any time. It exists so that
// listing projects does not require opening every repository.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/filetrail/filetrail/internal/store"
)

// Index wraps the SQLite connection holding the snapshot cache.
type Index struct {
	conn *sql.DB
	path string
}

// Open creates or opens the index database at path.
// The caller must Close when done.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	idx := &Index{conn: conn, path: path}

	// WAL lets the daemon write while CLI queries read.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return idx, nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	if idx.conn == nil {
		return nil
	}
	err := idx.conn.Close()
	idx.conn = nil
	return err
}

// InitSchema creates the snapshot table if it doesn't exist.
// Idempotent, safe to call on every open.
func (idx *Index) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		revision TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		file TEXT NOT NULL,
		message TEXT NOT NULL,
		committed_at TEXT NOT NULL,
		lines_added INTEGER NOT NULL DEFAULT 0,
		lines_removed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_slug ON snapshots(slug, committed_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_file ON snapshots(slug, file, committed_at);
	`

	if _, err := idx.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize index schema: %w", err)
	}
	return nil
}

// UpsertSnapshot records one snapshot. Revisions are immutable, so a
// replayed upsert is a no-op beyond refreshing the row.
func (idx *Index) UpsertSnapshot(ctx context.Context, slug string, snap store.Snapshot) error {
	query := `
	INSERT INTO snapshots (revision, slug, file, message, committed_at, lines_added, lines_removed)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(revision) DO UPDATE SET
		message = excluded.message,
		lines_added = excluded.lines_added,
		lines_removed = excluded.lines_removed
	`

	_, err := idx.conn.ExecContext(ctx, query,
		snap.Revision,
		slug,
		snap.FileName,
		snap.Message,
		snap.Time.UTC().Format(time.RFC3339),
		snap.LinesAdded,
		snap.LinesRemoved,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", snap.Revision, err)
	}
	return nil
}

// Count returns the number of cached snapshots for a project. A
// non-empty file restricts the count to that file.
func (idx *Index) Count(ctx context.Context, slug, file string) (int, error) {
	query := "SELECT COUNT(*) FROM snapshots WHERE slug = ?"
	args := []interface{}{slug}
	if file != "" {
		query += " AND file = ?"
		args = append(args, file)
	}

	var count int
	if err := idx.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// Latest returns the most recent cached snapshot for a project, or nil
// when none is cached.
func (idx *Index) Latest(ctx context.Context, slug string) (*store.Snapshot, error) {
	query := `
	SELECT revision, file, message, committed_at, lines_added, lines_removed
	FROM snapshots
	WHERE slug = ?
	ORDER BY committed_at DESC
	LIMIT 1
	`

	var snap store.Snapshot
	var committedAt string
	err := idx.conn.QueryRowContext(ctx, query, slug).Scan(
		&snap.Revision,
		&snap.FileName,
		&snap.Message,
		&committedAt,
		&snap.LinesAdded,
		&snap.LinesRemoved,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, committedAt); err == nil {
		snap.Time = t
	}

	return &snap, nil
}

// Rebuild replaces a project's cached rows with the given history,
// typically the store's Log output. Used when the cache and the
// repository have drifted.
func (idx *Index) Rebuild(ctx context.Context, slug string, snaps []store.Snapshot) error {
	tx, err := idx.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE slug = ?", slug); err != nil {
		return fmt.Errorf("failed to clear project rows: %w", err)
	}

	insert := `
	INSERT INTO snapshots (revision, slug, file, message, committed_at, lines_added, lines_removed)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, snap := range snaps {
		_, err := tx.ExecContext(ctx, insert,
			snap.Revision,
			slug,
			snap.FileName,
			snap.Message,
			snap.Time.UTC().Format(time.RFC3339),
			snap.LinesAdded,
			snap.LinesRemoved,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot %s: %w", snap.Revision, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}
	return nil
}
