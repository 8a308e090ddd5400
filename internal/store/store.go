package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sentinel values returned by the query operations when the backend
// cannot produce a result. History being unavailable is treated as "no
// history yet" so callers stay navigable.
const (
	// DiffUnavailable is returned by Diff when no diff can be computed.
	DiffUnavailable = "(no diff available)"

	// ContentUnavailable is returned by Content when the revision's
	// content cannot be retrieved.
	ContentUnavailable = "(content not available)"
)

// Store is the file-scoped, error-tolerant facade over a Backend.
//
// One repository per project slug lives under <dataDir>/repos/<slug>;
// no two projects share storage. Commits are serialized per repository:
// git staging is repo-global, so two files of the same project settling
// at once would otherwise contend on the index lock and lose one
// update. Different projects commit concurrently.
type Store struct {
	dataDir string
	backend Backend

	mu    sync.Mutex
	repos map[string]*sync.Mutex
}

// New creates a Store rooted at dataDir using the given backend.
func New(dataDir string, backend Backend) *Store {
	return &Store{
		dataDir: dataDir,
		backend: backend,
		repos:   make(map[string]*sync.Mutex),
	}
}

// repoLock returns the commit mutex for a project slug, creating it on
// first use.
func (s *Store) repoLock(slug string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.repos[slug]
	if !ok {
		l = &sync.Mutex{}
		s.repos[slug] = l
	}
	return l
}

// RepoDir returns the repository directory for a project slug.
func (s *Store) RepoDir(slug string) string {
	return filepath.Join(s.dataDir, "repos", slug)
}

// Commit records the current content of srcPath in the project's
// history. Returns the new revision id, or "" when the source file does
// not exist (nothing to do) or its content is identical to the last
// recorded version. History advances by exactly one entry or zero.
func (s *Store) Commit(ctx context.Context, slug, srcPath string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", srcPath, err)
	}

	lock := s.repoLock(slug)
	lock.Lock()
	defer lock.Unlock()

	repoDir := s.RepoDir(slug)
	if err := s.backend.Init(repoDir); err != nil {
		return "", err
	}

	base := filepath.Base(srcPath)
	if err := os.WriteFile(filepath.Join(repoDir, base), data, 0644); err != nil {
		return "", fmt.Errorf("failed to copy %s into store: %w", base, err)
	}

	return s.backend.Commit(ctx, repoDir, base, "snapshot "+base)
}

// Log returns the project's snapshots newest first. With a non-empty
// fileName only entries touching that file are returned, following
// renames. Backend read failures yield an empty sequence.
func (s *Store) Log(ctx context.Context, slug, fileName string) []Snapshot {
	snaps, err := s.backend.Log(ctx, s.RepoDir(slug), fileName)
	if err != nil {
		return nil
	}
	return snaps
}

// Diff returns the change introduced by revision relative to its
// immediate predecessor. The first revision of a file diffs against the
// empty state. Returns DiffUnavailable on any failure.
func (s *Store) Diff(ctx context.Context, slug, revision, fileName string) string {
	diff, err := s.backend.Diff(ctx, s.RepoDir(slug), revision, fileName)
	if err != nil || diff == "" {
		return DiffUnavailable
	}
	return diff
}

// Content returns the file's text at the given revision, or
// ContentUnavailable on failure.
func (s *Store) Content(ctx context.Context, slug, revision, fileName string) string {
	data, err := s.backend.Show(ctx, s.RepoDir(slug), revision, fileName)
	if err != nil {
		return ContentUnavailable
	}
	return string(data)
}

// Restore overwrites destPath with the file's content at the given
// revision. Returns false when retrieval or the write fails; it never
// returns an error to the caller.
func (s *Store) Restore(ctx context.Context, slug, revision, fileName, destPath string) bool {
	data, err := s.backend.Show(ctx, s.RepoDir(slug), revision, fileName)
	if err != nil {
		return false
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return false
	}
	return true
}

// SnapshotCount returns the number of snapshots for the project, or for
// one file when fileName is non-empty.
func (s *Store) SnapshotCount(ctx context.Context, slug, fileName string) int {
	return len(s.Log(ctx, slug, fileName))
}

// LatestSnapshot returns the most recent snapshot, or nil when the
// history is empty or unavailable.
func (s *Store) LatestSnapshot(ctx context.Context, slug, fileName string) *Snapshot {
	snaps := s.Log(ctx, slug, fileName)
	if len(snaps) == 0 {
		return nil
	}
	return &snaps[0]
}
