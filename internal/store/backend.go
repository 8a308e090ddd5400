// Package store provides the per-project snapshot history.
//
// Each tracked project owns one repository directory holding the current
// and historical committed copies of its watched files. Persistence is
// delegated to a version-control backend so history, diffing, and
// content addressing are inherited rather than reimplemented; the Store
// facade keeps the surface narrow, file-scoped, and error-tolerant.
//
// The Backend interface isolates the backend so the facade can be tested
// against an in-memory implementation of the same contract.
package store

import (
	"context"
	"errors"
	"time"
)

// Snapshot is one immutable recorded version of a watched file.
//
// Snapshots form a strictly time-ordered, append-only sequence per
// (project, file) and are listed newest first. Revision is stable and
// sufficient to retrieve the exact content later.
type Snapshot struct {
	// Revision is the backend's content-addressed identifier.
	Revision string

	// Time is when the snapshot was committed.
	Time time.Time

	// Message is the commit summary recorded with the snapshot.
	Message string

	// FileName is the watched file's basename. May be empty in
	// project-wide listings when a revision touched multiple paths.
	FileName string

	// LinesAdded and LinesRemoved are the line stats relative to the
	// previous revision, taken from the backend's structured stats.
	LinesAdded   int
	LinesRemoved int
}

// Backend defines the version-control operations the Store needs.
//
// All operations are addressed by repository directory, file basename,
// and revision identifier. The git implementation shells out to the git
// binary; tests use an in-memory fake.
type Backend interface {
	// Init creates the repository at dir if it does not exist.
	// Calling Init on an existing repository is a no-op.
	Init(dir string) error

	// Commit stages file (a basename inside dir) and commits it with
	// the given message. Returns the new revision identifier, or ""
	// when the staged content is identical to the last recorded
	// content for that path.
	Commit(ctx context.Context, dir, file, message string) (string, error)

	// Log returns the history newest first. An empty file returns the
	// combined repository history; otherwise only entries touching
	// that file, following renames.
	Log(ctx context.Context, dir, file string) ([]Snapshot, error)

	// Diff returns the unified diff introduced by revision relative to
	// its immediate predecessor. The first revision in a history is
	// diffed against the empty state, so the whole content appears as
	// additions. An empty file diffs the full revision.
	Diff(ctx context.Context, dir, revision, file string) (string, error)

	// Show returns the file's content at the given revision.
	Show(ctx context.Context, dir, revision, file string) ([]byte, error)
}

// Common errors returned by backend implementations.
var (
	// ErrNoRepository is returned when the repository directory does
	// not exist or is not initialized.
	ErrNoRepository = errors.New("no snapshot repository")

	// ErrRevisionNotFound is returned when a revision identifier does
	// not resolve in the repository.
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrBackendNotAvailable is returned when the backing VCS binary
	// is not installed or not in PATH.
	ErrBackendNotAvailable = errors.New("backend binary not available")
)
