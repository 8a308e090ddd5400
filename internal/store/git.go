package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// execTimeout bounds every git invocation. A hung call blocks only its
// own key's pipeline, never other keys.
const execTimeout = 30 * time.Second

// GitBackend implements Backend by shelling out to the git binary.
//
// Wrapping the binary rather than a reimplementation keeps history,
// diffing, and content addressing compatible with every git feature;
// the commands are narrow enough that the exec boundary stays small.
type GitBackend struct{}

// NewGitBackend returns a git-backed Backend.
// Returns ErrBackendNotAvailable if the git binary is not in PATH.
func NewGitBackend() (*GitBackend, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendNotAvailable, err)
	}
	return &GitBackend{}, nil
}

// Init creates and configures the snapshot repository at dir.
// Idempotent: an already-initialized repository is left untouched.
func (g *GitBackend) Init(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	if _, err := g.run(context.Background(), dir, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init failed: %w", err)
	}

	// Snapshot repos are app-owned; pin the committer identity so
	// commits never depend on host git configuration.
	if _, err := g.run(context.Background(), dir, "config", "user.name", "filetrail"); err != nil {
		return fmt.Errorf("git config failed: %w", err)
	}
	if _, err := g.run(context.Background(), dir, "config", "user.email", "filetrail@localhost"); err != nil {
		return fmt.Errorf("git config failed: %w", err)
	}

	return nil
}

// Commit stages file and commits it, returning the new revision id.
// Returns "" without committing when the staged content is identical to
// the last recorded content: staging alone does not guarantee a new
// history entry, so the no-change case is checked explicitly.
func (g *GitBackend) Commit(ctx context.Context, dir, file, message string) (string, error) {
	if _, err := g.run(ctx, dir, "add", "--", file); err != nil {
		return "", fmt.Errorf("git add failed: %w", err)
	}

	status, err := g.run(ctx, dir, "status", "--porcelain", "--", file)
	if err != nil {
		return "", fmt.Errorf("git status failed: %w", err)
	}
	if len(bytes.TrimSpace(status)) == 0 {
		return "", nil
	}

	if _, err := g.run(ctx, dir, "commit", "--quiet", "--no-verify", "-m", message, "--", file); err != nil {
		return "", fmt.Errorf("git commit failed: %w", err)
	}

	head, err := g.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}

	return string(bytes.TrimSpace(head)), nil
}

// Log returns the repository history newest first, with line stats from
// git's structured numstat output. A non-empty file restricts the log
// to entries touching that file, following renames.
func (g *GitBackend) Log(ctx context.Context, dir, file string) ([]Snapshot, error) {
	args := []string{"log", "--no-color", "--pretty=format:%H%x09%ct%x09%s", "--numstat"}
	if file != "" {
		args = append(args, "--follow", "--", file)
	}

	output, err := g.run(ctx, dir, args...)
	if err != nil {
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	return parseLog(output, file), nil
}

// parseLog parses interleaved header and numstat lines.
// Header lines are "hash<TAB>epoch<TAB>subject"; numstat lines are
// "added<TAB>removed<TAB>path" ("-" for binary content).
func parseLog(output []byte, file string) []Snapshot {
	var snaps []Snapshot
	var cur *Snapshot

	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		if isRevisionHash(parts[0]) {
			if epoch, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				snaps = append(snaps, Snapshot{
					Revision: parts[0],
					Time:     time.Unix(epoch, 0),
					Message:  parts[2],
					FileName: file,
				})
				cur = &snaps[len(snaps)-1]
				continue
			}
		}

		if cur == nil {
			continue
		}
		if added, err := strconv.Atoi(parts[0]); err == nil {
			cur.LinesAdded += added
		}
		if removed, err := strconv.Atoi(parts[1]); err == nil {
			cur.LinesRemoved += removed
		}
		if cur.FileName == "" {
			cur.FileName = parts[2]
		}
	}

	return snaps
}

func isRevisionHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Diff returns the unified diff introduced by revision relative to its
// immediate predecessor. git show diffs a root commit against the empty
// tree, which is exactly the first-revision edge case: the entire file
// content appears as additions.
func (g *GitBackend) Diff(ctx context.Context, dir, revision, file string) (string, error) {
	args := []string{"show", "--no-color", "--pretty=format:", revision}
	if file != "" {
		args = append(args, "--", file)
	}

	output, err := g.run(ctx, dir, args...)
	if err != nil {
		return "", fmt.Errorf("git show failed: %w", err)
	}

	return strings.TrimLeft(string(output), "\n"), nil
}

// Show returns the file's content at the given revision.
func (g *GitBackend) Show(ctx context.Context, dir, revision, file string) ([]byte, error) {
	output, err := g.run(ctx, dir, "show", revision+":"+file)
	if err != nil {
		return nil, fmt.Errorf("git show failed: %w", err)
	}
	return output, nil
}

// run executes a git command in dir with a timeout, folding stderr into
// the returned error for debugging.
func (g *GitBackend) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}
