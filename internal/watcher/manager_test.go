package watcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/filetrail/filetrail/internal/registry"
)

// fakeCommitter records commits and signals each one on a channel so
// tests can wait for settles without sleeping blind.
type fakeCommitter struct {
	mu      sync.Mutex
	calls   []commitCall
	fail    bool
	noop    bool
	settled chan commitCall
}

type commitCall struct {
	slug    string
	content string
}

func newFakeCommitter() *fakeCommitter {
	return &fakeCommitter{settled: make(chan commitCall, 16)}
}

func (f *fakeCommitter) Commit(ctx context.Context, slug, srcPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return "", fmt.Errorf("backend unavailable")
	}

	data, _ := os.ReadFile(srcPath)
	call := commitCall{slug: slug, content: string(data)}
	f.calls = append(f.calls, call)
	f.settled <- call

	if f.noop {
		return "", nil
	}
	return fmt.Sprintf("rev-%04d", len(f.calls)), nil
}

func (f *fakeCommitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() *Config {
	return &Config{
		Debounce: 50 * time.Millisecond,
		Logger:   log.New(io.Discard, "", 0),
	}
}

func newTestManager(t *testing.T, committer Committer) *Manager {
	t.Helper()
	m, err := NewManager(committer, testConfig())
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	t.Cleanup(m.StopAll)
	return m
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func waitForCommit(t *testing.T, committer *fakeCommitter) commitCall {
	t.Helper()
	select {
	case call := <-committer.settled:
		return call
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for a commit")
		return commitCall{}
	}
}

func expectNoCommit(t *testing.T, committer *fakeCommitter, within time.Duration) {
	t.Helper()
	select {
	case call := <-committer.settled:
		t.Fatalf("Unexpected commit: %+v", call)
	case <-time.After(within):
	}
}

// TestManager_BurstCollapsesToOneCommit verifies a rapid series of
// writes produces a single commit carrying the final content.
func TestManager_BurstCollapsesToOneCommit(t *testing.T) {
	committer := newFakeCommitter()
	m := newTestManager(t, committer)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	writeFile(t, path, "v0\n")

	if err := m.StartWatch("proj", dir, "note.md"); err != nil {
		t.Fatalf("StartWatch() failed: %v", err)
	}

	for i := 1; i <= 5; i++ {
		writeFile(t, path, fmt.Sprintf("v%d\n", i))
		time.Sleep(5 * time.Millisecond)
	}

	call := waitForCommit(t, committer)
	if call.slug != "proj" {
		t.Errorf("Commit slug = %q, want %q", call.slug, "proj")
	}
	if call.content != "v5\n" {
		t.Errorf("Commit content = %q, want final write %q", call.content, "v5\n")
	}

	expectNoCommit(t, committer, 200*time.Millisecond)
	if n := committer.callCount(); n != 1 {
		t.Errorf("Expected 1 commit for the burst, got %d", n)
	}
}

// TestManager_NotifyOnNewRevisionOnly verifies the callback fires after
// a recording commit and stays silent for no-change settles.
func TestManager_NotifyOnNewRevisionOnly(t *testing.T) {
	committer := newFakeCommitter()
	m := newTestManager(t, committer)

	notified := make(chan string, 4)
	m.RegisterNotify(func(slug, file string) {
		notified <- slug + "/" + file
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	writeFile(t, path, "v0\n")

	if err := m.StartWatch("proj", dir, "note.md"); err != nil {
		t.Fatalf("StartWatch() failed: %v", err)
	}

	writeFile(t, path, "v1\n")
	waitForCommit(t, committer)

	select {
	case got := <-notified:
		if got != "proj/note.md" {
			t.Errorf("Notification = %q, want %q", got, "proj/note.md")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for notification")
	}

	// Null-revision settle: commit runs but nothing is recorded.
	committer.mu.Lock()
	committer.noop = true
	committer.mu.Unlock()

	writeFile(t, path, "v1 again\n")
	waitForCommit(t, committer)

	select {
	case got := <-notified:
		t.Errorf("Unexpected notification for no-change settle: %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestManager_StartWatchIdempotent verifies re-watching an active key
// neither errors nor duplicates commits.
func TestManager_StartWatchIdempotent(t *testing.T) {
	committer := newFakeCommitter()
	m := newTestManager(t, committer)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "note.md"), "v0\n")

	if err := m.StartWatch("proj", dir, "note.md"); err != nil {
		t.Fatalf("StartWatch() failed: %v", err)
	}
	if err := m.StartWatch("proj", dir, "note.md"); err != nil {
		t.Fatalf("Second StartWatch() failed: %v", err)
	}
	if !m.IsWatching("proj", "note.md") {
		t.Error("IsWatching() = false after StartWatch")
	}

	writeFile(t, filepath.Join(dir, "note.md"), "v1\n")
	waitForCommit(t, committer)
	expectNoCommit(t, committer, 200*time.Millisecond)
}

// TestManager_StartWatchMissingFile verifies watching a nonexistent
// path is an error the caller sees immediately.
func TestManager_StartWatchMissingFile(t *testing.T) {
	m := newTestManager(t, newFakeCommitter())

	if err := m.StartWatch("proj", t.TempDir(), "ghost.md"); err == nil {
		t.Error("StartWatch() should fail for a missing file")
	}
}

// TestManager_StopCancelsPendingDebounce verifies a key stopped inside
// its debounce window performs no commit.
func TestManager_StopCancelsPendingDebounce(t *testing.T) {
	committer := newFakeCommitter()
	m, err := NewManager(committer, &Config{
		Debounce: 300 * time.Millisecond,
		Logger:   log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	t.Cleanup(m.StopAll)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	writeFile(t, path, "v0\n")

	if err := m.StartWatch("proj", dir, "note.md"); err != nil {
		t.Fatalf("StartWatch() failed: %v", err)
	}

	writeFile(t, path, "v1\n")
	time.Sleep(50 * time.Millisecond) // let the event arm the timer
	m.StopWatching("proj", "note.md")

	if m.IsWatching("proj", "note.md") {
		t.Error("IsWatching() = true after StopWatching")
	}
	expectNoCommit(t, committer, 600*time.Millisecond)
}

// TestManager_CommitFailureKeepsWatchAlive verifies a failed commit is
// absorbed and the next change still settles.
func TestManager_CommitFailureKeepsWatchAlive(t *testing.T) {
	committer := newFakeCommitter()
	m := newTestManager(t, committer)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	writeFile(t, path, "v0\n")

	if err := m.StartWatch("proj", dir, "note.md"); err != nil {
		t.Fatalf("StartWatch() failed: %v", err)
	}

	committer.mu.Lock()
	committer.fail = true
	committer.mu.Unlock()

	writeFile(t, path, "v1\n")
	time.Sleep(200 * time.Millisecond) // failed settle

	if !m.IsWatching("proj", "note.md") {
		t.Fatal("Watch should survive a commit failure")
	}

	committer.mu.Lock()
	committer.fail = false
	committer.mu.Unlock()

	writeFile(t, path, "v2\n")
	call := waitForCommit(t, committer)
	if call.content != "v2\n" {
		t.Errorf("Commit content = %q, want %q", call.content, "v2\n")
	}
}

// TestManager_WatchSurvivesRemoveAndRecreate verifies a deleted file's
// key stays registered, commits nothing while the file is gone, and
// settles again once the file reappears and is written.
func TestManager_WatchSurvivesRemoveAndRecreate(t *testing.T) {
	committer := newFakeCommitter()
	m := newTestManager(t, committer)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	writeFile(t, path, "v0\n")

	if err := m.StartWatch("proj", dir, "note.md"); err != nil {
		t.Fatalf("StartWatch() failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove note.md: %v", err)
	}
	time.Sleep(200 * time.Millisecond) // let the delete settle

	if !m.IsWatching("proj", "note.md") {
		t.Fatal("Key should stay registered while the file is gone")
	}

	writeFile(t, path, "v1\n")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case call := <-committer.settled:
			if call.content == "v1\n" {
				return
			}
		case <-deadline:
			t.Fatal("No commit fired after the file reappeared")
		}
	}
}

// TestManager_KeysSettleIndependently verifies bursts on different
// files each produce their own commit.
func TestManager_KeysSettleIndependently(t *testing.T) {
	committer := newFakeCommitter()
	m := newTestManager(t, committer)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "a0\n")
	writeFile(t, filepath.Join(dir, "b.md"), "b0\n")

	p := &registry.Project{
		Slug:      "proj",
		Directory: dir,
		Files:     []string{"a.md", "b.md"},
	}
	if err := m.StartWatching(p); err != nil {
		t.Fatalf("StartWatching() failed: %v", err)
	}

	writeFile(t, filepath.Join(dir, "a.md"), "a1\n")
	writeFile(t, filepath.Join(dir, "b.md"), "b1\n")

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		got[waitForCommit(t, committer).content] = true
	}
	if !got["a1\n"] || !got["b1\n"] {
		t.Errorf("Expected commits for both files, got %v", got)
	}
}

// TestManager_StopProject verifies all of a project's watches go away
// while other projects stay active.
func TestManager_StopProject(t *testing.T) {
	committer := newFakeCommitter()
	m := newTestManager(t, committer)

	dirA, dirB := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(dirA, "a.md"), "a\n")
	writeFile(t, filepath.Join(dirB, "b.md"), "b\n")

	if err := m.StartWatch("proj-a", dirA, "a.md"); err != nil {
		t.Fatalf("StartWatch(a) failed: %v", err)
	}
	if err := m.StartWatch("proj-b", dirB, "b.md"); err != nil {
		t.Fatalf("StartWatch(b) failed: %v", err)
	}

	m.StopProject("proj-a")

	if m.IsWatching("proj-a", "a.md") {
		t.Error("proj-a watch should be stopped")
	}
	if !m.IsWatching("proj-b", "b.md") {
		t.Error("proj-b watch should still be active")
	}
}

// TestManager_StopAll verifies shutdown is terminal and idempotent.
func TestManager_StopAll(t *testing.T) {
	committer := newFakeCommitter()
	m, err := NewManager(committer, testConfig())
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "note.md"), "v0\n")
	if err := m.StartWatch("proj", dir, "note.md"); err != nil {
		t.Fatalf("StartWatch() failed: %v", err)
	}

	m.StopAll()
	m.StopAll() // second call is a no-op

	if m.IsWatching("proj", "note.md") {
		t.Error("IsWatching() = true after StopAll")
	}
	if err := m.StartWatch("proj", dir, "note.md"); err == nil {
		t.Error("StartWatch() should fail after StopAll")
	}
}

// TestManager_RunStopsOnContextCancel verifies Run unblocks and tears
// the manager down when its context is cancelled.
func TestManager_RunStopsOnContextCancel(t *testing.T) {
	m := newTestManager(t, newFakeCommitter())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
