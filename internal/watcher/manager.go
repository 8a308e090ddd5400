// Package watcher turns bursty filesystem write activity into
// well-spaced, single snapshot commits.
//
// The Manager owns one watch per (project, file) key. Raw events rearm
// a per-key debounce timer; when the window elapses with no further
// events the key settles and exactly one commit is made for the burst,
// reflecting the content present at settle time. Keys settle
// independently of each other; within one key commits never overlap.
package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/filetrail/filetrail/internal/registry"
)

// NotifyFunc is invoked after every successful commit with the project
// slug and file basename. Consumed by the UI layer to refresh views.
type NotifyFunc func(projectSlug, fileName string)

// Committer is the slice of the snapshot store the watcher needs.
type Committer interface {
	// Commit records the file's current content and returns the new
	// revision id, or "" when there was nothing to record.
	Commit(ctx context.Context, slug, srcPath string) (string, error)
}

// Config holds watcher configuration.
type Config struct {
	// Debounce is how long a key must stay quiet after the last raw
	// event before its burst settles into one commit.
	Debounce time.Duration

	// Logger for watch activity and per-event failures.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce: 500 * time.Millisecond,
		Logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// watch is the ephemeral runtime state for one (project, file) key.
type watch struct {
	slug string
	file string
	path string

	// timer is the armed debounce timer, nil when none is pending.
	// Guarded by the Manager mutex.
	timer *time.Timer

	// commitMu serializes commits for this key. The per-key timer
	// already spaces settles out, but a commit that outlasts the next
	// debounce window must still not overlap its successor.
	commitMu sync.Mutex
}

// Manager owns the key-to-watch table and the underlying OS watcher.
type Manager struct {
	store  Committer
	config *Config
	fw     *fsnotify.Watcher

	mu      sync.Mutex
	watches map[string]*watch // key = slug + "/" + basename
	byPath  map[string]*watch
	dirRefs map[string]int // watched directory -> active keys in it
	notify  NotifyFunc
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a Manager and starts its event loop.
// Watches are added with StartWatching; callers must StopAll when done.
func NewManager(store Committer, config *Config) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	m := &Manager{
		store:   store,
		config:  config,
		fw:      fw,
		watches: make(map[string]*watch),
		byPath:  make(map[string]*watch),
		dirRefs: make(map[string]int),
		done:    make(chan struct{}),
	}

	m.wg.Add(1)
	go m.processEvents()

	return m, nil
}

// RegisterNotify sets the single notification callback. It is invoked
// synchronously after its triggering commit completes, so a consumer
// never observes notifications for one key out of order.
func (m *Manager) RegisterNotify(fn NotifyFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = fn
}

// StartWatching establishes watches for every file of a project.
// The first setup failure is returned; files before it stay watched.
func (m *Manager) StartWatching(p *registry.Project) error {
	for _, file := range p.Files {
		if err := m.StartWatch(p.Slug, p.Directory, file); err != nil {
			return err
		}
	}
	return nil
}

// StartWatch establishes a watch for one (project, file) key.
// Starting a watch for a key that is already active is a no-op.
//
// The OS-level watch is on the containing directory, not the file:
// editors that save by delete or rename-and-replace tear down the
// file's inode, and a watch pinned to it would die with the old inode.
// The directory watch keeps delivering events for the basename, so a
// key survives the file disappearing and picks up again when it
// reappears.
func (m *Manager) StartWatch(slug, dir, file string) error {
	key := watchKey(slug, file)
	path := filepath.Join(dir, file)
	watchDir := filepath.Dir(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("watcher is stopped")
	}
	if _, ok := m.watches[key]; ok {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot watch %s: %w", path, err)
	}

	if m.dirRefs[watchDir] == 0 {
		if err := m.fw.Add(watchDir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", watchDir, err)
		}
	}
	m.dirRefs[watchDir]++

	w := &watch{slug: slug, file: file, path: path}
	m.watches[key] = w
	m.byPath[path] = w

	m.config.Logger.Printf("watching %s (%s)", path, key)
	return nil
}

// StopWatching removes the watch for one key, canceling any pending
// debounce timer before the OS watch is released. A stopped key
// performs no further commits even if its timer was armed.
func (m *Manager) StopWatching(slug, file string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(watchKey(slug, file))
}

// StopProject removes all watches belonging to a project slug.
func (m *Manager) StopProject(slug string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, w := range m.watches {
		if w.slug == slug {
			m.stopLocked(key)
		}
	}
}

// StopAll cancels every watch and shuts the event loop down.
// Safe to call once; the Manager cannot be restarted afterwards.
func (m *Manager) StopAll() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for key := range m.watches {
		m.stopLocked(key)
	}
	m.mu.Unlock()

	close(m.done)
	if err := m.fw.Close(); err != nil {
		m.config.Logger.Printf("error closing fsnotify watcher: %v", err)
	}
	m.wg.Wait()
}

// Run blocks until ctx is cancelled, then stops all watches.
func (m *Manager) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.done:
	}
	m.StopAll()
}

// IsWatching reports whether the key currently has an active watch.
func (m *Manager) IsWatching(slug, file string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.watches[watchKey(slug, file)]
	return ok
}

// stopLocked cancels the key's timer and releases its OS watch.
// Caller holds m.mu, making cancellation synchronous with stop.
func (m *Manager) stopLocked(key string) {
	w, ok := m.watches[key]
	if !ok {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	// The directory watch is shared; release it only with its last key.
	watchDir := filepath.Dir(w.path)
	m.dirRefs[watchDir]--
	if m.dirRefs[watchDir] <= 0 {
		delete(m.dirRefs, watchDir)
		_ = m.fw.Remove(watchDir)
	}

	delete(m.watches, key)
	delete(m.byPath, w.path)

	m.config.Logger.Printf("stopped watching %s", key)
}

// processEvents is the event loop: raw events rearm per-key timers,
// watcher errors are logged and absorbed.
func (m *Manager) processEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return

		case event, ok := <-m.fw.Events:
			if !ok {
				return
			}
			m.handleEvent(event)

		case err, ok := <-m.fw.Errors:
			if !ok {
				return
			}
			m.config.Logger.Printf("watcher error: %v", err)
		}
	}
}

// handleEvent rearms the debounce timer for the event's key. Only one
// timer may be armed per key at a time: a burst of N raw events within
// the window collapses to exactly one settle.
func (m *Manager) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Directory watches deliver events for every entry; only tracked
	// paths are of interest.
	w, ok := m.byPath[event.Name]
	if !ok {
		return
	}

	key := watchKey(w.slug, w.file)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(m.config.Debounce, func() {
		m.settle(key)
	})
}

// settle runs when a key's debounce window elapses with no further
// events: commit the file's current content and notify on a new
// revision. Commit failures are per-event and non-fatal; the watch
// stays active.
func (m *Manager) settle(key string) {
	m.mu.Lock()
	w, ok := m.watches[key]
	if !ok {
		// Stopped between timer fire and settle.
		m.mu.Unlock()
		return
	}
	w.timer = nil
	notify := m.notify
	m.mu.Unlock()

	w.commitMu.Lock()
	defer w.commitMu.Unlock()

	rev, err := m.store.Commit(context.Background(), w.slug, w.path)
	if err != nil {
		m.config.Logger.Printf("commit failed for %s: %v", key, err)
		return
	}
	if rev == "" {
		return
	}

	m.config.Logger.Printf("committed %s @ %s", key, shortRev(rev))
	if notify != nil {
		notify(w.slug, w.file)
	}
}

func watchKey(slug, file string) string {
	return slug + "/" + file
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
