// Package registry is the single source of truth for which files are
// tracked and where their originals live.
//
// The registry maps a stable project slug to the project directory and
// its ordered set of watched basenames. It is single-writer and
// synchronous: every mutation is flushed to disk before returning, so
// the on-disk file never lags the in-memory state.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Project is a directory with at least one watched file.
//
// A project is created the first time any file under its directory is
// tracked and removed when its last watched file is untracked. Other
// components reference projects by slug and never mutate them.
type Project struct {
	// Slug is the stable, filesystem-safe identifier derived from
	// Directory. It names the project's snapshot repository.
	Slug string `json:"slug"`

	// Directory is the absolute path containing the watched files.
	Directory string `json:"directory"`

	// Files are watched basenames in insertion order, no duplicates.
	Files []string `json:"files"`
}

// HasFile reports whether the basename is watched.
func (p *Project) HasFile(name string) bool {
	for _, f := range p.Files {
		if f == name {
			return true
		}
	}
	return false
}

// Registry holds the tracked projects and persists them to one file.
type Registry struct {
	path     string
	projects map[string]*Project
}

// Load reads the registry file at path. A missing file yields an empty
// registry; a corrupt or unreadable file is an error, since silently
// losing the list of tracked files would silently lose watch coverage.
func Load(path string) (*Registry, error) {
	r := &Registry{
		path:     path,
		projects: make(map[string]*Project),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	var projects []*Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("registry %s is corrupt: %w", path, err)
	}

	for _, p := range projects {
		r.projects[p.Slug] = p
	}

	return r, nil
}

// Save writes the registry atomically (temp file + rename).
func (r *Registry) Save() error {
	projects := r.Projects()

	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}

	return nil
}

// AddFile starts tracking a file. The path is normalized to an absolute
// path, the containing directory's project entry is created if absent,
// and the basename is appended if not already present. Idempotent. The
// registry is flushed before returning.
func (r *Registry) AddFile(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	base := filepath.Base(abs)
	slug := Slug(dir)

	p, ok := r.projects[slug]
	if !ok {
		p = &Project{Slug: slug, Directory: dir}
		r.projects[slug] = p
	}

	if !p.HasFile(base) {
		p.Files = append(p.Files, base)
		if err := r.Save(); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// RemoveFile stops tracking a file. When the project's watched-file set
// becomes empty the project entry itself is removed. Returns the
// project slug and whether anything was removed.
func (r *Registry) RemoveFile(path string) (string, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	slug := Slug(filepath.Dir(abs))
	base := filepath.Base(abs)

	p, ok := r.projects[slug]
	if !ok || !p.HasFile(base) {
		return slug, false, nil
	}

	old := p.Files
	files := make([]string, 0, len(old)-1)
	for _, f := range old {
		if f != base {
			files = append(files, f)
		}
	}
	p.Files = files

	projectRemoved := len(files) == 0
	if projectRemoved {
		delete(r.projects, slug)
	}

	// A failed flush must not leave memory ahead of disk: the caller
	// retries against the same state the file still describes.
	if err := r.Save(); err != nil {
		p.Files = old
		if projectRemoved {
			r.projects[slug] = p
		}
		return slug, false, err
	}

	return slug, true, nil
}

// Lookup returns the project for a slug, or nil.
func (r *Registry) Lookup(slug string) *Project {
	return r.projects[slug]
}

// Projects returns all projects ordered by slug for deterministic
// listings and stable registry files.
func (r *Registry) Projects() []*Project {
	projects := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Slug < projects[j].Slug
	})
	return projects
}
