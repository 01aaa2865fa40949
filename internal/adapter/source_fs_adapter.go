// Package adapter contains the storage and filesystem adapters behind test
// selection and coverage reconciliation.
package adapter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	m "regcov.dev/pkg/regcov/internal/model"
)

// SourceFSAdapter abstracts filesystem-specific operations that the stores
// and the hasher rely on. It hides direct `os` access so the domain logic can
// be tested against temporary directories or fakes.
//
//nolint:interfacebloat // A richer interface keeps store logic decoupled from os/fs.
type SourceFSAdapter interface {
	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)

	// ListDir returns the names of regular files directly under dir, sorted.
	// A missing directory yields an empty list.
	ListDir(dir m.Path) ([]string, error)

	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir m.Path) error

	// WriteFileAtomic replaces path with content via a rename so readers
	// never observe a partially written file.
	WriteFileAtomic(path m.Path, content []byte) error

	// Remove deletes a file. Removing a missing file is not an error.
	Remove(path m.Path) error

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalSourceFSAdapter is the os-backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the stores.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	// #nosec G304 - paths come from the cache root or recorded dependencies
	return os.ReadFile(string(path))
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// ListDir returns the sorted regular file names directly under dir.
func (a *LocalSourceFSAdapter) ListDir(dir m.Path) ([]string, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}

		return nil, err
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		names = append(names, entry.Name())
	}

	// os.ReadDir already sorts by filename.
	return names, nil
}

// MkdirAll creates the directory tree.
func (a *LocalSourceFSAdapter) MkdirAll(dir m.Path) error {
	return os.MkdirAll(string(dir), 0o750)
}

// WriteFileAtomic writes content to a temporary sibling and renames it over
// path.
func (a *LocalSourceFSAdapter) WriteFileAtomic(path m.Path, content []byte) error {
	dir := filepath.Dir(string(path))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(string(path))+".tmp-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, string(path)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}

	return nil
}

// Remove deletes path, ignoring a missing file.
func (a *LocalSourceFSAdapter) Remove(path m.Path) error {
	err := os.Remove(string(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}

// ResolveResource maps a resource identifier to a filesystem path. `file://`
// and `file:` prefixes are stripped and relative paths are resolved against
// root.
func ResolveResource(root m.Path, resource string) m.Path {
	path := resource

	switch {
	case strings.HasPrefix(path, "file://"):
		path = strings.TrimPrefix(path, "file://")
	case strings.HasPrefix(path, "file:"):
		path = strings.TrimPrefix(path, "file:")
	}

	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(string(root), path)
	}

	return m.Path(filepath.Clean(path))
}
