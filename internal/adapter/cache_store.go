package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	m "regcov.dev/pkg/regcov/internal/model"
)

// Names of the tool files kept under the cache root.
const (
	ManifestFileName   = "cov_units.yaml"
	RunInfoFileName    = "run.info"
	TestResultsDirName = "test-results"
)

// ManifestStore persists the invalidation manifest.
type ManifestStore interface {
	// SaveManifest overwrites the manifest.
	SaveManifest(manifest m.Manifest) error
	// LoadManifest returns the manifest and whether one exists.
	LoadManifest() (m.Manifest, bool, error)
}

// RunInfoStore persists the summary of the last selection pass.
type RunInfoStore interface {
	SaveRunInfo(info m.RunInfo) error
	LoadRunInfo() (m.RunInfo, bool, error)
}

// FailureStore tracks owners that failed in their latest run.
type FailureStore interface {
	MarkFailed(owner string) error
	ClearFailed(owner string) error
	ListFailing() ([]string, error)
}

// DebugDumper writes sorted text listings for troubleshooting.
type DebugDumper interface {
	DumpLines(name string, lines []string) error
}

// CacheStore groups the tool files of one cache root.
type CacheStore interface {
	ManifestStore
	RunInfoStore
	FailureStore
	DebugDumper
}

// LocalCacheStore implements CacheStore on top of a SourceFSAdapter.
type LocalCacheStore struct {
	fs   SourceFSAdapter
	root m.Path
}

// NewLocalCacheStore returns a cache store rooted at root.
func NewLocalCacheStore(fsAdapter SourceFSAdapter, root m.Path) *LocalCacheStore {
	return &LocalCacheStore{fs: fsAdapter, root: root}
}

// ManifestPath returns the fixed manifest location under root.
func (s *LocalCacheStore) ManifestPath() m.Path {
	return s.fs.JoinPath(string(s.root), ManifestFileName)
}

// SaveManifest implements ManifestStore.
func (s *LocalCacheStore) SaveManifest(manifest m.Manifest) error {
	normalized := m.NewManifest(manifest.Resources)

	data, err := encodeYAML(normalized)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := s.fs.WriteFileAtomic(s.ManifestPath(), data); err != nil {
		slog.Error("Failed to write invalidation manifest", "path", s.ManifestPath(), "error", err)
		return fmt.Errorf("%w: write manifest: %w", m.ErrStoreUnavailable, err)
	}

	slog.Debug("Wrote invalidation manifest", "path", s.ManifestPath(), "resources", len(normalized.Resources))

	return nil
}

// LoadManifest implements ManifestStore.
func (s *LocalCacheStore) LoadManifest() (m.Manifest, bool, error) {
	var manifest m.Manifest

	found, err := s.loadYAML(s.ManifestPath(), &manifest)
	if err != nil || !found {
		return m.Manifest{}, found, err
	}

	return m.NewManifest(manifest.Resources), true, nil
}

// SaveRunInfo implements RunInfoStore.
func (s *LocalCacheStore) SaveRunInfo(info m.RunInfo) error {
	data, err := encodeYAML(info)
	if err != nil {
		return fmt.Errorf("encode run info: %w", err)
	}

	path := s.fs.JoinPath(string(s.root), RunInfoFileName)
	if err := s.fs.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: write run info: %w", m.ErrStoreUnavailable, err)
	}

	return nil
}

// LoadRunInfo implements RunInfoStore.
func (s *LocalCacheStore) LoadRunInfo() (m.RunInfo, bool, error) {
	var info m.RunInfo

	found, err := s.loadYAML(s.fs.JoinPath(string(s.root), RunInfoFileName), &info)

	return info, found, err
}

func (s *LocalCacheStore) failurePath(owner string) m.Path {
	return s.fs.JoinPath(string(s.root), TestResultsDirName, escapeOwner(owner))
}

// MarkFailed implements FailureStore.
func (s *LocalCacheStore) MarkFailed(owner string) error {
	if err := s.fs.WriteFileAtomic(s.failurePath(owner), []byte(owner+"\n")); err != nil {
		return fmt.Errorf("%w: mark %s failed: %w", m.ErrStoreUnavailable, owner, err)
	}

	return nil
}

// ClearFailed implements FailureStore.
func (s *LocalCacheStore) ClearFailed(owner string) error {
	if err := s.fs.Remove(s.failurePath(owner)); err != nil {
		return fmt.Errorf("%w: clear %s failure: %w", m.ErrStoreUnavailable, owner, err)
	}

	return nil
}

// ListFailing implements FailureStore.
func (s *LocalCacheStore) ListFailing() ([]string, error) {
	names, err := s.fs.ListDir(s.fs.JoinPath(string(s.root), TestResultsDirName))
	if err != nil {
		return nil, fmt.Errorf("%w: list failures: %w", m.ErrStoreUnavailable, err)
	}

	owners := make([]string, 0, len(names))

	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}

		owner, err := url.PathUnescape(name)
		if err != nil {
			continue
		}

		owners = append(owners, owner)
	}

	sort.Strings(owners)

	return owners, nil
}

// DumpLines implements DebugDumper.
func (s *LocalCacheStore) DumpLines(name string, lines []string) error {
	sorted := make([]string, len(lines))
	copy(sorted, lines)
	sort.Strings(sorted)

	var buf bytes.Buffer
	for _, line := range sorted {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if err := s.fs.WriteFileAtomic(s.fs.JoinPath(string(s.root), name), buf.Bytes()); err != nil {
		return fmt.Errorf("%w: write %s: %w", m.ErrStoreUnavailable, name, err)
	}

	return nil
}

func (s *LocalCacheStore) loadYAML(path m.Path, out any) (bool, error) {
	if _, err := s.fs.FileInfo(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("%w: stat %s: %w", m.ErrStoreUnavailable, path, err)
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", m.ErrStoreUnavailable, path, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", m.ErrStoreUnavailable, path, err)
	}

	return true, nil
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v); err != nil {
		return nil, err
	}

	if err := encoder.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
