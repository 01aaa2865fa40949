package adapter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	m "regcov.dev/pkg/regcov/internal/model"
)

// DefaultRecordKind is the extension of dependency record files.
const DefaultRecordKind = "deps"

// recordFileVersion is bumped when the on-disk record layout changes.
const recordFileVersion = 1

// toolFileNames are cache-root files that never hold dependency records.
var toolFileNames = map[string]struct{}{
	ManifestFileName:    {},
	RunInfoFileName:     {},
	DigestCacheFileName: {},
	SQLiteRecordsFile:   {},
}

// DependencyRecordStore persists the fingerprints each owner depended on.
type DependencyRecordStore interface {
	// Load returns the owner's dependency set. A missing record yields an
	// empty set and no error; only I/O failures return
	// model.ErrStoreUnavailable.
	Load(owner string) (m.DependencySet, error)
	// Save replaces the owner's dependency set.
	Save(owner string, set m.DependencySet) error
	// ListOwners returns every owner with a persisted record, sorted.
	ListOwners() ([]string, error)
	Close() error
}

type recordFile struct {
	Version int                   `cbor:"v"`
	Records []m.FingerprintRecord `cbor:"records"`
}

// FileRecordStore keeps one CBOR file per owner under the cache root:
// <root>/<escaped owner>.<kind>.
type FileRecordStore struct {
	fs   SourceFSAdapter
	root m.Path
	kind string
}

// NewFileRecordStore creates a store for records of the given kind.
func NewFileRecordStore(fsAdapter SourceFSAdapter, root m.Path, kind string) *FileRecordStore {
	if kind == "" {
		kind = DefaultRecordKind
	}

	return &FileRecordStore{fs: fsAdapter, root: root, kind: kind}
}

func (s *FileRecordStore) pathFor(owner string) m.Path {
	return s.fs.JoinPath(string(s.root), escapeOwner(owner)+"."+s.kind)
}

// escapeOwner makes owner a single file name. A leading dot is escaped too,
// so dot-prefixed names stay reserved for temporary files.
func escapeOwner(owner string) string {
	escaped := url.PathEscape(owner)
	if strings.HasPrefix(escaped, ".") {
		escaped = "%2E" + escaped[1:]
	}

	return escaped
}

// Load implements DependencyRecordStore.
func (s *FileRecordStore) Load(owner string) (m.DependencySet, error) {
	path := s.pathFor(owner)

	if _, err := s.fs.FileInfo(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Unknown dependencies, not a failure.
			return m.DependencySet{}, nil
		}

		return m.DependencySet{}, fmt.Errorf("%w: stat %s: %w", m.ErrStoreUnavailable, path, err)
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		return m.DependencySet{}, fmt.Errorf("%w: read %s: %w", m.ErrStoreUnavailable, path, err)
	}

	if len(data) == 0 {
		return m.DependencySet{}, nil
	}

	var file recordFile
	if err := unmarshalCBOR(data, &file); err != nil {
		return m.DependencySet{}, fmt.Errorf("%w: decode %s: %w", m.ErrStoreUnavailable, path, err)
	}

	return m.NewDependencySet(file.Records...), nil
}

// Save implements DependencyRecordStore.
func (s *FileRecordStore) Save(owner string, set m.DependencySet) error {
	data, err := marshalCBOR(recordFile{Version: recordFileVersion, Records: set.Records()})
	if err != nil {
		return fmt.Errorf("encode records for %s: %w", owner, err)
	}

	path := s.pathFor(owner)
	if err := s.fs.WriteFileAtomic(path, data); err != nil {
		slog.Error("Failed to save dependency records", "owner", owner, "path", path, "error", err)
		return fmt.Errorf("%w: write %s: %w", m.ErrStoreUnavailable, path, err)
	}

	slog.Debug("Saved dependency records", "owner", owner, "count", set.Len())

	return nil
}

// ListOwners implements DependencyRecordStore.
func (s *FileRecordStore) ListOwners() ([]string, error) {
	names, err := s.fs.ListDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", m.ErrStoreUnavailable, s.root, err)
	}

	suffix := "." + s.kind
	owners := make([]string, 0, len(names))

	for _, name := range names {
		if _, tool := toolFileNames[name]; tool {
			continue
		}

		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}

		owner, err := url.PathUnescape(strings.TrimSuffix(name, suffix))
		if err != nil {
			slog.Warn("Skipping record file with malformed name", "file", name, "error", err)
			continue
		}

		owners = append(owners, owner)
	}

	sort.Strings(owners)

	return owners, nil
}

// Close implements DependencyRecordStore.
func (s *FileRecordStore) Close() error {
	return nil
}
