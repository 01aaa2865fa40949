package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"regcov.dev/pkg/regcov/internal/adapter"
	m "regcov.dev/pkg/regcov/internal/model"
)

// fixture is a resource tree plus a cache directory under one temp dir.
type fixture struct {
	root     string
	cacheDir string
	fs       *adapter.LocalSourceFSAdapter
	records  *adapter.FileRecordStore
	hasher   *adapter.LocalContentHasher
	cache    *adapter.LocalCacheStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	cacheDir := filepath.Join(root, ".regcov")
	fsAdapter := adapter.NewLocalSourceFSAdapter()

	return &fixture{
		root:     root,
		cacheDir: cacheDir,
		fs:       fsAdapter,
		records:  adapter.NewFileRecordStore(fsAdapter, m.Path(cacheDir), adapter.DefaultRecordKind),
		hasher:   adapter.NewLocalContentHasher(fsAdapter, adapter.WithResourceRoot(m.Path(root))),
		cache:    adapter.NewLocalCacheStore(fsAdapter, m.Path(cacheDir)),
	}
}

func (f *fixture) write(t *testing.T, resource, content string) {
	t.Helper()

	path := filepath.Join(f.root, resource)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) remove(t *testing.T, resource string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(f.root, resource)))
}

// record stores the current hashes of resources as owner's dependencies.
func (f *fixture) record(t *testing.T, owner string, resources ...string) {
	t.Helper()

	records := make([]m.FingerprintRecord, 0, len(resources))

	for _, resource := range resources {
		result, err := f.hasher.Hash(resource)
		require.NoError(t, err)

		records = append(records, m.FingerprintRecord{Resource: resource, Hash: result.Hash})
	}

	require.NoError(t, f.records.Save(owner, m.NewDependencySet(records...)))
}

func (f *fixture) selector(cfg SelectorConfig) *RegressionSelector {
	return NewRegressionSelector(f.records, f.hasher, f.cache, cfg)
}

func (f *fixture) manifestBytes(t *testing.T) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(f.cacheDir, adapter.ManifestFileName))
	require.NoError(t, err)

	return data
}

func ownerUnits(units map[string]string) func(string) string {
	return func(owner string) string {
		if unit, ok := units[owner]; ok {
			return unit
		}

		return owner
	}
}
