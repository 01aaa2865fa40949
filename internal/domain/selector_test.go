package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"regcov.dev/pkg/regcov/internal/adapter"
	adaptermocks "regcov.dev/pkg/regcov/internal/adapter/mocks"
	m "regcov.dev/pkg/regcov/internal/model"
)

func TestSelectAffected_EmptyCache(t *testing.T) {
	f := newFixture(t)

	selection, err := f.selector(SelectorConfig{}).SelectAffected(context.Background(), []string{"T2", "T1", "T2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"T1", "T2"}, selection.Result.All)
	assert.Equal(t, []string{"T1", "T2"}, selection.Result.Affected)
	assert.Equal(t, []string{"T1", "T2"}, selection.Result.DirectlyAffected)
	assert.Empty(t, selection.Result.NonAffected)
	assert.Empty(t, selection.Result.Invalidated)
	assert.Empty(t, selection.Warnings)
	assert.Equal(t, "version: 1\nresources: []\n", string(f.manifestBytes(t)))
}

func TestSelectAffected_Unchanged(t *testing.T) {
	f := newFixture(t)
	f.write(t, "A.bin", "a")
	f.write(t, "Lib.bin", "lib")
	f.record(t, "T1", "A.bin", "Lib.bin")
	f.record(t, "T2", "Lib.bin")

	selection, err := f.selector(SelectorConfig{}).SelectAffected(context.Background(), []string{"T1", "T2"})
	require.NoError(t, err)

	assert.Empty(t, selection.Result.Affected)
	assert.Equal(t, []string{"T1", "T2"}, selection.Result.NonAffected)
	assert.Empty(t, selection.Result.Invalidated)
	assert.Empty(t, selection.Result.Changed)
}

func TestSelectAffected_ChangedResource(t *testing.T) {
	tests := []struct {
		name         string
		units        map[string]string
		propagation  Propagation
		affected     []string
		selfModified []string
		invalidated  []string
		golden       string
	}{
		{
			name:        "resource of another unit",
			units:       map[string]string{},
			affected:    []string{"T1"},
			invalidated: []string{"A.bin"},
			golden:      "manifest_changed_only",
		},
		{
			name:         "own unit widened",
			units:        map[string]string{"T1": "A"},
			propagation:  PropagationWidened,
			affected:     []string{"T1", "T2", "T3"},
			selfModified: []string{"T1"},
			invalidated:  []string{"A.bin", "Lib.bin"},
			golden:       "manifest_self_modified",
		},
		{
			name:         "own unit strict",
			units:        map[string]string{"T1": "A"},
			propagation:  PropagationStrict,
			affected:     []string{"T1"},
			selfModified: []string{"T1"},
			invalidated:  []string{"A.bin", "Lib.bin"},
			golden:       "manifest_self_modified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.write(t, "A.bin", "h1")
			f.write(t, "Lib.bin", "lib")
			f.write(t, "Other.bin", "other")
			f.record(t, "T1", "A.bin", "Lib.bin")
			f.record(t, "T3", "Lib.bin")
			f.record(t, "T4", "Other.bin")

			f.write(t, "A.bin", "h2")
			// T2 recorded after the change, so its own record still matches.
			f.record(t, "T2", "A.bin")

			cfg := SelectorConfig{Propagation: tt.propagation, OwnerUnit: ownerUnits(tt.units)}

			selection, err := f.selector(cfg).SelectAffected(context.Background(), []string{"T1", "T2", "T3", "T4"})
			require.NoError(t, err)

			assert.Equal(t, tt.affected, selection.Result.Affected)
			assert.Equal(t, []string{"T1"}, selection.Result.DirectlyAffected)
			assert.Equal(t, []string{"A.bin"}, selection.Result.Changed)
			assert.Equal(t, tt.invalidated, selection.Result.Invalidated)
			assert.Contains(t, selection.Result.NonAffected, "T4")

			if tt.selfModified == nil {
				assert.Empty(t, selection.Result.SelfModified)
			} else {
				assert.Equal(t, tt.selfModified, selection.Result.SelfModified)
			}

			g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
			g.Assert(t, tt.golden, f.manifestBytes(t))
		})
	}
}

func TestSelectAffected_QualifiedOwnerWidens(t *testing.T) {
	f := newFixture(t)
	f.write(t, "com/x/FooTest.class", "foo v1")
	f.write(t, "com/x/Lib.class", "lib")
	f.record(t, "com.x.FooTest", "com/x/FooTest.class", "com/x/Lib.class")
	f.record(t, "com.x.BarTest", "com/x/Lib.class")

	f.write(t, "com/x/FooTest.class", "foo v2")

	selection, err := f.selector(SelectorConfig{}).SelectAffected(context.Background(), []string{"com.x.FooTest", "com.x.BarTest"})
	require.NoError(t, err)

	assert.Equal(t, []string{"com.x.FooTest"}, selection.Result.SelfModified)
	assert.Equal(t, []string{"com.x.BarTest", "com.x.FooTest"}, selection.Result.Affected)
	assert.Empty(t, selection.Result.NonAffected)
	assert.Equal(t, []string{"com/x/FooTest.class", "com/x/Lib.class"}, selection.Result.Invalidated)
}

func TestSelectAffected_CachedHasherWithWorkers(t *testing.T) {
	f := newFixture(t)

	digests, err := adapter.OpenDigestCache(m.Path(f.cacheDir))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, digests.Close()) })

	cached := adapter.NewLocalContentHasher(f.fs, adapter.WithResourceRoot(m.Path(f.root)), adapter.WithDigestCache(digests))

	owners := make([]string, 0, 40)
	for i := range 40 {
		owner := fmt.Sprintf("T%02d", i)
		resource := fmt.Sprintf("r%02d.bin", i)
		owners = append(owners, owner)

		f.write(t, resource, resource)
		f.record(t, owner, resource)
	}

	selector := NewRegressionSelector(f.records, cached, f.cache, SelectorConfig{HashWorkers: 8})

	selection, err := selector.SelectAffected(context.Background(), owners)
	require.NoError(t, err)
	assert.Empty(t, selection.Result.Affected)

	for i := range 40 {
		path := filepath.Join(f.root, fmt.Sprintf("r%02d.bin", i))

		info, err := os.Stat(path)
		require.NoError(t, err)

		digest, ok, err := digests.Get(m.Path(path), info, "raw")
		require.NoError(t, err)
		require.True(t, ok, path)

		want, err := f.hasher.Hash(fmt.Sprintf("r%02d.bin", i))
		require.NoError(t, err)
		assert.Equal(t, want.Hash, digest)
	}

	again, err := selector.SelectAffected(context.Background(), owners)
	require.NoError(t, err)
	assert.Equal(t, selection, again)
}

func TestParseOwnerUnit(t *testing.T) {
	tests := []struct {
		template string
		owner    string
		want     string
	}{
		{"", "com.x.FooTest", "com/x/FooTest"},
		{"", "TestFoo", "TestFoo"},
		{"{owner}", "com.x.FooTest", "com.x.FooTest"},
		{"build/{qualified}", "com.x.FooTest", "build/com/x/FooTest"},
		{"{qualified}_test", "pkg.Foo", "pkg/Foo_test"},
	}

	for _, tt := range tests {
		t.Run(tt.template+"/"+tt.owner, func(t *testing.T) {
			ownerUnit, err := ParseOwnerUnit(tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ownerUnit(tt.owner))
		})
	}

	_, err := ParseOwnerUnit("build/classes")
	require.Error(t, err)
}

func TestSelectAffected_Soundness(t *testing.T) {
	f := newFixture(t)
	f.write(t, "A.bin", "a")
	f.write(t, "B.bin", "b")
	f.write(t, "C.bin", "c")
	f.record(t, "T1", "A.bin")
	f.record(t, "T2", "B.bin")
	f.record(t, "T3", "C.bin")

	f.write(t, "B.bin", "b2")
	f.remove(t, "C.bin")

	selection, err := f.selector(SelectorConfig{}).SelectAffected(context.Background(), []string{"T1", "T2", "T3"})
	require.NoError(t, err)

	for _, owner := range selection.Result.NonAffected {
		set, err := f.records.Load(owner)
		require.NoError(t, err)

		for _, record := range set.Records() {
			current, err := f.hasher.Hash(record.Resource)
			require.NoError(t, err)
			assert.Equal(t, record.Hash, current.Hash, "%s skipped with stale %s", owner, record.Resource)
		}
	}

	assert.Equal(t, []string{"T2", "T3"}, selection.Result.Affected)
	assert.Equal(t, []string{"T1"}, selection.Result.NonAffected)
	assert.Equal(t, []string{"B.bin", "C.bin"}, selection.Result.Invalidated)

	require.Len(t, selection.Warnings, 1)
	assert.Equal(t, "T3", selection.Warnings[0].Owner)
	assert.Equal(t, "C.bin", selection.Warnings[0].Resource)
}

func TestSelectAffected_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "A.bin", "a")
	f.write(t, "Lib.bin", "lib")
	f.record(t, "A", "A.bin", "Lib.bin")
	f.record(t, "B", "Lib.bin")
	f.write(t, "A.bin", "changed")

	selector := f.selector(SelectorConfig{})
	owners := []string{"A", "B", "C"}

	first, err := selector.SelectAffected(context.Background(), owners)
	require.NoError(t, err)

	firstManifest := f.manifestBytes(t)

	second, err := selector.SelectAffected(context.Background(), owners)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstManifest, f.manifestBytes(t))
	assert.Equal(t, []string{"A", "B", "C"}, first.Result.Affected)
}

func TestSelectAffected_DeterministicAcrossWorkers(t *testing.T) {
	f := newFixture(t)

	owners := make([]string, 0, 20)

	for i := range 20 {
		owner := fmt.Sprintf("T%02d", i)
		owners = append(owners, owner)

		resources := []string{"shared.bin", fmt.Sprintf("r%02d.bin", i)}
		for _, resource := range resources {
			f.write(t, resource, resource)
		}

		f.record(t, owner, resources...)
	}

	for i := 0; i < 20; i += 3 {
		f.write(t, fmt.Sprintf("r%02d.bin", i), "changed")
	}

	serial, err := f.selector(SelectorConfig{HashWorkers: 1}).SelectAffected(context.Background(), owners)
	require.NoError(t, err)

	serialManifest := f.manifestBytes(t)

	parallel, err := f.selector(SelectorConfig{HashWorkers: 8}).SelectAffected(context.Background(), owners)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
	assert.Equal(t, serialManifest, f.manifestBytes(t))
	assert.Len(t, parallel.Result.Affected, 7)
}

func TestSelectAffected_LoadFailure(t *testing.T) {
	records := adaptermocks.NewMockDependencyRecordStore(t)
	hasher := adaptermocks.NewMockContentHasher(t)
	manifests := adaptermocks.NewMockManifestStore(t)

	records.On("Load", "Broken").Return(m.DependencySet{}, errors.New("corrupt record")).Once()
	records.On("Load", "Fine").Return(m.NewDependencySet(m.FingerprintRecord{Resource: "x.o", Hash: "h"}), nil).Once()
	hasher.On("Hash", "x.o").Return(adapter.HashResult{Hash: "h", Mode: "raw"}, nil).Once()
	manifests.On("SaveManifest", m.NewManifest(nil)).Return(nil).Once()

	selection, err := NewRegressionSelector(records, hasher, manifests, SelectorConfig{}).
		SelectAffected(context.Background(), []string{"Fine", "Broken"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Broken"}, selection.Result.Affected)
	assert.Equal(t, []string{"Fine"}, selection.Result.NonAffected)
	require.Len(t, selection.Warnings, 1)
	assert.Equal(t, m.Warning{Owner: "Broken", Message: "corrupt record"}, selection.Warnings[0])
}

func TestSelectAffected_HashFailure(t *testing.T) {
	records := adaptermocks.NewMockDependencyRecordStore(t)
	hasher := adaptermocks.NewMockContentHasher(t)
	manifests := adaptermocks.NewMockManifestStore(t)

	records.On("Load", "T").Return(m.NewDependencySet(m.FingerprintRecord{Resource: "x.o", Hash: "h"}), nil).Once()
	hasher.On("Hash", "x.o").Return(adapter.HashResult{}, errors.New("permission denied")).Once()
	manifests.On("SaveManifest", m.NewManifest([]string{"x.o"})).Return(nil).Once()

	selection, err := NewRegressionSelector(records, hasher, manifests, SelectorConfig{}).
		SelectAffected(context.Background(), []string{"T"})
	require.NoError(t, err)

	assert.Equal(t, []string{"T"}, selection.Result.Affected)
	assert.Equal(t, []string{"x.o"}, selection.Result.Changed)
	require.Len(t, selection.Warnings, 1)
	assert.Contains(t, selection.Warnings[0].Message, m.ErrResourceUnavailable.Error())
	assert.Contains(t, selection.Warnings[0].Message, "permission denied")
}

func TestSelectAffected_DegradedHashWarns(t *testing.T) {
	records := adaptermocks.NewMockDependencyRecordStore(t)
	hasher := adaptermocks.NewMockContentHasher(t)
	manifests := adaptermocks.NewMockManifestStore(t)

	records.On("Load", "T").Return(m.NewDependencySet(m.FingerprintRecord{Resource: "x.go", Hash: "h"}), nil).Once()
	hasher.On("Hash", "x.go").Return(adapter.HashResult{Hash: "h", Mode: "raw", Degraded: errors.New("syntax error")}, nil).Once()
	manifests.On("SaveManifest", mock.Anything).Return(nil).Once()

	selection, err := NewRegressionSelector(records, hasher, manifests, SelectorConfig{}).
		SelectAffected(context.Background(), []string{"T"})
	require.NoError(t, err)

	assert.Empty(t, selection.Result.Affected)
	require.Len(t, selection.Warnings, 1)
	assert.Equal(t, "T: x.go: hashed raw bytes: syntax error", selection.Warnings[0].String())
}

func TestSelectAffected_ManifestFailureIsFatal(t *testing.T) {
	records := adaptermocks.NewMockDependencyRecordStore(t)
	hasher := adaptermocks.NewMockContentHasher(t)
	manifests := adaptermocks.NewMockManifestStore(t)

	records.On("Load", "T").Return(m.DependencySet{}, nil).Once()
	manifests.On("SaveManifest", mock.Anything).Return(m.ErrStoreUnavailable).Once()

	_, err := NewRegressionSelector(records, hasher, manifests, SelectorConfig{}).
		SelectAffected(context.Background(), []string{"T"})
	require.ErrorIs(t, err, m.ErrStoreUnavailable)
}

func TestSelectAffected_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.write(t, "A.bin", "a")
	f.record(t, "T", "A.bin")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.selector(SelectorConfig{}).SelectAffected(ctx, []string{"T"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDependencyGraph(t *testing.T) {
	graph := NewDependencyGraph()
	graph.Add("T2", "b.o")
	graph.Add("T1", "b.o")
	graph.Add("T1", "a.o")
	graph.Add("T1", "a.o")

	assert.Equal(t, []string{"T1", "T2"}, graph.DependentsOf("b.o"))
	assert.Equal(t, []string{"a.o", "b.o"}, graph.ResourcesOf("T1"))
	assert.Empty(t, graph.DependentsOf("missing.o"))
	assert.Empty(t, graph.ResourcesOf("T3"))
}
