package domain

import (
	"log/slog"
	"sort"

	m "regcov.dev/pkg/regcov/internal/model"
)

// CoverageOption configures a CoverageStore.
type CoverageOption func(*CoverageStore)

// WithMatchMode sets how manifest resources are matched against unit names
// during Merge.
func WithMatchMode(mode MatchMode) CoverageOption {
	return func(s *CoverageStore) {
		s.match = mode
	}
}

// CoverageStore is the per-run table of execution records keyed by unit id,
// with a name index for membership queries. It is not safe for concurrent
// use.
type CoverageStore struct {
	entries map[uint64]*m.ExecutionRecord
	names   map[string]struct{}
	match   MatchMode
}

// NewCoverageStore returns an empty store.
func NewCoverageStore(opts ...CoverageOption) *CoverageStore {
	s := &CoverageStore{
		entries: map[uint64]*m.ExecutionRecord{},
		names:   map[string]struct{}{},
		match:   MatchSegment,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewCoverageStoreFrom returns a store populated with records. Records
// sharing an id are OR-merged.
func NewCoverageStoreFrom(records []m.ExecutionRecord, opts ...CoverageOption) (*CoverageStore, error) {
	s := NewCoverageStore(opts...)

	for _, record := range records {
		if err := s.Put(record); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func checkCompatible(existing *m.ExecutionRecord, record m.ExecutionRecord) error {
	if existing.Name != record.Name || len(existing.Probes) != len(record.Probes) {
		return &m.IncompatibleRecordError{
			ID:            existing.ID,
			Name:          existing.Name,
			ProbeCount:    len(existing.Probes),
			OtherName:     record.Name,
			OtherProbeCnt: len(record.Probes),
		}
	}

	return nil
}

// Put inserts a copy of record, or ORs its probes into the existing entry
// with the same id. A name or probe-count mismatch returns an
// *m.IncompatibleRecordError and leaves the store unchanged.
func (s *CoverageStore) Put(record m.ExecutionRecord) error {
	existing, ok := s.entries[record.ID]
	if !ok {
		clone := record.Clone()
		s.entries[record.ID] = &clone
		s.names[record.Name] = struct{}{}

		return nil
	}

	if err := checkCompatible(existing, record); err != nil {
		return err
	}

	for i, hit := range record.Probes {
		if hit {
			existing.Probes[i] = true
		}
	}

	return nil
}

// Probes returns the probe vector for a unit, creating an unexecuted entry on
// first sighting. The returned slice aliases the stored vector.
func (s *CoverageStore) Probes(id uint64, name string, probeCount int) ([]bool, error) {
	record := m.NewExecutionRecord(id, name, probeCount)

	if existing, ok := s.entries[id]; ok {
		if err := checkCompatible(existing, record); err != nil {
			return nil, err
		}

		return existing.Probes, nil
	}

	s.entries[id] = &record
	s.names[name] = struct{}{}

	return record.Probes, nil
}

// Subtract clears every probe of the matching entry that is set in record.
// Unknown ids are ignored.
func (s *CoverageStore) Subtract(record m.ExecutionRecord) error {
	existing, ok := s.entries[record.ID]
	if !ok {
		return nil
	}

	if err := checkCompatible(existing, record); err != nil {
		return err
	}

	for i, hit := range record.Probes {
		if hit {
			existing.Probes[i] = false
		}
	}

	return nil
}

// SubtractStore subtracts every record of other. Compatibility is checked for
// all shared ids before any probe is cleared.
func (s *CoverageStore) SubtractStore(other *CoverageStore) error {
	records := other.Contents()

	for _, record := range records {
		if existing, ok := s.entries[record.ID]; ok {
			if err := checkCompatible(existing, record); err != nil {
				return err
			}
		}
	}

	for _, record := range records {
		if err := s.Subtract(record); err != nil {
			return err
		}
	}

	return nil
}

// Merge carries records from a previous run's store into s.
//
// With a manifest, records of other whose name matches an invalidated
// resource are dropped and everything else is OR-merged. Without one, only
// units whose name is not yet present in s are copied. Compatibility is
// checked for every record before s is modified.
func (s *CoverageStore) Merge(other *CoverageStore, manifest *m.Manifest) (m.MergeSummary, error) {
	summary := m.MergeSummary{ManifestUsed: manifest != nil}
	carry := make([]m.ExecutionRecord, 0, other.Len())

	var matcher *UnitMatcher
	if manifest != nil {
		matcher = NewUnitMatcher(manifest.Resources, s.match)
	}

	for _, record := range other.Contents() {
		switch {
		case matcher != nil && matcher.Matches(record.Name):
			slog.Debug("Dropping invalidated coverage", "unit", record.Name, "id", record.ID)
			summary.Dropped++

			continue
		case matcher == nil && s.Contains(record.Name):
			summary.Dropped++

			continue
		}

		if existing, ok := s.entries[record.ID]; ok {
			if err := checkCompatible(existing, record); err != nil {
				return m.MergeSummary{}, err
			}
		}

		carry = append(carry, record)
	}

	for _, record := range carry {
		if err := s.Put(record); err != nil {
			return m.MergeSummary{}, err
		}
	}

	summary.Carried = len(carry)
	summary.Total = s.Len()

	return summary, nil
}

// Reset clears every probe while keeping ids, names and probe counts.
func (s *CoverageStore) Reset() {
	for _, entry := range s.entries {
		clear(entry.Probes)
	}
}

// Get returns a copy of the record stored under id.
func (s *CoverageStore) Get(id uint64) (m.ExecutionRecord, bool) {
	entry, ok := s.entries[id]
	if !ok {
		return m.ExecutionRecord{}, false
	}

	return entry.Clone(), true
}

// Contains reports whether a unit with the given name is stored.
func (s *CoverageStore) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Contents returns copies of all records sorted by id.
func (s *CoverageStore) Contents() []m.ExecutionRecord {
	records := make([]m.ExecutionRecord, 0, len(s.entries))
	for _, entry := range s.entries {
		records = append(records, entry.Clone())
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	return records
}

// Len returns the number of stored units.
func (s *CoverageStore) Len() int {
	return len(s.entries)
}
