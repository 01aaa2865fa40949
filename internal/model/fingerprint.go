package model

import "sort"

// FingerprintRecord is the content hash of one resource at the time a
// dependency on it was recorded.
type FingerprintRecord struct {
	Resource string `cbor:"r" yaml:"resource"`
	Hash     string `cbor:"h" yaml:"hash"`
}

// String renders the record as resource:hash.
func (r FingerprintRecord) String() string {
	return r.Resource + ":" + r.Hash
}

// DependencySet is the set of fingerprints one owner depended on in the
// previous run. Records are kept sorted by resource and unique per resource.
type DependencySet struct {
	records []FingerprintRecord
}

// NewDependencySet builds a set from records. Duplicate resources keep the
// last record given.
func NewDependencySet(records ...FingerprintRecord) DependencySet {
	byResource := make(map[string]FingerprintRecord, len(records))
	for _, record := range records {
		byResource[record.Resource] = record
	}

	sorted := make([]FingerprintRecord, 0, len(byResource))
	for _, record := range byResource {
		sorted = append(sorted, record)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Resource < sorted[j].Resource
	})

	return DependencySet{records: sorted}
}

// Records returns a copy of the records ordered by resource.
func (s DependencySet) Records() []FingerprintRecord {
	out := make([]FingerprintRecord, len(s.records))
	copy(out, s.records)

	return out
}

// Len returns the number of records.
func (s DependencySet) Len() int {
	return len(s.records)
}

// IsEmpty reports whether the owner's dependencies are unknown.
func (s DependencySet) IsEmpty() bool {
	return len(s.records) == 0
}

// Lookup returns the record for resource, if present.
func (s DependencySet) Lookup(resource string) (FingerprintRecord, bool) {
	i := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].Resource >= resource
	})
	if i < len(s.records) && s.records[i].Resource == resource {
		return s.records[i], true
	}

	return FingerprintRecord{}, false
}

// Equal reports whether both sets hold the same records.
func (s DependencySet) Equal(other DependencySet) bool {
	if len(s.records) != len(other.records) {
		return false
	}

	for i := range s.records {
		if s.records[i] != other.records[i] {
			return false
		}
	}

	return true
}
