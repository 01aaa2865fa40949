package model

// ExecutionRecord holds the probe hits observed for one compiled unit.
type ExecutionRecord struct {
	ID     uint64 `cbor:"id"`
	Name   string `cbor:"name"`
	Probes []bool `cbor:"probes"`
}

// NewExecutionRecord returns a record with probeCount unexecuted probes.
func NewExecutionRecord(id uint64, name string, probeCount int) ExecutionRecord {
	return ExecutionRecord{ID: id, Name: name, Probes: make([]bool, probeCount)}
}

// Clone returns a deep copy of the record.
func (r ExecutionRecord) Clone() ExecutionRecord {
	probes := make([]bool, len(r.Probes))
	copy(probes, r.Probes)

	return ExecutionRecord{ID: r.ID, Name: r.Name, Probes: probes}
}

// HitCount returns the number of executed probes.
func (r ExecutionRecord) HitCount() int {
	hits := 0

	for _, probe := range r.Probes {
		if probe {
			hits++
		}
	}

	return hits
}

// HasHits reports whether at least one probe was executed.
func (r ExecutionRecord) HasHits() bool {
	for _, probe := range r.Probes {
		if probe {
			return true
		}
	}

	return false
}

// MergeSummary describes the outcome of a coverage merge.
type MergeSummary struct {
	SessionRecords  int
	PreviousRecords int
	Carried         int
	Dropped         int
	Total           int
	ManifestUsed    bool
	Output          Path
}
