package model

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceUnavailable reports that a dependency's current content
	// could not be read.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrStoreUnavailable reports that a record store, manifest or snapshot
	// could not be read or written.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrIncompatibleRecord reports two execution records sharing an id but
	// disagreeing on name or probe count.
	ErrIncompatibleRecord = errors.New("incompatible execution record")
)

// IncompatibleRecordError describes the conflicting pair behind
// ErrIncompatibleRecord.
type IncompatibleRecordError struct {
	ID            uint64
	Name          string
	ProbeCount    int
	OtherName     string
	OtherProbeCnt int
}

func (e *IncompatibleRecordError) Error() string {
	if e.Name != e.OtherName {
		return fmt.Sprintf("%v: id %016x has name %q, got %q", ErrIncompatibleRecord, e.ID, e.Name, e.OtherName)
	}

	return fmt.Sprintf("%v: unit %q (id %016x) has %d probes, got %d",
		ErrIncompatibleRecord, e.Name, e.ID, e.ProbeCount, e.OtherProbeCnt)
}

// Unwrap lets errors.Is match ErrIncompatibleRecord.
func (e *IncompatibleRecordError) Unwrap() error {
	return ErrIncompatibleRecord
}
