package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/klauspost/compress/zstd"

	m "regcov.dev/pkg/regcov/internal/model"
)

const snapshotVersion = 1

// SnapshotStore persists coverage snapshots.
type SnapshotStore interface {
	// SaveSnapshot writes records to path, replacing any previous snapshot.
	SaveSnapshot(path m.Path, records []m.ExecutionRecord) error
	// LoadSnapshot reads the snapshot at path and reports whether it exists.
	LoadSnapshot(path m.Path) ([]m.ExecutionRecord, bool, error)
}

type snapshotFile struct {
	Version int                 `cbor:"v"`
	Records []m.ExecutionRecord `cbor:"records"`
}

// ZstdSnapshotStore stores snapshots as zstd-compressed CBOR, records
// ordered by unit id.
type ZstdSnapshotStore struct {
	fs SourceFSAdapter
}

// NewZstdSnapshotStore returns a snapshot store writing through fsAdapter.
func NewZstdSnapshotStore(fsAdapter SourceFSAdapter) *ZstdSnapshotStore {
	return &ZstdSnapshotStore{fs: fsAdapter}
}

// SaveSnapshot implements SnapshotStore.
func (s *ZstdSnapshotStore) SaveSnapshot(path m.Path, records []m.ExecutionRecord) error {
	sorted := make([]m.ExecutionRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	payload, err := marshalCBOR(snapshotFile{Version: snapshotVersion, Records: sorted})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var compressed bytes.Buffer

	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	if _, err := encoder.Write(payload); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("compressing snapshot: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finishing zstd stream: %w", err)
	}

	if err := s.fs.WriteFileAtomic(path, compressed.Bytes()); err != nil {
		return fmt.Errorf("%w: write snapshot %s: %w", m.ErrStoreUnavailable, path, err)
	}

	return nil
}

// LoadSnapshot implements SnapshotStore.
func (s *ZstdSnapshotStore) LoadSnapshot(path m.Path) ([]m.ExecutionRecord, bool, error) {
	if _, err := s.fs.FileInfo(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("%w: stat snapshot %s: %w", m.ErrStoreUnavailable, path, err)
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read snapshot %s: %w", m.ErrStoreUnavailable, path, err)
	}

	decoder, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	payload, err := io.ReadAll(decoder)
	if err != nil {
		return nil, false, fmt.Errorf("%w: decompress snapshot %s: %w", m.ErrStoreUnavailable, path, err)
	}

	var file snapshotFile
	if err := unmarshalCBOR(payload, &file); err != nil {
		return nil, false, fmt.Errorf("%w: decode snapshot %s: %w", m.ErrStoreUnavailable, path, err)
	}

	return file.Records, true, nil
}
