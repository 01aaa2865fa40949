// Package pkg provides reusable utilities for regcov.
package pkg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileSpill is an append-only sequence of items of type T kept on disk as a
// CBOR sequence (RFC 8742). Collaborators append execution records to a spill
// while tests run; the merge step reads them back.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Get(index uint64) (T, error)
	Range(f func(index uint64, item T) error) error
	Close() error
}

var spillEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("pkg: CBOR encoder initialization failed: " + err.Error())
	}

	return mode
}()

type fileSpillImpl[T any] struct {
	path    string
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	length  uint64
}

// Append implements FileSpill.
func (f *fileSpillImpl[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return fmt.Errorf("filespill %s is closed", f.path)
	}

	if err := f.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	f.length++
	slog.Debug("appended item", "path", f.path, "index", f.length-1)

	return nil
}

// Path implements FileSpill.
func (f *fileSpillImpl[T]) Path() string {
	return f.path
}

// AppendBatch implements FileSpill.
func (f *fileSpillImpl[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := f.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Close implements FileSpill.
func (f *fileSpillImpl[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file != nil {
		if err := f.file.Close(); err != nil {
			slog.Error("failed to close file", "path", f.path, "error", err)
			return err
		}

		f.file = nil

		slog.Debug("closed filespill", "path", f.path, "length", f.length)
	}

	return nil
}

// Get implements FileSpill.
func (f *fileSpillImpl[T]) Get(index uint64) (T, error) {
	var zero T

	f.mu.Lock()
	defer f.mu.Unlock()

	if index >= f.length {
		slog.Warn("get index out of bounds", "path", f.path, "index", index, "length", f.length)
		return zero, fmt.Errorf("index %d out of bounds (length %d)", index, f.length)
	}

	var found T

	err := f.scan(func(i uint64, item T) (bool, error) {
		if i == index {
			found = item
			return false, nil
		}

		return true, nil
	})
	if err != nil {
		return zero, err
	}

	slog.Debug("got item", "path", f.path, "index", index)

	return found, nil
}

// Len implements FileSpill.
func (f *fileSpillImpl[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Range implements FileSpill.
func (f *fileSpillImpl[T]) Range(fn func(index uint64, item T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.scan(func(i uint64, item T) (bool, error) {
		if err := fn(i, item); err != nil {
			slog.Warn("range callback error", "path", f.path, "index", i, "error", err)
			return false, err
		}

		return true, nil
	})
	if err != nil {
		return err
	}

	slog.Debug("range completed", "path", f.path, "count", f.length)

	return nil
}

// scan decodes the first f.length items in order until visit returns false.
// Callers hold f.mu.
func (f *fileSpillImpl[T]) scan(visit func(index uint64, item T) (bool, error)) error {
	file, err := os.Open(f.path)
	if err != nil {
		slog.Error("failed to open file for read", "path", f.path, "error", err)
		return fmt.Errorf("failed to open file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close file", "path", f.path, "error", err)
		}
	}()

	decoder := cbor.NewDecoder(file)

	for i := range f.length {
		var item T
		if err := decoder.Decode(&item); err != nil {
			slog.Error("failed to decode item", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		more, err := visit(i, item)
		if err != nil {
			return err
		}

		if !more {
			return nil
		}
	}

	return nil
}

// NewFileSpill creates a new FileSpill for items of type T in a temporary
// file.
func NewFileSpill[T any]() (FileSpill[T], error) {
	tmpDir := filepath.Join(os.TempDir(), "regcov-spill")
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		slog.Error("failed to create temp directory", "path", tmpDir, "error", err)
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	file, err := os.CreateTemp(tmpDir, "spill-*.cbor")
	if err != nil {
		slog.Error("failed to create temp file", "path", tmpDir, "error", err)
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	slog.Debug("created filespill", "path", file.Name())

	return newFileSpill[T](file, 0), nil
}

// CreateFileSpill creates (or truncates) a FileSpill at path.
func CreateFileSpill[T any](path string) (FileSpill[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create spill directory: %w", err)
	}

	// #nosec G304 - spill paths are chosen by the caller
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}

	return newFileSpill[T](file, 0), nil
}

// OpenFileSpill opens an existing FileSpill at path. Items already in the
// file are counted; new items are appended after them. A truncated trailing
// item is reported as an error.
func OpenFileSpill[T any](path string) (FileSpill[T], error) {
	length, err := countItems[T](path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 - spill paths are chosen by the caller
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open spill file: %w", err)
	}

	slog.Debug("opened filespill", "path", path, "length", length)

	return newFileSpill[T](file, length), nil
}

func newFileSpill[T any](file *os.File, length uint64) *fileSpillImpl[T] {
	return &fileSpillImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: spillEncMode.NewEncoder(file),
		length:  length,
	}
}

func countItems[T any](path string) (uint64, error) {
	// #nosec G304 - spill paths are chosen by the caller
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open spill file: %w", err)
	}

	defer func() { _ = file.Close() }()

	decoder := cbor.NewDecoder(file)

	var count uint64

	for {
		var item T

		err := decoder.Decode(&item)
		if errors.Is(err, io.EOF) {
			return count, nil
		}

		if err != nil {
			return count, fmt.Errorf("failed to decode item at index %d: %w", count, err)
		}

		count++
	}
}
