package adapter

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"lukechampine.com/blake3"

	m "regcov.dev/pkg/regcov/internal/model"
)

const rawMode = "raw"

// HashResult is the fingerprint of one resource.
type HashResult struct {
	Hash string
	// Mode names the normalizer applied, or "raw".
	Mode string
	// Degraded is set when a normalizer accepted the resource but failed,
	// and the raw bytes were hashed instead.
	Degraded error
}

// ContentHasher computes stable content fingerprints for resources.
type ContentHasher interface {
	// Hash returns the fingerprint of resource. It fails with
	// model.ErrResourceUnavailable only when the resource cannot be read.
	Hash(resource string) (HashResult, error)
}

// Normalizer strips bytes that vary without semantic effect from one kind of
// compiled unit.
type Normalizer interface {
	Name() string
	Accepts(path m.Path, content []byte) bool
	Normalize(content []byte) ([]byte, error)
}

// HasherOption configures a LocalContentHasher.
type HasherOption func(*LocalContentHasher)

// WithResourceRoot resolves relative resource identifiers against root.
func WithResourceRoot(root m.Path) HasherOption {
	return func(h *LocalContentHasher) {
		h.root = root
	}
}

// WithNormalizers replaces the default normalizer chain.
func WithNormalizers(normalizers ...Normalizer) HasherOption {
	return func(h *LocalContentHasher) {
		h.normalizers = normalizers
	}
}

// WithoutNormalization hashes raw bytes for every resource.
func WithoutNormalization() HasherOption {
	return func(h *LocalContentHasher) {
		h.normalizers = nil
	}
}

// WithDigestCache reuses digests of files whose size and mtime are unchanged.
func WithDigestCache(cache DigestCache) HasherOption {
	return func(h *LocalContentHasher) {
		h.cache = cache
	}
}

// DefaultNormalizers returns the normalizers applied unless configured
// otherwise: Go sources and ELF objects.
func DefaultNormalizers() []Normalizer {
	return []Normalizer{NewGoSourceNormalizer(), NewELFNormalizer()}
}

// LocalContentHasher hashes files with BLAKE3 after normalization.
type LocalContentHasher struct {
	fs          SourceFSAdapter
	root        m.Path
	normalizers []Normalizer
	cache       DigestCache
}

// NewLocalContentHasher builds a hasher reading through fsAdapter.
func NewLocalContentHasher(fsAdapter SourceFSAdapter, opts ...HasherOption) *LocalContentHasher {
	h := &LocalContentHasher{
		fs:          fsAdapter,
		normalizers: DefaultNormalizers(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Hash implements ContentHasher.
func (h *LocalContentHasher) Hash(resource string) (HashResult, error) {
	path := ResolveResource(h.root, resource)

	info, err := h.fs.FileInfo(path)
	if err != nil {
		return HashResult{}, fmt.Errorf("%w: %s: %w", m.ErrResourceUnavailable, resource, err)
	}

	if info.IsDir() {
		return HashResult{}, fmt.Errorf("%w: %s is a directory", m.ErrResourceUnavailable, resource)
	}

	content, err := h.fs.ReadFile(path)
	if err != nil {
		return HashResult{}, fmt.Errorf("%w: %s: %w", m.ErrResourceUnavailable, resource, err)
	}

	normalizer := h.normalizerFor(path, content)

	mode := rawMode
	if normalizer != nil {
		mode = normalizer.Name()
	}

	if cached, ok := h.cachedDigest(path, info, mode); ok {
		return HashResult{Hash: cached, Mode: mode}, nil
	}

	result := HashResult{Mode: mode}
	payload := content

	if normalizer != nil {
		normalized, normErr := normalizer.Normalize(content)
		if normErr != nil {
			slog.Warn("Normalization failed, hashing raw bytes", "resource", resource, "normalizer", mode, "error", normErr)

			result.Mode = rawMode
			result.Degraded = normErr
		} else {
			payload = normalized
		}
	}

	result.Hash = HashBytes(payload)

	if result.Degraded == nil {
		h.storeDigest(path, info, mode, result.Hash)
	}

	return result, nil
}

func (h *LocalContentHasher) normalizerFor(path m.Path, content []byte) Normalizer {
	for _, normalizer := range h.normalizers {
		if normalizer.Accepts(path, content) {
			return normalizer
		}
	}

	return nil
}

func (h *LocalContentHasher) cachedDigest(path m.Path, info os.FileInfo, mode string) (string, bool) {
	if h.cache == nil {
		return "", false
	}

	digest, ok, err := h.cache.Get(path, info, mode)
	if err != nil {
		slog.Warn("Digest cache lookup failed", "path", path, "error", err)
		return "", false
	}

	return digest, ok
}

func (h *LocalContentHasher) storeDigest(path m.Path, info os.FileInfo, mode, digest string) {
	if h.cache == nil {
		return
	}

	// Non-fatal: the next pass simply rehashes.
	if err := h.cache.Set(path, info, mode, digest); err != nil {
		slog.Warn("Digest cache update failed", "path", path, "error", err)
	}
}

// HashBytes returns the hex BLAKE3-256 digest of data.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
