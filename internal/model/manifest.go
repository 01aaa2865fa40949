package model

import (
	"sort"
	"time"
)

// ManifestVersion is the current invalidation manifest format version.
const ManifestVersion = 1

// Manifest is the persisted set of resources whose coverage was invalidated
// by the last selection pass.
type Manifest struct {
	Version   int      `yaml:"version"`
	Resources []string `yaml:"resources"`
}

// NewManifest returns a manifest holding the given resources sorted and
// de-duplicated.
func NewManifest(resources []string) Manifest {
	seen := make(map[string]struct{}, len(resources))
	for _, resource := range resources {
		seen[resource] = struct{}{}
	}

	sorted := make([]string, 0, len(seen))
	for resource := range seen {
		sorted = append(sorted, resource)
	}

	sort.Strings(sorted)

	return Manifest{Version: ManifestVersion, Resources: sorted}
}

// RunInfo summarizes one selection pass.
type RunInfo struct {
	RunID       string    `yaml:"run_id"`
	StartedAt   time.Time `yaml:"started_at"`
	Owners      int       `yaml:"owners"`
	Affected    int       `yaml:"affected"`
	NonAffected int       `yaml:"non_affected"`
	Invalidated int       `yaml:"invalidated"`
	Warnings    int       `yaml:"warnings"`
}
