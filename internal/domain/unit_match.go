package domain

import (
	"fmt"
	"path"
	"strings"
)

// MatchMode selects how resource identifiers are reconciled with unit names.
type MatchMode string

const (
	// MatchSegment accepts a resource whose canonical path equals the unit
	// name or ends with "/" + unit name.
	MatchSegment MatchMode = "segment"
	// MatchExact accepts only canonical equality.
	MatchExact MatchMode = "exact"
)

// ParseMatchMode validates a configured match mode. Empty means segment.
func ParseMatchMode(value string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", MatchSegment:
		return MatchSegment, nil
	case MatchExact:
		return MatchExact, nil
	}

	return "", fmt.Errorf("unknown match mode %q (want %q or %q)", value, MatchSegment, MatchExact)
}

// CanonicalUnitName normalizes a unit name: backslashes become slashes and
// leading "./" and "/" are trimmed.
func CanonicalUnitName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")

	for {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
		if trimmed == name {
			return name
		}

		name = trimmed
	}
}

// CanonicalResource normalizes a resource identifier the way
// CanonicalUnitName does, after stripping a file: scheme. The second result
// additionally drops the extension of the last path element.
func CanonicalResource(resource string) (string, string) {
	switch {
	case strings.HasPrefix(resource, "file://"):
		resource = strings.TrimPrefix(resource, "file://")
	case strings.HasPrefix(resource, "file:"):
		resource = strings.TrimPrefix(resource, "file:")
	}

	full := CanonicalUnitName(resource)

	return full, strings.TrimSuffix(full, path.Ext(full))
}

// MatchUnit reports whether resource identifies the unit named unit.
func MatchUnit(resource, unit string, mode MatchMode) bool {
	unit = CanonicalUnitName(unit)
	if unit == "" {
		return false
	}

	full, stem := CanonicalResource(resource)

	return matchCanonical(full, unit, mode) || matchCanonical(stem, unit, mode)
}

func matchCanonical(resource, unit string, mode MatchMode) bool {
	if resource == unit {
		return true
	}

	if mode == MatchExact {
		return false
	}

	return strings.HasSuffix(resource, "/"+unit)
}

// UnitMatcher answers MatchUnit for a fixed set of resources in constant time
// per lookup.
type UnitMatcher struct {
	keys map[string]struct{}
}

// NewUnitMatcher indexes resources under every unit name they match.
func NewUnitMatcher(resources []string, mode MatchMode) *UnitMatcher {
	keys := make(map[string]struct{}, len(resources)*2)

	for _, resource := range resources {
		full, stem := CanonicalResource(resource)

		for _, canonical := range []string{full, stem} {
			if canonical == "" {
				continue
			}

			keys[canonical] = struct{}{}

			if mode == MatchExact {
				continue
			}

			for i := 0; i < len(canonical); i++ {
				if canonical[i] == '/' && i+1 < len(canonical) {
					keys[canonical[i+1:]] = struct{}{}
				}
			}
		}
	}

	return &UnitMatcher{keys: keys}
}

// Matches reports whether any indexed resource identifies unit.
func (u *UnitMatcher) Matches(unit string) bool {
	unit = CanonicalUnitName(unit)
	if unit == "" {
		return false
	}

	_, ok := u.keys[unit]

	return ok
}
