package model

import "sort"

// AffectedResult is the outcome of one selection pass.
type AffectedResult struct {
	// Affected holds owners that must re-run, sorted.
	Affected []string
	// NonAffected holds owners that are safe to skip, sorted.
	NonAffected []string
	// Invalidated holds resources whose coverage must not be carried
	// forward, sorted.
	Invalidated []string
	// DirectlyAffected holds owners affected by their own records (unknown
	// dependencies, changed or unreadable resources), sorted.
	DirectlyAffected []string
	// SelfModified holds owners whose own compiled form changed, sorted.
	SelfModified []string
	// Changed holds resources whose recorded hash no longer matches, sorted.
	Changed []string
	// All holds every owner considered, sorted.
	All []string
}

// IsAffected reports whether owner must re-run.
func (r AffectedResult) IsAffected(owner string) bool {
	i := sort.SearchStrings(r.Affected, owner)
	return i < len(r.Affected) && r.Affected[i] == owner
}

// SortedKeys returns the keys of a string set in ascending order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Force marks owners as affected regardless of their dependencies. Owners not
// in r.All are ignored.
func (r AffectedResult) Force(owners []string) AffectedResult {
	all := make(map[string]struct{}, len(r.All))
	for _, owner := range r.All {
		all[owner] = struct{}{}
	}

	affected := make(map[string]struct{}, len(r.Affected)+len(owners))
	for _, owner := range r.Affected {
		affected[owner] = struct{}{}
	}

	for _, owner := range owners {
		if _, ok := all[owner]; ok {
			affected[owner] = struct{}{}
		}
	}

	nonAffected := make([]string, 0, len(r.All))

	for _, owner := range r.All {
		if _, ok := affected[owner]; !ok {
			nonAffected = append(nonAffected, owner)
		}
	}

	out := r
	out.Affected = SortedKeys(affected)
	out.NonAffected = nonAffected

	return out
}

// Warning reports a conservative classification or a degraded hash.
type Warning struct {
	Owner    string
	Resource string
	Message  string
}

func (w Warning) String() string {
	switch {
	case w.Owner != "" && w.Resource != "":
		return w.Owner + ": " + w.Resource + ": " + w.Message
	case w.Owner != "":
		return w.Owner + ": " + w.Message
	case w.Resource != "":
		return w.Resource + ": " + w.Message
	}

	return w.Message
}
