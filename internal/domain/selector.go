package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"regcov.dev/pkg/regcov/internal/adapter"
	m "regcov.dev/pkg/regcov/internal/model"
)

// Propagation controls how a self-modified owner widens the affected set.
type Propagation string

const (
	// PropagationWidened marks every owner sharing a resource with a
	// self-modified owner as affected.
	PropagationWidened Propagation = "widened"
	// PropagationStrict marks only owners whose own records changed.
	PropagationStrict Propagation = "strict"
)

// DefaultHashWorkers is the number of concurrent hash computations.
const DefaultHashWorkers = 4

// ParsePropagation validates a configured propagation mode. Empty means
// widened.
func ParsePropagation(value string) (Propagation, error) {
	switch Propagation(strings.ToLower(strings.TrimSpace(value))) {
	case "", PropagationWidened:
		return PropagationWidened, nil
	case PropagationStrict:
		return PropagationStrict, nil
	}

	return "", fmt.Errorf("unknown propagation %q (want %q or %q)", value, PropagationWidened, PropagationStrict)
}

// SelectorConfig configures one RegressionSelector.
type SelectorConfig struct {
	Propagation Propagation
	Match       MatchMode
	// HashWorkers bounds concurrent hashing; values below 1 use
	// DefaultHashWorkers.
	HashWorkers int
	// OwnerUnit maps an owner to the unit name of its own compiled form.
	// Nil means DottedOwnerUnit.
	OwnerUnit func(owner string) string
}

// OwnerPlaceholder and QualifiedOwnerPlaceholder are the substitutions an
// owner-unit template understands.
const (
	OwnerPlaceholder          = "{owner}"
	QualifiedOwnerPlaceholder = "{qualified}"
)

// DottedOwnerUnit maps a qualified owner such as "com.x.FooTest" to the unit
// path "com/x/FooTest". Names without dots are returned unchanged.
func DottedOwnerUnit(owner string) string {
	return strings.ReplaceAll(owner, ".", "/")
}

// ParseOwnerUnit builds an owner-unit mapping from a template. "{qualified}"
// expands to DottedOwnerUnit(owner) and "{owner}" to the owner verbatim, so
// "build/{qualified}" maps "com.x.FooTest" to "build/com/x/FooTest". An empty
// template selects DottedOwnerUnit.
func ParseOwnerUnit(template string) (func(owner string) string, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return DottedOwnerUnit, nil
	}

	if !strings.Contains(template, OwnerPlaceholder) && !strings.Contains(template, QualifiedOwnerPlaceholder) {
		return nil, fmt.Errorf("owner unit template %q has no %s or %s", template, OwnerPlaceholder, QualifiedOwnerPlaceholder)
	}

	return func(owner string) string {
		return strings.NewReplacer(
			OwnerPlaceholder, owner,
			QualifiedOwnerPlaceholder, DottedOwnerUnit(owner),
		).Replace(template)
	}, nil
}

func (c SelectorConfig) withDefaults() SelectorConfig {
	if c.Propagation == "" {
		c.Propagation = PropagationWidened
	}

	if c.Match == "" {
		c.Match = MatchSegment
	}

	if c.HashWorkers < 1 {
		c.HashWorkers = DefaultHashWorkers
	}

	if c.OwnerUnit == nil {
		c.OwnerUnit = DottedOwnerUnit
	}

	return c
}

// Selection is the outcome of SelectAffected.
type Selection struct {
	Result   m.AffectedResult
	Warnings []m.Warning
}

// RegressionSelector decides which owners must re-run and which resources
// lose their carried-over coverage.
type RegressionSelector struct {
	records   adapter.DependencyRecordStore
	hasher    adapter.ContentHasher
	manifests adapter.ManifestStore
	cfg       SelectorConfig
}

// NewRegressionSelector wires a selector. Configuration is call-scoped: two
// selectors never share state.
func NewRegressionSelector(
	records adapter.DependencyRecordStore,
	hasher adapter.ContentHasher,
	manifests adapter.ManifestStore,
	cfg SelectorConfig,
) *RegressionSelector {
	return &RegressionSelector{
		records:   records,
		hasher:    hasher,
		manifests: manifests,
		cfg:       cfg.withDefaults(),
	}
}

type ownerRecords struct {
	owner string
	set   m.DependencySet
}

type hashOutcome struct {
	result adapter.HashResult
	err    error
}

// pass holds the mutable state of one selection.
type pass struct {
	graph        *DependencyGraph
	affected     map[string]struct{}
	direct       map[string]struct{}
	selfModified map[string]struct{}
	changed      map[string]struct{}
	invalidated  map[string]struct{}
	warnings     []m.Warning
}

func newPass() *pass {
	return &pass{
		graph:        NewDependencyGraph(),
		affected:     map[string]struct{}{},
		direct:       map[string]struct{}{},
		selfModified: map[string]struct{}{},
		changed:      map[string]struct{}{},
		invalidated:  map[string]struct{}{},
	}
}

func (p *pass) markDirect(owner string) {
	p.direct[owner] = struct{}{}
	p.affected[owner] = struct{}{}
}

// SelectAffected classifies owners and persists the invalidation manifest.
// Per-owner read failures only make that owner affected; a manifest write
// failure fails the pass.
func (s *RegressionSelector) SelectAffected(ctx context.Context, owners []string) (Selection, error) {
	all := sortedUnique(owners)
	p := newPass()

	loaded := s.loadRecords(all, p)

	hashes, err := s.hashResources(ctx, loaded)
	if err != nil {
		return Selection{}, err
	}

	for _, entry := range loaded {
		s.classify(entry, hashes, p)
	}

	s.propagate(p)

	result := m.AffectedResult{
		All:              all,
		Affected:         m.SortedKeys(p.affected),
		DirectlyAffected: m.SortedKeys(p.direct),
		SelfModified:     m.SortedKeys(p.selfModified),
		Changed:          m.SortedKeys(p.changed),
		Invalidated:      m.SortedKeys(p.invalidated),
	}

	result.NonAffected = make([]string, 0, len(all))

	for _, owner := range all {
		if _, ok := p.affected[owner]; !ok {
			result.NonAffected = append(result.NonAffected, owner)
		}
	}

	if err := s.manifests.SaveManifest(m.NewManifest(result.Invalidated)); err != nil {
		return Selection{}, fmt.Errorf("persist invalidation manifest: %w", err)
	}

	slog.Info("Selection complete",
		"owners", len(all),
		"affected", len(result.Affected),
		"nonAffected", len(result.NonAffected),
		"invalidated", len(result.Invalidated),
		"warnings", len(p.warnings))

	return Selection{Result: result, Warnings: p.warnings}, nil
}

// loadRecords returns the non-empty dependency sets in owner order. Owners
// with unknown or unreadable records are marked affected.
func (s *RegressionSelector) loadRecords(owners []string, p *pass) []ownerRecords {
	loaded := make([]ownerRecords, 0, len(owners))

	for _, owner := range owners {
		set, err := s.records.Load(owner)
		if err != nil {
			slog.Warn("Dependency records unreadable, owner marked affected", "owner", owner, "error", err)
			p.warnings = append(p.warnings, m.Warning{Owner: owner, Message: err.Error()})
			p.markDirect(owner)

			continue
		}

		if set.IsEmpty() {
			slog.Debug("No recorded dependencies, owner marked affected", "owner", owner)
			p.markDirect(owner)

			continue
		}

		loaded = append(loaded, ownerRecords{owner: owner, set: set})
	}

	return loaded
}

// hashResources hashes every distinct resource once, in parallel. Results
// land in a map keyed by resource and are consumed in owner order, so worker
// scheduling never affects the outcome.
func (s *RegressionSelector) hashResources(ctx context.Context, loaded []ownerRecords) (map[string]hashOutcome, error) {
	unique := map[string]struct{}{}

	for _, entry := range loaded {
		for _, record := range entry.set.Records() {
			unique[record.Resource] = struct{}{}
		}
	}

	resources := m.SortedKeys(unique)
	outcomes := make([]hashOutcome, len(resources))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.HashWorkers)

	for i, resource := range resources {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			result, err := s.hasher.Hash(resource)
			outcomes[i] = hashOutcome{result: result, err: err}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("hash resources: %w", err)
	}

	hashes := make(map[string]hashOutcome, len(resources))
	for i, resource := range resources {
		hashes[resource] = outcomes[i]
	}

	return hashes, nil
}

func (s *RegressionSelector) classify(entry ownerRecords, hashes map[string]hashOutcome, p *pass) {
	ownerUnit := s.cfg.OwnerUnit(entry.owner)
	changed := false

	for _, record := range entry.set.Records() {
		p.graph.Add(entry.owner, record.Resource)

		outcome := hashes[record.Resource]

		switch {
		case outcome.err != nil:
			if !errors.Is(outcome.err, m.ErrResourceUnavailable) {
				outcome.err = fmt.Errorf("%w: %w", m.ErrResourceUnavailable, outcome.err)
			}

			slog.Warn("Dependency unreadable, owner marked affected",
				"owner", entry.owner, "resource", record.Resource, "error", outcome.err)
			p.warnings = append(p.warnings, m.Warning{
				Owner:    entry.owner,
				Resource: record.Resource,
				Message:  outcome.err.Error(),
			})
		case outcome.result.Hash != record.Hash:
			slog.Debug("Dependency changed", "owner", entry.owner, "resource", record.Resource)
		default:
			if outcome.result.Degraded != nil {
				p.warnings = append(p.warnings, m.Warning{
					Owner:    entry.owner,
					Resource: record.Resource,
					Message:  "hashed raw bytes: " + outcome.result.Degraded.Error(),
				})
			}

			continue
		}

		changed = true
		p.changed[record.Resource] = struct{}{}
		p.invalidated[record.Resource] = struct{}{}

		if MatchUnit(record.Resource, ownerUnit, s.cfg.Match) {
			p.selfModified[entry.owner] = struct{}{}
		}
	}

	if changed {
		p.markDirect(entry.owner)
	}
}

// propagate invalidates every resource of a self-modified owner and, when
// widened, marks every owner sharing one of those resources as affected.
func (s *RegressionSelector) propagate(p *pass) {
	for _, owner := range m.SortedKeys(p.selfModified) {
		for _, resource := range p.graph.ResourcesOf(owner) {
			p.invalidated[resource] = struct{}{}

			if s.cfg.Propagation != PropagationWidened {
				continue
			}

			for _, dependent := range p.graph.DependentsOf(resource) {
				p.affected[dependent] = struct{}{}
			}
		}
	}
}

func sortedUnique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))

	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}

		seen[value] = struct{}{}
		out = append(out, value)
	}

	sort.Strings(out)

	return out
}
