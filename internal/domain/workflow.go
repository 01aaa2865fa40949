// Package domain holds regression test selection and coverage reconciliation.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"regcov.dev/pkg/regcov/internal/adapter"
	"regcov.dev/pkg/regcov/internal/controller"
	m "regcov.dev/pkg/regcov/internal/model"
	"regcov.dev/pkg/regcov/pkg"
)

// Debug dump file names written under the cache root.
const (
	DebugAllOwners      = "debug_T_all.txt"
	DebugDirectOwners   = "debug_T_rts.txt"
	DebugSelfModified   = "debug_C_delta_test.txt"
	DebugChanged        = "debug_C_delta_src.txt"
	DebugSelectedOwners = "debug_T_sel.txt"
	DebugInvalidated    = "debug_C_upd.txt"
)

// SelectArgs contains the arguments for a selection pass.
type SelectArgs struct {
	// Owners to classify. Empty means every owner with stored records.
	Owners       []string
	Include      []string
	Exclude      []string
	Selector     SelectorConfig
	RerunFailing bool
	Debug        bool
	Format       controller.OutputFormat
}

// SelectResult is the outcome of Workflow.Select.
type SelectResult struct {
	RunID    string
	Result   m.AffectedResult
	Warnings []m.Warning
	// Forced holds recently failing owners that only the failure marker made
	// affected.
	Forced []string
}

// RecordArgs contains the arguments for recording one owner's dependencies.
type RecordArgs struct {
	Owner     string
	Resources []string
	Failed    bool
}

// MergeArgs contains the arguments for a coverage merge.
type MergeArgs struct {
	// Sessions are execution record streams written by the current run.
	Sessions []m.Path
	// Previous is the snapshot of earlier runs; a missing file is empty.
	Previous m.Path
	// Output receives the merged snapshot. Empty means Previous.
	Output m.Path
	Match  MatchMode
}

// ShowArgs contains the arguments for printing a snapshot.
type ShowArgs struct {
	Snapshot m.Path
}

// Workflow defines the user-facing operations.
type Workflow interface {
	Select(ctx context.Context, args SelectArgs) (SelectResult, error)
	Record(ctx context.Context, args RecordArgs) error
	Merge(ctx context.Context, args MergeArgs) (m.MergeSummary, error)
	Show(ctx context.Context, args ShowArgs) error
}

type workflow struct {
	records   adapter.DependencyRecordStore
	hasher    adapter.ContentHasher
	cache     adapter.CacheStore
	snapshots adapter.SnapshotStore
	controller.UI

	now func() time.Time
}

// NewWorkflow creates a Workflow over the given stores.
func NewWorkflow(
	records adapter.DependencyRecordStore,
	hasher adapter.ContentHasher,
	cache adapter.CacheStore,
	snapshots adapter.SnapshotStore,
	ui controller.UI,
) Workflow {
	return &workflow{
		records:   records,
		hasher:    hasher,
		cache:     cache,
		snapshots: snapshots,
		UI:        ui,
		now:       time.Now,
	}
}

func (w *workflow) Select(ctx context.Context, args SelectArgs) (SelectResult, error) {
	startedAt := w.now()

	owners, err := w.discoverOwners(args)
	if err != nil {
		return SelectResult{}, err
	}

	selector := NewRegressionSelector(w.records, w.hasher, w.cache, args.Selector)

	selection, err := selector.SelectAffected(ctx, owners)
	if err != nil {
		return SelectResult{}, fmt.Errorf("select affected: %w", err)
	}

	out := SelectResult{
		RunID:    uuid.NewString(),
		Result:   selection.Result,
		Warnings: selection.Warnings,
	}

	if args.RerunFailing {
		out.Forced, out.Warnings = w.forceFailing(&out.Result, out.Warnings)
	}

	info := m.RunInfo{
		RunID:       out.RunID,
		StartedAt:   startedAt.UTC(),
		Owners:      len(out.Result.All),
		Affected:    len(out.Result.Affected),
		NonAffected: len(out.Result.NonAffected),
		Invalidated: len(out.Result.Invalidated),
		Warnings:    len(out.Warnings),
	}

	if err := w.cache.SaveRunInfo(info); err != nil {
		return SelectResult{}, fmt.Errorf("save run info: %w", err)
	}

	if args.Debug {
		if err := w.dumpSelection(out.Result); err != nil {
			return SelectResult{}, fmt.Errorf("write debug dumps: %w", err)
		}
	}

	if err := w.DisplaySelection(ctx, out.Result, out.Warnings, args.Format); err != nil {
		return SelectResult{}, fmt.Errorf("display: %w", err)
	}

	return out, nil
}

func (w *workflow) discoverOwners(args SelectArgs) ([]string, error) {
	owners := args.Owners
	if len(owners) == 0 {
		listed, err := w.records.ListOwners()
		if err != nil {
			return nil, fmt.Errorf("list owners: %w", err)
		}

		owners = listed
	}

	return FilterOwners(owners, args.Include, args.Exclude)
}

// FilterOwners keeps owners matching at least one include pattern (all when
// include is empty) and none of the exclude patterns. Patterns use doublestar
// syntax.
func FilterOwners(owners, include, exclude []string) ([]string, error) {
	filtered := make([]string, 0, len(owners))

	for _, owner := range owners {
		if len(include) > 0 {
			ok, err := matchAny(include, owner)
			if err != nil {
				return nil, err
			}

			if !ok {
				continue
			}
		}

		excluded, err := matchAny(exclude, owner)
		if err != nil {
			return nil, err
		}

		if !excluded {
			filtered = append(filtered, owner)
		}
	}

	return filtered, nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("invalid owner pattern %q: %w", pattern, err)
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}

// forceFailing adds recently failing owners to the affected set. An
// unreadable failure directory becomes a warning.
func (w *workflow) forceFailing(result *m.AffectedResult, warnings []m.Warning) ([]string, []m.Warning) {
	failing, err := w.cache.ListFailing()
	if err != nil {
		slog.Warn("Failure markers unreadable", "error", err)
		return nil, append(warnings, m.Warning{Message: "failure markers unreadable: " + err.Error()})
	}

	before := *result
	*result = result.Force(failing)

	forced := make([]string, 0, len(failing))

	for _, owner := range failing {
		if result.IsAffected(owner) && !before.IsAffected(owner) {
			forced = append(forced, owner)
		}
	}

	slog.Debug("Recently failing owners forced", "failing", len(failing), "added", len(forced))

	return forced, warnings
}

func (w *workflow) dumpSelection(result m.AffectedResult) error {
	dumps := []struct {
		name  string
		lines []string
	}{
		{DebugAllOwners, result.All},
		{DebugDirectOwners, result.DirectlyAffected},
		{DebugSelfModified, result.SelfModified},
		{DebugChanged, result.Changed},
		{DebugSelectedOwners, result.Affected},
		{DebugInvalidated, result.Invalidated},
	}

	for _, dump := range dumps {
		if err := w.cache.DumpLines(dump.name, dump.lines); err != nil {
			return err
		}
	}

	return nil
}

func (w *workflow) Record(ctx context.Context, args RecordArgs) error {
	if args.Owner == "" {
		return errors.New("record: owner name is required")
	}

	records := make([]m.FingerprintRecord, 0, len(args.Resources))

	for _, resource := range args.Resources {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := w.hasher.Hash(resource)
		if err != nil {
			return fmt.Errorf("record %s: %w", args.Owner, err)
		}

		records = append(records, m.FingerprintRecord{Resource: resource, Hash: result.Hash})
	}

	set := m.NewDependencySet(records...)

	if err := w.records.Save(args.Owner, set); err != nil {
		return fmt.Errorf("record %s: %w", args.Owner, err)
	}

	var err error
	if args.Failed {
		err = w.cache.MarkFailed(args.Owner)
	} else {
		err = w.cache.ClearFailed(args.Owner)
	}

	if err != nil {
		return fmt.Errorf("record %s: update failure marker: %w", args.Owner, err)
	}

	slog.Info("Dependencies recorded", "owner", args.Owner, "resources", set.Len(), "failed", args.Failed)

	return w.DisplayRecorded(ctx, args.Owner, set, args.Failed)
}

func (w *workflow) Merge(ctx context.Context, args MergeArgs) (m.MergeSummary, error) {
	output := args.Output
	if output == "" {
		output = args.Previous
	}

	current := NewCoverageStore(WithMatchMode(args.Match))

	sessionRecords, err := loadSessions(ctx, current, args.Sessions)
	if err != nil {
		return m.MergeSummary{}, err
	}

	previousRecords, _, err := w.snapshots.LoadSnapshot(args.Previous)
	if err != nil {
		return m.MergeSummary{}, fmt.Errorf("load previous snapshot: %w", err)
	}

	previous, err := NewCoverageStoreFrom(previousRecords)
	if err != nil {
		return m.MergeSummary{}, fmt.Errorf("load previous snapshot: %w", err)
	}

	manifest, found, err := w.cache.LoadManifest()
	if err != nil {
		return m.MergeSummary{}, fmt.Errorf("load manifest: %w", err)
	}

	var applied *m.Manifest
	if found {
		applied = &manifest
	}

	summary, err := current.Merge(previous, applied)
	if err != nil {
		return m.MergeSummary{}, fmt.Errorf("merge coverage: %w", err)
	}

	summary.SessionRecords = sessionRecords
	summary.PreviousRecords = len(previousRecords)
	summary.Output = output

	if err := w.snapshots.SaveSnapshot(output, current.Contents()); err != nil {
		return m.MergeSummary{}, fmt.Errorf("save snapshot: %w", err)
	}

	slog.Info("Coverage merged",
		"session", summary.SessionRecords,
		"previous", summary.PreviousRecords,
		"carried", summary.Carried,
		"dropped", summary.Dropped,
		"manifest", summary.ManifestUsed)

	if err := w.DisplayMergeSummary(ctx, summary); err != nil {
		return m.MergeSummary{}, fmt.Errorf("display: %w", err)
	}

	return summary, nil
}

// loadSessions puts every record of every session stream into store and
// returns the number of records read.
func loadSessions(ctx context.Context, store *CoverageStore, sessions []m.Path) (int, error) {
	total := 0

	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		spill, err := pkg.OpenFileSpill[m.ExecutionRecord](string(session))
		if err != nil {
			return 0, fmt.Errorf("open session %s: %w", session, err)
		}

		err = spill.Range(func(_ uint64, record m.ExecutionRecord) error {
			total++
			return store.Put(record)
		})

		closeErr := spill.Close()

		if err != nil {
			return 0, fmt.Errorf("read session %s: %w", session, err)
		}

		if closeErr != nil {
			return 0, fmt.Errorf("close session %s: %w", session, closeErr)
		}
	}

	return total, nil
}

func (w *workflow) Show(ctx context.Context, args ShowArgs) error {
	records, found, err := w.snapshots.LoadSnapshot(args.Snapshot)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if !found {
		slog.Info("No coverage snapshot", "path", args.Snapshot)
	}

	return w.DisplayCoverage(ctx, records)
}
