package controller

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "regcov.dev/pkg/regcov/internal/model"
)

// SimpleUI implements UI by printing through a cobra Command.
type SimpleUI struct {
	cmd    *cobra.Command
	styled bool

	warnStyle    lipgloss.Style
	summaryStyle lipgloss.Style
}

// SimpleUIOption configures a SimpleUI.
type SimpleUIOption func(*SimpleUI)

// WithStyle enables lipgloss styling of stderr messages.
func WithStyle(enabled bool) SimpleUIOption {
	return func(s *SimpleUI) {
		s.styled = enabled
	}
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, opts ...SimpleUIOption) *SimpleUI {
	s := &SimpleUI{
		cmd:          cmd,
		warnStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		summaryStyle: lipgloss.NewStyle().Bold(true),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// DisplaySelection prints the non-affected owners in the requested format,
// followed by warnings and a summary on stderr.
func (s *SimpleUI) DisplaySelection(ctx context.Context, result m.AffectedResult, warnings []m.Warning, format OutputFormat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch format {
	case FormatDebug:
		for _, owner := range result.All {
			label := "NONAFFECTED"
			if result.IsAffected(owner) {
				label = "AFFECTED"
			}

			s.printf("%s %s\n", label, owner)
		}
	case FormatSkip:
		if expr := SkipPattern(result.NonAffected); expr != "" {
			s.printf("%s\n", expr)
		}
	case FormatPlain, "":
		for _, owner := range result.NonAffected {
			s.printf("%s\n", owner)
		}
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	for _, warning := range warnings {
		s.errorf("%s\n", s.style(s.warnStyle, "warning: "+warning.String()))
	}

	s.errorf("%s\n", s.style(s.summaryStyle, fmt.Sprintf(
		"%d of %d owners affected, %d skippable, %d resources invalidated",
		len(result.Affected), len(result.All), len(result.NonAffected), len(result.Invalidated))))

	return nil
}

// SkipPattern returns a go test -skip expression matching exactly the given
// names, or "" when there are none.
func SkipPattern(names []string) string {
	if len(names) == 0 {
		return ""
	}

	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = regexp.QuoteMeta(name)
	}

	return "^(" + strings.Join(quoted, "|") + ")$"
}

// DisplayRecorded confirms a saved dependency set.
func (s *SimpleUI) DisplayRecorded(ctx context.Context, owner string, set m.DependencySet, failed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	status := "passed"
	if failed {
		status = "failed"
	}

	s.printf("Recorded %d dependencies for %s (%s)\n", set.Len(), owner, status)

	return nil
}

// DisplayMergeSummary prints the merge counters as a table.
func (s *SimpleUI) DisplayMergeSummary(ctx context.Context, summary m.MergeSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	manifest := "absent"
	if summary.ManifestUsed {
		manifest = "applied"
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Merge", "Units"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Append([]string{"Session", fmt.Sprintf("%d", summary.SessionRecords)})
	table.Append([]string{"Previous", fmt.Sprintf("%d", summary.PreviousRecords)})
	table.Append([]string{"Carried", fmt.Sprintf("%d", summary.Carried)})
	table.Append([]string{"Dropped", fmt.Sprintf("%d", summary.Dropped)})
	table.SetFooter([]string{"Total", fmt.Sprintf("%d", summary.Total)})
	table.Render()

	s.printf("\n%s", tableBuffer.String())
	s.printf("Manifest %s, snapshot written to %s\n", manifest, summary.Output)

	return nil
}

// DisplayCoverage prints one row per unit with its probe hit ratio.
func (s *SimpleUI) DisplayCoverage(ctx context.Context, records []m.ExecutionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderCoverageTable(records))

	return nil
}

func renderCoverageTable(records []m.ExecutionRecord) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Unit", "ID", "Hit", "Probes", "Coverage"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	totalHits, totalProbes := 0, 0

	for _, record := range records {
		hits := record.HitCount()
		totalHits += hits
		totalProbes += len(record.Probes)

		table.Append([]string{
			record.Name,
			fmt.Sprintf("%016x", record.ID),
			fmt.Sprintf("%d", hits),
			fmt.Sprintf("%d", len(record.Probes)),
			formatRatio(hits, len(record.Probes)),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Units %d", len(records)),
		"",
		fmt.Sprintf("%d", totalHits),
		fmt.Sprintf("%d", totalProbes),
		formatRatio(totalHits, totalProbes),
	})

	table.Render()

	return tableBuffer.String()
}

func formatRatio(hits, total int) string {
	if total == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f%%", float64(hits)*100/float64(total))
}

func (s *SimpleUI) style(style lipgloss.Style, text string) string {
	if !s.styled {
		return text
	}

	return style.Render(text)
}

func (s *SimpleUI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func (s *SimpleUI) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cmd.ErrOrStderr(), format, args...)
}
