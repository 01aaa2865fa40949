package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	m "regcov.dev/pkg/regcov/internal/model"
)

// coverageChromeLines is the number of lines the coverage view uses
// besides the table body: header, header border, footer and help.
const coverageChromeLines = 5

// TUI implements UI for a terminal. Coverage listings that do not fit on
// screen are shown in a scrollable Bubble Tea table; everything else is
// printed like SimpleUI does.
type TUI struct {
	*SimpleUI

	input  io.Reader
	output io.Writer
}

// NewTUI creates a new TUI printing through cmd.
func NewTUI(cmd *cobra.Command, opts ...SimpleUIOption) *TUI {
	return &TUI{
		SimpleUI: NewSimpleUI(cmd, opts...),
		input:    cmd.InOrStdin(),
		output:   cmd.OutOrStdout(),
	}
}

// DisplayCoverage shows one row per unit with its probe hit ratio.
func (t *TUI) DisplayCoverage(ctx context.Context, records []m.ExecutionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newCoverageModel(records)

	if f, ok := t.output.(*os.File); ok {
		if width, height, err := term.GetSize(f.Fd()); err == nil {
			model = model.resize(width, height)
		}
	}

	if !model.needsPagination() {
		return t.SimpleUI.DisplayCoverage(ctx, records)
	}

	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(t.input),
		tea.WithOutput(t.output),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("coverage view: %w", err)
	}

	return nil
}

// coverageModel is the Bubble Tea model for the coverage listing.
type coverageModel struct {
	table  table.Model
	rows   int
	footer string
	height int
}

func newCoverageModel(records []m.ExecutionRecord) coverageModel {
	rows := make([]table.Row, 0, len(records))
	nameWidth := len("Unit")
	totalHits, totalProbes := 0, 0

	for _, record := range records {
		hits := record.HitCount()
		totalHits += hits
		totalProbes += len(record.Probes)

		nameWidth = max(nameWidth, len(record.Name))
		rows = append(rows, table.Row{
			record.Name,
			fmt.Sprintf("%016x", record.ID),
			fmt.Sprintf("%d", hits),
			fmt.Sprintf("%d", len(record.Probes)),
			formatRatio(hits, len(record.Probes)),
		})
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)

	return coverageModel{
		table: table.New(
			table.WithColumns([]table.Column{
				{Title: "Unit", Width: min(nameWidth, 60)},
				{Title: "ID", Width: 16},
				{Title: "Hit", Width: 8},
				{Title: "Probes", Width: 8},
				{Title: "Coverage", Width: 8},
			}),
			table.WithRows(rows),
			table.WithFocused(true),
			table.WithStyles(styles),
		),
		rows: len(rows),
		footer: fmt.Sprintf("%d units, %d of %d probes hit (%s)",
			len(records), totalHits, totalProbes, formatRatio(totalHits, totalProbes)),
	}
}

func (cm coverageModel) resize(width, height int) coverageModel {
	cm.height = height
	cm.table.SetWidth(width)
	cm.table.SetHeight(max(height-coverageChromeLines, 1))

	return cm
}

// needsPagination reports whether the rows overflow a known terminal height.
func (cm coverageModel) needsPagination() bool {
	if cm.height == 0 {
		return false
	}

	return cm.rows > cm.height-coverageChromeLines
}

func (cm coverageModel) Init() tea.Cmd {
	return nil
}

func (cm coverageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return cm.resize(msg.Width, msg.Height), nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return cm, tea.Quit
		}
	}

	var cmd tea.Cmd
	cm.table, cmd = cm.table.Update(msg)

	return cm, cmd
}

func (cm coverageModel) View() string {
	var b strings.Builder

	b.WriteString(cm.table.View())
	b.WriteString("\n")
	b.WriteString(cm.footer)
	b.WriteString("\n  ↑/↓ scroll • q quit\n")

	return b.String()
}
