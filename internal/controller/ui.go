// Package controller provides output adapters for selection and coverage results.
package controller

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "regcov.dev/pkg/regcov/internal/model"
)

// OutputFormat selects how the non-affected owner list is printed.
type OutputFormat string

// Available OutputFormat values.
const (
	// FormatPlain prints one non-affected owner per line.
	FormatPlain OutputFormat = "plain"
	// FormatDebug prints every owner prefixed with AFFECTED or NONAFFECTED.
	FormatDebug OutputFormat = "debug"
	// FormatSkip prints a regular expression for go test -skip.
	FormatSkip OutputFormat = "skip"
)

// ParseOutputFormat validates a configured output format. Empty means plain.
func ParseOutputFormat(value string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatPlain:
		return FormatPlain, nil
	case FormatDebug:
		return FormatDebug, nil
	case FormatSkip:
		return FormatSkip, nil
	}

	return "", fmt.Errorf("unknown output format %q (want plain, debug or skip)", value)
}

// UI defines how workflow results reach the user.
// Machine-readable output goes to stdout, everything else to stderr.
type UI interface {
	DisplaySelection(ctx context.Context, result m.AffectedResult, warnings []m.Warning, format OutputFormat) error
	DisplayRecorded(ctx context.Context, owner string, set m.DependencySet, failed bool) error
	DisplayMergeSummary(ctx context.Context, summary m.MergeSummary) error
	DisplayCoverage(ctx context.Context, records []m.ExecutionRecord) error
}

// NewUI returns the UI for cmd. A terminal gets the styled TUI, anything
// else plain SimpleUI output.
func NewUI(cmd *cobra.Command, isTTY bool) UI {
	if isTTY {
		return NewTUI(cmd, WithStyle(true))
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	fd := f.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
