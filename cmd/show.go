package cmd

import (
	"github.com/spf13/cobra"

	"regcov.dev/pkg/regcov/internal/domain"
	m "regcov.dev/pkg/regcov/internal/model"
)

var showSnapshotFlag string

// showCmd represents the show command.
var showCmd = newShowCmd()

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the units of a coverage snapshot",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot := m.Path(showSnapshotFlag)
			if snapshot == "" {
				snapshot = snapshotPath()
			}

			wf, release, err := openWorkflow(cmd)
			if err != nil {
				return err
			}
			defer release()

			return wf.Show(cmd.Context(), domain.ShowArgs{Snapshot: snapshot})
		},
	}

	cmd.Flags().StringVarP(&showSnapshotFlag, "snapshot", "s", "", "snapshot to print (default: coverage.snapshot)")

	return cmd
}

func init() {
	rootCmd.AddCommand(showCmd)
}
