package cmd

import (
	"github.com/spf13/cobra"

	"regcov.dev/pkg/regcov/internal/domain"
)

// recordCmd represents the record command.
var recordCmd = newRecordCmd()

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record owner [resources...]",
		Short: "Store the dependency fingerprints of one owner",
		Long: `Hash each resource and save the set as the owner's dependencies for the
next selection. An owner recorded without resources is always affected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed, err := cmd.Flags().GetBool("failed")
			if err != nil {
				return err
			}

			wf, release, err := openWorkflow(cmd)
			if err != nil {
				return err
			}
			defer release()

			return wf.Record(cmd.Context(), domain.RecordArgs{
				Owner:     args[0],
				Resources: args[1:],
				Failed:    failed,
			})
		},
	}

	cmd.Flags().Bool("failed", false, "mark the owner as failing so the next selection re-runs it")

	return cmd
}

func init() {
	rootCmd.AddCommand(recordCmd)
}
