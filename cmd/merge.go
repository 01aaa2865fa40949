package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"regcov.dev/pkg/regcov/internal/domain"
	m "regcov.dev/pkg/regcov/internal/model"
)

var mergePreviousFlag string
var mergeOutputFlag string

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [sessions...]",
		Short: "Fold this run's coverage into the previous snapshot",
		Long: `Read execution record streams written during the current run, merge the
previous snapshot into them and write the result.

Units named in the invalidation manifest lose their previous coverage. Without
a manifest only units the current run did not observe are carried over.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			match, err := domain.ParseMatchMode(viper.GetString(matchKey))
			if err != nil {
				return err
			}

			previous := m.Path(mergePreviousFlag)
			if previous == "" {
				previous = snapshotPath()
			}

			wf, release, err := openWorkflow(cmd)
			if err != nil {
				return err
			}
			defer release()

			_, err = wf.Merge(cmd.Context(), domain.MergeArgs{
				Sessions: parsePaths(args),
				Previous: previous,
				Output:   m.Path(mergeOutputFlag),
				Match:    match,
			})

			return err
		},
	}

	cmd.Flags().StringVar(&mergePreviousFlag, "previous", "", "previous snapshot (default: coverage.snapshot)")
	cmd.Flags().StringVarP(&mergeOutputFlag, "output", "o", "", "merged snapshot destination (default: the previous snapshot)")

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
