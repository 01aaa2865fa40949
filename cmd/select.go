package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"regcov.dev/pkg/regcov/internal/controller"
	"regcov.dev/pkg/regcov/internal/domain"
)

const selectLongDescription = `Re-hash every recorded dependency and print the owners that are safe to
skip. Without arguments all owners with stored records are considered.

The invalidation manifest for "regcov merge" is rewritten on every run.
Output formats:
  plain   one non-affected owner per line
  debug   AFFECTED/NONAFFECTED prefix for every owner
  skip    a regular expression for go test -skip`

var selectParallelFlag int
var selectPropagationFlag string
var selectMatchFlag string
var selectFormatFlag string
var selectIncludeFlag []string
var selectExcludeFlag []string
var selectDebugFlag bool
var selectRerunFailingFlag bool
var selectOwnerUnitFlag string

// selectCmd represents the select command.
var selectCmd = newSelectCmd()

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select [owners...]",
		Short: "List owners unaffected by changes since their last run",
		Long:  selectLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := selectorConfig()
			if err != nil {
				return err
			}

			format, err := controller.ParseOutputFormat(viper.GetString(formatKey))
			if err != nil {
				return err
			}

			wf, release, err := openWorkflow(cmd)
			if err != nil {
				return err
			}
			defer release()

			_, err = wf.Select(cmd.Context(), domain.SelectArgs{
				Owners:       args,
				Include:      viper.GetStringSlice(includeKey),
				Exclude:      viper.GetStringSlice(excludeKey),
				Selector:     selector,
				RerunFailing: viper.GetBool(rerunFailingKey),
				Debug:        viper.GetBool(debugKey),
				Format:       format,
			})

			return err
		},
	}

	configureSelectFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(selectCmd)
}

func configureSelectFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&selectParallelFlag, parallelFlagName, "p", viper.GetInt(parallelKey), "number of concurrent hash workers")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelKey)

	cmd.Flags().StringVar(&selectPropagationFlag, propagationFlagName, viper.GetString(propagationKey), "propagation of self-modified owners: widened or strict")
	bindFlagToConfig(cmd.Flags().Lookup(propagationFlagName), propagationKey)

	cmd.Flags().StringVar(&selectMatchFlag, matchFlagName, viper.GetString(matchKey), "unit name matching: segment or exact")
	bindFlagToConfig(cmd.Flags().Lookup(matchFlagName), matchKey)

	cmd.Flags().StringVarP(&selectFormatFlag, formatFlagName, "f", viper.GetString(formatKey), "output format: plain, debug or skip")
	bindFlagToConfig(cmd.Flags().Lookup(formatFlagName), formatKey)

	cmd.Flags().StringArrayVarP(&selectIncludeFlag, includeFlagName, "i", viper.GetStringSlice(includeKey), "only consider owners matching a glob (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(includeFlagName), includeKey)

	cmd.Flags().StringArrayVarP(&selectExcludeFlag, excludeFlagName, "x", viper.GetStringSlice(excludeKey), "skip owners matching a glob (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(excludeFlagName), excludeKey)

	cmd.Flags().BoolVar(&selectDebugFlag, debugFlagName, viper.GetBool(debugKey), "write debug dumps into the cache root")
	bindFlagToConfig(cmd.Flags().Lookup(debugFlagName), debugKey)

	cmd.Flags().BoolVar(&selectRerunFailingFlag, "rerun-failing", viper.GetBool(rerunFailingKey), "treat owners that failed last time as affected")
	bindFlagToConfig(cmd.Flags().Lookup("rerun-failing"), rerunFailingKey)

	cmd.Flags().StringVar(&selectOwnerUnitFlag, ownerUnitFlagName, viper.GetString(ownerUnitKey), "template mapping an owner to its own unit, e.g. build/{qualified} (default: dots become slashes)")
	bindFlagToConfig(cmd.Flags().Lookup(ownerUnitFlagName), ownerUnitKey)
}
