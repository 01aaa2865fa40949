// Package cmd provides the root command and CLI setup for regcov.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"regcov.dev/pkg/regcov/internal/adapter"
	"regcov.dev/pkg/regcov/internal/controller"
	"regcov.dev/pkg/regcov/internal/domain"
	m "regcov.dev/pkg/regcov/internal/model"
)

// workflow overrides the configured workflow when set (tests install mocks).
var workflow domain.Workflow

var cacheRootFlag string
var verboseFlag bool

const rootLongDescription = `Regcov selects the tests that must re-run after a change and keeps merged
coverage free of data recorded against code that no longer exists.

Each test (owner) records content hashes of the resources it depended on.
"regcov select" re-hashes them, prints the owners that are safe to skip and
writes an invalidation manifest. "regcov merge" uses that manifest to drop
stale coverage when folding the current run into the previous snapshot.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "regcov",
		Short:        "Regression test selection and incremental coverage",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&cacheRootFlag, cacheRootFlagName, "c", viper.GetString(cacheRootKey), "cache root directory holding records, manifest and snapshot")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(cacheRootFlagName), cacheRootKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// openWorkflow returns the workflow to run and a function releasing the
// stores it opened.
func openWorkflow(cmd *cobra.Command) (domain.Workflow, func(), error) {
	if workflow != nil {
		return workflow, func() {}, nil
	}

	return buildWorkflow(cmd)
}

func buildWorkflow(cmd *cobra.Command) (domain.Workflow, func(), error) {
	fsAdapter := adapter.NewLocalSourceFSAdapter()
	root := cacheRoot()

	var closers []func() error

	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	var records adapter.DependencyRecordStore

	switch backend := strings.ToLower(viper.GetString(cacheBackendKey)); backend {
	case backendFile, "":
		records = adapter.NewFileRecordStore(fsAdapter, root, viper.GetString(cacheKindKey))
	case backendSQLite:
		store, err := adapter.OpenSQLiteRecordStore(root, viper.GetString(cacheKindKey))
		if err != nil {
			return nil, nil, err
		}

		records = store
	default:
		return nil, nil, fmt.Errorf("unknown %s %q (want %q or %q)", cacheBackendKey, backend, backendFile, backendSQLite)
	}

	closers = append(closers, records.Close)

	hasherOpts := []adapter.HasherOption{
		adapter.WithResourceRoot(m.Path(viper.GetString(resourcesRootKey))),
	}

	if !viper.GetBool(hashNormalizeKey) {
		hasherOpts = append(hasherOpts, adapter.WithoutNormalization())
	}

	if viper.GetBool(hashCacheKey) {
		digests, err := adapter.OpenDigestCache(root)
		if err != nil {
			release()
			return nil, nil, err
		}

		closers = append(closers, digests.Close)
		hasherOpts = append(hasherOpts, adapter.WithDigestCache(digests))
	}

	wf := domain.NewWorkflow(
		records,
		adapter.NewLocalContentHasher(fsAdapter, hasherOpts...),
		adapter.NewLocalCacheStore(fsAdapter, root),
		adapter.NewZstdSnapshotStore(fsAdapter),
		controller.NewUI(cmd, controller.IsTTY(os.Stdout)),
	)

	return wf, release, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
