package cmd

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "regcov.dev/pkg/regcov/internal/model"
)

func TestParsePaths(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []m.Path
	}{
		{"empty", []string{}, []m.Path{}},
		{"single", []string{"run.cbor"}, []m.Path{m.Path("run.cbor")}},
		{
			"multiple",
			[]string{"shard0.cbor", "shard1.cbor", "shard2.cbor"},
			[]m.Path{m.Path("shard0.cbor"), m.Path("shard1.cbor"), m.Path("shard2.cbor")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePaths(tt.args)
			require.Len(t, got, len(tt.want))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "regcov", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, rootLongDescription, cmd.Long)
	assert.NotNil(t, cmd.PersistentFlags().Lookup(cacheRootFlagName))
	assert.NotNil(t, cmd.PersistentFlags().Lookup(verboseFlagName))
}

func TestRootCmd_HelpOutput(t *testing.T) {
	cmd, out, _ := newTestRoot()

	cmd.SetArgs([]string{})
	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "invalidation manifest")
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"select", "record", "merge", "show", "init", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestBuildWorkflow(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		cache   bool
		wantErr bool
	}{
		{"file backend", backendFile, false, false},
		{"sqlite backend with digest cache", backendSQLite, true, false},
		{"unknown backend", "etcd", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A fresh root rebinds the persistent flags, so the environment is not shadowed.
			cmd, _, _ := newTestRoot()

			t.Setenv("REGCOV_CACHE_ROOT", t.TempDir())
			t.Setenv("REGCOV_CACHE_BACKEND", tt.backend)
			t.Setenv("REGCOV_HASH_CACHE", strconv.FormatBool(tt.cache))

			wf, release, err := buildWorkflow(cmd)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, wf)
			release()
		})
	}
}

func TestExecute(t *testing.T) {
	originalRootCmd := rootCmd

	mockCmd := &cobra.Command{
		Use: "test",
		RunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
	}
	mockCmd.SetOut(&bytes.Buffer{})
	mockCmd.SetErr(&bytes.Buffer{})
	mockCmd.SetArgs([]string{})

	rootCmd = mockCmd
	defer func() { rootCmd = originalRootCmd }()

	Execute()
}
