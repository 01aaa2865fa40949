package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"regcov.dev/pkg/regcov/internal/controller"
	"regcov.dev/pkg/regcov/internal/domain"
	domainmocks "regcov.dev/pkg/regcov/internal/domain/mocks"
)

func TestSelectCmd_PassesConfiguration(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	useWorkflow(t, mockWorkflow)

	cmd, _, _ := newTestRoot(newSelectCmd())

	mockWorkflow.On("Select", mock.Anything, mock.MatchedBy(func(args domain.SelectArgs) bool {
		return assert.ObjectsAreEqual([]string{"TestA", "TestB"}, args.Owners) &&
			args.Selector.HashWorkers == 2 &&
			args.Selector.Propagation == domain.PropagationStrict &&
			args.Selector.Match == domain.MatchExact &&
			args.Format == controller.FormatSkip &&
			assert.ObjectsAreEqual([]string{"Test*"}, args.Include) &&
			assert.ObjectsAreEqual([]string{"TestSlow*"}, args.Exclude) &&
			args.Debug &&
			!args.RerunFailing &&
			args.Selector.OwnerUnit("com.x.FooTest") == "out/com.x.FooTest"
	})).Return(domain.SelectResult{}, nil)

	cmd.SetArgs([]string{
		"select",
		"--parallel", "2",
		"--propagation", "strict",
		"--match", "exact",
		"--format", "skip",
		"--include", "Test*",
		"--exclude", "TestSlow*",
		"--debug",
		"--rerun-failing=false",
		"--owner-unit", "out/{owner}",
		"TestA", "TestB",
	})
	require.NoError(t, cmd.Execute())
}

func TestSelectCmd_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"propagation", []string{"select", "--propagation", "sideways"}},
		{"match", []string{"select", "--match", "fuzzy"}},
		{"format", []string{"select", "--format", "xml"}},
		{"parallel", []string{"select", "--parallel", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockWorkflow := domainmocks.NewMockWorkflow(t)
			useWorkflow(t, mockWorkflow)

			cmd, _, _ := newTestRoot(newSelectCmd())
			cmd.SetArgs(tt.args)

			require.Error(t, cmd.Execute())
			mockWorkflow.AssertNotCalled(t, "Select", mock.Anything, mock.Anything)
		})
	}
}

func TestSelectCmd_PropagatesWorkflowError(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	useWorkflow(t, mockWorkflow)

	cmd, _, _ := newTestRoot(newSelectCmd())

	mockWorkflow.On("Select", mock.Anything, mock.Anything).
		Return(domain.SelectResult{}, errors.New("manifest not writable"))

	cmd.SetArgs([]string{"select", "--parallel", "4", "--propagation", "widened", "--match", "segment", "--format", "plain"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest not writable")
}

func TestSelectCmd_EndToEnd(t *testing.T) {
	useWorkflow(t, nil)

	workDir := t.TempDir()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workDir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })

	cacheDir := filepath.Join(workDir, "cache")
	require.NoError(t, os.WriteFile("TestA.bin", []byte("unit a v1"), 0o644))
	require.NoError(t, os.WriteFile("Helper.bin", []byte("helper v1"), 0o644))

	common := []string{"--cache-root", cacheDir}

	record := func(args ...string) {
		cmd, _, _ := newTestRoot(newRecordCmd())
		cmd.SetArgs(append(append([]string{"record"}, args...), common...))
		require.NoError(t, cmd.Execute())
	}

	selectOwners := func() string {
		cmd, out, _ := newTestRoot(newSelectCmd())
		cmd.SetArgs(append([]string{
			"select", "--format", "plain", "--propagation", "widened", "--match", "segment",
			"--parallel", "2", "--rerun-failing=true",
		}, common...))
		require.NoError(t, cmd.Execute())

		return out.String()
	}

	record("TestA", "TestA.bin", "Helper.bin")
	record("TestB", "Helper.bin")
	record("TestC")

	assert.Equal(t, "TestA\nTestB\n", selectOwners())

	require.NoError(t, os.WriteFile("TestA.bin", []byte("unit a v2"), 0o644))
	assert.Equal(t, "", selectOwners(), "TestA changed itself, TestB shares Helper.bin")

	manifest, err := os.ReadFile(filepath.Join(cacheDir, "cov_units.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "Helper.bin")
	assert.Contains(t, string(manifest), "TestA.bin")
}
