package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"regcov.dev/pkg/regcov/internal/domain"
	domainmocks "regcov.dev/pkg/regcov/internal/domain/mocks"
	m "regcov.dev/pkg/regcov/internal/model"
)

func TestShowCmd(t *testing.T) {
	cacheDir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want m.Path
	}{
		{"default snapshot", []string{"show", "--cache-root", cacheDir}, m.Path(filepath.Join(cacheDir, "coverage.snap"))},
		{"explicit snapshot", []string{"show", "-s", "other.snap"}, "other.snap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockWorkflow := domainmocks.NewMockWorkflow(t)
			useWorkflow(t, mockWorkflow)

			cmd, _, _ := newTestRoot(newShowCmd())

			mockWorkflow.On("Show", mock.Anything, domain.ShowArgs{Snapshot: tt.want}).Return(nil)

			cmd.SetArgs(tt.args)
			require.NoError(t, cmd.Execute())
		})
	}
}

func TestShowCmd_Error(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	useWorkflow(t, mockWorkflow)

	cmd, _, _ := newTestRoot(newShowCmd())

	mockWorkflow.On("Show", mock.Anything, domain.ShowArgs{Snapshot: "broken.snap"}).
		Return(errors.New("store unavailable"))

	cmd.SetArgs([]string{"show", "-s", "broken.snap"})
	require.Error(t, cmd.Execute())
}

func TestShowCmd_RejectsArgs(t *testing.T) {
	cmd, _, _ := newTestRoot(newShowCmd())
	cmd.SetArgs([]string{"show", "extra"})

	require.Error(t, cmd.Execute())
}
