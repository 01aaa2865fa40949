package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"regcov.dev/pkg/regcov/internal/domain"
)

func TestMain(mainT *testing.M) {
	logDir, err := os.MkdirTemp("", "regcov-cmd-test")
	if err != nil {
		panic(err)
	}

	viper.Set(logFilenameKey, filepath.Join(logDir, "regcov.log"))

	code := mainT.Run()

	_ = os.RemoveAll(logDir)
	os.Exit(code)
}

// useWorkflow installs wf for the duration of the test.
func useWorkflow(t *testing.T, wf domain.Workflow) {
	t.Helper()

	original := workflow
	workflow = wf

	t.Cleanup(func() { workflow = original })
}

func newTestRoot(sub ...*cobra.Command) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := newRootCmd()
	cmd.AddCommand(sub...)

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	return cmd, out, errOut
}
