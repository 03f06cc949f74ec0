package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default, as rootCmd and its flag values outlive a single
// execution.
func resetFlags(t *testing.T) {
	t.Helper()

	for _, cmd := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		for _, flags := range []*pflag.FlagSet{cmd.PersistentFlags(), cmd.Flags()} {
			flags.VisitAll(func(flag *pflag.Flag) {
				require.NoError(t, flag.Value.Set(flag.DefValue))
				flag.Changed = false
			})
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(t)

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	workDir := t.TempDir()

	out, err := execute(t, "plan", "0087940101", "--skip-download", "-w", workDir)
	require.NoError(t, err)

	assert.Contains(t, out, " 1 workdirs (in process)")
	assert.Contains(t, out, "cifbuild obsid=0087940101 odfdir="+filepath.Join(workDir, "0087940101", "odf"))
	assert.Contains(t, out, "env SAS_CCF="+filepath.Join(workDir, "0087940101", "ccf", "ccf.cif"))
	assert.NotContains(t, out, "archive")
}

func TestRunDryRun(t *testing.T) {
	workDir := t.TempDir()
	graph := filepath.Join(t.TempDir(), "stages.dot")

	out, err := execute(t, "run", "0087940101", "--dry-run", "-w", workDir, "--graph", graph)
	require.NoError(t, err)

	assert.Contains(t, out, "cifbuild")
	assert.Contains(t, out, "epchain")
	assert.Contains(t, out, "total")
	assert.FileExists(t, graph)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a dry run leaves the work directory untouched")
}

func TestRunInvalidObservation(t *testing.T) {
	_, err := execute(t, "run", "42", "--dry-run", "-w", t.TempDir())
	assert.Error(t, err)
}

func TestFlagsDoNotLeakBetweenRuns(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "plan", "0087940101", "--skip-download", "-w", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "archive")

	out, err = execute(t, "plan", "0087940101")
	require.NoError(t, err)
	assert.Contains(t, out, " 1 archive (in process)")
	assert.NotContains(t, out, dir)
	assert.Empty(t, workDir)
	assert.False(t, skipDownload)
}

func TestInvalidLogLevel(t *testing.T) {
	t.Setenv("XDP_LOG_LEVEL", "loud")

	_, err := execute(t, "plan", "0087940101", "--skip-download")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize logger")
	assert.Contains(t, err.Error(), `invalid log level "loud"`)
}
