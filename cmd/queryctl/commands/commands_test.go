package commands

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// runRoot executes rootCmd with args and captures what the ui package
// prints to os.Stdout (the ui helpers write there directly rather than
// through cobra's cmd.OutOrStdout — so tests redirect the file
// descriptor instead of using cobra's own output-capture hooks).
func runRoot(t *testing.T, args ...string) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	original := os.Stdout
	os.Stdout = w

	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	os.Stdout = original
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, runErr)

	return string(out)
}

func TestQueryMemoryBackend(t *testing.T) {
	output := runRoot(t, "query", "--backend=memory")
	require.Contains(t, output, "Jane2")
}

func TestQueryRelationalBackend(t *testing.T) {
	output := runRoot(t, "query", "--backend=relational")
	require.Contains(t, output, "Jane2")
}

func TestAggregateMemoryCount(t *testing.T) {
	output := runRoot(t, "aggregate", "--backend=memory", "--kind=count")
	require.Contains(t, output, "count(points) = 4")
}

func TestAggregateRelationalSum(t *testing.T) {
	output := runRoot(t, "aggregate", "--backend=relational", "--kind=sum")
	require.Contains(t, output, "sum(points)")
}
