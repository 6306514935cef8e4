// Package cmdtest runs commands in tests, capturing their output.
package cmdtest

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// Run executes the command with the given args and returns its output.
func Run(t *testing.T, cmd *cobra.Command, args []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	require.NoError(t, cmd.Execute())
	return buf.Bytes()
}
