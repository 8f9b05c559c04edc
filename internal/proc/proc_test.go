package proc

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Success(t *testing.T) {
	requireShell(t)
	stream := &bytes.Buffer{}

	res, err := ExecRunner{Stream: stream}.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "out")
	assert.Contains(t, res.Output, "err")
	assert.Equal(t, res.Output, stream.String())
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	res, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo 'Error: file already exists' 1>&2; exit 3")
	require.NoError(t, err, "a non-zero exit is reported through the result")
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Output, "already exists")
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-binary-7c1e")
	require.ErrorContains(t, err, "failed to run definitely-not-a-real-binary-7c1e")
}

func TestExecRunner_Cancelled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExecRunner{}.Run(ctx, "sh", "-c", "sleep 5")
	require.ErrorIs(t, err, context.Canceled)
}
