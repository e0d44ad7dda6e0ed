package shell

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRun(t *testing.T) {
	runner := &LocalRunner{}
	result, err := runner.Run(context.Background(), Config{
		Name: "echo",
		Args: []string{"hello"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "hello\n", result.STDOUT)
	assert.Equal(t, "echo hello", result.Command)
}

func TestLocalRunNonZeroExit(t *testing.T) {
	runner := &LocalRunner{}
	result, err := runner.Run(context.Background(), Config{
		Name: "sh",
		Args: []string{"-c", "echo oops >&2; exit 3"},
	})
	require.NoError(t, err, "a process that ran reports through ExitCode")
	assert.Equal(t, 3, result.ExitCode)
	assert.False(t, result.Success())
	assert.Equal(t, "oops\n", result.STDERR)
}

func TestLocalRunStartFailure(t *testing.T) {
	runner := &LocalRunner{}
	_, err := runner.Run(context.Background(), Config{
		Name: "definitely-not-a-real-binary-zz",
	})
	assert.Error(t, err)
}

func TestLocalRunEnvAppended(t *testing.T) {
	runner := &LocalRunner{}
	result, err := runner.Run(context.Background(), Config{
		Name: "sh",
		Args: []string{"-c", "printf '%s' \"$DUFFLE_HOME\""},
		Env:  []string{"DUFFLE_HOME=/tmp/dh"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dh", result.STDOUT)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, 0, getExitCode(nil))
}
