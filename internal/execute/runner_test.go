package execute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputCapturesAndTrims(t *testing.T) {
	runner := NewExecRunner()

	out, err := runner.Output(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRunReportsExitFailure(t *testing.T) {
	runner := NewExecRunner()

	err := runner.Run(context.Background(), "false")
	assert.Error(t, err)
}

func TestEmptyCommandRejected(t *testing.T) {
	runner := NewExecRunner()

	assert.Error(t, runner.Run(context.Background()))

	_, err := runner.Output(context.Background())
	assert.Error(t, err)
}
