package execute

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Runner executes named external tools. Run streams the tool's output into
// the log, Output captures stdout for commands whose result is consumed
// (existence queries and the like). Both block until the tool exits.
type Runner interface {
	Run(ctx context.Context, argv ...string) error
	Output(ctx context.Context, argv ...string) (string, error)
}

// ExecRunner runs tools via os/exec.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, argv ...string) (err error) {
	if len(argv) == 0 {
		err = fmt.Errorf("empty command array")
		return
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	cmd.Stdout = NewZapWriter(zapcore.InfoLevel, "stdout", zap.Strings("argv", argv))
	cmd.Stderr = NewZapWriter(zapcore.WarnLevel, "stderr", zap.Strings("argv", argv))
	cmd.Stdin = os.Stdin

	zap.L().Debug("running command", zap.Strings("argv", argv))
	if err = cmd.Run(); err != nil {
		err = fmt.Errorf("command '%s' failed: %w", argv[0], err)
		return
	}

	return
}

func (r *ExecRunner) Output(ctx context.Context, argv ...string) (out string, err error) {
	if len(argv) == 0 {
		err = fmt.Errorf("empty command array")
		return
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	cmd.Stdout = &stdout
	cmd.Stderr = NewZapWriter(zapcore.WarnLevel, "stderr", zap.Strings("argv", argv))

	zap.L().Debug("running command", zap.Strings("argv", argv))
	if err = cmd.Run(); err != nil {
		err = fmt.Errorf("command '%s' failed: %w", argv[0], err)
		return
	}

	out = strings.TrimSpace(stdout.String())
	return
}
