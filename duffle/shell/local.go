package shell

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// LocalRunner executes commands on the local system via os/exec.
type LocalRunner struct{}

func (l *LocalRunner) Run(ctx context.Context, config Config) (Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, config.Name, config.Args...)
	if config.Dir != "" {
		cmd.Dir = config.Dir
	}
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Executing local command", "command", config.Name, "args", config.Args)

	err := cmd.Run()

	result := Result{
		Command:   config.Name + " " + strings.Join(config.Args, " "),
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	if _, ok := err.(*exec.ExitError); ok {
		// The process ran; the caller branches on ExitCode.
		return result, nil
	}

	return result, err
}

func getExitCode(err error) int {
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return exitError.ExitCode()
		}
	}
	return 0
}
