package duffle

import (
	"context"
	"strings"

	"github.com/bundleops/dufflectl/duffle/shell"
)

// fakeRunner scripts process results without spawning anything and
// records every invocation for assertion.
type fakeRunner struct {
	calls   []shell.Config
	respond func(config shell.Config) (shell.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, config shell.Config) (shell.Result, error) {
	f.calls = append(f.calls, config)
	if f.respond != nil {
		return f.respond(config)
	}
	return shell.Result{}, nil
}

// respondOK answers every invocation with exit 0 and the given stdout.
func respondOK(stdout string) func(shell.Config) (shell.Result, error) {
	return func(config shell.Config) (shell.Result, error) {
		return shell.Result{STDOUT: stdout}, nil
	}
}

// commandLine flattens a recorded call for readable assertions.
func commandLine(config shell.Config) string {
	return config.Name + " " + strings.Join(config.Args, " ")
}
