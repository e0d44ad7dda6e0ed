package shell

import (
	"context"
	"time"
)

// Result encapsulates the results from a command execution.
type Result struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// Success reports whether the command exited with code 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Config describes a single command invocation. Args are discrete argv
// tokens; they are never joined into a shell string for local runs.
type Config struct {
	Name string
	Args []string

	// Dir sets the working directory; empty means inherit.
	Dir string

	// Env entries ("KEY=value") are appended to the inherited
	// environment.
	Env []string
}

// Runner executes commands and reports their outcome. A non-nil error
// means the process could not be started or reached; a started process
// that exits non-zero is reported through Result.ExitCode with a nil
// error.
type Runner interface {
	Run(ctx context.Context, config Config) (Result, error)
}
