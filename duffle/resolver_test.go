package duffle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundleops/dufflectl/duffle/shell"
)

func TestResolveSystemBinary(t *testing.T) {
	runner := &fakeRunner{respond: respondOK("v1.2.3\n")}
	r := NewResolver(runner, "")

	info, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BinaryInfo{Path: "duffle", Version: "v1.2.3"}, info)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "duffle version", commandLine(runner.calls[0]))
}

func TestResolveMemoizesSuccess(t *testing.T) {
	runner := &fakeRunner{respond: respondOK("v1.2.3\n")}
	r := NewResolver(runner, "")

	first, err := r.Resolve(context.Background())
	require.NoError(t, err)
	second, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, runner.calls, 1, "second resolution must not spawn another probe")
}

func TestResolveMemoizesFailure(t *testing.T) {
	runner := &fakeRunner{respond: func(config shell.Config) (shell.Result, error) {
		return shell.Result{}, errors.New("executable file not found")
	}}
	r := NewResolver(runner, "")
	r.goos = "linux"

	_, err := r.Resolve(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	probes := len(runner.calls)
	_, err = r.Resolve(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Len(t, runner.calls, probes, "failed resolution must be memoized too")
}

func TestResolveBundledFallback(t *testing.T) {
	bundled := filepath.Join("/opt/app", "duffle-binaries", "dufflelinux", "duffle")
	runner := &fakeRunner{respond: func(config shell.Config) (shell.Result, error) {
		if config.Name == "duffle" {
			return shell.Result{}, errors.New("executable file not found")
		}
		return shell.Result{STDOUT: " v0.3.5-beta \n"}, nil
	}}
	r := NewResolver(runner, "/opt/app")
	r.goos = "linux"

	info, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bundled, info.Path)
	assert.Equal(t, "v0.3.5-beta", info.Version)
}

func TestResolveNoBundledRoot(t *testing.T) {
	runner := &fakeRunner{respond: func(config shell.Config) (shell.Result, error) {
		return shell.Result{ExitCode: 127}, nil
	}}
	r := NewResolver(runner, "")
	r.goos = "darwin"

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Len(t, runner.calls, 1, "no bundled root means no second probe")
}

func TestResolveUnsupportedPlatform(t *testing.T) {
	runner := &fakeRunner{respond: func(config shell.Config) (shell.Result, error) {
		return shell.Result{}, errors.New("executable file not found")
	}}
	r := NewResolver(runner, "/opt/app")
	r.goos = "plan9"

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Len(t, runner.calls, 1, "unsupported platform must not probe the bundled path")
}

func TestResolveNonZeroVersionProbe(t *testing.T) {
	runner := &fakeRunner{respond: func(config shell.Config) (shell.Result, error) {
		return shell.Result{ExitCode: 1, STDERR: "boom"}, nil
	}}
	r := NewResolver(runner, "/opt/app")
	r.goos = "windows"

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	require.Len(t, runner.calls, 2)
	assert.Equal(t, filepath.Join("/opt/app", "duffle-binaries", "dufflewin", "duffle.exe"), runner.calls[1].Name)
}

func TestResolveConcurrentFirstUse(t *testing.T) {
	runner := &fakeRunner{respond: respondOK("v1.0.0\n")}
	r := NewResolver(runner, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, runner.calls, 1, "concurrent first callers must share one probe")
}

func TestResetAllowsReprobe(t *testing.T) {
	runner := &fakeRunner{respond: respondOK("v1.0.0\n")}
	r := NewResolver(runner, "")

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	r.Reset()
	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Len(t, runner.calls, 2)
}
