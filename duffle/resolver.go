package duffle

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bundleops/dufflectl/duffle/shell"
)

// ErrUnavailable is returned when no runnable duffle binary could be
// found, neither on the system path nor bundled with the application.
var ErrUnavailable = errors.New("cannot find duffle on this machine; install it on your system path and restart")

// BinaryInfo describes a discovered, runnable copy of the duffle
// binary. Immutable once constructed.
type BinaryInfo struct {
	Path    string
	Version string
}

// bundledSubpath maps an OS to the relative location of the bundled
// binary under the application's resource root. Unsupported platforms
// resolve to nothing at all.
func bundledSubpath(goos string) (string, bool) {
	switch goos {
	case "windows":
		return filepath.Join("duffle-binaries", "dufflewin", "duffle.exe"), true
	case "linux":
		return filepath.Join("duffle-binaries", "dufflelinux", "duffle"), true
	case "darwin":
		return filepath.Join("duffle-binaries", "dufflemac", "duffle"), true
	}
	return "", false
}

// Resolver locates a usable duffle binary, probing the system path
// first and a bundled copy second. The first outcome, success or
// failure, is memoized for the resolver's lifetime; the mutex also
// serializes concurrent first callers so duplicate probe processes are
// never spawned.
type Resolver struct {
	runner      shell.Runner
	bundledRoot string
	goos        string

	mu       sync.Mutex
	resolved bool
	info     BinaryInfo
	err      error
}

// NewResolver probes via runner. bundledRoot is the application's
// resource directory; empty means no bundled copy is available.
func NewResolver(runner shell.Runner, bundledRoot string) *Resolver {
	return &Resolver{
		runner:      runner,
		bundledRoot: bundledRoot,
		goos:        runtime.GOOS,
	}
}

// Resolve returns the memoized binary info, probing on first call.
// Failure is memoized too: once unavailable, always unavailable for
// this resolver.
func (r *Resolver) Resolve(ctx context.Context) (BinaryInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved {
		return r.info, r.err
	}

	r.info, r.err = r.probe(ctx)
	r.resolved = true
	return r.info, r.err
}

// Reset discards the memoized outcome so the next Resolve probes
// again. Exists for tests; nothing in normal operation calls it.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = false
	r.info = BinaryInfo{}
	r.err = nil
}

func (r *Resolver) probe(ctx context.Context) (BinaryInfo, error) {
	if info, ok := r.tryBinary(ctx, "duffle"); ok {
		return info, nil
	}

	rel, ok := bundledSubpath(r.goos)
	if !ok {
		return BinaryInfo{}, ErrUnavailable
	}
	if r.bundledRoot == "" {
		return BinaryInfo{}, ErrUnavailable
	}
	if info, ok := r.tryBinary(ctx, filepath.Join(r.bundledRoot, rel)); ok {
		return info, nil
	}

	return BinaryInfo{}, ErrUnavailable
}

// tryBinary runs `<path> version`; exit 0 means path is usable and the
// trimmed stdout is its version string.
func (r *Resolver) tryBinary(ctx context.Context, path string) (BinaryInfo, bool) {
	result, err := r.runner.Run(ctx, shell.Config{
		Name: path,
		Args: []string{"version"},
	})
	if err != nil || !result.Success() {
		return BinaryInfo{}, false
	}
	return BinaryInfo{
		Path:    path,
		Version: strings.TrimSpace(result.STDOUT),
	}, true
}
