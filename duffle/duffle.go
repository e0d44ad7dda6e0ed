// Package duffle drives the duffle CNAB bundle tool. It locates a
// usable binary (system path or a copy bundled with the application),
// caches that discovery for the life of the client, renders argv
// tokens from structured parameters, and parses the tool's
// line-oriented output into typed results.
package duffle

import (
	"context"
	"fmt"
	"os"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/bundleops/dufflectl/duffle/shell"
	"github.com/bundleops/dufflectl/logger"
)

// Client is the single choke point through which every duffle
// operation flows. Safe for concurrent use; it imposes no
// serialization of its own, so whether the tool tolerates concurrent
// invocations is the caller's concern.
type Client struct {
	runner   shell.Runner
	resolver *Resolver
	log      logger.Logger
	home     string
}

type ClientOption func(*clientConfig)

type clientConfig struct {
	runner      shell.Runner
	log         logger.Logger
	bundledRoot string
	home        string
}

// WithRunner substitutes the process-execution layer. The default is
// a LocalRunner.
func WithRunner(r shell.Runner) ClientOption {
	return func(c *clientConfig) { c.runner = r }
}

// WithLogger sets the diagnostic sink every invocation and raw stdout
// payload is written to.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *clientConfig) { c.log = l }
}

// WithBundledRoot points the resolver at the application's resource
// directory holding bundled duffle binaries. Without it only the
// system path is probed.
func WithBundledRoot(dir string) ClientOption {
	return func(c *clientConfig) { c.bundledRoot = dir }
}

// WithHome overrides the duffle home directory injected into every
// child process as DUFFLE_HOME.
func WithHome(dir string) ClientOption {
	return func(c *clientConfig) { c.home = dir }
}

func New(opts ...ClientOption) *Client {
	cfg := &clientConfig{
		runner: &shell.LocalRunner{},
		log:    logger.Nop{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.home == "" {
		// A missing home directory is survivable; the tool falls
		// back to its own default.
		cfg.home, _ = Home()
	}
	return &Client{
		runner:   cfg.runner,
		resolver: NewResolver(cfg.runner, cfg.bundledRoot),
		log:      cfg.log,
		home:     cfg.home,
	}
}

// invoke resolves the binary, runs `<binary> <args...>` with
// DUFFLE_HOME set, and reports the raw result. Resolution failure
// short-circuits before any process is spawned.
func (c *Client) invoke(ctx context.Context, args ...string) (shell.Result, error) {
	bin, err := c.resolver.Resolve(ctx)
	if err != nil {
		return shell.Result{}, err
	}

	config := shell.Config{
		Name: bin.Path,
		Args: args,
	}
	if c.home != "" {
		config.Env = []string{homeEnvVar + "=" + c.home}
	}

	c.log.Info("Invoking duffle", "command", bin.Path+" "+strings.Join(args, " "))

	result, err := c.runner.Run(ctx, config)
	if err != nil {
		return result, fmt.Errorf("duffle %s could not be executed: %v", args[0], err)
	}

	c.log.Debug("duffle output", "stdout", result.STDOUT)

	if !result.Success() {
		detail := strings.TrimSpace(result.STDERR)
		if detail == "" {
			detail = strings.TrimSpace(result.STDOUT)
		}
		return result, fmt.Errorf("duffle %s failed with exit code %d: %s", args[0], result.ExitCode, detail)
	}

	return result, nil
}

// run is invoke for mutating operations: stdout is discarded and only
// success or failure is reported.
func (c *Client) run(ctx context.Context, args ...string) error {
	_, err := c.invoke(ctx, args...)
	return err
}

// list is invoke for listing operations: stdout becomes a trimmed,
// blank-free line list.
func (c *Client) list(ctx context.Context, args ...string) ([]string, error) {
	result, err := c.invoke(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLines(result.STDOUT), nil
}

// Version reports the resolved binary's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	bin, err := c.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return bin.Version, nil
}

// List returns the names of installed bundles.
func (c *Client) List(ctx context.Context) ([]string, error) {
	return c.list(ctx, "list")
}

// CredentialSets returns the names of stored credential sets.
func (c *Client) CredentialSets(ctx context.Context) ([]string, error) {
	return c.list(ctx, "credentials", "list")
}

// Upgrade upgrades an installed bundle to the latest version.
func (c *Client) Upgrade(ctx context.Context, name string) error {
	return c.run(ctx, "upgrade", name)
}

// Uninstall removes an installed bundle.
func (c *Client) Uninstall(ctx context.Context, name string) error {
	return c.run(ctx, "uninstall", name)
}

// Push uploads a bundle file to a repository.
func (c *Client) Push(ctx context.Context, file, repo string) error {
	return c.run(ctx, "push", "-f", file, "--repo", repo)
}

// InstallFile installs a bundle from a local bundle file under the
// given installation name. Empty-valued params are dropped; a
// non-empty credentialSet adds `-c <name>`.
func (c *Client) InstallFile(ctx context.Context, name, file string, params map[string]string, credentialSet string) error {
	args := []string{"install", name, "-f", file}
	args = append(args, SetArgs(params)...)
	args = append(args, CredentialArgs(credentialSet)...)
	return c.run(ctx, args...)
}

// Install installs a bundle by reference under the given installation
// name.
func (c *Client) Install(ctx context.Context, name, bundle string, params map[string]string, credentialSet string) error {
	args := []string{"install", name, bundle}
	args = append(args, SetArgs(params)...)
	args = append(args, CredentialArgs(credentialSet)...)
	return c.run(ctx, args...)
}

// AddCredentialSets imports credential set files. Unreadable files are
// reported together, one error per file, before anything is invoked.
func (c *Client) AddCredentialSets(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("no credential set files given")
	}

	var merr *multierror.Error
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("credential set file %s: %v", file, err))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return err
	}

	args := append([]string{"credential", "add"}, FileArgs(files)...)
	return c.run(ctx, args...)
}

// RemoveCredentialSet deletes a stored credential set by name.
func (c *Client) RemoveCredentialSet(ctx context.Context, name string) error {
	return c.run(ctx, "credential", "remove", name)
}

// GenerateCredentialsFile generates a credential set skeleton for a
// bundle file.
func (c *Client) GenerateCredentialsFile(ctx context.Context, name, file string) error {
	return c.run(ctx, "credentials", "generate", name, "-f", file)
}

// GenerateCredentials generates a credential set skeleton for a bundle
// reference.
func (c *Client) GenerateCredentials(ctx context.Context, name, bundle string) error {
	return c.run(ctx, "credentials", "generate", name, bundle)
}

// Repos lists known bundle repositories. The tool has no query for
// this yet, so the result is a fixed single entry.
func (c *Client) Repos(ctx context.Context) ([]string, error) {
	return []string{"hub.cnlabs.io"}, nil
}
