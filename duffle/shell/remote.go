package shell

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHDialer abstracts ssh.Dial for testing.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

// NetDialer dials real SSH connections.
type NetDialer struct{}

func (NetDialer) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	config.Timeout = timeout
	return ssh.Dial(network, addr, config)
}

// RemoteRunner executes commands on a remote host over SSH. A set
// Password wins; otherwise keys are read from the SSH agent, or from
// ~/.ssh key files when KeyPassphrase is set. SSH transports a command
// string rather than an argv vector, so tokens are single-quoted
// before joining; locally run commands never go through this path.
type RemoteRunner struct {
	Host          string
	User          string
	Password      string
	KeyPassphrase string
	Dialer        SSHDialer
}

func (r *RemoteRunner) getSSHConfig() (*ssh.ClientConfig, error) {
	var authMethod ssh.AuthMethod

	if r.Password != "" {
		slog.Debug("Using password authentication", "host", r.Host)
		authMethod = ssh.Password(r.Password)
	} else {
		slog.Debug("Using public key authentication", "host", r.Host)
		var keyManager KeyManager
		if r.KeyPassphrase != "" {
			keyManager = FileKeyManager{}
		} else {
			keyManager = AgentKeyManager{}
		}

		keys, err := keyManager.ReadPrivateKeys(r.KeyPassphrase)
		if err != nil {
			return nil, err
		}

		authMethod = ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return keys, nil
		})
	}

	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func (r *RemoteRunner) Run(ctx context.Context, config Config) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if r.Dialer == nil {
		return Result{}, errors.New("SSH dialer is not initialized")
	}

	sshConfig, err := r.getSSHConfig()
	if err != nil {
		return Result{}, err
	}

	var dialTimeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	} else {
		dialTimeout = 15 * time.Minute
	}

	addr := r.Host
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}

	client, err := r.Dialer.Dial("tcp", addr, sshConfig, dialTimeout)
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, err
	}
	defer session.Close()

	for _, kv := range config.Env {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if err := session.Setenv(name, value); err != nil {
			// Most sshd configs reject arbitrary SendEnv; the
			// command still works with the remote default.
			slog.Debug("Remote Setenv rejected", "name", name, "error", err)
		}
	}

	cmdStr := config.Name
	for _, arg := range config.Args {
		cmdStr += " " + quoteToken(arg)
	}
	if config.Dir != "" {
		cmdStr = "cd " + quoteToken(config.Dir) + " && " + cmdStr
	}

	slog.Debug("Executing remote command", "host", r.Host, "command", cmdStr)

	start := time.Now()

	type sessionOutcome struct {
		result Result
		err    error
	}
	outputCh := make(chan sessionOutcome, 1)
	go func() {
		var stdout, stderr strings.Builder
		session.Stdout = &stdout
		session.Stderr = &stderr

		err := session.Run(cmdStr)

		outcome := sessionOutcome{
			result: Result{
				STDOUT: stdout.String(),
				STDERR: stderr.String(),
			},
		}
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				outcome.result.ExitCode = exitErr.ExitStatus()
			} else {
				outcome.err = err
			}
		}
		outputCh <- outcome
	}()

	select {
	case outcome := <-outputCh:
		outcome.result.Command = cmdStr
		outcome.result.Duration = time.Since(start)
		outcome.result.Timestamp = start
		return outcome.result, outcome.err

	case <-ctx.Done():
		slog.Error("Remote command interrupted", "host", r.Host, "command", cmdStr, "error", ctx.Err())
		return Result{}, ctx.Err()
	}
}

// quoteToken wraps a token in single quotes so the remote shell treats
// it as one word. Embedded single quotes use the '\'' splice.
func quoteToken(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'`$\\&|;<>()*?[]#~%!{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
