package shell

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// KeyManager supplies private-key signers for SSH authentication.
type KeyManager interface {
	ReadPrivateKeys(keyPassphrase string) ([]ssh.Signer, error)
}

// AgentKeyManager reads signers from the running SSH agent.
type AgentKeyManager struct{}

// FileKeyManager reads and parses key files under ~/.ssh.
type FileKeyManager struct{}

func (km AgentKeyManager) ReadPrivateKeys(_ string) ([]ssh.Signer, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK not set")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("could not connect to SSH agent: %v", err)
	}
	defer conn.Close()

	sshAgent := agent.NewClient(conn)

	signers, err := sshAgent.Signers()
	if err != nil {
		return nil, fmt.Errorf("could not get signers from SSH agent: %v", err)
	}

	return signers, nil
}

func (km FileKeyManager) ReadPrivateKeys(keyPassphrase string) ([]ssh.Signer, error) {
	files, err := filepath.Glob(os.Getenv("HOME") + "/.ssh/id_*")
	if err != nil {
		return nil, err
	}

	signers := []ssh.Signer{}

	for _, file := range files {
		if strings.HasSuffix(file, ".pub") {
			continue
		}

		keyBytes, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		var signer ssh.Signer

		if keyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(keyPassphrase))
			if err != nil {
				// Failed to parse with passphrase, try next key
				continue
			}
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
			if err != nil {
				// Failed to parse without passphrase, try next key
				continue
			}
		}

		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil, fmt.Errorf("no usable private keys under ~/.ssh")
	}

	return signers, nil
}
