package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultSSHPort           = 22
	defaultCommandTimeout    = 5 * time.Second
	defaultReconnectInterval = 30 * time.Second
	sshDialTimeout           = 10 * time.Second
)

// RemoteConfig specifies connection parameters for a remote host.
type RemoteConfig struct {
	// Host is the hostname or IP address of the remote system.
	Host string
	// Port is the SSH port (default: 22).
	Port int
	User string

	AuthMethod AuthMethod

	// HostKeyCallback verifies the server key. It takes precedence over
	// InsecureIgnoreHostKey and KnownHostsPath.
	HostKeyCallback ssh.HostKeyCallback
	// InsecureIgnoreHostKey accepts any server key. Only for lab hosts.
	InsecureIgnoreHostKey bool
	// KnownHostsPath is the OpenSSH known_hosts file (default:
	// ~/.ssh/known_hosts).
	KnownHostsPath string

	// TargetOS is "linux" or "darwin". Empty runs uname on the target.
	TargetOS string
	// CommandTimeout bounds each remote command (default: 5s).
	CommandTimeout time.Duration
	// ReconnectInterval caps the reconnect backoff (default: 30s).
	ReconnectInterval time.Duration
}

func (c RemoteConfig) validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.User == "" {
		errs = append(errs, errors.New("user is required"))
	}
	if c.AuthMethod == nil {
		errs = append(errs, errors.New("authentication method is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	return errors.Join(errs...)
}

func (c RemoteConfig) withDefaults() RemoteConfig {
	if c.Port == 0 {
		c.Port = defaultSSHPort
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = defaultReconnectInterval
	}
	return c
}

// clientConfig builds the handshake settings. Key files are read here so a
// bad path fails before any dial.
func (c RemoteConfig) clientConfig(log *slog.Logger) (*ssh.ClientConfig, error) {
	auth, err := c.AuthMethod.sshAuth()
	if err != nil {
		return nil, err
	}
	hostKey, err := c.hostKeyCallback(log)
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKey,
		Timeout:         sshDialTimeout,
	}, nil
}

// hostKeyCallback picks host key verification in order: an explicit
// callback, the insecure opt-out, then a known_hosts file.
func (c RemoteConfig) hostKeyCallback(log *slog.Logger) (ssh.HostKeyCallback, error) {
	if c.HostKeyCallback != nil {
		return c.HostKeyCallback, nil
	}
	if c.InsecureIgnoreHostKey {
		log.Warn("host key verification disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := c.KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("known_hosts file not found: %s: %w", path, err)
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts %s: %w", path, err)
	}
	return cb, nil
}

// AuthMethod is one of PasswordAuth, KeyAuth or AgentAuth.
type AuthMethod interface {
	sshAuth() (ssh.AuthMethod, error)
}

// PasswordAuth authenticates using a password.
type PasswordAuth struct {
	Password string
}

func (a PasswordAuth) sshAuth() (ssh.AuthMethod, error) {
	return ssh.Password(a.Password), nil
}

// KeyAuth authenticates using an SSH private key.
type KeyAuth struct {
	PrivateKeyPath string
	Passphrase     string // optional, for encrypted keys
}

func (a KeyAuth) sshAuth() (ssh.AuthMethod, error) {
	key, err := os.ReadFile(a.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	var signer ssh.Signer
	if a.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(a.Passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", a.PrivateKeyPath, err)
	}
	return ssh.PublicKeys(signer), nil
}

// AgentAuth authenticates through the agent at SSH_AUTH_SOCK.
type AgentAuth struct{}

func (AgentAuth) sshAuth() (ssh.AuthMethod, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, errors.New("SSH_AUTH_SOCK not set")
	}
	// The agent is dialed only when the handshake asks for keys.
	return ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
		}
		defer conn.Close()

		signers, err := agent.NewClient(conn).Signers()
		if err != nil {
			return nil, fmt.Errorf("failed to get signers from SSH agent: %w", err)
		}
		return signers, nil
	}), nil
}
