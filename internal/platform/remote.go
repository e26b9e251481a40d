package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
)

// commandRunner runs a shell command on the target host. It lets the remote
// providers be tested without an SSH connection.
type commandRunner interface {
	runCommand(cmd string) (string, error)
}

var errNotConnected = errors.New("SSH client not connected")

// sshPlatform reads a remote Linux or macOS host by running stock shell
// commands over SSH and parsing their output locally.
type sshPlatform struct {
	config RemoteConfig
	log    *slog.Logger
	clock  ClockSource
	// dial is dialSSH; tests replace it.
	dial dialFunc

	mu       sync.RWMutex
	conn     *sshConn
	targetOS string
	cpu      CPUProvider
	memory   MemoryProvider
}

// newSSHPlatform validates config and applies defaults. No connection is
// made until Initialize.
func newSSHPlatform(config RemoteConfig, o options) (*sshPlatform, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid remote config: %w", err)
	}
	config = config.withDefaults()
	return &sshPlatform{
		config: config,
		log:    o.logger.With("remote", config.Host),
		clock:  NewClock(),
		dial:   dialSSH,
	}, nil
}

func (p *sshPlatform) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.targetOS != "" {
		return "remote-" + p.targetOS
	}
	return "remote"
}

// Initialize connects, detects the remote OS unless configured, and builds
// the providers. ctx bounds the connection's lifetime, not just the dial.
func (p *sshPlatform) Initialize(ctx context.Context) error {
	clientConfig, err := p.config.clientConfig(p.log)
	if err != nil {
		return fmt.Errorf("failed to build SSH config: %w", err)
	}

	addr := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))
	conn := newSSHConn(ctx, addr, clientConfig, defaultConnPolicy(p.config.ReconnectInterval), p.log)
	conn.dial = p.dial
	if err := conn.connect(ctx); err != nil {
		conn.close()
		return err
	}
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()

	targetOS := p.config.TargetOS
	if targetOS == "" {
		out, err := p.runCommand("uname -s")
		if err != nil {
			p.Close()
			return fmt.Errorf("failed to detect remote OS: %w", err)
		}
		targetOS = parseUname(out)
		p.log.Debug("detected remote OS", "os", targetOS)
	}

	cpu, memory, err := remoteProviders(targetOS, p, p.log)
	if err != nil {
		p.Close()
		return err
	}

	p.mu.Lock()
	p.targetOS, p.cpu, p.memory = targetOS, cpu, memory
	p.mu.Unlock()
	return nil
}

// parseUname maps "uname -s" output to a GOOS name.
func parseUname(out string) string {
	return strings.ToLower(strings.TrimSpace(out))
}

// remoteProviders builds the command-backed providers for targetOS. The
// brand always comes from the remote tables; CPUID would describe the
// local CPU.
func remoteProviders(targetOS string, runner commandRunner, log *slog.Logger) (CPUProvider, MemoryProvider, error) {
	switch targetOS {
	case "linux":
		src := &remoteProcSource{runner: runner}
		return newLinuxCPUProvider(src, log, tableOnly), &procMemoryProvider{src: src, log: log}, nil
	case "darwin":
		sys := &remoteSysctl{runner: runner}
		return &sysctlCPUProvider{sys: sys, log: log, brand: tableOnly}, newRemoteDarwinMemoryProvider(sys, runner, log), nil
	}
	return nil, nil, fmt.Errorf("%w: remote OS %q", ErrUnsupported, targetOS)
}

func (p *sshPlatform) connection() *sshConn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn
}

// runCommand runs cmd under the command timeout and returns its stdout.
func (p *sshPlatform) runCommand(cmd string) (string, error) {
	conn := p.connection()
	if conn == nil {
		return "", errNotConnected
	}
	if conn.ctx.Err() != nil {
		return "", errConnClosed
	}

	ctx, cancel := context.WithTimeout(conn.ctx, p.config.CommandTimeout)
	defer cancel()

	session, err := conn.session(ctx)
	if err != nil {
		return "", err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case err := <-done:
		var exit *ssh.ExitError
		switch {
		case errors.As(err, &exit):
			return "", fmt.Errorf("%q exited %d: %s", cmd, exit.ExitStatus(), strings.TrimSpace(stderr.String()))
		case err != nil:
			return "", fmt.Errorf("running %q: %w", cmd, err)
		}
		return stdout.String(), nil
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		if conn.ctx.Err() != nil {
			return "", errConnClosed
		}
		return "", fmt.Errorf("%q timed out after %v", cmd, p.config.CommandTimeout)
	}
}

// Close tears down the connection. It is idempotent.
func (p *sshPlatform) Close() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn != nil {
		return conn.close()
	}
	return nil
}

// Clock returns the local monotonic clock. Remote readings would carry
// network latency and cannot be compared with local ones.
func (p *sshPlatform) Clock() ClockSource {
	return p.clock
}

func (p *sshPlatform) CPU() CPUProvider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cpu
}

func (p *sshPlatform) Memory() MemoryProvider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.memory
}

// ConnectionStats reports the state of the SSH transport.
func (p *sshPlatform) ConnectionStats() ConnectionStats {
	if conn := p.connection(); conn != nil {
		return conn.stats()
	}
	return ConnectionStats{State: ConnectionStateDisconnected}
}
