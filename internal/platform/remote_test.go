package platform

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const testMeminfo = `MemTotal:       16384000 kB
MemFree:         4096000 kB
MemAvailable:    8192000 kB
`

func linuxOutputs() map[string]string {
	return map[string]string{
		"uname -s":                         "Linux\n",
		shellCommand("cat", cpuinfoPath):   x86CPUInfo,
		shellCommand("cat", cpuOnlinePath): "0-3\n",
		shellCommand("cat", meminfoPath):   testMeminfo,
	}
}

func TestNewSSHPlatform_Validation(t *testing.T) {
	valid := RemoteConfig{Host: "db.example", User: "ops", AuthMethod: AgentAuth{}}
	tests := []struct {
		name    string
		mutate  func(*RemoteConfig)
		wantErr string
	}{
		{"valid", func(*RemoteConfig) {}, ""},
		{"missing host", func(c *RemoteConfig) { c.Host = "" }, "host is required"},
		{"missing user", func(c *RemoteConfig) { c.User = "" }, "user is required"},
		{"missing auth", func(c *RemoteConfig) { c.AuthMethod = nil }, "authentication method is required"},
		{"port out of range", func(c *RemoteConfig) { c.Port = 70000 }, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := newSSHPlatform(cfg, applyOptions(nil))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("newSSHPlatform() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("newSSHPlatform() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewSSHPlatform_ReportsEveryProblem(t *testing.T) {
	_, err := newSSHPlatform(RemoteConfig{}, applyOptions(nil))
	if err == nil {
		t.Fatal("newSSHPlatform() accepted an empty config")
	}
	for _, want := range []string{"host", "user", "authentication"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestRemoteConfig_WithDefaults(t *testing.T) {
	got := RemoteConfig{Host: "h"}.withDefaults()
	if got.Port != defaultSSHPort || got.CommandTimeout != defaultCommandTimeout || got.ReconnectInterval != defaultReconnectInterval {
		t.Errorf("withDefaults() = %+v", got)
	}

	custom := RemoteConfig{Port: 2222, CommandTimeout: time.Second, ReconnectInterval: time.Minute}.withDefaults()
	if custom.Port != 2222 || custom.CommandTimeout != time.Second || custom.ReconnectInterval != time.Minute {
		t.Errorf("withDefaults() overrode set values: %+v", custom)
	}
}

func TestSSHPlatform_Name(t *testing.T) {
	for targetOS, want := range map[string]string{"linux": "remote-linux", "darwin": "remote-darwin", "": "remote"} {
		p := &sshPlatform{targetOS: targetOS}
		if got := p.Name(); got != want {
			t.Errorf("Name() with targetOS %q = %q, want %q", targetOS, got, want)
		}
	}
}

func TestSSHPlatform_NotConnected(t *testing.T) {
	p, err := newSSHPlatform(RemoteConfig{Host: "db.example", User: "ops", AuthMethod: AgentAuth{}}, applyOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.runCommand("uname -s"); !errors.Is(err, errNotConnected) {
		t.Errorf("runCommand() before Initialize error = %v, want errNotConnected", err)
	}
	if p.CPU() != nil || p.Memory() != nil {
		t.Error("providers exist before Initialize")
	}
	if p.Clock() == nil {
		t.Error("Clock() is nil before Initialize")
	}
	if got := p.ConnectionStats().State; got != ConnectionStateDisconnected {
		t.Errorf("ConnectionStats().State = %v, want disconnected", got)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() before Initialize error = %v", err)
	}
}

func TestParseUname(t *testing.T) {
	for out, want := range map[string]string{"Linux\n": "linux", "Darwin\r\n": "darwin", " FreeBSD ": "freebsd"} {
		if got := parseUname(out); got != want {
			t.Errorf("parseUname(%q) = %q, want %q", out, got, want)
		}
	}
}

func TestRemoteProviders(t *testing.T) {
	mock := newMockSSHPlatform()
	for _, goos := range []string{"linux", "darwin"} {
		cpu, mem, err := remoteProviders(goos, mock, discardLogger)
		if err != nil || cpu == nil || mem == nil {
			t.Errorf("remoteProviders(%q) = %v, %v, %v", goos, cpu, mem, err)
		}
	}
	for _, goos := range []string{"windows", "freebsd", ""} {
		if _, _, err := remoteProviders(goos, mock, discardLogger); !errors.Is(err, ErrUnsupported) {
			t.Errorf("remoteProviders(%q) error = %v, want ErrUnsupported", goos, err)
		}
	}
}

func TestRemoteConfig_HostKeyCallback(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(knownHosts, []byte(knownhosts.Line([]string{"db.example"}, sshPub)+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		config  RemoteConfig
		wantErr string
	}{
		{"explicit callback", RemoteConfig{HostKeyCallback: ssh.FixedHostKey(sshPub)}, ""},
		{"insecure", RemoteConfig{InsecureIgnoreHostKey: true}, ""},
		{"known_hosts file", RemoteConfig{KnownHostsPath: knownHosts}, ""},
		{"missing known_hosts", RemoteConfig{KnownHostsPath: filepath.Join(t.TempDir(), "none")}, "known_hosts file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, err := tt.config.hostKeyCallback(discardLogger)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("hostKeyCallback() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || cb == nil {
				t.Fatalf("hostKeyCallback() = %v, %v", cb, err)
			}
		})
	}
}

func writeTestKey(t *testing.T, passphrase string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestKeyAuth(t *testing.T) {
	plain := writeTestKey(t, "")
	encrypted := writeTestKey(t, "hunter2")

	tests := []struct {
		name    string
		auth    KeyAuth
		wantErr bool
	}{
		{"plain key", KeyAuth{PrivateKeyPath: plain}, false},
		{"encrypted key", KeyAuth{PrivateKeyPath: encrypted, Passphrase: "hunter2"}, false},
		{"wrong passphrase", KeyAuth{PrivateKeyPath: encrypted, Passphrase: "nope"}, true},
		{"encrypted without passphrase", KeyAuth{PrivateKeyPath: encrypted}, true},
		{"missing file", KeyAuth{PrivateKeyPath: filepath.Join(t.TempDir(), "missing")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.auth.sshAuth()
			if (err != nil) != tt.wantErr {
				t.Fatalf("sshAuth() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && m == nil {
				t.Error("sshAuth() returned a nil method")
			}
		})
	}
}

func TestAgentAuth_NoSocket(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	if _, err := (AgentAuth{}).sshAuth(); err == nil {
		t.Error("sshAuth() succeeded without SSH_AUTH_SOCK")
	}
}

func initTestPlatform(t *testing.T, cfg RemoteConfig) *sshPlatform {
	t.Helper()
	p, err := newSSHPlatform(cfg, applyOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Initialize(testContext(t)); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSSHPlatform_InitializeLinux(t *testing.T) {
	srv := startTestSSHServer(t, linuxOutputs())
	p := initTestPlatform(t, srv.config())

	if got := p.Name(); got != "remote-linux" {
		t.Errorf("Name() = %q, want remote-linux", got)
	}
	cpu := p.CPU()
	if got := cpu.LogicalCount(); got != 4 {
		t.Errorf("LogicalCount() = %d, want 4", got)
	}
	if got := cpu.PhysicalCount(); got != 4 {
		t.Errorf("PhysicalCount() = %d, want 4", got)
	}
	if got := cpu.PerformanceCount(); got != 4 {
		t.Errorf("PerformanceCount() = %d, want physical 4", got)
	}
	if brand, err := cpu.BrandName(); err != nil || !strings.HasPrefix(brand, "Intel(R) Core(TM)") {
		t.Errorf("BrandName() = %q, %v", brand, err)
	}
	if got, want := p.Memory().TotalBytes(), int64(16384000*1024); got != want {
		t.Errorf("TotalBytes() = %d, want %d", got, want)
	}

	stats := p.ConnectionStats()
	if stats.State != ConnectionStateConnected {
		t.Errorf("State = %v, want connected", stats.State)
	}
	if stats.Dials != 1 || stats.SessionsCreated == 0 {
		t.Errorf("stats = %+v, want one dial and some sessions", stats)
	}
}

func TestSSHPlatform_ConfiguredTargetSkipsDetection(t *testing.T) {
	srv := startTestSSHServer(t, map[string]string{
		shellCommand("sysctl -n", "hw.logicalcpu"): "10\n",
	})
	cfg := srv.config()
	cfg.TargetOS = "darwin"
	p := initTestPlatform(t, cfg)

	if got := p.CPU().LogicalCount(); got != 10 {
		t.Errorf("LogicalCount() = %d, want 10", got)
	}
	for _, cmd := range srv.ran() {
		if cmd == "uname -s" {
			t.Error("uname ran although TargetOS was set")
		}
	}
}

func TestSSHPlatform_UnsupportedRemoteOS(t *testing.T) {
	srv := startTestSSHServer(t, map[string]string{"uname -s": "FreeBSD\n"})
	p, err := newSSHPlatform(srv.config(), applyOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Initialize(testContext(t)); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Initialize() error = %v, want ErrUnsupported", err)
	}
	if p.connection() != nil {
		t.Error("connection kept after failed Initialize")
	}
}

func TestSSHPlatform_WrongPassword(t *testing.T) {
	srv := startTestSSHServer(t, linuxOutputs())
	cfg := srv.config()
	cfg.AuthMethod = PasswordAuth{Password: "wrong"}

	p, err := newSSHPlatform(cfg, applyOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Initialize(testContext(t)); err == nil {
		p.Close()
		t.Fatal("Initialize() succeeded with a wrong password")
	}
}

func TestSSHPlatform_CommandFailures(t *testing.T) {
	srv := startTestSSHServer(t, linuxOutputs())
	cfg := srv.config()
	cfg.CommandTimeout = 200 * time.Millisecond
	p := initTestPlatform(t, cfg)

	_, err := p.runCommand("nonexistent")
	if err == nil || !strings.Contains(err.Error(), "exited 127") {
		t.Errorf("unknown command error = %v, want exit status 127", err)
	}

	start := time.Now()
	_, err = p.runCommand(hangCommand)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("hanging command error = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}

	if out, err := p.runCommand("uname -s"); err != nil || out != "Linux\n" {
		t.Errorf("runCommand() after failures = %q, %v", out, err)
	}
}

func TestSSHPlatform_RedialsDroppedTransport(t *testing.T) {
	srv := startTestSSHServer(t, linuxOutputs())
	p := initTestPlatform(t, srv.config())

	srv.dropConnections()

	out, err := p.runCommand("uname -s")
	if err != nil || out != "Linux\n" {
		t.Fatalf("runCommand() after drop = %q, %v", out, err)
	}
	stats := p.ConnectionStats()
	if stats.Dials != 2 {
		t.Errorf("Dials = %d, want 2", stats.Dials)
	}
	if stats.State != ConnectionStateConnected {
		t.Errorf("State = %v, want connected", stats.State)
	}
	if got := p.Memory().TotalBytes(); got != 16384000*1024 {
		t.Errorf("TotalBytes() after redial = %d", got)
	}
}

func TestSSHPlatform_CloseEndsCommands(t *testing.T) {
	srv := startTestSSHServer(t, linuxOutputs())
	p, err := newSSHPlatform(srv.config(), applyOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := p.runCommand("uname -s"); !errors.Is(err, errNotConnected) {
		t.Errorf("runCommand() after Close error = %v, want errNotConnected", err)
	}
	if got := p.CPU().LogicalCount(); got != Unknown {
		t.Errorf("LogicalCount() after Close = %d, want Unknown", got)
	}
}

func TestSSHPlatform_InitializeContextBoundsLifetime(t *testing.T) {
	srv := startTestSSHServer(t, linuxOutputs())
	p, err := newSSHPlatform(srv.config(), applyOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	cancel()
	if _, err := p.runCommand("uname -s"); err == nil {
		t.Error("runCommand() succeeded after the Initialize context was cancelled")
	}
}
