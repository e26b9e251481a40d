// Package config defines the hostinfo configuration and loads it from Lua,
// TOML or JSON files with environment variable expansion and HOSTINFO_*
// overrides.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete hostinfo configuration.
type Config struct {
	// AppName names the application data directory holding the cache file.
	AppName string `toml:"app_name" json:"app_name"`
	// SharedData selects the machine-wide data directory instead of the
	// current user's.
	SharedData bool `toml:"shared_data" json:"shared_data"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level" json:"log_level"`
	// Output controls how reports are printed.
	Output OutputConfig `toml:"output" json:"output"`
	// Cache controls memoization of static host values.
	Cache CacheConfig `toml:"cache" json:"cache"`
	// Remote selects an SSH target instead of the local host.
	Remote RemoteConfig `toml:"remote" json:"remote"`
}

// Output formats.
const (
	FormatAuto = ""
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// OutputConfig holds report output settings.
type OutputConfig struct {
	// Format is text, json or yaml. Empty picks text on a terminal and
	// JSON otherwise.
	Format string `toml:"format" json:"format"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	// Enabled turns the cache on.
	Enabled bool `toml:"enabled" json:"enabled"`
	// TTL bounds how long values stay in memory.
	TTL Duration `toml:"ttl" json:"ttl"`
	// FileTTL bounds how long a cache file from an earlier run is trusted.
	FileTTL Duration `toml:"file_ttl" json:"file_ttl"`
	// Path overrides the cache file location. Empty uses the application
	// data directory.
	Path string `toml:"path" json:"path"`
	// Watch drops the in-memory entry when the file changes.
	Watch bool `toml:"watch" json:"watch"`
}

// RemoteConfig holds SSH target settings. An empty Host means local.
type RemoteConfig struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`
	User string `toml:"user" json:"user"`

	// KeyPath is a private key file. Passphrase decrypts it if needed.
	KeyPath    string `toml:"key_path" json:"key_path"`
	Passphrase string `toml:"passphrase" json:"passphrase"`
	// Password authenticates with a password when no key is given.
	Password string `toml:"password" json:"password"`
	// Agent authenticates through SSH_AUTH_SOCK.
	Agent bool `toml:"agent" json:"agent"`

	// KnownHosts is the known_hosts file (default ~/.ssh/known_hosts).
	KnownHosts string `toml:"known_hosts" json:"known_hosts"`
	// InsecureIgnoreHostKey skips host key verification.
	InsecureIgnoreHostKey bool `toml:"insecure_ignore_host_key" json:"insecure_ignore_host_key"`

	// TargetOS skips remote OS detection when set.
	TargetOS string `toml:"target_os" json:"target_os"`
	// CommandTimeout bounds each remote command.
	CommandTimeout Duration `toml:"command_timeout" json:"command_timeout"`
}

// Enabled reports whether a remote target is configured.
func (r RemoteConfig) Enabled() bool {
	return r.Host != ""
}

// Duration is a time.Duration written as a Go duration string ("90s",
// "10m") in configuration files.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDuration parses a Go duration string. A bare number is seconds.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if v, err := time.ParseDuration(s); err == nil {
		return Duration(v), nil
	}
	if seconds, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(seconds * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}
