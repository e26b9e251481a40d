package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// envVarPattern matches environment variable references in configuration values.
// Supports formats:
//   - ${VAR_NAME} - standard shell-like format
//   - ${VAR_NAME:-default} - with default value if unset or empty
//   - $VAR_NAME - simple format (word characters only)
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// ExpandEnv expands environment variable references in a string.
// Unknown or unset variables without defaults are replaced with empty string.
func ExpandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") && strings.HasSuffix(match, "}") {
			inner := match[2 : len(match)-1]

			if name, def, ok := strings.Cut(inner, ":-"); ok {
				if val := os.Getenv(name); val != "" {
					return val
				}
				return def
			}
			return os.Getenv(inner)
		}

		if strings.HasPrefix(match, "$") {
			return os.Getenv(match[1:])
		}
		return match
	})
}

// ExpandEnvConfig expands environment variables in the string values that
// name paths, hosts or credentials.
func ExpandEnvConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	for _, s := range []*string{
		&cfg.AppName,
		&cfg.Cache.Path,
		&cfg.Remote.Host,
		&cfg.Remote.User,
		&cfg.Remote.KeyPath,
		&cfg.Remote.Passphrase,
		&cfg.Remote.Password,
		&cfg.Remote.KnownHosts,
	} {
		*s = ExpandEnv(*s)
	}
}

// Environment variables that override configuration values.
const (
	EnvAppName     = "HOSTINFO_APP"
	EnvLogLevel    = "HOSTINFO_LOG_LEVEL"
	EnvFormat      = "HOSTINFO_FORMAT"
	EnvCache       = "HOSTINFO_CACHE"
	EnvCachePath   = "HOSTINFO_CACHE_PATH"
	EnvCacheTTL    = "HOSTINFO_CACHE_TTL"
	EnvRemote      = "HOSTINFO_REMOTE"
	EnvSSHKey      = "HOSTINFO_SSH_KEY"
	EnvSSHPassword = "HOSTINFO_SSH_PASSWORD"
)

// ApplyEnvOverrides applies HOSTINFO_* variables on top of cfg. Environment
// values take precedence over file values. lookup is os.LookupEnv outside
// of tests.
func ApplyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvAppName); ok {
		cfg.AppName = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := get(EnvFormat); ok {
		cfg.Output.Format = strings.ToLower(v)
	}
	if v, ok := get(EnvCache); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCache, err)
		}
		cfg.Cache.Enabled = enabled
	}
	if v, ok := get(EnvCachePath); ok {
		cfg.Cache.Path = v
	}
	if v, ok := get(EnvCacheTTL); ok {
		ttl, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		cfg.Cache.TTL = ttl
	}
	if v, ok := get(EnvRemote); ok {
		user, host, port, err := ParseTarget(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRemote, err)
		}
		cfg.Remote.Host = host
		if user != "" {
			cfg.Remote.User = user
		}
		if port != 0 {
			cfg.Remote.Port = port
		}
	}
	if v, ok := get(EnvSSHKey); ok {
		cfg.Remote.KeyPath = v
	}
	if v, ok := get(EnvSSHPassword); ok {
		cfg.Remote.Password = v
	}
	return nil
}

// ParseTarget splits an SSH target of the form [user@]host[:port]. IPv6
// hosts with a port are written in brackets. A missing user or port is
// returned as "" or 0.
func ParseTarget(target string) (user, host string, port int, err error) {
	if target == "" {
		return "", "", 0, fmt.Errorf("empty target")
	}
	if i := strings.LastIndex(target, "@"); i >= 0 {
		user, target = target[:i], target[i+1:]
		if user == "" {
			return "", "", 0, fmt.Errorf("empty user in target")
		}
	}

	host = target
	if h, p, splitErr := net.SplitHostPort(target); splitErr == nil {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid port %q", p)
		}
		host = h
	} else if strings.Count(target, ":") == 1 {
		return "", "", 0, fmt.Errorf("invalid target %q: %w", target, splitErr)
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		return "", "", 0, fmt.Errorf("empty host in target")
	}
	return user, host, port, nil
}
