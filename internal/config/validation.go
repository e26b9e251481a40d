package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{FormatAuto, FormatText, FormatJSON, FormatYAML}
	validTargetOS  = []string{"", "linux", "darwin"}
)

// Validate checks cfg and returns every problem joined with errors.Join,
// or nil. Each joined error is a ValidationError.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.AppName == "" {
		add("app_name", "must not be empty")
	} else if strings.ContainsAny(c.AppName, `/\`) || c.AppName == "." || c.AppName == ".." {
		add("app_name", "must be a single path element, got %q", c.AppName)
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		add("log_level", "must be one of %s, got %q", strings.Join(validLogLevels, ", "), c.LogLevel)
	}
	if !slices.Contains(validFormats, c.Output.Format) {
		add("output.format", "must be text, json or yaml, got %q", c.Output.Format)
	}

	if c.Cache.TTL < 0 {
		add("cache.ttl", "must be non-negative, got %s", c.Cache.TTL)
	}
	if c.Cache.FileTTL < 0 {
		add("cache.file_ttl", "must be non-negative, got %s", c.Cache.FileTTL)
	}

	c.validateRemote(add)
	return errors.Join(errs...)
}

func (c *Config) validateRemote(add func(field, format string, args ...any)) {
	r := c.Remote
	if r.Port < 1 || r.Port > 65535 {
		add("remote.port", "must be between 1 and 65535, got %d", r.Port)
	}
	if r.CommandTimeout < 0 {
		add("remote.command_timeout", "must be non-negative, got %s", r.CommandTimeout)
	}
	if !slices.Contains(validTargetOS, r.TargetOS) {
		add("remote.target_os", "must be linux or darwin, got %q", r.TargetOS)
	}
	if !r.Enabled() {
		return
	}
	if r.User == "" {
		add("remote.user", "required when remote.host is set")
	}
	if r.KeyPath == "" && r.Password == "" && !r.Agent {
		add("remote", "one of key_path, password or agent is required")
	}
}
