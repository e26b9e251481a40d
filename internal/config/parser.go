package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
)

// FileFormat identifies a configuration file syntax.
type FileFormat string

// Supported configuration formats.
const (
	ConfigLua  FileFormat = "lua"
	ConfigTOML FileFormat = "toml"
	ConfigJSON FileFormat = "json"
)

// FormatFromPath picks the format from a file extension. .jsonc files are
// JSON with comments and trailing commas.
func FormatFromPath(path string) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		return ConfigLua, nil
	case ".toml":
		return ConfigTOML, nil
	case ".json", ".jsonc":
		return ConfigJSON, nil
	}
	return "", fmt.Errorf("unsupported config file extension %q (want .lua, .toml, .json or .jsonc)", filepath.Ext(path))
}

// Load reads path, expands environment variables, applies HOSTINFO_*
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg, err := ParseFile(path)
	if err != nil {
		return Config{}, err
	}
	return finish(cfg)
}

// LoadDefault returns DefaultConfig with HOSTINFO_* overrides applied, for
// runs without a config file.
func LoadDefault() (Config, error) {
	return finish(DefaultConfig())
}

func finish(cfg Config) (Config, error) {
	ExpandEnvConfig(&cfg)
	if err := ApplyEnvOverrides(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ParseFile reads and parses a configuration file without expansion,
// overrides or validation.
func ParseFile(path string) (Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Config{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(content, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseFromFS reads and parses a configuration file from fsys.
func ParseFromFS(fsys fs.FS, path string) (Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Config{}, err
	}
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config from FS %s: %w", path, err)
	}
	return Parse(content, format)
}

// Parse decodes content on top of DefaultConfig. Unknown keys are errors.
func Parse(content []byte, format FileFormat) (Config, error) {
	switch format {
	case ConfigLua:
		return parseLua(content)
	case ConfigTOML:
		return parseTOML(content)
	case ConfigJSON:
		return parseJSON(content)
	}
	return Config{}, fmt.Errorf("unknown format: %s", format)
}

func parseLua(content []byte) (Config, error) {
	p, err := NewLuaConfigParser()
	if err != nil {
		return Config{}, fmt.Errorf("failed to create Lua parser: %w", err)
	}
	defer p.Close()

	cfg, err := p.Parse(content)
	if err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

func parseTOML(content []byte) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(content), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

func parseJSON(content []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(content)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing JSON: %w", err)
	}
	return cfg, nil
}
