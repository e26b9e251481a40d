package config

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/arnodel/golua/lib"
	rt "github.com/arnodel/golua/runtime"
)

// luaGlobal is the table a Lua configuration assigns:
//
//	hostinfo = {
//	    log_level = "debug",
//	    cache = { ttl = "5m", watch = true },
//	    remote = { host = "build-01", user = "ops", agent = true },
//	}
const luaGlobal = "hostinfo"

// Hard limits for one configuration script.
const (
	luaCPULimit    = 10_000_000
	luaMemoryLimit = 32 << 20
)

// LuaConfigParser parses Lua configuration scripts. Scripts run with CPU
// and memory hard limits so a runaway config cannot hang the process.
type LuaConfigParser struct {
	runtime *rt.Runtime
	cleanup func()
	mu      sync.Mutex
}

// NewLuaConfigParser returns a parser whose scripts cannot print.
func NewLuaConfigParser() (*LuaConfigParser, error) {
	return NewLuaConfigParserWithOutput(io.Discard)
}

// NewLuaConfigParserWithOutput creates a LuaConfigParser whose print()
// writes to stdout.
func NewLuaConfigParserWithOutput(stdout io.Writer) (*LuaConfigParser, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	r := rt.New(stdout)
	return &LuaConfigParser{runtime: r, cleanup: lib.LoadAll(r)}, nil
}

// Parse executes content and overlays the hostinfo table on DefaultConfig.
// A script that never assigns the table yields the defaults.
func (p *LuaConfigParser) Parse(content []byte) (*Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runtime.GlobalEnv().Set(rt.StringValue(luaGlobal), rt.NilValue)

	closure, err := p.runtime.CompileAndLoadLuaChunk(
		"config",
		content,
		rt.TableValue(p.runtime.GlobalEnv()),
	)
	if err != nil {
		return nil, fmt.Errorf("compiling Lua config: %w", err)
	}

	p.runtime.PushContext(rt.RuntimeContextDef{
		HardLimits: rt.RuntimeResources{Cpu: luaCPULimit, Memory: luaMemoryLimit},
	})
	defer p.runtime.PopContext()

	if _, err := rt.Call1(p.runtime.MainThread(), rt.FunctionValue(closure)); err != nil {
		return nil, fmt.Errorf("running Lua config: %w", err)
	}

	return p.extractConfig()
}

func (p *LuaConfigParser) extractConfig() (*Config, error) {
	cfg := DefaultConfig()

	val := p.runtime.GlobalEnv().Get(rt.StringValue(luaGlobal))
	if val == rt.NilValue {
		return &cfg, nil
	}
	table, ok := val.TryTable()
	if !ok {
		return nil, fmt.Errorf("%s is not a table", luaGlobal)
	}

	setString(table, "app_name", &cfg.AppName)
	setBool(table, "shared_data", &cfg.SharedData)
	setString(table, "log_level", &cfg.LogLevel)

	if output, ok := subTable(table, "output"); ok {
		setString(output, "format", &cfg.Output.Format)
	}

	if cache, ok := subTable(table, "cache"); ok {
		setBool(cache, "enabled", &cfg.Cache.Enabled)
		setBool(cache, "watch", &cfg.Cache.Watch)
		setString(cache, "path", &cfg.Cache.Path)
		if err := setDuration(cache, "ttl", &cfg.Cache.TTL); err != nil {
			return nil, fmt.Errorf("invalid cache.ttl: %w", err)
		}
		if err := setDuration(cache, "file_ttl", &cfg.Cache.FileTTL); err != nil {
			return nil, fmt.Errorf("invalid cache.file_ttl: %w", err)
		}
	}

	if remote, ok := subTable(table, "remote"); ok {
		r := &cfg.Remote
		setString(remote, "host", &r.Host)
		setInt(remote, "port", &r.Port)
		setString(remote, "user", &r.User)
		setString(remote, "key_path", &r.KeyPath)
		setString(remote, "passphrase", &r.Passphrase)
		setString(remote, "password", &r.Password)
		setBool(remote, "agent", &r.Agent)
		setString(remote, "known_hosts", &r.KnownHosts)
		setBool(remote, "insecure_ignore_host_key", &r.InsecureIgnoreHostKey)
		setString(remote, "target_os", &r.TargetOS)
		if err := setDuration(remote, "command_timeout", &r.CommandTimeout); err != nil {
			return nil, fmt.Errorf("invalid remote.command_timeout: %w", err)
		}
	}

	return &cfg, nil
}

// Close releases the Lua runtime. It is safe to call more than once.
func (p *LuaConfigParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cleanup != nil {
		p.cleanup()
		p.cleanup = nil
	}
	return nil
}

func subTable(table *rt.Table, key string) (*rt.Table, bool) {
	return table.Get(rt.StringValue(key)).TryTable()
}

// field returns the value stored under key. Absent keys and keys holding a
// value of the wrong type leave the destination untouched.
func field(table *rt.Table, key string) (rt.Value, bool) {
	v := table.Get(rt.StringValue(key))
	return v, v != rt.NilValue
}

func setString(table *rt.Table, key string, dst *string) {
	if v, ok := field(table, key); ok {
		if s, ok := v.TryString(); ok {
			*dst = s
		}
	}
}

func setBool(table *rt.Table, key string, dst *bool) {
	if v, ok := field(table, key); ok {
		if b, ok := v.TryBool(); ok {
			*dst = b
		}
	}
}

// setInt truncates fractional numbers.
func setInt(table *rt.Table, key string, dst *int) {
	v, ok := field(table, key)
	if !ok {
		return
	}
	if n, ok := v.TryInt(); ok {
		*dst = int(n)
	} else if f, ok := v.TryFloat(); ok {
		*dst = int(f)
	}
}

// setDuration accepts a duration string or a number of seconds.
func setDuration(table *rt.Table, key string, dst *Duration) error {
	v, ok := field(table, key)
	if !ok {
		return nil
	}
	if s, ok := v.TryString(); ok {
		d, err := ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
	if n, ok := v.TryInt(); ok {
		*dst = Duration(time.Duration(n) * time.Second)
	} else if f, ok := v.TryFloat(); ok {
		*dst = Duration(f * float64(time.Second))
	}
	return nil
}
