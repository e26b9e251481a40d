// Package main provides the hostinfo command, which prints the CPU topology,
// CPU brand, and RAM of the local machine or of a remote host over SSH.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/opd-ai/hostinfo/internal/config"
	"github.com/opd-ai/hostinfo/internal/dirs"
	"github.com/opd-ai/hostinfo/internal/profiling"
	"github.com/opd-ai/hostinfo/pkg/hostinfo"
)

// Version is the current version of hostinfo.
// This default value can be overridden at build time using:
//
//	go build -ldflags "-X main.Version=x.y.z"
var Version = "0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// flags holds the parsed command line. Only flags the user set override
// the configuration.
type flags struct {
	set *pflag.FlagSet

	configPath string
	format     string
	noCache    bool
	refresh    bool
	remote     string
	keyPath    string
	agent      bool
	knownHosts string
	insecure   bool
	showDirs   bool
	appName    string
	shared     bool
	logLevel   string
	cpuProfile string
	memProfile string
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{set: pflag.NewFlagSet("hostinfo", pflag.ContinueOnError)}
	fs := f.set
	fs.SetOutput(stderr)
	fs.StringVarP(&f.configPath, "config", "c", "", "configuration file (.lua, .toml, .json or .jsonc)")
	fs.StringVarP(&f.format, "format", "f", "", "output format: text, json or yaml (default: text on a terminal, json otherwise)")
	fs.BoolVar(&f.noCache, "no-cache", false, "query the host without reading or writing the cache")
	fs.BoolVar(&f.refresh, "refresh", false, "query the host and rewrite the cache")
	fs.StringVarP(&f.remote, "remote", "r", "", "inspect a remote host over SSH: [user@]host[:port]")
	fs.StringVarP(&f.keyPath, "key", "i", "", "SSH private key for --remote")
	fs.BoolVar(&f.agent, "agent", false, "authenticate --remote through the SSH agent")
	fs.StringVar(&f.knownHosts, "known-hosts", "", "known_hosts file for --remote (default: ~/.ssh/known_hosts)")
	fs.BoolVar(&f.insecure, "insecure", false, "skip host key verification for --remote")
	fs.BoolVar(&f.showDirs, "dirs", false, "print the data and resources directories and exit")
	fs.StringVar(&f.appName, "app", "", "application name for the data directory")
	fs.BoolVar(&f.shared, "shared", false, "use the machine-wide data directory")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	fs.StringVar(&f.memProfile, "memprofile", "", "write memory profile to file")
	fs.BoolVarP(&f.version, "version", "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return f, nil
}

// apply overlays the flags the user set on cfg.
func (f *flags) apply(cfg *config.Config) error {
	changed := f.set.Changed
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("no-cache") {
		cfg.Cache.Enabled = !f.noCache
	}
	if changed("app") {
		cfg.AppName = f.appName
	}
	if changed("shared") {
		cfg.SharedData = f.shared
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	r := &cfg.Remote
	if changed("remote") {
		user, host, port, err := config.ParseTarget(f.remote)
		if err != nil {
			return fmt.Errorf("--remote: %w", err)
		}
		r.Host = host
		if user != "" {
			r.User = user
		}
		if port != 0 {
			r.Port = port
		}
	}
	if changed("key") {
		r.KeyPath = f.keyPath
	}
	if changed("agent") {
		r.Agent = f.agent
	}
	if changed("known-hosts") {
		r.KnownHosts = f.knownHosts
	}
	if changed("insecure") {
		r.InsecureIgnoreHostKey = f.insecure
	}

	if r.Enabled() {
		if r.User == "" {
			r.User = currentUser()
		}
		if r.KeyPath == "" && r.Password == "" && !r.Agent && os.Getenv("SSH_AUTH_SOCK") != "" {
			r.Agent = true
		}
	}
	return cfg.Validate()
}

func currentUser() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERNAME")
	}
	return os.Getenv("USER")
}

func run(args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if f.version {
		fmt.Fprintf(stdout, "hostinfo version %s\n", Version)
		return 0
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	logger := newLogger(cfg.LogLevel, stderr)

	if f.showDirs {
		if err := printDirs(stdout, cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	profConfig := profiling.Config{
		CPUProfilePath: f.cpuProfile,
		MemProfilePath: f.memProfile,
	}
	if profConfig.ProfilingEnabled() {
		profiler := profiling.New(profConfig)
		if err := profiler.Start(); err != nil {
			fmt.Fprintf(stderr, "Failed to start profiling: %v\n", err)
			return 1
		}
		defer func() {
			if err := profiler.Stop(); err != nil {
				fmt.Fprintf(stderr, "Warning: failed to stop profiling: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := collect(ctx, cfg, f.refresh, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := writeReport(stdout, resolveFormat(cfg.Output.Format, stdout), report); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(f *flags) (config.Config, error) {
	var cfg config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return config.Config{}, err
	}
	if err := f.apply(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// newLogger writes text to a terminal and JSON otherwise.
func newLogger(level string, stderr io.Writer) hostinfo.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if isTerminal(stderr) {
		return hostinfo.LevelLogger(stderr, lvl)
	}
	return hostinfo.JSONLogger(stderr, lvl)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func resolveFormat(format string, stdout io.Writer) string {
	if format != config.FormatAuto {
		return format
	}
	if isTerminal(stdout) {
		return config.FormatText
	}
	return config.FormatJSON
}

func openHost(ctx context.Context, cfg config.Config, logger hostinfo.Logger) (*hostinfo.Host, error) {
	opts := &hostinfo.Options{Logger: logger}
	if !cfg.Remote.Enabled() {
		return hostinfo.New(opts)
	}
	return hostinfo.NewRemote(ctx, remoteConfig(cfg.Remote), opts)
}

func remoteConfig(r config.RemoteConfig) hostinfo.RemoteConfig {
	var auth hostinfo.AuthMethod
	switch {
	case r.KeyPath != "":
		auth = hostinfo.KeyAuth{PrivateKeyPath: r.KeyPath, Passphrase: r.Passphrase}
	case r.Password != "":
		auth = hostinfo.PasswordAuth{Password: r.Password}
	default:
		auth = hostinfo.AgentAuth{}
	}
	return hostinfo.RemoteConfig{
		Host:                  r.Host,
		Port:                  r.Port,
		User:                  r.User,
		AuthMethod:            auth,
		KnownHostsPath:        r.KnownHosts,
		InsecureIgnoreHostKey: r.InsecureIgnoreHostKey,
		TargetOS:              r.TargetOS,
		CommandTimeout:        r.CommandTimeout.Std(),
	}
}

// collect queries the host, through the cache when it is enabled.
func collect(ctx context.Context, cfg config.Config, refresh bool, logger hostinfo.Logger) (hostinfo.Report, error) {
	host, err := openHost(ctx, cfg, logger)
	if err != nil {
		return hostinfo.Report{}, err
	}
	defer host.Close()

	defer func() {
		if stats, ok := host.ConnectionStats(); ok {
			logger.Debug("ssh connection", "state", stats.State.String(), "sessions", stats.SessionsCreated)
		}
	}()

	if !cfg.Cache.Enabled {
		return host.Report(ctx)
	}

	cache, err := hostinfo.NewCache(host, hostinfo.CacheOptions{
		TTL:     cfg.Cache.TTL.Std(),
		FileTTL: cfg.Cache.FileTTL.Std(),
		Path:    cachePath(cfg, host, logger),
		Watch:   cfg.Cache.Watch,
	})
	if err != nil {
		return hostinfo.Report{}, err
	}
	defer cache.Close()
	defer func() {
		m := cache.Metrics().Snapshot()
		logger.Debug("cache", "memory_hits", m.MemoryHits, "file_hits", m.FileHits,
			"queries", m.Queries, "file_writes", m.FileWrites, "errors", m.ErrorsTotal)
	}()

	if refresh {
		if _, err := cache.Refresh(ctx); err != nil {
			return hostinfo.Report{}, err
		}
	}
	return cache.Report(ctx)
}

// cachePath returns the configured cache file, or one below the
// application data directory. Remote hosts get a file per address. An
// unusable data directory disables persistence.
func cachePath(cfg config.Config, host *hostinfo.Host, logger hostinfo.Logger) string {
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path
	}
	path, err := hostinfo.DefaultCachePath(cfg.AppName, cfg.SharedData)
	if err != nil {
		logger.Warn("cache file disabled", "error", err)
		return ""
	}
	if cfg.Remote.Enabled() {
		path = filepath.Join(filepath.Dir(path), remoteCacheName(host.Hostname()))
	}
	return path
}

// remoteCacheName is the cache file name for a remote host. Characters that
// are not portable in file names, such as the colons of IPv6 literals,
// become '_'.
func remoteCacheName(host string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, host)
	return "remote-" + safe + ".cbor"
}

func printDirs(w io.Writer, cfg config.Config) error {
	data, err := dirs.DataDir(cfg.SharedData)
	if err != nil {
		return err
	}
	app, err := dirs.AppDataDir(cfg.AppName, cfg.SharedData)
	if err != nil {
		return err
	}
	resources, err := dirs.ResourcesDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Data:      %s\n", data)
	fmt.Fprintf(w, "App data:  %s\n", app)
	fmt.Fprintf(w, "Resources: %s\n", resources)
	return nil
}
