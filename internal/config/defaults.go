package config

import "time"

// Default values for configuration options.
const (
	// DefaultAppName names the application data directory.
	DefaultAppName = "hostinfo"
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
	// DefaultCacheTTL is how long static values stay in memory.
	DefaultCacheTTL = 10 * time.Minute
	// DefaultCacheFileTTL is how long a cache file is trusted.
	DefaultCacheFileTTL = 24 * time.Hour
	// DefaultSSHPort is the default SSH port.
	DefaultSSHPort = 22
	// DefaultCommandTimeout bounds each remote command.
	DefaultCommandTimeout = 5 * time.Second
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		AppName:  DefaultAppName,
		LogLevel: DefaultLogLevel,
		Output: OutputConfig{
			Format: FormatAuto,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration(DefaultCacheTTL),
			FileTTL: Duration(DefaultCacheFileTTL),
		},
		Remote: RemoteConfig{
			Port:           DefaultSSHPort,
			CommandTimeout: Duration(DefaultCommandTimeout),
		},
	}
}
