package hostinfo

import "github.com/opd-ai/hostinfo/internal/platform"

// Options configures a Host.
type Options struct {
	// Logger receives strategy fall-through (Debug) and connection
	// diagnostics. Nil uses slog.Default().
	Logger Logger

	// Root reads /proc and /sys below this directory instead of "/". Only
	// meaningful on Linux; CPUID and sysinfo(2) are skipped when set.
	Root string
}

func (o *Options) logger() Logger {
	if o == nil || o.Logger == nil {
		return NewSlogAdapter(nil)
	}
	return o.Logger
}

func (o *Options) platformOptions() []platform.Option {
	opts := []platform.Option{platform.WithLogger(toSlog(o.logger()))}
	if o != nil && o.Root != "" {
		opts = append(opts, platform.WithRoot(o.Root))
	}
	return opts
}
