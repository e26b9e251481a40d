package platform

import "log/slog"

// Option configures a platform created by NewPlatform or NewRemotePlatform.
type Option func(*options)

type options struct {
	logger *slog.Logger
	root   string
}

// WithLogger sets the logger used for strategy fall-through and connection
// diagnostics. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRoot reads kernel tables (/proc, /sys) below root instead of "/".
// It is used against captured or synthetic trees.
func WithRoot(root string) Option {
	return func(o *options) {
		o.root = root
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
