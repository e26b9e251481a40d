package hostinfo

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/opd-ai/hostinfo/internal/platform"
)

// RemoteConfig specifies connection parameters for a remote host.
type RemoteConfig = platform.RemoteConfig

// Authentication methods for RemoteConfig.AuthMethod.
type (
	AuthMethod   = platform.AuthMethod
	PasswordAuth = platform.PasswordAuth
	KeyAuth      = platform.KeyAuth
	AgentAuth    = platform.AgentAuth
)

// ConnectionStats describes the SSH connection of a remote Host.
type ConnectionStats = platform.ConnectionStats

// Host answers introspection queries for one machine. It is safe for
// concurrent use.
type Host struct {
	platform platform.Platform
	log      Logger
	hostname string
	goos     string
	arch     string
	local    bool

	closeOnce sync.Once
	closeErr  error
}

// New returns a Host for the machine the process runs on.
func New(opts *Options) (*Host, error) {
	p, err := platform.NewPlatform(opts.platformOptions()...)
	if err != nil {
		return nil, wrap(err, ErrorCategoryUnavailable)
	}

	hostname, err := os.Hostname()
	if err != nil {
		opts.logger().Debug("hostname unavailable", "error", err)
	}
	h := &Host{
		platform: p,
		log:      opts.logger(),
		hostname: hostname,
		goos:     runtime.GOOS,
		arch:     runtime.GOARCH,
		local:    opts == nil || opts.Root == "", // a captured tree is another machine
	}
	if err := h.initialize(context.Background()); err != nil {
		return nil, wrap(err, ErrorCategoryEnvironment)
	}
	return h, nil
}

// NewRemote connects to a remote host over SSH and returns a Host that
// queries it. The remote operating system is detected unless
// cfg.TargetOS is set. Now still reads the local clock. Cancelling ctx
// tears down the connection; Close does the same.
func NewRemote(ctx context.Context, cfg RemoteConfig, opts *Options) (*Host, error) {
	p, err := platform.NewRemotePlatform(cfg, opts.platformOptions()...)
	if err != nil {
		return nil, wrap(err, ErrorCategoryConfig)
	}

	h := &Host{
		platform: p,
		log:      opts.logger(),
		hostname: cfg.Host,
	}
	if err := h.initialize(ctx); err != nil {
		p.Close()
		category := categorize(err)
		if category == ErrorCategoryUnknown {
			category = ErrorCategoryRemote
		}
		return nil, NewCategorizedError(err, category).WithContext("host", cfg.Host)
	}
	h.goos = strings.TrimPrefix(p.Name(), "remote-")
	return h, nil
}

func (h *Host) initialize(ctx context.Context) error {
	if err := h.platform.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing %s platform: %w", h.platform.Name(), err)
	}
	h.log.Debug("platform initialized", "platform", h.platform.Name())
	return nil
}

// Name returns the platform identifier, such as "linux" or "remote-darwin".
func (h *Host) Name() string {
	return h.platform.Name()
}

// Hostname returns the local hostname, or the address of a remote host.
func (h *Host) Hostname() string {
	return h.hostname
}

// Now returns monotonic seconds since an unspecified epoch. Readings are
// only comparable within one process.
func (h *Host) Now() float64 {
	return h.platform.Clock().Now()
}

// LogicalCoreCount returns the number of online logical processors, or Unknown.
func (h *Host) LogicalCoreCount() int {
	return h.platform.CPU().LogicalCount()
}

// PhysicalCoreCount returns the number of physical cores, or Unknown.
func (h *Host) PhysicalCoreCount() int {
	return h.platform.CPU().PhysicalCount()
}

// PerformanceCoreCount returns the number of high-performance cores. It
// equals PhysicalCoreCount on hosts that cannot classify their cores.
func (h *Host) PerformanceCoreCount() int {
	return h.platform.CPU().PerformanceCount()
}

// TotalRAMBytes returns installed physical RAM in bytes, or UnknownBytes.
func (h *Host) TotalRAMBytes() int64 {
	return h.platform.Memory().TotalBytes()
}

// FreeRAMBytes returns immediately available physical RAM in bytes, or
// UnknownBytes.
func (h *Host) FreeRAMBytes() int64 {
	return h.platform.Memory().FreeBytes()
}

// CPUBrandName returns the trimmed CPU brand string. The error matches
// ErrUnavailable when no source could provide it.
func (h *Host) CPUBrandName() (string, error) {
	name, err := h.platform.CPU().BrandName()
	if err != nil {
		return "", wrap(err, ErrorCategoryUnavailable)
	}
	return name, nil
}

// ConnectionStats reports the SSH connection state of a remote Host. The
// second result is false for local hosts.
func (h *Host) ConnectionStats() (ConnectionStats, bool) {
	r, ok := h.platform.(interface{ ConnectionStats() ConnectionStats })
	if !ok {
		return ConnectionStats{}, false
	}
	return r.ConnectionStats(), true
}

// Close releases the platform. Further queries on a closed remote Host
// report Unknown values.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.platform.Close()
	})
	return h.closeErr
}

var (
	processClock = platform.NewClock()
	defaultHost  = sync.OnceValues(func() (*Host, error) {
		return New(nil)
	})
)

// Now returns monotonic seconds since an unspecified epoch. The process
// aborts if the monotonic clock is missing.
func Now() float64 {
	return processClock.Now()
}

// LogicalCoreCount returns the number of online logical processors of the
// local host, or Unknown.
func LogicalCoreCount() int {
	h, err := defaultHost()
	if err != nil {
		return Unknown
	}
	return h.LogicalCoreCount()
}

// PhysicalCoreCount returns the number of physical cores of the local
// host, or Unknown.
func PhysicalCoreCount() int {
	h, err := defaultHost()
	if err != nil {
		return Unknown
	}
	return h.PhysicalCoreCount()
}

// PerformanceCoreCount returns the number of high-performance cores of the
// local host, falling back to the physical count.
func PerformanceCoreCount() int {
	h, err := defaultHost()
	if err != nil {
		return Unknown
	}
	return h.PerformanceCoreCount()
}

// TotalRAMBytes returns the local host's physical RAM in bytes, or UnknownBytes.
func TotalRAMBytes() int64 {
	h, err := defaultHost()
	if err != nil {
		return UnknownBytes
	}
	return h.TotalRAMBytes()
}

// FreeRAMBytes returns the local host's available RAM in bytes, or UnknownBytes.
func FreeRAMBytes() int64 {
	h, err := defaultHost()
	if err != nil {
		return UnknownBytes
	}
	return h.FreeRAMBytes()
}

// CPUBrandName returns the local CPU brand string.
func CPUBrandName() (string, error) {
	h, err := defaultHost()
	if err != nil {
		return "", err
	}
	return h.CPUBrandName()
}
