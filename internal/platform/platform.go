package platform

import (
	"context"
	"errors"
)

// Unknown is the core count reported when every strategy for a query failed.
// It is distinct from zero so callers never confuse it with a real count.
const Unknown = -1

// UnknownBytes is the RAM size reported when the memory facility failed.
const UnknownBytes int64 = -1

var (
	// ErrUnavailable reports that a value cannot be determined on this host.
	ErrUnavailable = errors.New("value unavailable on this platform")

	// ErrUnsupported reports that no implementation exists for an OS.
	ErrUnsupported = errors.New("unsupported platform")
)

// Platform defines the interface for OS-specific host introspection.
// Each supported operating system implements this interface to provide
// unified access to hardware facts.
type Platform interface {
	// Name returns the platform identifier (e.g., "linux", "windows", "darwin", "remote-linux").
	Name() string

	// Initialize prepares the platform for queries.
	// Returns an error if the platform cannot be initialized.
	Initialize(ctx context.Context) error

	// Close releases any platform-specific resources.
	Close() error

	// Clock returns the monotonic clock for this platform.
	Clock() ClockSource

	// CPU returns the CPU topology and identification provider.
	CPU() CPUProvider

	// Memory returns the physical memory provider.
	Memory() MemoryProvider
}

// ClockSource wraps the platform's monotonic timer.
type ClockSource interface {
	// Now returns seconds since an unspecified epoch. Readings only have
	// meaning as differences within one process.
	Now() float64
}

// CPUProvider reports CPU topology and identification.
type CPUProvider interface {
	// LogicalCount returns the number of online logical processors, or Unknown.
	LogicalCount() int

	// PhysicalCount returns the number of physical cores, or Unknown.
	PhysicalCount() int

	// PerformanceCount returns the number of high-performance cores. Hosts that
	// cannot classify cores report the physical count.
	PerformanceCount() int

	// BrandName returns the trimmed manufacturer brand string.
	// Returns ErrUnavailable if it cannot be determined.
	BrandName() (string, error)
}

// MemoryProvider reports physical memory capacity in bytes.
type MemoryProvider interface {
	// TotalBytes returns installed physical RAM, or UnknownBytes.
	TotalBytes() int64

	// FreeBytes returns RAM the OS considers immediately available, or UnknownBytes.
	FreeBytes() int64
}
