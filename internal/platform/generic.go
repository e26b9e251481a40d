//go:build !linux && !darwin && !windows

package platform

import (
	"log/slog"
	"runtime"
)

func newLocalPlatform(o options) Platform {
	return newHostPlatform(runtime.GOOS, func() (CPUProvider, MemoryProvider) {
		return &genericCPUProvider{log: o.logger}, genericMemoryProvider{}
	})
}

// genericCPUProvider covers hosts without a native topology source. Only the
// logical count is derived, from the runtime's view of usable CPUs.
type genericCPUProvider struct {
	log *slog.Logger
}

func (c *genericCPUProvider) LogicalCount() int {
	return firstCount(c.log, "logical",
		countStrategy{name: "runtime", count: func() (int, error) { return runtime.NumCPU(), nil }},
	)
}

func (c *genericCPUProvider) PhysicalCount() int {
	return Unknown
}

func (c *genericCPUProvider) PerformanceCount() int {
	return Unknown
}

func (c *genericCPUProvider) BrandName() (string, error) {
	return localBrand(func() (string, error) { return "", ErrUnavailable })
}

type genericMemoryProvider struct{}

func (genericMemoryProvider) TotalBytes() int64 { return UnknownBytes }
func (genericMemoryProvider) FreeBytes() int64  { return UnknownBytes }
