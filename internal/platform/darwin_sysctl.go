package platform

import (
	"fmt"
	"log/slog"
)

// sysctlReader reads named sysctl values. It is satisfied by the local
// kernel interface and by "sysctl -n" over SSH.
type sysctlReader interface {
	Uint32(name string) (uint32, error)
	Uint64(name string) (uint64, error)
	String(name string) (string, error)
}

// sysctlCPUProvider resolves macOS topology from sysctl names.
type sysctlCPUProvider struct {
	sys   sysctlReader
	log   *slog.Logger
	brand func(table func() (string, error)) (string, error)
}

func (c *sysctlCPUProvider) named(name string) countStrategy {
	return countStrategy{name: name, count: func() (int, error) {
		v, err := c.sys.Uint32(name)
		if err != nil {
			return 0, err
		}
		return int(int32(v)), nil
	}}
}

func (c *sysctlCPUProvider) LogicalCount() int {
	return firstCount(c.log, "logical",
		c.named("hw.logicalcpu"),
		c.named("machdep.cpu.thread_count"),
		c.named("hw.activecpu"),
	)
}

func (c *sysctlCPUProvider) PhysicalCount() int {
	return firstCount(c.log, "physical",
		c.named("hw.physicalcpu"),
		c.named("machdep.cpu.core_count"),
	)
}

// PerformanceCount reads perflevel0, the highest-performance tier on Apple
// silicon. Intel Macs have no perflevels and report the physical count.
func (c *sysctlCPUProvider) PerformanceCount() int {
	return performanceOrPhysical(c.log, c.PhysicalCount,
		c.named("hw.perflevel0.physicalcpu"),
	)
}

func (c *sysctlCPUProvider) BrandName() (string, error) {
	return c.brand(c.tableBrand)
}

func (c *sysctlCPUProvider) tableBrand() (string, error) {
	s, err := c.sys.String("machdep.cpu.brand_string")
	if err != nil {
		return "", fmt.Errorf("%w: machdep.cpu.brand_string: %v", ErrUnavailable, err)
	}
	return boundedBrand(s)
}

// sysctlMemoryProvider reads hw.memsize for the total and delegates free
// memory, which macOS only exposes through VM statistics.
type sysctlMemoryProvider struct {
	sys  sysctlReader
	log  *slog.Logger
	free func() (int64, error)
}

func (m *sysctlMemoryProvider) TotalBytes() int64 {
	v, err := m.sys.Uint64("hw.memsize")
	if err != nil || v == 0 || v > uint64(1<<63-1) {
		m.log.Debug("hw.memsize unavailable", "value", v, "error", err)
		return UnknownBytes
	}
	return int64(v)
}

func (m *sysctlMemoryProvider) FreeBytes() int64 {
	v, err := m.free()
	if err != nil || v < 0 {
		m.log.Debug("free memory unavailable", "error", err)
		return UnknownBytes
	}
	return v
}
