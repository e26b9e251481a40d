//go:build darwin

package platform

import (
	"golang.org/x/sys/unix"
)

// localSysctl reads sysctl values from the running kernel.
type localSysctl struct{}

func (localSysctl) Uint32(name string) (uint32, error) {
	return unix.SysctlUint32(name)
}

func (localSysctl) Uint64(name string) (uint64, error) {
	return unix.SysctlUint64(name)
}

func (localSysctl) String(name string) (string, error) {
	return unix.Sysctl(name)
}

func newLocalPlatform(o options) Platform {
	return newHostPlatform("darwin", func() (CPUProvider, MemoryProvider) {
		sys := localSysctl{}
		cpu := &sysctlCPUProvider{sys: sys, log: o.logger, brand: localBrand}
		return cpu, newDarwinMemoryProvider(sys, o)
	})
}
