//go:build darwin

package platform

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
)

func newDarwinMemoryProvider(sys sysctlReader, o options) *sysctlMemoryProvider {
	return &sysctlMemoryProvider{sys: sys, log: o.logger, free: vmFreeBytes}
}

// vmFreeBytes returns free plus inactive pages in bytes, the memory macOS
// can hand out without paging.
func vmFreeBytes() (int64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("reading VM statistics: %w", err)
	}
	return int64(vm.Free + vm.Inactive), nil
}
