//go:build windows

package platform

import (
	"fmt"
	"log/slog"
	"unsafe"
)

// memoryStatusEx is MEMORYSTATUSEX.
type memoryStatusEx struct {
	length               uint32
	memoryLoad           uint32
	totalPhys            uint64
	availPhys            uint64
	totalPageFile        uint64
	availPageFile        uint64
	totalVirtual         uint64
	availVirtual         uint64
	availExtendedVirtual uint64
}

// windowsMemoryProvider sizes RAM with GlobalMemoryStatusEx.
type windowsMemoryProvider struct {
	log *slog.Logger
}

func newWindowsMemoryProvider(o options) *windowsMemoryProvider {
	return &windowsMemoryProvider{log: o.logger}
}

func globalMemoryStatus() (*memoryStatusEx, error) {
	if err := procGlobalMemoryStatusEx.Find(); err != nil {
		return nil, err
	}
	st := memoryStatusEx{}
	st.length = uint32(unsafe.Sizeof(st))
	if ok, _, err := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&st))); ok == 0 {
		return nil, fmt.Errorf("GlobalMemoryStatusEx: %w", err)
	}
	return &st, nil
}

func (m *windowsMemoryProvider) status() (*memoryStatusEx, bool) {
	st, err := globalMemoryStatus()
	if err != nil {
		m.log.Debug("memory status unavailable", "error", err)
		return nil, false
	}
	return st, true
}

func (m *windowsMemoryProvider) TotalBytes() int64 {
	st, ok := m.status()
	if !ok {
		return UnknownBytes
	}
	return int64(st.totalPhys)
}

// FreeBytes reports available physical memory.
func (m *windowsMemoryProvider) FreeBytes() int64 {
	st, ok := m.status()
	if !ok {
		return UnknownBytes
	}
	return int64(st.availPhys)
}
