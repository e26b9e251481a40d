//go:build windows

package platform

import (
	"testing"
	"unsafe"
)

func TestMemoryStatusExLayout(t *testing.T) {
	if size := unsafe.Sizeof(memoryStatusEx{}); size != 64 {
		t.Errorf("memoryStatusEx is %d bytes, MEMORYSTATUSEX is 64", size)
	}
}

func TestWindowsMemoryProvider(t *testing.T) {
	m := newWindowsMemoryProvider(applyOptions(nil))
	total, free := m.TotalBytes(), m.FreeBytes()
	if total <= 0 {
		t.Fatalf("TotalBytes() = %d", total)
	}
	if free < 0 || free > total {
		t.Errorf("FreeBytes() = %d, want 0..%d", free, total)
	}
}

func TestActiveProcessorCount(t *testing.T) {
	n, err := activeProcessorCount()
	if err != nil {
		t.Fatalf("activeProcessorCount() error = %v", err)
	}
	if n <= 0 {
		t.Errorf("activeProcessorCount() = %d", n)
	}
	c := &windowsCPUProvider{log: discardLogger}
	if got := c.LogicalCount(); got != n {
		t.Errorf("LogicalCount() = %d, want %d", got, n)
	}
}
