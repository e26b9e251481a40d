//go:build windows

package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

var (
	modKernel32                          = windows.NewLazySystemDLL("kernel32.dll")
	procGetLogicalProcessorInformationEx = modKernel32.NewProc("GetLogicalProcessorInformationEx")
	procGlobalMemoryStatusEx             = modKernel32.NewProc("GlobalMemoryStatusEx")
	procQueryPerformanceCounter          = modKernel32.NewProc("QueryPerformanceCounter")
	procQueryPerformanceFrequency        = modKernel32.NewProc("QueryPerformanceFrequency")
)

const processorNameKey = `HARDWARE\DESCRIPTION\System\CentralProcessor\0`

func newLocalPlatform(o options) Platform {
	return newHostPlatform("windows", func() (CPUProvider, MemoryProvider) {
		return &windowsCPUProvider{log: o.logger}, newWindowsMemoryProvider(o)
	})
}

// windowsCPUProvider resolves topology from GetActiveProcessorCount and the
// processor-core records of GetLogicalProcessorInformationEx.
type windowsCPUProvider struct {
	log *slog.Logger
}

func (c *windowsCPUProvider) LogicalCount() int {
	return firstCount(c.log, "logical",
		countStrategy{name: "GetActiveProcessorCount", count: activeProcessorCount},
		countStrategy{name: "core-records", count: func() (int, error) {
			s, err := coreRecords()
			return s.logical, err
		}},
	)
}

func (c *windowsCPUProvider) PhysicalCount() int {
	return firstCount(c.log, "physical",
		countStrategy{name: "core-records", count: func() (int, error) {
			s, err := coreRecords()
			return s.cores, err
		}},
	)
}

func (c *windowsCPUProvider) PerformanceCount() int {
	return performanceOrPhysical(c.log, c.PhysicalCount,
		countStrategy{name: "efficiency-class", count: func() (int, error) {
			s, err := coreRecords()
			return s.performance, err
		}},
	)
}

func (c *windowsCPUProvider) BrandName() (string, error) {
	return localBrand(registryBrand)
}

// activeProcessorCount counts processors across every processor group.
func activeProcessorCount() (int, error) {
	n := windows.GetActiveProcessorCount(windows.ALL_PROCESSOR_GROUPS)
	if n == 0 {
		return 0, errNoValue
	}
	return int(n), nil
}

// coreRecords queries the processor-core relationship records. The first
// call sizes the buffer.
func coreRecords() (coreSummary, error) {
	if err := procGetLogicalProcessorInformationEx.Find(); err != nil {
		return coreSummary{}, err
	}

	var size uint32
	ret, _, err := procGetLogicalProcessorInformationEx.Call(relationProcessorCore, 0, uintptr(unsafe.Pointer(&size)))
	if ret != 0 || !errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) || size == 0 {
		return coreSummary{}, fmt.Errorf("sizing GetLogicalProcessorInformationEx: %w", err)
	}

	buf := make([]byte, size)
	ret, _, err = procGetLogicalProcessorInformationEx.Call(relationProcessorCore,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if ret == 0 {
		return coreSummary{}, fmt.Errorf("GetLogicalProcessorInformationEx failed: %w", err)
	}
	return summarizeCoreRecords(buf[:size], int(unsafe.Sizeof(uintptr(0))))
}

// registryBrand reads the brand the firmware reported at boot.
func registryBrand() (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, processorNameKey, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("%w: opening processor key: %v", ErrUnavailable, err)
	}
	defer k.Close()

	name, _, err := k.GetStringValue("ProcessorNameString")
	if err != nil {
		return "", fmt.Errorf("%w: ProcessorNameString: %v", ErrUnavailable, err)
	}
	return boundedBrand(name)
}
