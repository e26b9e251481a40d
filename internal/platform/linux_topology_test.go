package platform

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// writeTree creates files below root from a path → content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// cpuTopology adds topology (and optional capacity) files for one cpu.
func cpuTopology(files map[string]string, cpu, pkg, core, capacity int) {
	files[cpuAttrPath(cpu, "topology/physical_package_id")] = strconv.Itoa(pkg) + "\n"
	files[cpuAttrPath(cpu, "topology/core_id")] = strconv.Itoa(core) + "\n"
	if capacity > 0 {
		files[cpuAttrPath(cpu, "cpu_capacity")] = strconv.Itoa(capacity) + "\n"
	}
}

func newTestLinuxProvider(t *testing.T, files map[string]string) *linuxCPUProvider {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)
	return newLinuxCPUProvider(localProcSource{root: root}, discardLogger, tableOnly)
}

func TestLinuxCPU_ProcessorTableFallback(t *testing.T) {
	c := newTestLinuxProvider(t, map[string]string{cpuinfoPath: eightProcessors()})

	if got := c.LogicalCount(); got != 8 {
		t.Errorf("LogicalCount() = %d, want 8", got)
	}
	if got := c.PhysicalCount(); got != 8 {
		t.Errorf("PhysicalCount() = %d, want 8", got)
	}
	if got := c.PerformanceCount(); got != 8 {
		t.Errorf("PerformanceCount() = %d, want physical 8", got)
	}
	if _, err := c.BrandName(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("BrandName() error = %v, want ErrUnavailable", err)
	}
}

func TestLinuxCPU_OnlineListWins(t *testing.T) {
	c := newTestLinuxProvider(t, map[string]string{
		cpuOnlinePath: "0-3,6-7\n",
		cpuinfoPath:   eightProcessors(),
	})
	if got := c.LogicalCount(); got != 6 {
		t.Errorf("LogicalCount() = %d, want 6 from the online list", got)
	}
}

func TestLinuxCPU_MalformedOnlineFallsThrough(t *testing.T) {
	c := newTestLinuxProvider(t, map[string]string{
		cpuOnlinePath: "garbage\n",
		cpuinfoPath:   eightProcessors(),
	})
	if got := c.LogicalCount(); got != 8 {
		t.Errorf("LogicalCount() = %d, want 8 from cpuinfo", got)
	}
}

func TestLinuxCPU_NothingReadable(t *testing.T) {
	c := newTestLinuxProvider(t, map[string]string{})
	if got := c.LogicalCount(); got != Unknown {
		t.Errorf("LogicalCount() = %d, want Unknown", got)
	}
	if got := c.PhysicalCount(); got != Unknown {
		t.Errorf("PhysicalCount() = %d, want Unknown", got)
	}
	if got := c.PerformanceCount(); got != Unknown {
		t.Errorf("PerformanceCount() = %d, want Unknown", got)
	}
}

func TestLinuxCPU_SysfsTopologyFallback(t *testing.T) {
	files := map[string]string{cpuOnlinePath: "0-3\n"}
	cpuTopology(files, 0, 0, 0, 0)
	cpuTopology(files, 1, 0, 0, 0)
	cpuTopology(files, 2, 0, 1, 0)
	cpuTopology(files, 3, 0, 1, 0)
	c := newTestLinuxProvider(t, files)

	if got := c.PhysicalCount(); got != 2 {
		t.Errorf("PhysicalCount() = %d, want 2 cores from sysfs topology", got)
	}
}

func TestLinuxCPU_HybridTier(t *testing.T) {
	// Two SMT performance cores (cpus 0-3) and four efficiency cores (4-7).
	files := map[string]string{
		cpuOnlinePath:  "0-7\n",
		hybridCorePath: "0-3\n",
		cpuinfoPath:    x86CPUInfo,
	}
	for cpu, core := range []int{0, 0, 4, 4, 8, 9, 10, 11} {
		cpuTopology(files, cpu, 0, core, 0)
	}
	c := newTestLinuxProvider(t, files)

	if got := c.PerformanceCount(); got != 2 {
		t.Errorf("PerformanceCount() = %d, want 2 from cpu_core", got)
	}
}

func TestLinuxCPU_CapacityClasses(t *testing.T) {
	// big.LITTLE: cpus 0-3 at 446, cpus 4-5 at 1024.
	files := map[string]string{cpuOnlinePath: "0-5\n", cpuinfoPath: "processor : 0\nprocessor : 5\n"}
	for cpu, capacity := range []int{446, 446, 446, 446, 1024, 1024} {
		cpuTopology(files, cpu, 0, cpu, capacity)
	}
	c := newTestLinuxProvider(t, files)

	if got := c.PerformanceCount(); got != 2 {
		t.Errorf("PerformanceCount() = %d, want 2", got)
	}
}

func TestLinuxCPU_UniformCapacityMeansPhysical(t *testing.T) {
	files := map[string]string{cpuOnlinePath: "0-3\n", cpuinfoPath: x86CPUInfo}
	for cpu := 0; cpu < 4; cpu++ {
		cpuTopology(files, cpu, 0, cpu/2, 1024)
	}
	c := newTestLinuxProvider(t, files)

	if got, want := c.PerformanceCount(), c.PhysicalCount(); got != want {
		t.Errorf("PerformanceCount() = %d, want physical %d", got, want)
	}
}

func TestLinuxCPU_BrandFromTable(t *testing.T) {
	c := newTestLinuxProvider(t, map[string]string{cpuinfoPath: x86CPUInfo})
	got, err := c.BrandName()
	if err != nil {
		t.Fatalf("BrandName() error = %v", err)
	}
	if want := "Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz"; got != want {
		t.Errorf("BrandName() = %q, want %q", got, want)
	}
}

func TestLinuxCPU_CountOrdering(t *testing.T) {
	files := map[string]string{cpuOnlinePath: "0-3\n", cpuinfoPath: x86CPUInfo}
	c := newTestLinuxProvider(t, files)

	logical, physical, perf := c.LogicalCount(), c.PhysicalCount(), c.PerformanceCount()
	if !(logical >= physical && physical >= perf && perf > 0) {
		t.Errorf("counts logical=%d physical=%d performance=%d violate ordering", logical, physical, perf)
	}
}

func TestProcMemoryProvider(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{meminfoPath: "MemTotal: 2048 kB\nMemFree: 1024 kB\n"})
	m := &procMemoryProvider{src: localProcSource{root: root}, log: discardLogger}

	if got := m.TotalBytes(); got != 2048*1024 {
		t.Errorf("TotalBytes() = %d, want %d", got, 2048*1024)
	}
	if got := m.FreeBytes(); got != 1024*1024 {
		t.Errorf("FreeBytes() = %d, want %d", got, 1024*1024)
	}

	empty := &procMemoryProvider{src: localProcSource{root: t.TempDir()}, log: discardLogger}
	if got := empty.TotalBytes(); got != UnknownBytes {
		t.Errorf("TotalBytes() without meminfo = %d, want UnknownBytes", got)
	}
}
