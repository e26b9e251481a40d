package platform

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"k8s.io/utils/cpuset"
)

const (
	cpuinfoPath    = "/proc/cpuinfo"
	meminfoPath    = "/proc/meminfo"
	cpuOnlinePath  = "/sys/devices/system/cpu/online"
	hybridCorePath = "/sys/devices/cpu_core/cpus"
	cpuSysfsDir    = "/sys/devices/system/cpu"
)

// coreKey identifies a physical core across packages.
type coreKey struct {
	pkg  int
	core int
}

// linuxCPUProvider resolves topology from /proc and /sys. It has no build
// constraint because remote Linux hosts are read through the same code.
type linuxCPUProvider struct {
	src procSource
	log *slog.Logger
	// brand picks between CPUID and the cpuinfo table.
	brand func(table func() (string, error)) (string, error)
}

func newLinuxCPUProvider(src procSource, log *slog.Logger, brand func(func() (string, error)) (string, error)) *linuxCPUProvider {
	return &linuxCPUProvider{src: src, log: log, brand: brand}
}

func (c *linuxCPUProvider) LogicalCount() int {
	return firstCount(c.log, "logical",
		countStrategy{name: "sysfs-online", count: c.onlineCount},
		countStrategy{name: "cpuinfo-processors", count: func() (int, error) {
			t, err := c.cpuinfo()
			if err != nil {
				return 0, err
			}
			return t.logicalCores()
		}},
	)
}

func (c *linuxCPUProvider) PhysicalCount() int {
	return firstCount(c.log, "physical",
		countStrategy{name: "cpuinfo", count: func() (int, error) {
			t, err := c.cpuinfo()
			if err != nil {
				return 0, err
			}
			return t.physicalCores()
		}},
		countStrategy{name: "sysfs-topology", count: c.topologyCount},
	)
}

func (c *linuxCPUProvider) PerformanceCount() int {
	return performanceOrPhysical(c.log, c.PhysicalCount,
		countStrategy{name: "sysfs-cpu_core", count: c.hybridCount},
		countStrategy{name: "cpu-capacity", count: c.capacityCount},
	)
}

func (c *linuxCPUProvider) BrandName() (string, error) {
	return c.brand(c.tableBrand)
}

func (c *linuxCPUProvider) tableBrand() (string, error) {
	t, err := c.cpuinfo()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return t.brandName()
}

func (c *linuxCPUProvider) cpuinfo() (cpuinfoTable, error) {
	data, err := c.src.ReadFile(cpuinfoPath)
	if err != nil {
		return cpuinfoTable{}, fmt.Errorf("reading %s: %w", cpuinfoPath, err)
	}
	return parseCPUInfo(bytes.NewReader(data))
}

func (c *linuxCPUProvider) readCPUSet(path string) (cpuset.CPUSet, error) {
	s, err := readTrimmed(c.src, path)
	if err != nil {
		return cpuset.New(), fmt.Errorf("reading %s: %w", path, err)
	}
	set, err := cpuset.Parse(s)
	if err != nil {
		return cpuset.New(), fmt.Errorf("parsing %s: %w", path, err)
	}
	return set, nil
}

func (c *linuxCPUProvider) onlineCount() (int, error) {
	set, err := c.readCPUSet(cpuOnlinePath)
	if err != nil {
		return 0, err
	}
	return set.Size(), nil
}

func cpuAttrPath(cpu int, attr string) string {
	return cpuSysfsDir + "/cpu" + strconv.Itoa(cpu) + "/" + attr
}

// perCPU reads attr for every cpu in one batch and returns the parsed
// integer values. CPUs whose attribute is missing or malformed are omitted.
func (c *linuxCPUProvider) perCPU(cpus []int, attrs ...string) map[int]map[string]int {
	paths := make([]string, 0, len(cpus)*len(attrs))
	for _, cpu := range cpus {
		for _, attr := range attrs {
			paths = append(paths, cpuAttrPath(cpu, attr))
		}
	}
	files := c.src.ReadFiles(paths)

	out := make(map[int]map[string]int, len(cpus))
	for _, cpu := range cpus {
		vals := make(map[string]int, len(attrs))
		for _, attr := range attrs {
			data, ok := files[cpuAttrPath(cpu, attr)]
			if !ok {
				break
			}
			n, err := strconv.Atoi(string(bytes.TrimSpace(data)))
			if err != nil {
				break
			}
			vals[attr] = n
		}
		if len(vals) == len(attrs) {
			out[cpu] = vals
		}
	}
	return out
}

// coresOf groups cpus by (physical package, core id) and returns, per core,
// the values of the extra attributes read alongside the topology.
func (c *linuxCPUProvider) coresOf(cpus []int, extra ...string) map[coreKey][]map[string]int {
	attrs := append([]string{"topology/physical_package_id", "topology/core_id"}, extra...)
	cores := make(map[coreKey][]map[string]int)
	for _, vals := range c.perCPU(cpus, attrs...) {
		key := coreKey{pkg: vals["topology/physical_package_id"], core: vals["topology/core_id"]}
		cores[key] = append(cores[key], vals)
	}
	return cores
}

func (c *linuxCPUProvider) topologyCount() (int, error) {
	online, err := c.readCPUSet(cpuOnlinePath)
	if err != nil {
		return 0, err
	}
	return len(c.coresOf(online.List())), nil
}

// hybridCount counts the physical cores in the kernel's "cpu_core" PMU,
// the performance tier on hybrid Intel parts.
func (c *linuxCPUProvider) hybridCount() (int, error) {
	set, err := c.readCPUSet(hybridCorePath)
	if err != nil {
		return 0, err
	}
	if set.IsEmpty() {
		return 0, errNoValue
	}
	return len(c.coresOf(set.List())), nil
}

// capacityCount classifies cores by cpu_capacity and counts the cores above
// the lowest class. Uniform capacity means the host has a single class.
func (c *linuxCPUProvider) capacityCount() (int, error) {
	online, err := c.readCPUSet(cpuOnlinePath)
	if err != nil {
		return 0, err
	}
	cores := c.coresOf(online.List(), "cpu_capacity")
	if len(cores) == 0 {
		return 0, errNoValue
	}

	classes := make([]int, 0, len(cores))
	for _, threads := range cores {
		class := 0
		for _, vals := range threads {
			class = max(class, vals["cpu_capacity"])
		}
		classes = append(classes, class)
	}
	return countAboveMin(classes), nil
}

// countAboveMin returns how many classes exceed the minimum class.
func countAboveMin(classes []int) int {
	if len(classes) == 0 {
		return 0
	}
	lowest := classes[0]
	for _, c := range classes[1:] {
		lowest = min(lowest, c)
	}
	n := 0
	for _, c := range classes {
		if c > lowest {
			n++
		}
	}
	return n
}

// procMemoryProvider sizes RAM from /proc/meminfo. It backs remote Linux
// hosts, where sysinfo(2) is not reachable.
type procMemoryProvider struct {
	src procSource
	log *slog.Logger
}

func (m *procMemoryProvider) read() memInfo {
	data, err := m.src.ReadFile(meminfoPath)
	if err != nil {
		m.log.Debug("meminfo unavailable", "error", err)
		return memInfo{total: UnknownBytes, free: UnknownBytes}
	}
	return parseMemInfoOutput(string(data))
}

func (m *procMemoryProvider) TotalBytes() int64 {
	return m.read().total
}

func (m *procMemoryProvider) FreeBytes() int64 {
	return m.read().free
}
