package platform

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// cpuinfoTable is the subset of /proc/cpuinfo the topology and brand
// resolvers need. Zero counts mean the field never appeared.
type cpuinfoTable struct {
	// processors is the highest "processor" index seen plus one.
	processors int
	// coreIDs is the highest "core id" seen plus one. It is tracked apart
	// from processors because core ids repeat across SMT siblings.
	coreIDs int
	// coresPerSocket is the "cpu cores" summary field.
	coresPerSocket int

	brand    string
	brandErr error
}

// physicalCores applies the summary-first rule: the summary field wins when
// present, then the deduplicated core ids, then the processor enumeration.
func (t cpuinfoTable) physicalCores() (int, error) {
	switch {
	case t.coresPerSocket > 0:
		return t.coresPerSocket, nil
	case t.coreIDs > 0:
		return t.coreIDs, nil
	case t.processors > 0:
		return t.processors, nil
	}
	return 0, errNoValue
}

func (t cpuinfoTable) logicalCores() (int, error) {
	if t.processors > 0 {
		return t.processors, nil
	}
	return 0, errNoValue
}

func (t cpuinfoTable) brandName() (string, error) {
	if t.brandErr != nil {
		return "", t.brandErr
	}
	if t.brand == "" {
		return "", ErrUnavailable
	}
	return t.brand, nil
}

// parseCPUInfo scans a /proc/cpuinfo style table. Rows without a ':'
// delimiter and rows whose numeric value does not parse are skipped. The
// brand comes from the last "model name" or "Model" row.
func parseCPUInfo(r io.Reader) (cpuinfoTable, error) {
	var t cpuinfoTable

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])

		switch key {
		case "processor":
			if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n+1 > t.processors {
				t.processors = n + 1
			}
		case "core id":
			if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n+1 > t.coreIDs {
				t.coreIDs = n + 1
			}
		case "cpu cores":
			if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n > 0 && t.coresPerSocket == 0 {
				t.coresPerSocket = n
			}
		case "model name", "Model":
			// Later rows win: boards list a per-core name first and the
			// board model last.
			t.brand, t.brandErr = boundedBrand(strings.TrimLeft(parts[1], " \t"))
		}
	}
	if err := scanner.Err(); err != nil {
		return t, fmt.Errorf("failed to scan cpuinfo: %w", err)
	}
	return t, nil
}

// memInfo holds the two /proc/meminfo fields used for RAM sizing, in bytes.
type memInfo struct {
	total int64
	free  int64
}

// parseMemInfoOutput parses /proc/meminfo. Values are reported in kB and
// converted to bytes. Missing fields stay at UnknownBytes.
func parseMemInfoOutput(output string) memInfo {
	info := memInfo{total: UnknownBytes, free: UnknownBytes}
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		key := strings.TrimSuffix(fields[0], ":")
		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || value < 0 {
			continue
		}
		value *= 1024

		switch key {
		case "MemTotal":
			info.total = value
		case "MemFree":
			info.free = value
		}
	}
	return info
}

// parseVMStat returns the bytes reported as free plus inactive by macOS
// vm_stat. The page size comes from the header line, defaulting to 4096.
func parseVMStat(output string) (int64, error) {
	pageSize := int64(4096)
	var pages int64
	found := false

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "page size of") {
			parts := strings.Fields(line)
			if len(parts) >= 8 {
				if ps, err := strconv.ParseInt(parts[7], 10, 64); err == nil && ps > 0 {
					pageSize = ps
				}
			}
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value, err := strconv.ParseInt(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")), 10, 64)
		if err != nil {
			continue
		}

		switch key {
		case "Pages free", "Pages inactive":
			pages += value
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: vm_stat reported no free pages", ErrUnavailable)
	}
	return pages * pageSize, nil
}
