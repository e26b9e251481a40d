package platform

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// eightProcessors is a table-driven fallback case: processors only, no
// summary field and no core ids.
func eightProcessors() string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "processor\t: %d\nBogoMIPS\t: 48.00\n\n", i)
	}
	return b.String()
}

const x86CPUInfo = `processor	: 0
vendor_id	: GenuineIntel
model name	: Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz
physical id	: 0
core id		: 0
cpu cores	: 4

processor	: 1
model name	: Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz
core id		: 1
cpu cores	: 4

processor	: 2
model name	: Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz
core id		: 0
cpu cores	: 4

processor	: 3
model name	: Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz
core id		: 1
cpu cores	: 4
`

func TestParseCPUInfo(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantLogical  int
		wantPhysical int
		wantBrand    string
	}{
		{
			name:         "processors only",
			input:        eightProcessors(),
			wantLogical:  8,
			wantPhysical: 8,
		},
		{
			name:         "summary field wins over core ids",
			input:        x86CPUInfo,
			wantLogical:  4,
			wantPhysical: 4,
			wantBrand:    "Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz",
		},
		{
			name:         "core ids without summary",
			input:        "processor : 0\ncore id : 0\nprocessor : 1\ncore id : 0\nprocessor : 2\ncore id : 1\nprocessor : 3\ncore id : 1\n",
			wantLogical:  4,
			wantPhysical: 2,
		},
		{
			name:         "arm Model row",
			input:        "processor\t: 0\nprocessor\t: 1\nModel\t\t: Raspberry Pi 4 Model B Rev 1.4\n",
			wantLogical:  2,
			wantPhysical: 2,
			wantBrand:    "Raspberry Pi 4 Model B Rev 1.4",
		},
		{
			name:         "raspberry pi board model wins over core name",
			input:        raspberryPiCPUInfo,
			wantBrand:    "Raspberry Pi 4 Model B Rev 1.4",
			wantLogical:  4,
			wantPhysical: 4,
		},
		{
			name:         "sparse processor indices",
			input:        "processor : 0\nprocessor : 5\n",
			wantLogical:  6,
			wantPhysical: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := parseCPUInfo(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("parseCPUInfo() error = %v", err)
			}
			logical, _ := table.logicalCores()
			if logical != tt.wantLogical {
				t.Errorf("logicalCores() = %d, want %d", logical, tt.wantLogical)
			}
			physical, _ := table.physicalCores()
			if physical != tt.wantPhysical {
				t.Errorf("physicalCores() = %d, want %d", physical, tt.wantPhysical)
			}
			brand, err := table.brandName()
			if tt.wantBrand == "" {
				if !errors.Is(err, ErrUnavailable) {
					t.Errorf("brandName() = %q, %v; want ErrUnavailable", brand, err)
				}
				return
			}
			if brand != tt.wantBrand {
				t.Errorf("brandName() = %q, want %q", brand, tt.wantBrand)
			}
		})
	}
}

func TestParseCPUInfo_MalformedRows(t *testing.T) {
	input := "processor 0\nprocessor : 0\ncore id 9\nmodel name\ncpu cores four\nprocessor : x\nprocessor : 1\n"
	table, err := parseCPUInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseCPUInfo() error = %v", err)
	}
	want := cpuinfoTable{processors: 2}
	if diff := cmp.Diff(want, table, cmp.AllowUnexported(cpuinfoTable{})); diff != "" {
		t.Errorf("parseCPUInfo() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCPUInfo_EmptyTable(t *testing.T) {
	table, err := parseCPUInfo(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parseCPUInfo() error = %v", err)
	}
	if _, err := table.logicalCores(); !errors.Is(err, errNoValue) {
		t.Errorf("logicalCores() error = %v, want errNoValue", err)
	}
	if _, err := table.physicalCores(); !errors.Is(err, errNoValue) {
		t.Errorf("physicalCores() error = %v, want errNoValue", err)
	}
}

func TestParseCPUInfo_BrandCapacity(t *testing.T) {
	long := strings.Repeat("B", brandTableCapacity+1)
	table, err := parseCPUInfo(strings.NewReader("model name\t: Short\nmodel name\t: " + long + "\n"))
	if err != nil {
		t.Fatalf("parseCPUInfo() error = %v", err)
	}
	if _, err := table.brandName(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("brandName() error = %v, want ErrUnavailable for an over-long brand", err)
	}
}

func TestParseMemInfoOutput(t *testing.T) {
	got := parseMemInfoOutput("MemTotal:       16384000 kB\nMemFree:         4096000 kB\nMemAvailable:    8192000 kB\n")
	want := memInfo{total: 16384000 * 1024, free: 4096000 * 1024}
	if got != want {
		t.Errorf("parseMemInfoOutput() = %+v, want %+v", got, want)
	}

	missing := parseMemInfoOutput("garbage\nMemTotal: lots kB\n")
	if missing.total != UnknownBytes || missing.free != UnknownBytes {
		t.Errorf("parseMemInfoOutput(malformed) = %+v, want unknown sizes", missing)
	}
}

func TestParseVMStat(t *testing.T) {
	const output = `Mach Virtual Memory Statistics: (page size of 16384 bytes)
Pages free:                               12345.
Pages active:                            200000.
Pages inactive:                          100000.
Pages speculative:                         5000.
Pages wired down:                         80000.
`
	got, err := parseVMStat(output)
	if err != nil {
		t.Fatalf("parseVMStat() error = %v", err)
	}
	if want := int64(12345+100000) * 16384; got != want {
		t.Errorf("parseVMStat() = %d, want %d", got, want)
	}

	if _, err := parseVMStat("nothing useful"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("parseVMStat(empty) error = %v, want ErrUnavailable", err)
	}
}

func TestParseVMStat_DefaultPageSize(t *testing.T) {
	got, err := parseVMStat("Pages free: 10.\nPages inactive: 5.\n")
	if err != nil {
		t.Fatalf("parseVMStat() error = %v", err)
	}
	if got != 15*4096 {
		t.Errorf("parseVMStat() = %d, want %d", got, 15*4096)
	}
}

// raspberryPiCPUInfo is /proc/cpuinfo from a Raspberry Pi 4 running a
// 32-bit kernel.
const raspberryPiCPUInfo = `processor	: 0
model name	: ARMv7 Processor rev 3 (v7l)
BogoMIPS	: 108.00
Features	: half thumb fastmult vfp edsp neon vfpv3 tls vfpv4 idiva idivt vfpd32 lpae evtstrm crc32
CPU implementer	: 0x41
CPU architecture: 7
CPU variant	: 0x0
CPU part	: 0xd08
CPU revision	: 3

processor	: 1
model name	: ARMv7 Processor rev 3 (v7l)
BogoMIPS	: 108.00
CPU part	: 0xd08

processor	: 2
model name	: ARMv7 Processor rev 3 (v7l)
BogoMIPS	: 108.00
CPU part	: 0xd08

processor	: 3
model name	: ARMv7 Processor rev 3 (v7l)
BogoMIPS	: 108.00
CPU part	: 0xd08

Hardware	: BCM2711
Revision	: c03114
Serial		: 10000000a1b2c3d4
Model		: Raspberry Pi 4 Model B Rev 1.4
`
