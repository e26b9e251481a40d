// Package platform provides cross-platform host introspection for hostinfo.
//
// The platform package answers "how much hardware do I have": logical,
// physical and performance core counts, the CPU brand string, total and
// free physical RAM, and a monotonic clock. Each answer comes from an
// ordered list of strategies; the first strategy that produces a usable
// value wins and the rest are never consulted.
//
// # Architecture
//
// Every supported operating system implements the Platform interface and
// exposes a CPUProvider, a MemoryProvider and a ClockSource. The OS-specific
// code is selected with build tags, so only one local implementation is
// compiled into a binary:
//
//   - Linux: sysfs cpusets, /proc/cpuinfo and sysinfo(2)
//   - macOS: sysctl and host VM statistics
//   - Windows: kernel32 processor records and GlobalMemoryStatusEx
//   - Remote Linux and macOS hosts via SSH
//
// The table parsers (cpuinfo, meminfo, vm_stat) and the native record walker
// are OS-independent so the same code serves local and remote hosts and can
// be tested anywhere.
//
// # Failure reporting
//
// Counts return Unknown (-1) and RAM sizes return UnknownBytes (-1) when no
// strategy succeeds. The brand string returns ErrUnavailable. A missing
// monotonic clock is fatal: the process exits.
//
// # Usage
//
//	p, err := platform.NewPlatform()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Initialize(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(p.CPU().LogicalCount(), p.Memory().TotalBytes())
//
// # Thread Safety
//
// All Platform and Provider implementations are safe for concurrent use from
// multiple goroutines. Queries keep no state between calls.
package platform
