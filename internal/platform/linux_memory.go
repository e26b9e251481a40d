//go:build linux

package platform

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// linuxMemoryProvider sizes RAM with sysinfo(2). Sizes are reported in
// units of Unit bytes.
type linuxMemoryProvider struct {
	log *slog.Logger
}

func newLinuxMemoryProvider(o options) *linuxMemoryProvider {
	return &linuxMemoryProvider{log: o.logger}
}

func (m *linuxMemoryProvider) sysinfo() (*unix.Sysinfo_t, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		m.log.Debug("sysinfo failed", "error", err)
		return nil, false
	}
	return &info, true
}

func (m *linuxMemoryProvider) TotalBytes() int64 {
	info, ok := m.sysinfo()
	if !ok {
		return UnknownBytes
	}
	return int64(info.Totalram) * int64(info.Unit)
}

func (m *linuxMemoryProvider) FreeBytes() int64 {
	info, ok := m.sysinfo()
	if !ok {
		return UnknownBytes
	}
	return int64(info.Freeram) * int64(info.Unit)
}
