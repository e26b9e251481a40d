package platform

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// remoteSysctl reads sysctl values with "sysctl -n" over SSH.
type remoteSysctl struct {
	runner commandRunner
}

func (s *remoteSysctl) String(name string) (string, error) {
	if !sysctlName(name) {
		return "", fmt.Errorf("refusing invalid sysctl name %q", name)
	}
	out, err := s.runner.runCommand(shellCommand("sysctl -n", name))
	if err != nil {
		return "", fmt.Errorf("sysctl %s: %w", name, err)
	}
	return strings.TrimRight(out, "\r\n"), nil
}

func (s *remoteSysctl) Uint64(name string) (uint64, error) {
	out, err := s.String(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing sysctl %s: %w", name, err)
	}
	return v, nil
}

func (s *remoteSysctl) Uint32(name string) (uint32, error) {
	out, err := s.String(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(out), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing sysctl %s: %w", name, err)
	}
	return uint32(v), nil
}

// newRemoteDarwinMemoryProvider sizes free memory from vm_stat output.
func newRemoteDarwinMemoryProvider(sys sysctlReader, runner commandRunner, log *slog.Logger) *sysctlMemoryProvider {
	return &sysctlMemoryProvider{
		sys: sys,
		log: log,
		free: func() (int64, error) {
			out, err := runner.runCommand("vm_stat")
			if err != nil {
				return 0, fmt.Errorf("failed to read vm_stat: %w", err)
			}
			return parseVMStat(out)
		},
	}
}
