//go:build linux || darwin || freebsd || netbsd || openbsd

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func readMonotonic() (float64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, fmt.Errorf("clock_gettime(CLOCK_MONOTONIC): %w", err)
	}
	sec, nsec := ts.Unix()
	return float64(sec) + float64(nsec)/1e9, nil
}
