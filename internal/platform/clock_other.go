//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package platform

import "time"

// processStart anchors readings on hosts without a native monotonic API.
// time.Since uses the runtime's monotonic reading.
var processStart = time.Now()

func readMonotonic() (float64, error) {
	return time.Since(processStart).Seconds(), nil
}
