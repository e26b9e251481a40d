package platform

import (
	"log/slog"
	"os"
)

// abortExitCode matches the status of a process killed by SIGABRT.
const abortExitCode = 134

// abort terminates the process when the monotonic timer is missing. Tests
// replace it to observe the failure without exiting.
var abort = func(err error) {
	slog.Error("monotonic clock unavailable", "error", err)
	os.Exit(abortExitCode)
}

// monotonicClock adapts a platform timer read into a ClockSource.
type monotonicClock struct {
	read func() (float64, error)
}

// Now returns monotonic seconds. A failing read is fatal.
func (c monotonicClock) Now() float64 {
	t, err := c.read()
	if err != nil {
		abort(err)
		return 0
	}
	return t
}

// NewClock returns the monotonic clock of the running host.
func NewClock() ClockSource {
	return monotonicClock{read: readMonotonic}
}
