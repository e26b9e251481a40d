package platform

import (
	"errors"
	"log/slog"
)

// errNoValue is returned by a strategy that ran but found nothing to count.
var errNoValue = errors.New("no value found")

// countStrategy is one tier in an ordered fallback chain.
type countStrategy struct {
	name  string
	count func() (int, error)
}

// firstCount runs strategies in order and returns the first positive count.
// Tier failures are logged at debug level and never surface to the caller.
func firstCount(log *slog.Logger, query string, strategies ...countStrategy) int {
	for _, s := range strategies {
		n, err := s.count()
		if err == nil && n > 0 {
			return n
		}
		if err == nil {
			err = errNoValue
		}
		log.Debug("strategy fell through", "query", query, "strategy", s.name, "value", n, "error", err)
	}
	return Unknown
}

// performanceOrPhysical resolves the performance count and falls back to the
// physical count when the host cannot classify cores.
func performanceOrPhysical(log *slog.Logger, physical func() int, strategies ...countStrategy) int {
	if n := firstCount(log, "performance", strategies...); n > 0 {
		return n
	}
	return physical()
}
