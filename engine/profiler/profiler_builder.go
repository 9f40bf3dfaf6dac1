package profiler

import (
	"time"

	"github.com/Carmen-Shannon/nuance-go/common"
	"go.uber.org/zap"
)

// ProfilerOption is a functional option applied to a Profiler during construction via NewProfiler.
type ProfilerOption func(*Profiler)

// WithClock sets the time source used to measure frame intervals.
//
// Parameters:
//   - clock: the clock to read
//
// Returns:
//   - ProfilerOption: a function that applies the clock option to a profiler
func WithClock(clock common.Clock) ProfilerOption {
	return func(p *Profiler) {
		p.clock = clock
	}
}

// WithLogger sets the logger frame statistics are written to.
func WithLogger(logger *zap.Logger) ProfilerOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger.Named("profiler")
		}
	}
}

// WithUpdateInterval sets how often frame statistics are computed and logged.
//
// Parameters:
//   - d: the interval, ignored if not positive
//
// Returns:
//   - ProfilerOption: a function that applies the interval option to a profiler
func WithUpdateInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}
