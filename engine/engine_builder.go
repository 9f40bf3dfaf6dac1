package engine

import (
	"github.com/Carmen-Shannon/nuance-go/common"
	"github.com/Carmen-Shannon/nuance-go/engine/pacer"
	"github.com/Carmen-Shannon/nuance-go/engine/profiler"
	"github.com/Carmen-Shannon/nuance-go/engine/watcher"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithWatcher sets the file watcher whose debounced events trigger reloads.
// Without one, Watch commands are logged and ignored.
//
// Parameters:
//   - w: the watcher, owned by the engine from now on
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWatcher(w watcher.Watcher) EngineBuilderOption {
	return func(e *engine) {
		e.watcher = w
	}
}

// WithPacer sets a pre-configured frame pacer. When set, its target rate overrides
// WithTargetFramerate.
//
// Parameters:
//   - p: the pacer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPacer(p *pacer.Pacer) EngineBuilderOption {
	return func(e *engine) {
		e.pacer = p
	}
}

// WithProfiler sets the profiler frames and reloads are reported to.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithLogger sets the logger used by the engine.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock sets the clock simulated time is measured with. The default pacer and profiler
// share it.
//
// Parameters:
//   - c: the clock
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(c common.Clock) EngineBuilderOption {
	return func(e *engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithEventPump sets the function called once per iteration to dispatch window events.
// The loop stops once it returns false.
//
// Parameters:
//   - pump: typically window.Window.PollEvents
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithEventPump(pump func() bool) EngineBuilderOption {
	return func(e *engine) {
		e.eventPump = pump
	}
}

// WithMouseWheelStep sets the factor applied to scroll deltas. Non-positive values keep the default.
//
// Parameters:
//   - step: the factor
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMouseWheelStep(step float32) EngineBuilderOption {
	return func(e *engine) {
		if step > 0 {
			e.settings.MouseWheelStep = step
		}
	}
}

// WithTargetFramerate sets the initial frame rate of the default pacer.
//
// Parameters:
//   - fps: frames per second, clamped to pacer.MinFramerate and pacer.MaxFramerate
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTargetFramerate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.settings.TargetFramerate = fps
	}
}

// WithCommandBuffer sets how many commands may be queued between iterations.
//
// Parameters:
//   - size: the buffer size, values < 1 keep the default
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCommandBuffer(size int) EngineBuilderOption {
	return func(e *engine) {
		if size > 0 {
			e.commandBuffer = size
		}
	}
}
