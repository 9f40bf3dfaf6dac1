package pacer

import "github.com/Carmen-Shannon/nuance-go/common"

// PacerOption is a functional option applied to a Pacer during construction via NewPacer.
type PacerOption func(*Pacer)

// WithClock sets the time source the pacer measures frame intervals with.
//
// Parameters:
//   - clock: the clock to read
//
// Returns:
//   - PacerOption: a function that applies the clock option to a pacer
func WithClock(clock common.Clock) PacerOption {
	return func(p *Pacer) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithTargetFramerate sets the initial target frame rate. Non-positive values keep the default.
//
// Parameters:
//   - fps: frames per second
//
// Returns:
//   - PacerOption: a function that applies the frame rate option to a pacer
func WithTargetFramerate(fps float64) PacerOption {
	return func(p *Pacer) {
		_ = p.SetTargetFramerate(fps)
	}
}
