package pacer

import (
	"context"
	"time"

	"github.com/Carmen-Shannon/nuance-go/common"
	"github.com/pkg/errors"
)

const (
	// DefaultFramerate is the target frame rate of a new Pacer.
	DefaultFramerate = 30

	// MinFramerate and MaxFramerate bound the frame rates offered to the operator.
	MinFramerate = 4
	MaxFramerate = 120
)

// Pacer decides on each loop iteration whether a frame is due. It only measures wall-clock
// time between draws; simulated shader time is kept separately by the engine, so changing the
// target frame rate never rescales it.
type Pacer struct {
	clock    common.Clock
	interval time.Duration

	// lastDraw is the instant of the last triggered draw, zero before the first one.
	lastDraw time.Time
}

// NewPacer creates a Pacer targeting DefaultFramerate unless overridden by options.
//
// Parameters:
//   - options: functional options for the clock and target rate
//
// Returns:
//   - *Pacer: the pacer, which triggers a draw on its first Tick
func NewPacer(options ...PacerOption) *Pacer {
	p := &Pacer{
		clock:    common.SystemClock(),
		interval: time.Second / DefaultFramerate,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// SetTargetInterval sets the minimum wall-clock time between two draws.
// Non-positive intervals are ignored.
//
// Parameters:
//   - d: the target frame interval
func (p *Pacer) SetTargetInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// SetTargetFramerate sets the target interval to 1/fps seconds.
//
// Parameters:
//   - fps: frames per second, must be positive
//
// Returns:
//   - error: an error if fps is not positive
func (p *Pacer) SetTargetFramerate(fps float64) error {
	if fps <= 0 {
		return errors.Errorf("target framerate must be positive, got %g", fps)
	}
	p.SetTargetInterval(time.Duration(float64(time.Second) / fps))
	return nil
}

// TargetInterval returns the current target frame interval.
func (p *Pacer) TargetInterval() time.Duration {
	return p.interval
}

// Framerate returns the target frame rate derived from the interval.
func (p *Pacer) Framerate() float64 {
	return float64(time.Second) / float64(p.interval)
}

// Tick reports whether a frame is due. When it is, the last draw instant is reset to now.
//
// Returns:
//   - bool: true if the caller should draw now
//   - time.Duration: when no draw is due, how long until the next one is
func (p *Pacer) Tick() (bool, time.Duration) {
	now := p.clock.Now()
	if p.lastDraw.IsZero() {
		p.lastDraw = now
		return true, 0
	}
	elapsed := now.Sub(p.lastDraw)
	if elapsed >= p.interval {
		p.lastDraw = now
		return true, 0
	}
	return false, p.interval - elapsed
}

// Reset makes the next Tick trigger a draw immediately. The engine calls it after a shader
// load so the new pipeline is shown without waiting out the current interval.
func (p *Pacer) Reset() {
	p.lastDraw = time.Time{}
}

// Wait suspends the caller for at most d. It returns early when wake receives or is closed,
// or when ctx is done.
//
// Parameters:
//   - ctx: cancels the wait
//   - d: the longest time to wait; non-positive returns immediately
//   - wake: an optional channel that ends the wait early, may be nil
//
// Returns:
//   - error: ctx.Err() if the context ended the wait, nil otherwise
func (p *Pacer) Wait(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	case <-wake:
	}
	return nil
}
