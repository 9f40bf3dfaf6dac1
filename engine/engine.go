package engine

import (
	"context"
	"math"
	"time"

	"github.com/Carmen-Shannon/nuance-go/common"
	"github.com/Carmen-Shannon/nuance-go/engine/globals"
	"github.com/Carmen-Shannon/nuance-go/engine/pacer"
	"github.com/Carmen-Shannon/nuance-go/engine/profiler"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/nuance-go/engine/watcher"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// Everything except the command channel is owned by the goroutine calling Step or Run.
type engine struct {
	logger *zap.Logger
	clock  common.Clock

	renderer renderer.Renderer
	watcher  watcher.Watcher
	pacer    *pacer.Pacer
	profiler *profiler.Profiler

	// eventPump dispatches pending window events; it returns false once the window closed.
	eventPump func() bool

	commands chan Command
	wake     chan struct{}

	settings   Settings
	parameters shader.Parameters
	globals    globals.GlobalsFrame
	activePath string

	// simStart is the instant simulated time is measured from. Reset by Load and Restart.
	simStart time.Time

	// nextWait is how long the pacer asked to wait after the last Step.
	nextWait time.Duration

	// frameFailures counts consecutive frames the renderer failed to draw.
	frameFailures int

	exiting bool

	// Pre-creation config collected from builder options
	commandBuffer int
}

// Engine is the control loop of a live shader session. It owns the renderer, the optional file
// watcher, the frame pacer and the live parameter and globals state. One goroutine calls
// Step or Run; any goroutine may call Submit.
type Engine interface {
	// Submit enqueues a command without blocking. The command is applied at the start of the
	// next iteration.
	//
	// Parameters:
	//   - cmd: the command to apply
	//
	// Returns:
	//   - error: ErrCommandQueueFull if the command buffer is full
	Submit(cmd Command) error

	// Step runs one loop iteration: debounced file changes become loads, pending commands are
	// applied, window events are pumped, and a frame is drawn if the pacer says one is due.
	//
	// Parameters:
	//   - ctx: a done context ends the loop like Exit
	//
	// Returns:
	//   - bool: false once the loop should stop
	//   - error: a *ChannelError if the watcher died
	Step(ctx context.Context) (bool, error)

	// Run calls Step until Exit, context cancellation or a fatal error, waiting cooperatively
	// between frames.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: nil on Exit or cancellation, a *ChannelError if the watcher died
	Run(ctx context.Context) error

	// Parameters returns a copy of the live parameter list.
	Parameters() shader.Parameters

	// SetParameter sets a live parameter value, clamped to its bounds. The value reaches the
	// GPU with the next frame.
	//
	// Parameters:
	//   - name: the parameter name
	//   - value: the requested value
	//
	// Returns:
	//   - float32: the stored value
	//   - error: an error wrapping shader.ErrUnknownParameter if the name is not declared
	SetParameter(name string, value float32) (float32, error)

	// Globals returns a copy of the globals written with the last frame.
	Globals() globals.GlobalsFrame

	// Settings returns the current settings.
	Settings() Settings

	// SetMouseWheelStep changes the factor applied to scroll deltas.
	//
	// Parameters:
	//   - step: the new factor, must be positive
	//
	// Returns:
	//   - error: an error if step is not positive
	SetMouseWheelStep(step float32) error

	// ActivePath returns the path of the shader currently drawn, or "".
	ActivePath() string

	// WatchedPath returns the path of the watched shader, or "".
	WatchedPath() string

	// CursorMoved records the cursor position in framebuffer pixels, clamped to the resolution.
	CursorMoved(x, y float64)

	// Scrolled adds delta times the mouse wheel step to the mouse_wheel global.
	Scrolled(delta float32)

	// Resized updates the resolution globals and reconfigures the renderer. Zero sizes are
	// ignored so minimizing keeps the last frame state.
	Resized(width, height int)

	// KeyPressed applies the keyboard bindings: R or F5 reload, Space restarts, Escape exits,
	// Up and Down step the target frame rate by one within the pacer bounds.
	//
	// Parameters:
	//   - keyCode: the key code (see common.Key*)
	KeyPressed(keyCode uint32)

	// Close releases the renderer and stops the watcher.
	//
	// Returns:
	//   - error: an error from closing the watcher
	Close() error
}

var _ Engine = &engine{}

// NewEngine creates an Engine driving the given renderer.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - r: the renderer frames are drawn with
//   - options: functional options for the watcher, pacer, profiler, clock, logging and settings
//
// Returns:
//   - Engine: the engine with no shader loaded
//   - error: an error if r is nil
func NewEngine(r renderer.Renderer, options ...EngineBuilderOption) (Engine, error) {
	if r == nil {
		return nil, errors.New("engine requires a renderer")
	}
	e := &engine{
		logger:        zap.NewNop(),
		clock:         common.SystemClock(),
		renderer:      r,
		settings:      DefaultSettings(),
		wake:          make(chan struct{}, 1),
		commandBuffer: 64,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.pacer == nil {
		e.settings.TargetFramerate = common.Clamp(e.settings.TargetFramerate, pacer.MinFramerate, pacer.MaxFramerate)
		e.pacer = pacer.NewPacer(pacer.WithClock(e.clock), pacer.WithTargetFramerate(e.settings.TargetFramerate))
	} else {
		e.settings.TargetFramerate = math.Round(e.pacer.Framerate()*100) / 100
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithClock(e.clock), profiler.WithLogger(e.logger))
	}
	e.commands = make(chan Command, e.commandBuffer)

	width, height := r.SurfaceSize()
	e.globals.SetResolution(uint32(width), uint32(height))
	e.simStart = e.clock.Now()
	return e, nil
}

func (e *engine) Submit(cmd Command) error {
	select {
	case e.commands <- cmd:
	default:
		return errors.Wrapf(ErrCommandQueueFull, "dropping %s", cmd.Type)
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

func (e *engine) Step(ctx context.Context) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}

	if err := e.drainWatcher(); err != nil {
		e.logger.Error("watcher stopped", zap.Error(err))
		return false, err
	}

	e.drainCommands()
	if e.exiting {
		return false, nil
	}

	if e.eventPump != nil && !e.eventPump() {
		e.logger.Info("window closed")
		e.exiting = true
		return false, nil
	}
	// key callbacks run inside the pump
	if e.exiting {
		return false, nil
	}

	draw, wait := e.pacer.Tick()
	e.nextWait = wait
	if draw {
		e.drawFrame()
	}
	return true, nil
}

func (e *engine) Run(ctx context.Context) error {
	for {
		running, err := e.Step(ctx)
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
		if e.nextWait > 0 {
			if err := e.pacer.Wait(ctx, e.nextWait, e.wake); err != nil {
				return nil
			}
		}
	}
}

// drainWatcher turns every pending debounced change into a load.
func (e *engine) drainWatcher() error {
	if e.watcher == nil {
		return nil
	}
	events := e.watcher.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return &ChannelError{Err: errors.New("event channel closed")}
			}
			e.logger.Info("shader changed", zap.String("path", ev.Path))
			_ = e.load(ev.Path)
		default:
			return nil
		}
	}
}

func (e *engine) drainCommands() {
	for {
		select {
		case cmd := <-e.commands:
			e.apply(cmd)
		default:
			return
		}
	}
}

// apply executes one command. Failures are logged and leave the engine state unchanged.
func (e *engine) apply(cmd Command) {
	switch cmd.Type {
	case CommandLoad:
		_ = e.load(cmd.Path)
	case CommandReload:
		if e.activePath == "" {
			e.logger.Warn("reload requested with no shader loaded")
			return
		}
		_ = e.load(e.activePath)
	case CommandWatch:
		e.watch(cmd.Path)
	case CommandUnwatch:
		if e.watcher == nil {
			return
		}
		if err := e.watcher.Unwatch(); err != nil {
			e.logger.Error("failed to unwatch", zap.Error(err))
		}
	case CommandSetTargetFramerate:
		if err := e.pacer.SetTargetFramerate(cmd.Framerate); err != nil {
			e.logger.Warn("rejected target framerate", zap.Error(err))
			return
		}
		e.settings.TargetFramerate = cmd.Framerate
		e.logger.Info("target framerate changed", zap.Float64("fps", cmd.Framerate))
	case CommandRestart:
		e.restart()
		e.globals.MouseWheel = 0
		e.logger.Info("restarted")
	case CommandExit:
		e.exiting = true
	default:
		e.logger.Warn("unknown command", zap.Stringer("type", cmd.Type))
	}
}

// load extracts the shader at path, builds its pipeline and makes it current. Reloading the
// active file carries live parameter values over by name; a different file starts from its
// declared defaults. Nothing changes unless every step succeeds.
func (e *engine) load(path string) error {
	start := e.clock.Now()
	err := e.buildAndSwap(path)
	e.profiler.ObserveReload(e.clock.Now().Sub(start), err)
	if err != nil {
		e.logger.Error("failed to load shader", zap.String("path", path), zap.Error(err))
		return err
	}
	e.logger.Info("shader loaded",
		zap.String("path", e.activePath),
		zap.Int("parameters", e.parameters.Len()),
		zap.Duration("duration", e.clock.Now().Sub(start)))
	return nil
}

func (e *engine) buildAndSwap(path string) error {
	s, err := shader.LoadShader(path)
	if err != nil {
		return err
	}
	p, err := e.renderer.BuildPipeline(s)
	if err != nil {
		return err
	}
	e.renderer.SwapPipeline(p)

	// live values only survive a reload of the same file
	if s.Path() == e.activePath {
		e.parameters = shader.Merge(e.parameters, s.Parameters())
	} else {
		e.parameters = s.Parameters()
	}
	if err := e.renderer.UpdateParameters(e.parameters.Bytes()); err != nil {
		e.logger.Warn("failed to upload parameters", zap.Error(err))
	}
	e.activePath = s.Path()
	e.restart()
	e.pacer.Reset()
	return nil
}

// restart resets the frame counter and the simulated clock.
func (e *engine) restart() {
	e.globals.Frame = 0
	e.globals.Time = 0
	e.simStart = e.clock.Now()
}

func (e *engine) watch(path string) {
	if e.watcher == nil {
		e.logger.Warn("watch requested but no watcher is configured", zap.String("path", path))
		return
	}
	if err := e.watcher.Watch(path); err != nil {
		e.logger.Error("failed to watch shader", zap.String("path", path), zap.Error(err))
	}
}

// drawFrame uploads the live parameters and globals and draws one frame. The frame counter
// only advances when the renderer completed the frame.
func (e *engine) drawFrame() {
	if e.renderer.Current() == nil {
		return
	}
	e.globals.Time = float32(e.clock.Now().Sub(e.simStart).Seconds())

	if err := e.renderer.UpdateParameters(e.parameters.Bytes()); err != nil {
		e.frameFailed(err)
		return
	}
	if err := e.renderer.Execute(e.globals); err != nil {
		e.frameFailed(err)
		return
	}
	e.frameFailures = 0
	e.globals.Frame++
	e.profiler.Tick()
}

func (e *engine) frameFailed(err error) {
	e.frameFailures++
	if e.frameFailures == 1 {
		e.logger.Warn("failed to draw frame", zap.Error(err))
	}
}

func (e *engine) Parameters() shader.Parameters {
	return e.parameters.Clone()
}

func (e *engine) SetParameter(name string, value float32) (float32, error) {
	return e.parameters.Set(name, value)
}

func (e *engine) Globals() globals.GlobalsFrame {
	return e.globals
}

func (e *engine) Settings() Settings {
	return e.settings
}

func (e *engine) SetMouseWheelStep(step float32) error {
	if step <= 0 {
		return errors.Errorf("mouse wheel step must be positive, got %g", step)
	}
	e.settings.MouseWheelStep = step
	return nil
}

func (e *engine) ActivePath() string {
	return e.activePath
}

func (e *engine) WatchedPath() string {
	if e.watcher == nil {
		return ""
	}
	return e.watcher.WatchedPath()
}

func (e *engine) CursorMoved(x, y float64) {
	res := e.globals.Resolution
	e.globals.Mouse = common.UVec2{
		X: uint32(common.Clamp(x, 0, float64(res.X))),
		Y: uint32(common.Clamp(y, 0, float64(res.Y))),
	}
}

func (e *engine) Scrolled(delta float32) {
	e.globals.MouseWheel += delta * e.settings.MouseWheelStep
}

func (e *engine) Resized(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.globals.SetResolution(uint32(width), uint32(height))
	e.renderer.Resize(width, height)
}

func (e *engine) KeyPressed(keyCode uint32) {
	switch keyCode {
	case common.KeyR, common.KeyF5:
		e.apply(ReloadCommand())
	case common.KeySpace:
		e.apply(RestartCommand())
	case common.KeyEsc:
		e.apply(ExitCommand())
	case common.KeyUp, common.KeyDown:
		fps := e.settings.TargetFramerate + 1
		if keyCode == common.KeyDown {
			fps = e.settings.TargetFramerate - 1
		}
		fps = common.Clamp(fps, pacer.MinFramerate, pacer.MaxFramerate)
		if fps != e.settings.TargetFramerate {
			e.apply(SetTargetFramerateCommand(fps))
		}
	}
}

func (e *engine) Close() error {
	e.renderer.Release()
	if e.watcher != nil {
		return e.watcher.Close()
	}
	return nil
}
