// Package config holds the settings of the nuance command, read from a TOML file and
// overridden by command line flags.
package config

import (
	"bytes"
	"os"

	"github.com/Carmen-Shannon/nuance-go/engine/pacer"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Config is the complete configuration of a nuance session.
type Config struct {
	// Shader is the WGSL fragment shader loaded at startup.
	Shader string `toml:"shader"`
	// Watch starts watching Shader for changes right after it is loaded.
	Watch bool `toml:"watch"`
	// TargetFPS is the initial frame rate target.
	TargetFPS float64 `toml:"target_fps"`
	// MouseWheelStep scales every scroll delta added to globals.mouse_wheel.
	MouseWheelStep float32 `toml:"mouse_wheel_step"`
	// DebounceMS is the file change coalescing window in milliseconds.
	DebounceMS int `toml:"debounce_ms"`

	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// WindowConfig sets the initial window.
type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

// RendererConfig selects the GPU adapter and how frames are drawn and presented.
type RendererConfig struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode          string `toml:"present_mode"`
	ForceFallbackAdapter bool   `toml:"force_fallback_adapter"`
	// ClearColor is the RGBA color each frame starts from, every component in [0, 1].
	ClearColor [4]float64 `toml:"clear_color"`
	// FeedbackFilter is "linear" or "nearest", used when sampling the previous frame.
	FeedbackFilter string `toml:"feedback_filter"`
	// FeedbackAddress is "clamp", "repeat" or "mirror".
	FeedbackAddress string `toml:"feedback_address"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn or error.
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint; empty disables it.
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		TargetFPS:      30,
		MouseWheelStep: 0.1,
		DebounceMS:     200,
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "nuance",
		},
		Renderer: RendererConfig{
			PresentMode:     "vsync",
			ClearColor:      [4]float64{0, 0, 0, 1},
			FeedbackFilter:  "linear",
			FeedbackAddress: "clamp",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file on top of Default. Keys the Config does not know are rejected.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the merged configuration, not yet validated
//   - error: an error if the file cannot be read or decoded
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, errors.Errorf("failed to decode config %s: %s", path, strict.String())
		}
		return cfg, errors.Wrapf(err, "failed to decode config %s", path)
	}
	return cfg, nil
}

// Marshal encodes the configuration as TOML.
//
// Returns:
//   - []byte: the TOML document
//   - error: an encoding error
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks every field for a usable value.
//
// Returns:
//   - error: the first invalid field
func (c Config) Validate() error {
	if c.TargetFPS < pacer.MinFramerate || c.TargetFPS > pacer.MaxFramerate {
		return errors.Errorf("target_fps must be within [%d, %d], got %g", pacer.MinFramerate, pacer.MaxFramerate, c.TargetFPS)
	}
	if c.MouseWheelStep <= 0 {
		return errors.Errorf("mouse_wheel_step must be positive, got %g", c.MouseWheelStep)
	}
	if c.DebounceMS <= 0 {
		return errors.Errorf("debounce_ms must be positive, got %d", c.DebounceMS)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, ok := renderer.ParsePresentMode(c.Renderer.PresentMode); !ok {
		return errors.Errorf("unknown present_mode %q", c.Renderer.PresentMode)
	}
	for i, v := range c.Renderer.ClearColor {
		if !(v >= 0 && v <= 1) {
			return errors.Errorf("clear_color components must be within [0, 1], got %g at index %d", v, i)
		}
	}
	if _, err := renderer.FeedbackSampler(c.Renderer.FeedbackFilter, c.Renderer.FeedbackAddress); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if c.Watch && c.Shader == "" {
		return errors.New("watch requires a shader")
	}
	return nil
}
