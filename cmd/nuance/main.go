// Command nuance renders a WGSL fragment shader full-screen and reloads it when the file changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/nuance-go/config"
	"github.com/Carmen-Shannon/nuance-go/engine"
	"github.com/Carmen-Shannon/nuance-go/engine/profiler"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer"
	"github.com/Carmen-Shannon/nuance-go/engine/watcher"
	"github.com/Carmen-Shannon/nuance-go/engine/window"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// GLFW and the surface must stay on the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "nuance:", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "nuance:", err)
		os.Exit(1)
	}
}

// parseConfig reads the optional TOML file and applies the flags that were set on top of it.
func parseConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("nuance", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML configuration file")
	shaderPath := fs.String("shader", "", "WGSL fragment shader to load")
	watch := fs.Bool("watch", false, "Reload the shader when the file changes")
	fps := fs.Float64("fps", 0, "Target frames per second")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn or error")
	metricsAddr := fs.String("metrics", "", "Listen address of the Prometheus /metrics endpoint")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "shader":
			cfg.Shader = *shaderPath
		case "watch":
			cfg.Watch = *watch
		case "fps":
			cfg.TargetFPS = *fps
		case "log-level":
			cfg.Log.Level = *logLevel
		case "metrics":
			cfg.Metrics.Addr = *metricsAddr
		}
	})
	if cfg.Shader == "" && fs.NArg() > 0 {
		cfg.Shader = fs.Arg(0)
	}
	if cfg.Shader == "" {
		return config.Config{}, errors.New("no shader given, use -shader or pass a path")
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(cfg config.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}
	defer func() { _ = win.Close() }()

	sampler, err := renderer.FeedbackSampler(cfg.Renderer.FeedbackFilter, cfg.Renderer.FeedbackAddress)
	if err != nil {
		return err
	}
	backend, err := renderer.NewWGPURendererBackend(win.SurfaceDescriptor(),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceFallbackAdapter),
		renderer.WithFeedbackSampler(sampler),
		renderer.WithBackendLogger(logger),
	)
	if err != nil {
		return err
	}
	mode, _ := renderer.ParsePresentMode(cfg.Renderer.PresentMode)
	cc := cfg.Renderer.ClearColor
	r := renderer.NewRenderer(backend,
		renderer.WithPresentMode(mode),
		renderer.WithClearColor(cc[0], cc[1], cc[2], cc[3]),
		renderer.WithSurfaceSize(win.Width(), win.Height()),
		renderer.WithLogger(logger),
	)

	w, err := watcher.NewWatcher(
		watcher.WithDebounce(time.Duration(cfg.DebounceMS)*time.Millisecond),
		watcher.WithLogger(logger),
	)
	if err != nil {
		r.Release()
		return err
	}

	prof := profiler.NewProfiler(profiler.WithLogger(logger))
	e, err := engine.NewEngine(r,
		engine.WithWatcher(w),
		engine.WithProfiler(prof),
		engine.WithLogger(logger),
		engine.WithEventPump(win.PollEvents),
		engine.WithTargetFramerate(cfg.TargetFPS),
		engine.WithMouseWheelStep(cfg.MouseWheelStep),
	)
	if err != nil {
		r.Release()
		_ = w.Close()
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Warn("failed to close engine", zap.Error(err))
		}
	}()

	win.SetResizeCallback(e.Resized)
	win.SetScrollCallback(e.Scrolled)
	win.SetKeyDownCallback(e.KeyPressed)
	win.SetMouseMoveCallback(e.CursorMoved)

	if err := e.Submit(engine.LoadCommand(cfg.Shader)); err != nil {
		return err
	}
	if cfg.Watch {
		if err := e.Submit(engine.WatchCommand(cfg.Shader)); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		if err := prof.Register(reg); err != nil {
			return err
		}
		serveMetrics(gctx, g, cfg.Metrics.Addr, reg, logger)
	}

	logger.Info("nuance started",
		zap.String("shader", cfg.Shader),
		zap.Bool("watch", cfg.Watch),
		zap.Float64("fps", cfg.TargetFPS))

	runErr := e.Run(gctx)
	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// serveMetrics exposes reg on addr until ctx is done.
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "metrics server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
