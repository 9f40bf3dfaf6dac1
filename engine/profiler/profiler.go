package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/nuance-go/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Reload results recorded by ObserveReload.
const (
	ReloadResultOK     = "ok"
	ReloadResultFailed = "failed"
)

// Profiler tracks frame rate, reload outcomes and memory statistics. Stats are logged at a
// configurable interval and exported as Prometheus metrics once registered.
type Profiler struct {
	clock  common.Clock
	logger *zap.Logger

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	framesTotal    prometheus.Counter
	framesPerSec   prometheus.Gauge
	heapBytes      prometheus.Gauge
	reloadsTotal   *prometheus.CounterVec
	reloadDuration prometheus.Histogram
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options for the clock, logger and interval
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		clock:          common.SystemClock(),
		logger:         zap.NewNop(),
		updateInterval: time.Second,
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nuance_frames_total",
			Help: "Number of frames rendered",
		}),
		framesPerSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nuance_frames_per_second",
			Help: "Frame rate measured over the last update interval",
		}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nuance_heap_alloc_bytes",
			Help: "Bytes of allocated heap objects at the last update interval",
		}),
		reloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nuance_shader_reloads_total",
			Help: "Number of shader reloads by result",
		}, []string{"result"}),
		reloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nuance_shader_reload_duration_seconds",
			Help:    "Time spent extracting parameters and building a pipeline",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.clock.Now()
	return p
}

// Register adds the profiler's metrics to reg.
//
// Parameters:
//   - reg: the registry to add the collectors to
//
// Returns:
//   - error: an error if a collector with the same name is already registered
func (p *Profiler) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{p.framesTotal, p.framesPerSec, p.heapBytes, p.reloadsTotal, p.reloadDuration} {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "failed to register profiler metrics")
		}
	}
	return nil
}

// ObserveReload records the outcome and duration of a shader reload.
//
// Parameters:
//   - d: how long the reload took
//   - err: the reload error, nil on success
func (p *Profiler) ObserveReload(d time.Duration, err error) {
	result := ReloadResultOK
	if err != nil {
		result = ReloadResultFailed
	}
	p.reloadsTotal.WithLabelValues(result).Inc()
	p.reloadDuration.Observe(d.Seconds())
}

// Tick should be called once per rendered frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.framesTotal.Inc()
	p.frameCount++
	currentTime := p.clock.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	p.framesPerSec.Set(fps)

	runtime.ReadMemStats(&p.memStats)
	p.heapBytes.Set(float64(p.memStats.Alloc))
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.logger.Debug("frame stats",
		zap.Float64("fps", fps),
		zap.Float64("heap_mb", allocMB),
		zap.Float64("alloc_rate_mb_s", allocRateMB),
		zap.Uint32("gc_count", gcCount),
		zap.Uint64("gc_last_pause_us", lastPauseUs),
		zap.Uint64("gc_max_pause_us", maxPauseUs),
		zap.Float64("sys_mb", sysMB))

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
