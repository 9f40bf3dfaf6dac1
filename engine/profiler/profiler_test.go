package profiler

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func TestTickReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock), WithLogger(zaptest.NewLogger(t)), WithUpdateInterval(time.Second))

	for i := 0; i < 29; i++ {
		clock.now = clock.now.Add(time.Second / 30)
		assert.False(t, p.Tick())
	}
	clock.now = clock.now.Add(time.Second / 30)
	assert.True(t, p.Tick())

	assert.InDelta(t, 30.0, testutil.ToFloat64(p.framesPerSec), 0.5)
	assert.Equal(t, 30.0, testutil.ToFloat64(p.framesTotal))
	assert.Positive(t, testutil.ToFloat64(p.heapBytes))
}

func TestObserveReload(t *testing.T) {
	p := NewProfiler()
	p.ObserveReload(5*time.Millisecond, nil)
	p.ObserveReload(5*time.Millisecond, nil)
	p.ObserveReload(time.Millisecond, errors.New("bad annotation"))

	assert.Equal(t, 2.0, testutil.ToFloat64(p.reloadsTotal.WithLabelValues(ReloadResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.reloadsTotal.WithLabelValues(ReloadResultFailed)))
	assert.Equal(t, 1, testutil.CollectAndCount(p.reloadDuration))
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProfiler()
	require.NoError(t, p.Register(reg))
	assert.Error(t, p.Register(reg), "collectors can only be registered once")

	p.Tick()
	count, err := testutil.GatherAndCount(reg, "nuance_frames_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
