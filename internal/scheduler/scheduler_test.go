package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxywm/corewm/internal/clock"
	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/winstate"
	"github.com/oxywm/corewm/internal/xserver"
)

type fakeArmer struct {
	armed     bool
	delayMicr int64
}

func (a *fakeArmer) ArmDrawTimer(delayMicros int64) {
	a.armed = true
	a.delayMicr = delayMicros
}

type fakeBackend struct {
	lastRender time.Duration
	ready      bool
}

func (b *fakeBackend) LastRenderTime() (time.Duration, bool) { return b.lastRender, b.ready }

// TestQuantileEstimatorWithinBand covers §8 testable property 6: the
// quantile estimator stays within the 97th-99th percentile of the
// observed samples for a target of 98% ± 1%.
func TestQuantileEstimatorWithinBand(t *testing.T) {
	w := NewWindow(200)
	q := NewQuantileEstimator(w, 0.98, 0.01)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		v := int64(8000 + rng.Intn(2000))
		w2 := int64(0)
		if i%50 == 0 {
			w2 = int64(30000) // occasional spike
		}
		sample := v + w2
		q.Push(sample)
	}

	est, ok := q.Estimate()
	require.True(t, ok)

	vals := w.Values()
	below := 0
	for _, v := range vals {
		if float64(v) <= est {
			below++
		}
	}
	rank := float64(below) / float64(len(vals))
	assert.GreaterOrEqual(t, rank, 0.97)
	assert.LessOrEqual(t, rank, 0.99)
}

// TestVblankEstimatorResetsOnOutlier covers §8 testable property 7: a
// 3-sigma outlier resets the running statistics.
func TestVblankEstimatorResetsOnOutlier(t *testing.T) {
	e := NewVblankEstimator()
	msc := uint64(1)
	ts := int64(0)

	e.ObserveVblank(msc, ts)
	for i := 0; i < 20; i++ {
		msc++
		ts += 16667
		e.ObserveVblank(msc, ts)
	}
	meanBefore, ok := e.Mean()
	require.True(t, ok)
	assert.InDelta(t, 16667, meanBefore, 5)
	countBefore := e.Count()
	require.Greater(t, countBefore, int64(0))

	msc++
	ts += 16667 * 50 // huge outlier
	e.ObserveVblank(msc, ts)

	assert.Less(t, e.Count(), countBefore+1)
}

// TestVblankEstimatorConvergesWithinOnePercent exercises convergence over
// roughly 10 seconds of steady 60Hz vblanks (§8 testable property 7).
func TestVblankEstimatorConvergesWithinOnePercent(t *testing.T) {
	e := NewVblankEstimator()
	const interval = 16667
	msc := uint64(1)
	ts := int64(0)
	e.ObserveVblank(msc, ts)

	const samples = 600 // ~10s at 60Hz
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < samples; i++ {
		msc++
		jitter := rng.Intn(21) - 10
		ts += int64(interval + jitter)
		e.ObserveVblank(msc, ts)
	}

	mean, ok := e.Mean()
	require.True(t, ok)
	assert.InEpsilon(t, float64(interval), mean, 0.01)
}

// TestQueueRedrawIdempotentWhileQueued covers §8 testable property 5.
func TestQueueRedrawIdempotentWhileQueued(t *testing.T) {
	s := New(DefaultConfig(), clock.NewFakeClock(0), corelog.Nop())
	armer := &fakeArmer{}

	first := s.QueueRedraw(armer, true)
	assert.True(t, first)
	assert.True(t, s.RenderQueued())

	armer.armed = false
	second := s.QueueRedraw(armer, true)
	assert.False(t, second)
	assert.False(t, armer.armed, "schedule_render must not re-run while render_queued is already true")
}

// TestScheduleRenderUnderBudgetDelaysToDeadline is scenario S3: render-time
// samples all equal 4 000, vblank interval 16 667, now - last_msc_instant =
// 1 000; expected delay ≈ 16 667 - 4 000 - 1 000 = 11 667 µs ± 100.
func TestScheduleRenderUnderBudgetDelaysToDeadline(t *testing.T) {
	fc := clock.NewFakeClock(0)
	s := New(DefaultConfig(), fc, corelog.Nop())

	for i := 0; i < 10; i++ {
		s.quantileEst.Push(4000)
	}
	var lastTimestamp int64
	for i := uint64(1); i <= 30; i++ {
		lastTimestamp = int64(i) * 16667
		s.vblankEst.ObserveVblank(i, lastTimestamp)
	}
	fc.Set(lastTimestamp + 1000)

	armer := &fakeArmer{}
	s.ScheduleRender(armer, true)

	require.True(t, armer.armed)
	assert.InDelta(t, 11667, armer.delayMicr, 100)
}

// TestScheduleRenderOverBudgetFiresImmediately is scenario S4: when the
// render-time estimate meets or exceeds the vblank interval, the draw
// timer is armed at delay 0, and the divisor diagnostic reflects the
// overrun without being applied to the delay.
func TestScheduleRenderOverBudgetFiresImmediately(t *testing.T) {
	s := New(DefaultConfig(), clock.NewFakeClock(0), corelog.Nop())

	for i := 0; i < 10; i++ {
		s.quantileEst.Push(20000)
	}
	for i := uint64(1); i <= 30; i++ {
		s.vblankEst.ObserveVblank(i, int64(i)*16667)
	}

	armer := &fakeArmer{}
	s.ScheduleRender(armer, true)

	require.True(t, armer.armed)
	assert.Equal(t, int64(0), armer.delayMicr)
	assert.GreaterOrEqual(t, s.Divisor(), 1)
}

// TestScheduleRenderNoFramePacingFiresImmediately covers the
// frame-pacing-disabled / not-redirected delay-0 path.
func TestScheduleRenderNoFramePacingFiresImmediately(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FramePacing = false
	s := New(cfg, clock.NewFakeClock(0), corelog.Nop())

	armer := &fakeArmer{}
	s.ScheduleRender(armer, true)
	assert.Equal(t, int64(0), armer.delayMicr)

	s2 := New(DefaultConfig(), clock.NewFakeClock(0), corelog.Nop())
	armer2 := &fakeArmer{}
	s2.ScheduleRender(armer2, false)
	assert.Equal(t, int64(0), armer2.delayMicr)
}

// TestBackendBusyBlocksRecheckUntilRenderCompletes covers §8 testable
// property 3: backend_busy holds across calls until the backend reports
// the render complete.
func TestBackendBusyBlocksRecheckUntilRenderCompletes(t *testing.T) {
	s := New(DefaultConfig(), clock.NewFakeClock(0), corelog.Nop())
	s.BeginRender()
	require.True(t, s.BackendBusy())

	backend := &fakeBackend{ready: false}
	armer := &fakeArmer{}
	s.RecheckBackendBusy(backend, armer, true)
	assert.True(t, s.BackendBusy(), "backend_busy must hold until LastRenderTime reports completion")
	assert.False(t, armer.armed)

	backend.ready = true
	backend.lastRender = 5 * time.Millisecond
	s.RecheckBackendBusy(backend, armer, true)
	assert.False(t, s.BackendBusy())
	assert.True(t, armer.armed)
}

// TestEndFrameRequeuesWhenAnimationsStillRunning ensures the draw
// callback's tail re-arms queue_redraw, not just clears state.
func TestEndFrameRequeuesWhenAnimationsStillRunning(t *testing.T) {
	s := New(DefaultConfig(), clock.NewFakeClock(0), corelog.Nop())
	armer := &fakeArmer{}
	s.QueueRedraw(armer, true)

	s.EndFrame(armer, true, true)
	assert.True(t, s.RenderQueued())

	armer2 := &fakeArmer{}
	s.EndFrame(armer2, true, false)
	assert.False(t, s.RenderQueued())
	assert.Equal(t, int64(0), s.NextRender())
}

func newPaintRecord(handle xserver.Handle, geomRect geom.Rect, mapped bool) *winstate.Record {
	r := winstate.NewRecord(handle, 1)
	r.Derived.EffectiveGeom = geomRect
	r.Derived.FrameOpacity = 1.0
	r.Derived.PaintMode = winstate.PaintSolid
	if mapped {
		r.Raw.MapState = xserver.Mapped
	} else {
		r.Raw.MapState = xserver.Unmapped
	}
	return r
}

func TestPaintPreprocessSkipsUnmappedWithoutAnimation(t *testing.T) {
	root := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	r := newPaintRecord(1, geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, false)

	entries := PaintPreprocess([]*winstate.Record{r}, root, nil)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].ToPaint)
}

func TestPaintPreprocessAccumulatesRegIgnoreFromOpaqueAbove(t *testing.T) {
	root := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	top := newPaintRecord(1, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, true)
	bottom := newPaintRecord(2, geom.Rect{X: 0, Y: 0, Width: 200, Height: 200}, true)

	entries := PaintPreprocess([]*winstate.Record{top, bottom}, root, nil)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].ToPaint)
	assert.True(t, entries[0].RegIgnore.Empty(), "nothing sits above the topmost record")
	assert.True(t, entries[1].ToPaint)
	assert.False(t, entries[1].RegIgnore.Empty(), "the opaque window above must be recorded in reg_ignore")
}

func TestPaintPreprocessExcludesNegligibleOpacityUnlessBlurred(t *testing.T) {
	root := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	r := newPaintRecord(1, geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, true)
	r.Derived.FrameOpacity = 0

	entries := PaintPreprocess([]*winstate.Record{r}, root, nil)
	assert.False(t, entries[0].ToPaint)

	r2 := newPaintRecord(2, geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, true)
	r2.Derived.FrameOpacity = 0.002 // below OpacityEpsilon, but non-zero
	r2.Derived.BlurBackground = true
	entries2 := PaintPreprocess([]*winstate.Record{r2}, root, nil)
	assert.True(t, entries2[0].ToPaint)
}

func TestRedirectionDecisionForcedUnredirectOnFullscreenSolid(t *testing.T) {
	root := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	fullscreen := newPaintRecord(1, root, true)
	fullscreen.Derived.IsFullscreen = true

	entries := PaintPreprocess([]*winstate.Record{fullscreen}, root, nil)
	assert.False(t, RedirectionDecision(entries, root))

	fullscreen.Derived.UnredirectExcluded = true
	entries2 := PaintPreprocess([]*winstate.Record{fullscreen}, root, nil)
	assert.True(t, RedirectionDecision(entries2, root))
}

func TestRedirectionDecisionNoWindowsToPaintMeansNotRedirected(t *testing.T) {
	root := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	assert.False(t, RedirectionDecision(nil, root))
}
