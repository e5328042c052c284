package scheduler

import (
	"math"
	"time"

	"github.com/oxywm/corewm/internal/clock"
	"github.com/oxywm/corewm/internal/corelog"
)

// TimerArmer is the injected draw-timer primitive: the scheduler decides a
// delay, the compositor event loop owns the actual timer mechanism.
type TimerArmer interface {
	// ArmDrawTimer schedules the draw callback to fire after delayMicros
	// (0 meaning "as soon as possible"), replacing any previously armed
	// timer.
	ArmDrawTimer(delayMicros int64)
}

// Config tunes the scheduler's budgeting decisions.
type Config struct {
	RenderWindowSize int     // capacity of the render-time rolling window
	Quantile         float64 // target quantile, e.g. 0.98
	QuantileBand     float64 // tolerance band, e.g. 0.01
	FramePacing      bool    // whether to pace against vblank at all
}

// DefaultConfig returns spec.md's named constants: a 98th-percentile
// render-time estimate with a ±1% tolerance band.
func DefaultConfig() Config {
	return Config{RenderWindowSize: 64, Quantile: 0.98, QuantileBand: 0.01, FramePacing: true}
}

// Scheduler implements the Frame Scheduler of spec.md §4.4: the three
// state variables render_queued/backend_busy/next_render, the render-time
// and vblank-interval statistics, and the queue_redraw/schedule_render
// decision. Grounded in shape on engine/profiler/profiler.go's
// tick-counter struct, generalized from "log FPS periodically" to "decide
// the next draw-timer delay from rolling statistics".
type Scheduler struct {
	cfg Config
	clk clock.Clock
	log corelog.Logger

	renderQueued bool
	backendBusy  bool
	nextRender   int64 // absolute microsecond timestamp, 0 when idle

	renderWindow *Window
	quantileEst  *QuantileEstimator
	vblankEst    *VblankEstimator

	lastDivisor int // computed diagnostic only, never applied — see Divisor().
}

// New builds a Scheduler.
func New(cfg Config, clk clock.Clock, log corelog.Logger) *Scheduler {
	if cfg.RenderWindowSize <= 0 {
		cfg = DefaultConfig()
	}
	w := NewWindow(cfg.RenderWindowSize)
	return &Scheduler{
		cfg:          cfg,
		clk:          clk,
		log:          log,
		renderWindow: w,
		quantileEst:  NewQuantileEstimator(w, cfg.Quantile, cfg.QuantileBand),
		vblankEst:    NewVblankEstimator(),
		lastDivisor:  1,
	}
}

// QueueRedraw implements spec.md §4.4 "queue_redraw": idempotent while
// render_queued is true, otherwise sets it and calls schedule_render.
// Returns true if this call actually armed the timer (i.e. render_queued
// transitioned false -> true), for §8 testable property 5.
func (s *Scheduler) QueueRedraw(armer TimerArmer, redirected bool) bool {
	if s.renderQueued {
		return false
	}
	s.renderQueued = true
	s.ScheduleRender(armer, redirected)
	return true
}

// RenderQueued reports the current render_queued state.
func (s *Scheduler) RenderQueued() bool { return s.renderQueued }

// BackendBusy reports the current backend_busy state.
func (s *Scheduler) BackendBusy() bool { return s.backendBusy }

// ScheduleRender implements spec.md §4.4 "schedule_render". While
// backend_busy is set it arms nothing (RecheckBackendBusy calls it again
// once the render completes). Without frame pacing, when not redirected,
// without render-time or vblank statistics, or when the render budget meets
// the vblank interval, it arms delay 0. Otherwise it arms the delay to the
// nearest future vblank deadline that leaves the render budget free.
func (s *Scheduler) ScheduleRender(armer TimerArmer, redirected bool) {
	if s.backendBusy {
		// The recheck itself happens via a vblank callback in the
		// compositor event loop, which calls RecheckBackendBusy; nothing
		// further to arm here until that resolves backend_busy.
		return
	}
	if !s.cfg.FramePacing || !redirected {
		armer.ArmDrawTimer(0)
		s.nextRender = 0
		return
	}

	budget, haveBudget := s.quantileEst.Estimate()
	frameTime, haveFrame := s.vblankEst.Mean()
	if !haveBudget || !haveFrame || budget >= frameTime {
		if haveFrame && haveBudget && frameTime > 0 {
			s.lastDivisor = int(budget/frameTime) + 1
		} else {
			s.lastDivisor = 1
		}
		armer.ArmDrawTimer(0)
		s.nextRender = 0
		return
	}
	s.lastDivisor = 1

	now := s.clk.NowMicros()
	var elapsed float64
	if lastInstant, ok := s.vblankEst.LastInstant(); ok {
		if e := float64(now - lastInstant); e > 0 {
			elapsed = e
		}
	}

	// Nearest future vblank deadline: the smallest n>=1 vblank intervals
	// past the last observed instant such that deadline-now >= budget, per
	// spec.md §4.4/§8 S3. next_render is render_budget before that
	// deadline, so the armed delay also subtracts the now-vs-last-vblank
	// phase offset rather than assuming now sits exactly on a boundary.
	n := math.Ceil((budget + elapsed) / frameTime)
	if n < 1 {
		n = 1
	}
	delay := int64(n*frameTime - budget - elapsed)
	if delay < 0 {
		delay = 0
	}
	s.nextRender = now + delay
	armer.ArmDrawTimer(delay)
}

// RecheckBackendBusy implements the vblank-driven re-check of spec.md
// §4.4 "schedule_render": if backend_busy, poll the backend for
// last_render_time; on completion, record the render time and clear
// backend_busy, then call ScheduleRender again; otherwise do nothing
// (caller should try again on the next vblank).
// Only backend's LastRenderTime is used, so any gpu.Backend satisfies it.
func (s *Scheduler) RecheckBackendBusy(backend interface{ LastRenderTime() (time.Duration, bool) }, armer TimerArmer, redirected bool) {
	if !s.backendBusy {
		return
	}
	d, ok := backend.LastRenderTime()
	if !ok {
		return
	}
	// quantileEst.Push pushes into s.renderWindow itself (they share the
	// same *Window); pushing here too would double-count every sample and
	// silently halve the effective rolling-window capacity spec.md §3
	// describes.
	s.quantileEst.Push(d.Microseconds())
	s.backendBusy = false
	s.ScheduleRender(armer, redirected)
}

// BeginRender marks a render as issued: sets backend_busy when frame
// pacing is enabled (spec.md §4.4 "If frame pacing is on, set
// backend_busy = true").
func (s *Scheduler) BeginRender() {
	if s.cfg.FramePacing {
		s.backendBusy = true
	}
}

// EndFrame implements the tail of spec.md §4.4's draw callback: clear
// render_queued and next_render, re-queueing if animationsStillRunning is
// true.
func (s *Scheduler) EndFrame(armer TimerArmer, redirected, animationsStillRunning bool) {
	s.renderQueued = false
	s.nextRender = 0
	if animationsStillRunning {
		s.QueueRedraw(armer, redirected)
	}
}

// ObserveVblank folds a vblank event into the interval estimator, per
// spec.md §4.4 "Statistics collection".
func (s *Scheduler) ObserveVblank(msc uint64, timestampU int64) {
	s.vblankEst.ObserveVblank(msc, timestampU)
}

// Divisor returns the last computed over-budget divisor diagnostic. Per
// spec.md §9's first open question, the original scheduler computes this
// but never applies it to the timer, and whether it should gate
// frame-rate halving under sustained over-budget rendering is explicitly
// left ambiguous ("do not guess"). This implementation preserves that
// choice: Divisor is exposed for diagnostics/telemetry only and is never
// read by ScheduleRender's delay arithmetic.
func (s *Scheduler) Divisor() int { return s.lastDivisor }

// NextRender returns the absolute microsecond timestamp the next render is
// scheduled for, or 0 if none is pending.
func (s *Scheduler) NextRender() int64 { return s.nextRender }
