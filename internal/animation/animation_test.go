package animation

import (
	"testing"

	"github.com/oxywm/corewm/internal/animscript"
	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/winstate"
)

func newTestEngine(callback Callback) *Engine {
	cfg := Config{
		Scripts: map[Trigger]animscript.Script{
			TriggerOpen:  animscript.NewFadeScript("open", animscript.Opacity, animscript.Fixed(0), animscript.FromTargetOpacity(), 0.2, animscript.Linear),
			TriggerClose: animscript.NewFadeScript("close", animscript.Opacity, animscript.FromStart(), animscript.Fixed(0), 0.3, animscript.Linear),
		},
	}
	e := NewEngine(cfg, corelog.Nop())
	e.OnTransition = callback
	return e
}

// TestFadeInOnMap implements scenario S1.
func TestFadeInOnMap(t *testing.T) {
	var callbacks []Outcome
	e := newTestEngine(func(r *winstate.Record, trig Trigger, o Outcome) { callbacks = append(callbacks, o) })

	r := winstate.NewRecord(1, 1)
	r.Raw.MapState = 0 // unmapped
	r.Damaged = true

	ctx := animscript.Context{TargetOpacity: 0.8}

	// t=0: map.
	r.Raw.MapState = 1 // mapped (xserver.Mapped == 1)
	changed := e.Process(r, ctx, 0, true)
	if !changed {
		t.Fatalf("expected state change on map")
	}
	if r.Anim.Instance == nil {
		t.Fatalf("expected an open animation instance to start")
	}

	// Advance to t=100ms (half of 200ms duration).
	e.Process(r, ctx, 0.1, true)
	if diff := r.Derived.FrameOpacity - 0.4; diff > 0.01 || diff < -0.01 {
		t.Fatalf("opacity at t=100ms = %v, want ~0.4", r.Derived.FrameOpacity)
	}

	// Advance past duration.
	e.Process(r, ctx, 0.11, true)
	if r.Derived.FrameOpacity != 0.8 {
		t.Fatalf("opacity past duration = %v, want 0.8", r.Derived.FrameOpacity)
	}
	if r.Anim.Instance != nil {
		t.Fatalf("instance should be cleared once finished")
	}
	if len(callbacks) != 1 || callbacks[0] != Completed {
		t.Fatalf("expected exactly one Completed callback, got %v", callbacks)
	}
}

// TestInterruptedClose implements scenario S2: an in-progress close is
// interrupted by a new open, which resumes from the close's current
// visible opacity with no discontinuity.
func TestInterruptedClose(t *testing.T) {
	var callbacks []Outcome
	e := newTestEngine(func(r *winstate.Record, trig Trigger, o Outcome) { callbacks = append(callbacks, o) })

	r := winstate.NewRecord(1, 1)
	r.Damaged = true
	ctx := animscript.Context{TargetOpacity: 0.8}

	r.Raw.MapState = 1
	e.Process(r, ctx, 0, true)
	e.Process(r, ctx, 0.2, true) // finish open at opacity 0.8
	if r.Derived.FrameOpacity != 0.8 || r.Anim.Instance != nil {
		t.Fatalf("setup: open should have completed at 0.8")
	}
	callbacks = nil // the setup's open fires its own Completed callback

	// Close: mapped -> destroyed, fading 0.8 -> 0 over 300ms.
	r.Destroyed = true
	ctxClose := animscript.Context{TargetOpacity: 0}
	e.Process(r, ctxClose, 0, true)
	if r.Anim.Instance == nil {
		t.Fatalf("expected close to start an animation")
	}
	e.Process(r, ctxClose, 0.1, true)
	afterClose := r.Derived.FrameOpacity

	// 100ms into the close, the window re-opens: destroyed -> mapped isn't
	// in the trigger table directly, so this models it the way the open
	// trigger table entry does: revive the record and re-map it.
	r.Destroyed = false
	r.Anim.PrevState = winstate.StateUnmapped
	r.Anim.InOpenClose = true // the wm-level "open" command latches this
	ctxOpen := animscript.Context{TargetOpacity: 0.8}
	r.Raw.MapState = 1
	e.Process(r, ctxOpen, 0, true)

	if len(callbacks) != 1 || callbacks[0] != Interrupted {
		t.Fatalf("expected exactly one Interrupted callback for the replaced close instance, got %v", callbacks)
	}
	resumedOpacity := r.Derived.FrameOpacity
	if diff := resumedOpacity - afterClose; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("resumed opacity should equal the interrupted close's current value: got %v want %v", resumedOpacity, afterClose)
	}
}

// TestOpacityIncDecTriggers covers the mapped->mapped opacity-change rows
// of the trigger table directly.
func TestOpacityIncDecTriggers(t *testing.T) {
	if got := deriveTrigger(winstate.StateMapped, winstate.StateMapped, 0.2, 0.5, false, false); got != TriggerOpacityInc {
		t.Fatalf("increasing opacity should derive opacity-inc, got %v", got)
	}
	if got := deriveTrigger(winstate.StateMapped, winstate.StateMapped, 0.5, 0.2, false, false); got != TriggerOpacityDec {
		t.Fatalf("decreasing opacity should derive opacity-dec, got %v", got)
	}
	if got := deriveTrigger(winstate.StateUnmapped, winstate.StateMapped, 0, 0, true, false); got != TriggerOpen {
		t.Fatalf("unmapped->mapped with in_openclose should derive open, got %v", got)
	}
	if got := deriveTrigger(winstate.StateUnmapped, winstate.StateMapped, 0, 0, false, false); got != TriggerShow {
		t.Fatalf("unmapped->mapped without in_openclose should derive show, got %v", got)
	}
	if got := deriveTrigger(winstate.StateUnmapped, winstate.StateDestroyed, 0, 0, false, false); got != TriggerNone {
		t.Fatalf("unmapped->destroyed with no running animation should derive no trigger, got %v", got)
	}
	if got := deriveTrigger(winstate.StateUnmapped, winstate.StateDestroyed, 0, 0, false, true); got != TriggerClose {
		t.Fatalf("unmapped->destroyed with an in-flight animation should derive close, got %v", got)
	}
}

func TestInterruptFiresExactlyOnce(t *testing.T) {
	var callbacks []Outcome
	e := newTestEngine(func(r *winstate.Record, trig Trigger, o Outcome) { callbacks = append(callbacks, o) })

	r := winstate.NewRecord(1, 1)
	r.Damaged = true
	ctx := animscript.Context{TargetOpacity: 0.8}
	r.Raw.MapState = 1
	e.Process(r, ctx, 0, true)

	e.Interrupt(r, ctx)
	e.Interrupt(r, ctx) // second call is a no-op: instance already cleared

	if len(callbacks) != 1 || callbacks[0] != Interrupted {
		t.Fatalf("expected exactly one Interrupted callback, got %v", callbacks)
	}
}

func TestSkipForcesComputedTarget(t *testing.T) {
	var lastOutcome Outcome
	e := newTestEngine(func(r *winstate.Record, trig Trigger, o Outcome) { lastOutcome = o })

	r := winstate.NewRecord(1, 1)
	r.Damaged = true
	ctx := animscript.Context{TargetOpacity: 0.8}
	r.Raw.MapState = 1
	e.Process(r, ctx, 0, true)

	e.Skip(r, ctx)
	if r.Derived.FrameOpacity != 0.8 {
		t.Fatalf("skip should force the computed target 0.8, got %v", r.Derived.FrameOpacity)
	}
	if lastOutcome != Skipped {
		t.Fatalf("expected Skipped outcome, got %v", lastOutcome)
	}
}

func TestUnredirectedSkipsAnimationAndSnapsToTarget(t *testing.T) {
	e := newTestEngine(nil)
	r := winstate.NewRecord(1, 1)
	r.Raw.MapState = 1
	ctx := animscript.Context{TargetOpacity: 0.6}

	e.Process(r, ctx, 0, false) // screen not redirected
	if r.Anim.Instance != nil {
		t.Fatalf("no animation should start while unredirected")
	}
	if r.Derived.FrameOpacity != 0.6 {
		t.Fatalf("opacity should snap straight to target while unredirected, got %v", r.Derived.FrameOpacity)
	}
}
