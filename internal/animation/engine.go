package animation

import (
	"github.com/oxywm/corewm/internal/animscript"
	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/winstate"
)

// Outcome is the terminal disposition of one animation instance, fired to
// a Callback exactly once per instance, per spec.md §4.3 "Cancellation /
// skip" and §8 testable property 2.
type Outcome int

const (
	Completed Outcome = iota
	Interrupted
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Callback is notified exactly once when a record's animation instance
// finishes, is interrupted by a replacing instance, or is skipped.
type Callback func(r *winstate.Record, trigger Trigger, outcome Outcome)

// Config configures which script (if any) drives each trigger, and which
// other triggers a running instance of that script suppresses (spec.md
// §4.3 step 4: "the chosen trigger is in its suppression mask").
type Config struct {
	Scripts     map[Trigger]animscript.Script
	Suppression map[Trigger][]Trigger
}

func (c Config) suppressionMask(t Trigger) uint32 {
	var mask uint32
	for _, s := range c.Suppression[t] {
		mask |= s.bit()
	}
	return mask
}

// Engine runs spec.md §4.3's process() operation over individual records.
// Grounded in control shape on
// engine/renderer/animator/skeletal_animator.go's interface+impl split
// (an Animator advances and evaluates one skinned-mesh clip per frame);
// generalized here from mesh-skinning clips to named-output fade curves
// driven by window-state transitions instead of a fixed playback clock.
type Engine struct {
	Config Config
	Log    corelog.Logger
	OnTransition Callback
}

// NewEngine builds an Engine.
func NewEngine(cfg Config, log corelog.Logger) *Engine {
	return &Engine{Config: cfg, Log: log}
}

func (e *Engine) notify(r *winstate.Record, trigger Trigger, outcome Outcome) {
	if e.OnTransition != nil {
		e.OnTransition(r, trigger, outcome)
	}
}

// setFrameOpacity assigns r's frame opacity and, if it actually moved,
// marks factor-changed so the next primary drain's recomputeFactors sees
// it — opacity is exactly the kind of factor spec.md §4.2 step 6 lists
// (via paint mode), but it changes every tick an animation is running
// rather than only on a server notification, so the engine itself has to
// raise the flag instead of waiting for one.
func setFrameOpacity(r *winstate.Record, v float64) {
	if r.Derived.FrameOpacity != v {
		r.Derived.FrameOpacity = v
		r.Flags.Set(winstate.FlagFactorChanged)
	}
}

// Process implements spec.md §4.3's process(record, delta_t), given the
// evaluation context (geometry/monitor/opacity) and whether the screen is
// currently redirected for composite. It returns whether the record's
// observable state changed this call.
func (e *Engine) Process(r *winstate.Record, ctx animscript.Context, deltaT float64, redirected bool) bool {
	newState := winstate.CurrentLogicalState(r)
	newTarget := ctx.TargetOpacity

	// Step 1: animations are skipped entirely pre-damage/pre-redirect.
	if !redirected || (!r.Damaged && newState != winstate.StateMapped) {
		changed := newState != r.Anim.PrevState || newTarget != r.Anim.PrevOpacityTgt
		setFrameOpacity(r, newTarget)
		r.Anim.PrevState = newState
		r.Anim.PrevOpacityTgt = newTarget
		return changed
	}

	// Step 2: nothing changed — advance whatever is already running.
	if newState == r.Anim.PrevState && newTarget == r.Anim.PrevOpacityTgt {
		if r.Anim.Instance == nil {
			return false
		}
		return e.advance(r, ctx, deltaT)
	}

	// Step 3: determine the trigger, then commit the new snapshot. The
	// in_openclose latch is read here and cleared immediately — chosen
	// definition for the ambiguity spec.md §9 flags, so open/show
	// selection always consumes the latch at the instant the trigger is
	// computed rather than at some later map/animation-completion point.
	trigger := deriveTrigger(r.Anim.PrevState, newState, r.Anim.PrevOpacityTgt, newTarget, r.Anim.InOpenClose, r.Anim.Instance != nil)
	r.Anim.InOpenClose = false
	r.Anim.PrevState = newState
	r.Anim.PrevOpacityTgt = newTarget

	if trigger == TriggerClose && r.Derived.FadeExcluded {
		trigger = TriggerNone
	}

	// Step 4: a running instance whose suppression mask covers this
	// trigger keeps running instead of being replaced.
	if r.Anim.Instance != nil {
		runningTrig := e.runningTrigger(r)
		if runningTrig != TriggerNone && e.Config.suppressionMask(runningTrig)&trigger.bit() != 0 {
			return e.advance(r, ctx, deltaT)
		}
	}

	script := e.Config.Scripts[trigger]

	// Step 5: no script configured for this trigger — complete
	// immediately.
	if trigger == TriggerNone || script == nil {
		if r.Anim.Instance != nil {
			out := animscript.EndValue(r.Anim.Instance, ctx)
			setFrameOpacity(r, out.Get(animscript.Opacity, ctx))
			e.notify(r, running(r), Completed)
			r.Anim.Instance = nil
		} else {
			setFrameOpacity(r, newTarget)
		}
		return true
	}

	// Step 6: instantiate the new animation, resuming from whatever was
	// running so there is no discontinuity; an interrupted predecessor
	// gets its callback before being dropped.
	var inst animscript.Instance
	if r.Anim.Instance != nil {
		prevTrigger := running(r)
		e.notify(r, prevTrigger, Interrupted)
		inst = animscript.ResumeFrom(script, r.Anim.Instance, ctx)
	} else {
		// Seed the fresh instance's start snapshot with the window's
		// actual pre-transition opacity so a FromStart() endpoint
		// reproduces it exactly, instead of falling back to whatever
		// Defaults would guess from the new ctx.
		inst = animscript.NewInstanceWithStart(script, animscript.Outputs{animscript.Opacity: r.Derived.FrameOpacity})
	}
	r.Anim.Instance = inst
	r.Anim.SuppressMask = e.Config.suppressionMask(trigger)
	r.Anim.TriggerTag = int(trigger)
	out := inst.Evaluate(ctx)
	setFrameOpacity(r, out.Get(animscript.Opacity, ctx))
	return true
}

func (e *Engine) advance(r *winstate.Record, ctx animscript.Context, deltaT float64) bool {
	r.Anim.Instance.Advance(deltaT)
	out := r.Anim.Instance.Evaluate(ctx)
	setFrameOpacity(r, out.Get(animscript.Opacity, ctx))
	if r.Anim.Instance.Finished() {
		e.notify(r, running(r), Completed)
		r.Anim.Instance = nil
		r.Anim.SuppressMask = 0
		return true
	}
	return false
}

// running returns the Trigger that started r's currently live instance.
func running(r *winstate.Record) Trigger { return Trigger(r.Anim.TriggerTag) }

func (e *Engine) runningTrigger(r *winstate.Record) Trigger { return running(r) }
