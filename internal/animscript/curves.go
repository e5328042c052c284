package animscript

import "math"

// Easing is a normalized time-remapping function: Easing(0) == 0,
// Easing(1) == 1. Grounded on the small lerp-style helpers of
// engine/camera/camera_controller_impl.go, generalized from "orbit angle
// interpolation" to "animation progress interpolation".
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// EaseOutCubic decelerates toward the end value.
func EaseOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// EaseInOutCubic accelerates then decelerates.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - (u*u*u)/2
}

// curveScript is a single-output linear/eased curve from a start value to
// an end value over a fixed duration — the common case for opacity fades
// (spec.md §4.3's open/show/hide/close/opacity-inc/opacity-dec triggers).
type curveScript struct {
	name      string
	output    Output
	from, to  ValueSource
	duration  float64
	ease      Easing
}

var _ Script = curveScript{}

// ValueSource resolves a curve endpoint either to a fixed value or to one
// read off the evaluation context/start snapshot (e.g. "the instance's
// current visible opacity" for a resume-from).
type ValueSource func(ctx Context, start Outputs, out Output) float64

// Fixed returns a ValueSource yielding a constant value.
func Fixed(v float64) ValueSource {
	return func(Context, Outputs, Output) float64 { return v }
}

// FromStart returns a ValueSource reading the instance's starting-values
// snapshot for out, falling back to Defaults if the snapshot has no entry
// (the case for a fresh, non-resumed instance).
func FromStart() ValueSource {
	return func(ctx Context, start Outputs, out Output) float64 {
		return start.Get(out, ctx)
	}
}

// FromTargetOpacity returns a ValueSource yielding the context's current
// opacity target, for curves that animate toward "whatever the target
// becomes" rather than a value fixed at script-construction time.
func FromTargetOpacity() ValueSource {
	return func(ctx Context, _ Outputs, _ Output) float64 { return ctx.TargetOpacity }
}

// NewFadeScript builds a single-output curve script fading output from
// `from` to `to` over durationSeconds using ease, defaulting to Linear.
func NewFadeScript(name string, output Output, from, to ValueSource, durationSeconds float64, ease Easing) Script {
	if ease == nil {
		ease = Linear
	}
	return curveScript{name: name, output: output, from: from, to: to, duration: durationSeconds, ease: ease}
}

func (c curveScript) Name() string     { return c.name }
func (c curveScript) Duration() float64 { return c.duration }

func (c curveScript) Evaluate(elapsed float64, ctx Context, start Outputs) Outputs {
	t := 0.0
	if c.duration > 0 {
		t = elapsed / c.duration
	}
	if t > 1 {
		t = 1
	}
	if t < 0 {
		t = 0
	}
	from := c.from(ctx, start, c.output)
	to := c.to(ctx, start, c.output)
	v := from + (to-from)*c.ease(t)
	return Outputs{c.output: v}
}

// Lerp linearly interpolates between a and b by t in [0,1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp01 clamps t to [0,1].
func Clamp01(t float64) float64 {
	return math.Min(1, math.Max(0, t))
}
