// Package animscript defines the animation runtime consumed by
// internal/animation (spec.md §6: script_new/instance_new/instance_evaluate)
// plus a small set of built-in curve scripts. Curve interpolation helpers
// are grounded on the small trig/lerp style of
// engine/camera/camera_controller_impl.go (a controller struct wrapping
// plain arithmetic helpers), generalized from spherical camera coordinates
// to named animation outputs.
package animscript

import "github.com/oxywm/corewm/internal/geom"

// Output names a value an animation instance can produce, per spec.md §4.3.
type Output string

// Recognized outputs, per spec.md §4.3.
const (
	Opacity          Output = "OPACITY"
	BlurOpacity      Output = "BLUR_OPACITY"
	ShadowOpacity    Output = "SHADOW_OPACITY"
	OffsetX          Output = "OFFSET_X"
	OffsetY          Output = "OFFSET_Y"
	ScaleX           Output = "SCALE_X"
	ScaleY           Output = "SCALE_Y"
	ShadowOffsetX    Output = "SHADOW_OFFSET_X"
	ShadowOffsetY    Output = "SHADOW_OFFSET_Y"
	ShadowScaleX     Output = "SHADOW_SCALE_X"
	ShadowScaleY     Output = "SHADOW_SCALE_Y"
	CropX            Output = "CROP_X"
	CropY            Output = "CROP_Y"
	CropWidth        Output = "CROP_WIDTH"
	CropHeight       Output = "CROP_HEIGHT"
)

// Context is the evaluation context handed to a running instance each
// evaluate call, per spec.md §4.3: "current geometry, monitor rectangle,
// current and previous opacity".
type Context struct {
	Geometry     geom.Rect
	Monitor      geom.Rect
	Opacity      float64 // current (pre-evaluation) opacity
	PrevOpacity  float64
	TargetOpacity float64
	Mapped       bool
}

// Defaults returns the fallback value for an output not produced by a
// script, per spec.md §4.3's default table.
func Defaults(out Output, ctx Context) float64 {
	switch out {
	case Opacity:
		return ctx.TargetOpacity
	case CropWidth, CropHeight:
		return posInf
	case ScaleX, ScaleY, ShadowScaleX, ShadowScaleY:
		return 1
	case BlurOpacity:
		if ctx.Mapped {
			return 1
		}
		return 0
	default:
		// OFFSET_X/Y, CROP_X/Y, SHADOW_OFFSET_X/Y, SHADOW_OPACITY: default 0.
		return 0
	}
}

const posInf = 1e308 // stand-in for +∞ in the CROP_WIDTH/HEIGHT default; comparisons treat it as unbounded.

// Outputs is a sparse map of produced outputs for one evaluation.
type Outputs map[Output]float64

// Get resolves out from produced values, falling back to Defaults.
func (o Outputs) Get(out Output, ctx Context) float64 {
	if v, ok := o[out]; ok {
		return v
	}
	return Defaults(out, ctx)
}

// Script is a reusable, stateless animation definition: a pure mapping from
// elapsed time and context to a vector of named outputs, per spec.md §4.3.
type Script interface {
	// Name identifies the script for logging/diagnostics.
	Name() string

	// Duration is the script's nominal length in seconds; instances report
	// finished once elapsed >= Duration (scripts with no natural end, e.g.
	// a looping shader animation, return 0 and are never "finished" by
	// elapsed time alone).
	Duration() float64

	// Evaluate computes outputs at elapsedSeconds given ctx and the
	// instance's starting values (the values the instance was initialized
	// or resumed from), returning the produced subset of Output values.
	Evaluate(elapsedSeconds float64, ctx Context, start Outputs) Outputs
}

// Instance is a live evaluator for one Script, per GLOSSARY "Animation
// instance": carries elapsed time and memory (the starting-values snapshot
// a resume-from reproduces).
type Instance interface {
	// Script returns the script this instance evaluates.
	Script() Script

	// Elapsed returns the instance's current elapsed time in seconds.
	Elapsed() float64

	// Advance moves elapsed time forward by deltaSeconds.
	Advance(deltaSeconds float64)

	// Evaluate evaluates the instance's script at its current elapsed time.
	Evaluate(ctx Context) Outputs

	// Finished reports whether the script considers itself complete at the
	// instance's current elapsed time.
	Finished() bool

	// Start returns the starting-values snapshot the instance was
	// initialized or resumed with (memory slots, per spec.md §3).
	Start() Outputs
}
