package animation

import (
	"github.com/oxywm/corewm/internal/animscript"
	"github.com/oxywm/corewm/internal/winstate"
)

// Interrupt forces r's running instance to end at its current value and
// fires the Interrupted callback exactly once, per spec.md §4.3
// "Cancellation / skip". A no-op if r has no running instance.
func (e *Engine) Interrupt(r *winstate.Record, ctx animscript.Context) {
	if r.Anim.Instance == nil {
		return
	}
	out := r.Anim.Instance.Evaluate(ctx)
	setFrameOpacity(r, out.Get(animscript.Opacity, ctx))
	e.notify(r, running(r), Interrupted)
	r.Anim.Instance = nil
	r.Anim.SuppressMask = 0
}

// Skip forces r's running instance to its computed end-of-duration target
// and fires the Skipped callback exactly once, per spec.md §4.3
// "Cancellation / skip". A no-op if r has no running instance.
func (e *Engine) Skip(r *winstate.Record, ctx animscript.Context) {
	if r.Anim.Instance == nil {
		return
	}
	out := animscript.EndValue(r.Anim.Instance, ctx)
	setFrameOpacity(r, out.Get(animscript.Opacity, ctx))
	e.notify(r, running(r), Skipped)
	r.Anim.Instance = nil
	r.Anim.SuppressMask = 0
}
