// Package compositor wires the window registry, state machine, animation
// engine, and frame scheduler into the single-threaded event loop of
// spec.md §5. Grounded in control shape on engine/engine.go's
// interface+impl+builder Engine, generalized from a multi-goroutine
// tick/render pump to one cooperative loop with a fixed phase order.
package compositor

import "github.com/oxywm/corewm/internal/corelog"

// ErrorSink receives invariant violations and fatal conditions surfaced by
// the event loop, per spec.md §9 "Global compositor state": the source
// used a process-wide error pointer; here the reporter is an explicit,
// injected value threaded through Context instead of a package global.
type ErrorSink func(err error)

// Context carries the ambient values the event loop threads through each
// phase, replacing the process-wide error pointer spec.md §9 flags.
// Constructed once by New and never stored in a package-level variable.
type Context struct {
	Log   corelog.Logger
	OnErr ErrorSink
}

func (c Context) reportErr(err error) {
	if err == nil {
		return
	}
	if c.OnErr != nil {
		c.OnErr(err)
		return
	}
	c.Log.Warnf("unhandled error: %v", err)
}
