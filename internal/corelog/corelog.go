// Package corelog is the compositor's ambient logging sink. It wraps
// zerolog rather than the teacher's bare log.Printf (engine/profiler.go) so
// spec.md §7's leveled error semantics (transient errors at debug,
// invariant violations at warn) are expressible directly, and is injected
// into each component's constructor instead of reached for as a package
// global, per SPEC_FULL.md §9's "Global compositor state" redesign note.
package corelog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the sink every core component logs through.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger writing to w as zerolog's JSON lines, each with a
// timestamp field.
// Passing nil uses os.Stderr.
func New(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return Logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

// Nop returns a Logger that discards everything, for tests that don't care
// about log output but still need to satisfy a constructor's signature.
func Nop() Logger {
	return Logger{z: zerolog.Nop()}
}

// Debugf logs a transient, expected condition (spec.md §7: "Transient
// server error on an async request: logged at debug").
func (l Logger) Debugf(format string, args ...any) {
	l.z.Debug().Msgf(format, args...)
}

// Warnf logs an invariant violation in a release build (spec.md §7:
// "Invariant violation ... logged at warn in release").
func (l Logger) Warnf(format string, args ...any) {
	l.z.Warn().Msgf(format, args...)
}

// Errorf logs a local-recovery-failed condition that still doesn't warrant
// process exit.
func (l Logger) Errorf(format string, args ...any) {
	l.z.Error().Msgf(format, args...)
}

// Infof logs a routine lifecycle event (window mapped, scene reset, ...).
func (l Logger) Infof(format string, args ...any) {
	l.z.Info().Msgf(format, args...)
}
