// Package animation implements the Animation Engine of spec.md §4.3: the
// open/show/hide/close/opacity-inc/opacity-dec trigger table, and the
// process() operation that advances or (re)starts a record's animation
// instance each frame.
package animation

import "github.com/oxywm/corewm/internal/winstate"

// Trigger identifies one of the map-state/opacity transitions spec.md
// §4.3's table maps to an animation.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerOpen
	TriggerShow
	TriggerHide
	TriggerClose
	TriggerOpacityInc
	TriggerOpacityDec
)

func (t Trigger) String() string {
	switch t {
	case TriggerOpen:
		return "open"
	case TriggerShow:
		return "show"
	case TriggerHide:
		return "hide"
	case TriggerClose:
		return "close"
	case TriggerOpacityInc:
		return "opacity-inc"
	case TriggerOpacityDec:
		return "opacity-dec"
	default:
		return "none"
	}
}

// bit returns the single-bit suppression-mask value for t, used to test
// "the chosen trigger is in [the running instance's] suppression mask"
// (spec.md §4.3 step 4).
func (t Trigger) bit() uint32 {
	if t == TriggerNone {
		return 0
	}
	return 1 << uint(t-1)
}

// deriveTrigger implements the table of spec.md §4.3, given the record's
// previous and current LogicalState, its previous and current opacity
// target, the in_openclose latch read at the moment of derivation, and
// whether the record currently has a running animation instance (needed
// to distinguish "unmapped → destroyed with an in-flight animation" from a
// plain silent teardown of a window that was never shown).
func deriveTrigger(prev, cur winstate.LogicalState, prevOpacity, curOpacity float64, inOpenClose, hasRunningAnim bool) Trigger {
	switch {
	case prev == winstate.StateUnmapped && cur == winstate.StateMapped:
		if inOpenClose {
			return TriggerOpen
		}
		return TriggerShow
	case prev == winstate.StateMapped && cur == winstate.StateUnmapped:
		return TriggerHide
	case prev == winstate.StateMapped && cur == winstate.StateDestroyed:
		return TriggerClose
	case prev == winstate.StateUnmapped && cur == winstate.StateDestroyed:
		if hasRunningAnim {
			return TriggerClose
		}
		return TriggerNone
	case prev == winstate.StateMapped && cur == winstate.StateMapped:
		if curOpacity > prevOpacity {
			return TriggerOpacityInc
		}
		if curOpacity < prevOpacity {
			return TriggerOpacityDec
		}
		return TriggerNone
	default:
		return TriggerNone
	}
}
