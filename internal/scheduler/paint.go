package scheduler

import (
	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/winstate"
)

// OpacityEpsilon is "below one display bit" from spec.md §4.4 "Paint
// preprocess": 1/255, the smallest opacity step representable in an 8-bit
// alpha channel.
const OpacityEpsilon = 1.0 / 255.0

// PaintEntry is one stacking-order record's paint-preprocess result.
type PaintEntry struct {
	Record   *winstate.Record
	ToPaint  bool
	RegIgnore geom.Region // cumulative opaque region of everything above this record
}

// hasRunningAnimation reports whether r currently has an in-flight
// animation instance (spec.md §4.4: "unmapped with no running animation").
func hasRunningAnimation(r *winstate.Record) bool {
	return r.Anim.Instance != nil
}

// isOpaqueAt reports whether r paints fully opaque (no blur-through, full
// frame opacity, solid paint mode) and so contributes to reg_ignore.
func isOpaqueAt(r *winstate.Record) bool {
	return r.Derived.PaintMode == winstate.PaintSolid &&
		r.Derived.FrameOpacity >= 1.0-OpacityEpsilon &&
		!r.Derived.BlurBackground
}

// PaintPreprocess implements spec.md §4.4 "Paint preprocess": for each
// record in stacking order (top to bottom as returned by
// Registry.StackingTopToBottom), decide to_paint and maintain reg_ignore,
// the cumulative region that cannot be seen through windows above.
//
// imageError reports, for a given record, whether it currently has an
// unrecoverable pixmap/image error (spec.md's "image-error" condition);
// backends that cannot fail this way may pass a func that always returns
// false.
func PaintPreprocess(records []*winstate.Record, root geom.Rect, imageError func(*winstate.Record) bool) []PaintEntry {
	entries := make([]PaintEntry, len(records))
	var ignoreSoFar geom.Region

	for i, r := range records {
		entry := PaintEntry{Record: r}

		unmappedNoAnim := winstate.CurrentLogicalState(r) != winstate.StateMapped && !hasRunningAnimation(r)
		outsideRoot := !r.Derived.EffectiveGeom.Overlaps(root)
		negligibleOpacity := r.Derived.FrameOpacity < OpacityEpsilon && !(r.Derived.BlurBackground && r.Derived.FrameOpacity > 0)
		hasImageError := imageError != nil && imageError(r)

		switch {
		case unmappedNoAnim, outsideRoot, negligibleOpacity, r.Derived.PaintExcluded, hasImageError:
			entry.ToPaint = false
		default:
			entry.ToPaint = true
		}

		// reg_ignore as seen from this record's position in the stack is
		// everything opaque strictly above it.
		entry.RegIgnore = ignoreSoFar

		if entry.ToPaint && isOpaqueAt(r) {
			ignoreSoFar.Add(r.Derived.EffectiveGeom)
			ignoreSoFar.Simplify()
		}

		entries[i] = entry
	}
	return entries
}

// RedirectionDecision implements spec.md §4.4 "Redirection": the screen
// is redirected when at least one to_paint window is present and no
// forced-unredirect full-screen solid window exists.
func RedirectionDecision(entries []PaintEntry, root geom.Rect) bool {
	anyToPaint := false
	for _, e := range entries {
		if !e.ToPaint {
			continue
		}
		anyToPaint = true
		if e.Record.Derived.UnredirectExcluded {
			continue
		}
		fullscreenSolid := e.Record.Derived.IsFullscreen &&
			isOpaqueAt(e.Record) &&
			e.Record.Derived.EffectiveGeom.Contains(root)
		if fullscreenSolid {
			return false
		}
	}
	return anyToPaint
}
