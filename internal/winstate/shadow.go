package winstate

import "github.com/oxywm/corewm/internal/geom"

// computeShadow implements spec.md §4.2 "Shadow policy": on by default,
// disabled by type, by shadow-exclude rule, by shadow-ignore-shaped when
// irregularly shaped and not round-cornered, or when the shadow-hint
// property is explicitly zero. Force-override takes precedence over all of
// the above.
func computeShadow(r *Record, p Policy) bool {
	if r.Overrides.Shadow != nil {
		return *r.Overrides.Shadow
	}
	if p.ShadowExcludeByType != nil && p.ShadowExcludeByType(r.Raw.WindowType) {
		return false
	}
	if callBool(p.ShadowExcludeRule, r) {
		return false
	}
	if p.ShadowIgnoreShaped && isIrregularlyShaped(r) && r.Derived.CornerRadius == 0 {
		return false
	}
	if r.Raw.ShadowHint != nil && !*r.Raw.ShadowHint {
		return false
	}
	return true
}

// isIrregularlyShaped reports whether r carries a bounding shape other
// than its plain rectangular geometry.
func isIrregularlyShaped(r *Record) bool {
	rects := r.Raw.BoundingShape.Rects()
	if len(rects) == 0 {
		return false
	}
	if len(rects) != 1 {
		return true
	}
	b := r.Raw.BoundingShape.Bounds()
	return b != geom.Rect{Width: r.Raw.PendingGeom.Width, Height: r.Raw.PendingGeom.Height}
}
