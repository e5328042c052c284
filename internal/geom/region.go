package geom

// Region is a set of axis-aligned rectangles representing a 2D area, per
// spec.md §3/GLOSSARY. It is not guaranteed minimal or non-overlapping;
// Simplify merges contained and edge-sharing rectangles but does not
// produce a disjoint form either.
type Region struct {
	rects []Rect
}

// NewRegion builds a Region from zero or more rectangles, dropping empty ones.
func NewRegion(rects ...Rect) Region {
	var r Region
	for _, rect := range rects {
		r.Add(rect)
	}
	return r
}

// Empty reports whether the region covers no area.
func (r *Region) Empty() bool {
	return len(r.rects) == 0
}

// Rects returns the region's constituent rectangles. The returned slice must
// not be mutated by the caller.
func (r *Region) Rects() []Rect {
	return r.rects
}

// Add unions rect into the region in place. Empty rectangles are no-ops.
func (r *Region) Add(rect Rect) {
	if rect.Empty() {
		return
	}
	r.rects = append(r.rects, rect)
}

// AddRegion unions another region's rectangles into r in place.
func (r *Region) AddRegion(other Region) {
	r.rects = append(r.rects, other.rects...)
}

// Clear empties the region without releasing its backing storage, so repeated
// per-frame damage accumulation (spec.md §4.4 "commit the damage ring") does
// not churn allocations.
func (r *Region) Clear() {
	r.rects = r.rects[:0]
}

// Bounds returns the smallest rectangle containing the whole region.
func (r *Region) Bounds() Rect {
	var b Rect
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Overlaps reports whether any rectangle in r overlaps rect.
func (r *Region) Overlaps(rect Rect) bool {
	for _, rr := range r.rects {
		if rr.Overlaps(rect) {
			return true
		}
	}
	return false
}

// Simplify coalesces rectangles that share a full edge, reducing redundant
// tiles accumulated by repeated Add calls. It is not a full disjoint-region
// reduction (that belongs to the GPU backend's clip math, a Non-goal here)
// but it keeps Region.Rects() from growing unbounded over a frame's worth of
// damage additions for adjacent/identical rectangles.
func (r *Region) Simplify() {
	if len(r.rects) < 2 {
		return
	}
	out := make([]Rect, 0, len(r.rects))
	for _, rect := range r.rects {
		merged := false
		for i, existing := range out {
			if existing.Contains(rect) {
				merged = true
				break
			}
			if rect.Contains(existing) {
				out[i] = rect
				merged = true
				break
			}
			if coalesceHorizontal(existing, rect, &out[i]) || coalesceVertical(existing, rect, &out[i]) {
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, rect)
		}
	}
	r.rects = out
}

// coalesceHorizontal merges two rectangles of equal height and Y offset that
// share a vertical edge into dst, reporting whether a merge happened.
func coalesceHorizontal(a, b Rect, dst *Rect) bool {
	if a.Y == b.Y && a.Height == b.Height && (a.Right() == b.X || b.Right() == a.X) {
		*dst = a.Union(b)
		return true
	}
	return false
}

// coalesceVertical merges two rectangles of equal width and X offset that
// share a horizontal edge into dst, reporting whether a merge happened.
func coalesceVertical(a, b Rect, dst *Rect) bool {
	if a.X == b.X && a.Width == b.Width && (a.Bottom() == b.Y || b.Bottom() == a.Y) {
		*dst = a.Union(b)
		return true
	}
	return false
}
