package geom

import "testing"

func TestRectOverlaps(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	cases := []struct {
		name string
		b    Rect
		want bool
	}{
		{"disjoint", Rect{X: 20, Y: 20, Width: 5, Height: 5}, false},
		{"touching edge not overlapping", Rect{X: 10, Y: 0, Width: 5, Height: 5}, false},
		{"overlapping", Rect{X: 5, Y: 5, Width: 10, Height: 10}, true},
		{"contained", Rect{X: 2, Y: 2, Width: 2, Height: 2}, true},
		{"empty other", Rect{X: 5, Y: 5, Width: 0, Height: 0}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := a.Overlaps(c.b); got != c.want {
				t.Errorf("Overlaps(%v) = %v, want %v", c.b, got, c.want)
			}
		})
	}
}

func TestRectIntersectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}

	inter, ok := a.Intersect(b)
	if !ok {
		t.Fatalf("expected intersection")
	}
	want := Rect{X: 5, Y: 5, Width: 5, Height: 5}
	if inter != want {
		t.Errorf("Intersect = %+v, want %+v", inter, want)
	}

	union := a.Union(b)
	wantUnion := Rect{X: 0, Y: 0, Width: 15, Height: 15}
	if union != wantUnion {
		t.Errorf("Union = %+v, want %+v", union, wantUnion)
	}
}

func TestRegionBoundsAndSimplify(t *testing.T) {
	var r Region
	r.Add(Rect{X: 0, Y: 0, Width: 10, Height: 10})
	r.Add(Rect{X: 10, Y: 0, Width: 10, Height: 10})

	if r.Empty() {
		t.Fatalf("region should not be empty")
	}
	wantBounds := Rect{X: 0, Y: 0, Width: 20, Height: 10}
	if got := r.Bounds(); got != wantBounds {
		t.Errorf("Bounds = %+v, want %+v", got, wantBounds)
	}

	r.Simplify()
	if len(r.Rects()) != 1 {
		t.Fatalf("expected coalesced single rect, got %d", len(r.Rects()))
	}
	if got := r.Rects()[0]; got != wantBounds {
		t.Errorf("simplified rect = %+v, want %+v", got, wantBounds)
	}
}

func TestRegionClearReusesStorage(t *testing.T) {
	var r Region
	r.Add(Rect{X: 0, Y: 0, Width: 1, Height: 1})
	r.Clear()
	if !r.Empty() {
		t.Fatalf("expected empty region after Clear")
	}
	if cap(r.rects) == 0 {
		t.Fatalf("expected Clear to retain backing array capacity")
	}
}
