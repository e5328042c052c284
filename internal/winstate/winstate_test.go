package winstate

import (
	"testing"

	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/gpu"
	"github.com/oxywm/corewm/internal/xserver"
)

const (
	atomName xserver.Atom = iota + 1
	atomOpacity
	atomType
)

type fakeRescanner struct{ called bool }

func (f *fakeRescanner) RescanClient(xserver.Handle) (xserver.Handle, xserver.Handle, string, string, string, WindowType, [4]int32, bool) {
	f.called = true
	return 42, 0, "client", "Client", "role", TypeNormal, [4]int32{}, true
}

type fakePropertyRefresher struct {
	seen map[xserver.Atom]bool
}

func (f *fakePropertyRefresher) RefreshProperty(r *Record, atom xserver.Atom) (bool, bool) {
	if f.seen == nil {
		f.seen = map[xserver.Atom]bool{}
	}
	f.seen[atom] = true
	switch atom {
	case atomName:
		r.Raw.Name = "renamed"
		return true, false
	case atomOpacity:
		v := 0.5
		r.Raw.OpacityHint = &v
		return true, false
	case atomType:
		r.Raw.WindowType = TypeDialog
		return true, false
	}
	return false, false
}

// TestPropertyDrain implements scenario S6: three stale atoms drain in one
// frame, the derived fields update, and the stale state is fully cleared.
func TestPropertyDrain(t *testing.T) {
	r := NewRecord(1, 1)
	r.Raw.MapState = xserver.Mapped
	r.Derived.EffectiveGeom = geom.Rect{Width: 100, Height: 100}
	r.MarkPropertyStale(atomName, atomOpacity, atomType)

	m := NewMachine(Policy{}, nil, corelog.Nop())
	props := &fakePropertyRefresher{}

	m.PrimaryDrain(r, Environment{}, nil, props, false, nil)

	if len(props.seen) != 3 {
		t.Fatalf("expected all 3 atoms refreshed, got %d", len(props.seen))
	}
	if r.Flags.Has(FlagPropertyStale) {
		t.Fatalf("property-stale should be clear after drain")
	}
	if len(r.StaleProps) != 0 {
		t.Fatalf("stale property set should be empty after drain, got %d entries", len(r.StaleProps))
	}
	if r.Flags.Has(FlagFactorChanged) {
		t.Fatalf("factor-changed should be cleared within the same drain pass")
	}
	if r.Raw.Name != "renamed" {
		t.Fatalf("name should have been refreshed")
	}
	if r.Derived.OpacityTarget != 0.5 {
		t.Fatalf("opacity target = %v, want 0.5 from refreshed hint", r.Derived.OpacityTarget)
	}
	if r.Raw.WindowType != TypeDialog {
		t.Fatalf("window type should have been refreshed to dialog")
	}
}

func TestMapStartSetsPixmapStaleAndClearsMappedFlag(t *testing.T) {
	r := NewRecord(1, 1)
	r.Flags.Set(FlagMapped)
	r.Raw.MapState = xserver.Unmapped

	m := NewMachine(Policy{}, nil, corelog.Nop())
	m.PrimaryDrain(r, Environment{}, nil, nil, false, nil)

	if r.Flags.Has(FlagMapped) {
		t.Fatalf("mapped flag should be cleared after map-start")
	}
	if !r.Flags.Has(FlagPixmapStale) {
		t.Fatalf("map-start should set pixmap-stale")
	}
	if r.Raw.MapState != xserver.Mapped {
		t.Fatalf("map-start should transition map state to mapped")
	}
}

func TestPrimaryDrainSkipsUnmappedRecords(t *testing.T) {
	r := NewRecord(1, 1)
	r.Raw.MapState = xserver.Unmapped
	r.Flags.Set(FlagClientStale)

	rescan := &fakeRescanner{}
	m := NewMachine(Policy{}, nil, corelog.Nop())
	m.PrimaryDrain(r, Environment{}, rescan, nil, false, nil)

	if rescan.called {
		t.Fatalf("client rescan should not run on an unmapped record")
	}
	if !r.Flags.Has(FlagClientStale) {
		t.Fatalf("client-stale should survive undrained on an unmapped record")
	}
}

func TestSizeChangeReleasesShadowAndMaskAndMarksFactorChanged(t *testing.T) {
	r := NewRecord(1, 1)
	r.Raw.MapState = xserver.Mapped
	r.Derived.EffectiveGeom = geom.Rect{Width: 100, Height: 100}
	r.Raw.PendingGeom = geom.Rect{Width: 200, Height: 150}
	r.Flags.Set(FlagSizeStale)
	r.Res.Shadow = gpu.NewImage("shadow")
	r.Res.Mask = gpu.NewImage("mask")

	var damaged []geom.Rect
	m := NewMachine(Policy{}, nil, corelog.Nop())
	m.PrimaryDrain(r, Environment{}, nil, nil, true, func(rect geom.Rect) { damaged = append(damaged, rect) })

	if r.Res.Shadow.Valid() || r.Res.Mask.Valid() {
		t.Fatalf("size change should release the shadow and mask images")
	}
	if r.Derived.OpacityTarget != 1 {
		t.Fatalf("size change should mark factor-changed, so the factor recompute sets the opacity target, got %v", r.Derived.OpacityTarget)
	}
	if r.Flags.Has(FlagSizeStale) {
		t.Fatalf("size-stale should be cleared")
	}
	if !r.Flags.Has(FlagPixmapStale) {
		t.Fatalf("size change should mark pixmap-stale")
	}
	if r.Derived.EffectiveGeom.Width != 200 || r.Derived.EffectiveGeom.Height != 150 {
		t.Fatalf("effective geometry should commit pending geometry, got %+v", r.Derived.EffectiveGeom)
	}
	if len(damaged) == 0 {
		t.Fatalf("a painted, resized record should produce damage")
	}
}

// TestPaintModeRecoversToSolidAfterMapTimeFadeCompletes is a regression
// test: a window mapped while still at opacity 0 (a fade-in just started)
// starts out PaintFullyTransparent and must not stay stuck there once its
// opacity reaches 1 — paint mode has to track live frame opacity every
// drain, not just the snapshot taken at map-start.
func TestPaintModeRecoversToSolidAfterMapTimeFadeCompletes(t *testing.T) {
	r := NewRecord(1, 1)
	r.Flags.Set(FlagMapped)
	r.Raw.MapState = xserver.Unmapped
	r.Derived.FrameOpacity = 0 // fade-in has not advanced yet at map time

	m := NewMachine(Policy{}, nil, corelog.Nop())
	m.PrimaryDrain(r, Environment{}, nil, nil, false, nil)

	if r.Derived.PaintMode != PaintFullyTransparent {
		t.Fatalf("paint mode at opacity 0 should be fully transparent, got %v", r.Derived.PaintMode)
	}

	// The fade completes between frames; nothing re-sets factor-changed.
	r.Derived.FrameOpacity = 1
	m.PrimaryDrain(r, Environment{}, nil, nil, false, nil)

	if r.Derived.PaintMode != PaintSolid {
		t.Fatalf("paint mode should recover to solid once frame opacity reaches 1, got %v", r.Derived.PaintMode)
	}
}

// TestRecomputeFactorsWiresForegroundShaderAndTransparentClip covers
// spec.md §4.2 step 6's "foreground shader" and "transparent-clipping"
// recompute targets.
func TestRecomputeFactorsWiresForegroundShaderAndTransparentClip(t *testing.T) {
	wantShader := gpu.NewShader("test-shader")
	policy := Policy{
		TransparentClipRule: func(r *Record) bool { return true },
		ForegroundShaderRule: func(r *Record) gpu.Shader { return wantShader },
	}
	r := NewRecord(1, 1)
	r.Raw.MapState = xserver.Mapped
	r.Flags.Set(FlagFactorChanged)

	m := NewMachine(policy, nil, corelog.Nop())
	m.PrimaryDrain(r, Environment{}, nil, nil, false, nil)

	if !r.Derived.TransparentClip {
		t.Fatalf("transparent-clip should be recomputed from policy on factor-changed")
	}
	if r.Derived.ForegroundShader != wantShader {
		t.Fatalf("foreground shader should be recomputed from policy on factor-changed")
	}
}

func TestDrainOnDestroyedRecordIsNoop(t *testing.T) {
	r := NewRecord(1, 1)
	r.Destroyed = true
	r.Flags.Set(FlagClientStale)

	m := NewMachine(Policy{}, nil, corelog.Nop())
	rescan := &fakeRescanner{}
	m.PrimaryDrain(r, Environment{}, rescan, nil, false, nil)

	if rescan.called {
		t.Fatalf("destroyed records must not be processed by primary drain")
	}
}

func TestFlagSetDrained(t *testing.T) {
	var s FlagSet
	s.Set(FlagImageError)
	if !s.Drained() {
		t.Fatalf("image-error alone should still count as drained")
	}
	s.Set(FlagPropertyStale)
	if s.Drained() {
		t.Fatalf("a pending non-image-error flag must not be reported as drained")
	}
}

func TestComputeFocusOverrideWins(t *testing.T) {
	r := NewRecord(1, 1)
	no := false
	r.Overrides.Focus = &no
	env := Environment{ActiveWindow: r.Handle}
	if computeFocus(r, env, Policy{}) {
		t.Fatalf("focus override should take precedence over active-window match")
	}
}

func TestComputeShadowDefaultsOnAndRespectsHint(t *testing.T) {
	r := NewRecord(1, 1)
	if !computeShadow(r, Policy{}) {
		t.Fatalf("shadow should default on")
	}
	off := false
	r.Raw.ShadowHint = &off
	if computeShadow(r, Policy{}) {
		t.Fatalf("an explicit zero shadow-hint should disable the shadow")
	}
}
