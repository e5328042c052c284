// Package winstate implements the per-window state machine of spec.md §4.2:
// the raw/derived attribute record, its pending-work flag set, and the
// primary/image flag-drain algorithm that recomputes derived attributes
// from raw server state. Grounded in shape on
// engine/game_object/game_object.go (interface+impl+builder split, a
// compile-time `var _ Interface = &impl{}` assertion) though every field is
// new: a window record carries raw/derived window attributes instead of a
// mesh/animator binding.
package winstate

import (
	"github.com/oxywm/corewm/internal/animscript"
	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/gpu"
	"github.com/oxywm/corewm/internal/xserver"
)

// Ref is an arena-safe reference to another record: an index plus the slot
// generation it was observed at, per SPEC_FULL.md §9's "Cyclic references"
// decision. It is resolved to (*Record, bool) only through the registry
// that owns the arena, never dereferenced directly, so a freed slot being
// reused never hands back a record the reference didn't mean to point to.
type Ref struct {
	Index      int
	Generation uint64
}

// Valid reports whether r was ever assigned (the zero Ref is never valid:
// slot generations start at 1).
func (r Ref) Valid() bool { return r.Generation != 0 }

// PaintMode is the window's painting strategy, per spec.md §3/GLOSSARY.
type PaintMode int

const (
	PaintSolid PaintMode = iota
	PaintFrameTransparent
	PaintFullyTransparent
)

// RawAttributes mirrors the server-observed attributes of spec.md §3,
// before any compositor policy is applied.
type RawAttributes struct {
	MapState      xserver.MapState
	Class         xserver.WindowClass
	PendingGeom   geom.Rect
	BoundingShape geom.Region
	Client        xserver.Handle
	Leader        xserver.Handle
	WindowType    WindowType
	Name          string
	Class_        string // WM_CLASS class component; named Class_ to avoid colliding with the window Class field.
	Role          string
	FrameExtents  [4]int32 // left, right, top, bottom
	OpacityHint   *float64 // nil means "no _NET_WM_WINDOW_OPACITY set"
	Fullscreen    bool
	ShadowHint    *bool // nil means "no _COMPTON_SHADOW property set"
}

// WindowType enumerates the EWMH window types the shadow/focus policy
// switches on.
type WindowType int

const (
	TypeUnknown WindowType = iota
	TypeNormal
	TypeDialog
	TypeUtility
	TypeToolbar
	TypeMenu
	TypeDropdownMenu
	TypePopupMenu
	TypeTooltip
	TypeNotification
	TypeDock
	TypeDesktop
	TypeSplash
	TypeCombo
	TypeDND
)

// DerivedAttributes are computed from RawAttributes plus policy, per
// spec.md §3 "Derived attributes".
type DerivedAttributes struct {
	EffectiveGeom     geom.Rect
	PaintMode         PaintMode
	Shadow            bool
	ClipShadowAbove   bool
	BlurBackground    bool
	InvertColor       bool
	CornerRadius      int32
	ForegroundShader  gpu.Shader
	FrameOpacity      float64
	IsFullscreen      bool
	IsFocused         bool
	MonitorIndex      int
	PaintExcluded     bool
	UnredirectExcluded bool
	FadeExcluded      bool
	TransparentClip   bool
	OpacityTarget     float64
}

// Overrides holds the force-override bits named in spec.md §6
// ("window_set_*_force()").
type Overrides struct {
	Focus       *bool
	Shadow      *bool
	Fade        *bool
	InvertColor *bool
}

// LogicalState is the tri-state a record can occupy for the purpose of
// animation-trigger derivation (spec.md §4.3's trigger table), distinct
// from xserver.MapState: destroy() sets the record's literal map-state to
// Unmapped (spec.md §4.1) while separately marking Record.Destroyed, so
// the logical "destroyed" state observed by the trigger table is derived
// from both fields together via CurrentLogicalState, never stored
// redundantly on the raw attributes.
type LogicalState int

const (
	StateUnmapped LogicalState = iota
	StateMapped
	StateDestroyed
)

// CurrentLogicalState returns r's current LogicalState.
func CurrentLogicalState(r *Record) LogicalState {
	if r.Destroyed {
		return StateDestroyed
	}
	if r.Raw.MapState == xserver.Mapped {
		return StateMapped
	}
	return StateUnmapped
}

// AnimationState is the per-record animation bookkeeping of spec.md §3.
type AnimationState struct {
	Instance       animscript.Instance
	SuppressMask   uint32
	PrevState      LogicalState
	PrevOpacityTgt float64
	PrevTrans      Ref // the record this window's previous animation snapshot/cross-fade references
	InOpenClose    bool

	// TriggerTag holds the driving animation package's Trigger value for
	// Instance, stored as a plain int to avoid a dependency cycle (this
	// package is imported by internal/animation, not the reverse).
	TriggerTag int
}

// Resources holds the GPU-side image bindings of spec.md §3 "GPU
// resources".
type Resources struct {
	Window gpu.Image
	Saved  gpu.Image
	Shadow gpu.Image
	Mask   gpu.Image
}

// Record is one managed (or placeholder) window, per spec.md §3.
type Record struct {
	Handle     xserver.Handle
	Generation uint64

	Raw     RawAttributes
	Derived DerivedAttributes
	Anim    AnimationState
	Res     Resources

	Flags      FlagSet
	StaleProps map[xserver.Atom]struct{}

	Destroyed bool
	Managed   bool // false: unmanaged stacking placeholder (input-only/overlay), per spec.md §4.1
	Damaged   bool // has ever received a damage notification; gates animation per spec.md §4.3 step 1

	Overrides Overrides
}

// NewRecord allocates a zeroed record for handle at generation gen, with
// the InOpenClose latch set so its first unmapped -> mapped transition
// derives the open trigger rather than show.
func NewRecord(handle xserver.Handle, gen uint64) *Record {
	return &Record{
		Handle:     handle,
		Generation: gen,
		StaleProps: make(map[xserver.Atom]struct{}),
		Anim:       AnimationState{InOpenClose: true},
	}
}

// MarkPropertyStale records atom as changed and sets FlagPropertyStale, per
// spec.md §6 "window_set_properties_stale(atoms[])".
func (r *Record) MarkPropertyStale(atoms ...xserver.Atom) {
	for _, a := range atoms {
		r.StaleProps[a] = struct{}{}
	}
	if len(atoms) > 0 {
		r.Flags.Set(FlagPropertyStale)
	}
}
