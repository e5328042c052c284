package winstate

import (
	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/gpu"
	"github.com/oxywm/corewm/internal/xserver"
)

// ClientRescanner re-detects a toplevel's client window by descending the
// window tree in search of a window carrying WM_STATE, per spec.md §4.2
// primary-drain step 3.
type ClientRescanner interface {
	RescanClient(toplevel xserver.Handle) (client, leader xserver.Handle, name, class, role string, wtype WindowType, frameExtents [4]int32, ok bool)
}

// PropertyRefresher re-reads one stale X property for a record, reporting
// whether the refreshed value differs from what the record already held
// (which feeds `factor-changed`) and whether the change requires a damage
// add, per spec.md §4.2 primary-drain step 5.
type PropertyRefresher interface {
	RefreshProperty(r *Record, atom xserver.Atom) (changed, damaged bool)
}

// PixmapAcquirer binds a fresh named pixmap for a mapped record's handle,
// per spec.md §4.2 "Image drain".
type PixmapAcquirer interface {
	AcquirePixmap(handle xserver.Handle) (gpu.Image, error)
}

// Machine runs the primary and image flag drains of spec.md §4.2 over one
// record at a time. It is grounded in control-flow shape on
// engine/game_object/game_object.go's per-frame update method, generalized
// from "advance one animator tick" to "drain one window record's pending
// work in the fixed §4.2 phase order".
type Machine struct {
	Policy  Policy
	Backend gpu.Backend
	Log     corelog.Logger
}

// NewMachine builds a Machine with the given policy, GPU backend (used only
// during image drain), and logger.
func NewMachine(policy Policy, backend gpu.Backend, log corelog.Logger) *Machine {
	return &Machine{Policy: policy, Backend: backend, Log: log}
}

// PrimaryDrain runs spec.md §4.2's primary flag drain on r. paintedLastFrame
// indicates whether r had `to_paint == true` in the previous frame (used to
// decide whether to damage the old extents on a geometry change).
// addDamage, if non-nil, is called with each region that must be
// repainted. env supplies the ambient focus/monitor state. rescan and
// props are consulted only for the flags that require them.
func (m *Machine) PrimaryDrain(r *Record, env Environment, rescan ClientRescanner, props PropertyRefresher, paintedLastFrame bool, addDamage func(geom.Rect)) {
	if r.Destroyed {
		m.Log.Warnf("primary drain invoked on destroyed record handle=%d", r.Handle)
		return
	}

	damaged := false

	if r.Flags.Has(FlagMapped) {
		m.mapStart(r)
		r.Flags.Clear(FlagMapped)
	}

	if r.Raw.MapState != xserver.Mapped {
		return
	}

	if r.Flags.Has(FlagClientStale) && rescan != nil {
		if client, leader, name, class, role, wtype, extents, ok := rescan.RescanClient(r.Handle); ok {
			r.Raw.Client = client
			r.Raw.Leader = leader
			r.Raw.Name = name
			r.Raw.Class_ = class
			r.Raw.Role = role
			r.Raw.WindowType = wtype
			r.Raw.FrameExtents = extents
			r.Flags.Set(FlagFactorChanged)
		}
		r.Flags.Clear(FlagClientStale)
	}

	if r.Flags.Has(FlagSizeStale) || r.Flags.Has(FlagPositionStale) {
		if paintedLastFrame && addDamage != nil {
			addDamage(r.Derived.EffectiveGeom)
		}
		sizeChanged := r.Derived.EffectiveGeom.Width != r.Raw.PendingGeom.Width || r.Derived.EffectiveGeom.Height != r.Raw.PendingGeom.Height
		r.Derived.EffectiveGeom = r.Raw.PendingGeom
		if sizeChanged {
			m.releaseShadowAndMask(r)
			r.Flags.Set(FlagPixmapStale)
			r.Flags.Set(FlagFactorChanged)
		}
		r.Derived.IsFullscreen = r.Raw.Fullscreen
		r.Derived.MonitorIndex = assignMonitor(r.Derived.EffectiveGeom, env.Monitors)
		r.Flags.Clear(FlagSizeStale)
		r.Flags.Clear(FlagPositionStale)
		damaged = true
	}

	if r.Flags.Has(FlagPropertyStale) {
		m.drainProperties(r, props, addDamage, &damaged)
	}

	if r.Flags.Has(FlagFactorChanged) {
		m.recomputeFactors(r, env)
		r.Flags.Clear(FlagFactorChanged)
	}

	r.Derived.PaintMode = computePaintMode(r)

	if damaged && addDamage != nil {
		addDamage(r.Derived.EffectiveGeom)
	}
}

// mapStart implements spec.md §4.2 "Map-start": sets map state to mapped,
// updates paint mode and sets pixmap-stale. It leaves the InOpenClose latch
// alone; the animation engine consumes it when it derives the trigger for
// this transition.
func (m *Machine) mapStart(r *Record) {
	r.Raw.MapState = xserver.Mapped
	r.Derived.PaintMode = computePaintMode(r)
	r.Flags.Set(FlagPixmapStale)
}

// paintModeEpsilon mirrors scheduler.OpacityEpsilon ("below one display
// bit", spec.md §4.4 "Paint preprocess"); duplicated here rather than
// imported to avoid winstate depending on scheduler, which already
// depends on winstate.
const paintModeEpsilon = 1.0 / 255.0

// computePaintMode derives r's paint mode from its current frame opacity,
// per spec.md §3's three-way paint mode. Unlike the other derived
// attributes recomputed in recomputeFactors, frame opacity changes every
// tick an animation is running rather than only when a server notification
// sets factor-changed, so this is also called unconditionally at the end
// of every PrimaryDrain call (not gated behind FlagFactorChanged) to keep
// paint mode from getting stuck mid-fade.
func computePaintMode(r *Record) PaintMode {
	switch {
	case r.Derived.FrameOpacity < paintModeEpsilon:
		return PaintFullyTransparent
	case r.Derived.FrameOpacity >= 1.0-paintModeEpsilon:
		return PaintSolid
	default:
		return PaintFrameTransparent
	}
}

// drainProperties implements primary-drain step 5: walk the stale-property
// set, refreshing each atom, then clear the set and the flag.
func (m *Machine) drainProperties(r *Record, props PropertyRefresher, addDamage func(geom.Rect), damaged *bool) {
	if props != nil {
		for atom := range r.StaleProps {
			changed, dmg := props.RefreshProperty(r, atom)
			if changed {
				r.Flags.Set(FlagFactorChanged)
			}
			if dmg {
				*damaged = true
			}
		}
	}
	for atom := range r.StaleProps {
		delete(r.StaleProps, atom)
	}
	r.Flags.Clear(FlagPropertyStale)
}

// recomputeFactors implements primary-drain step 6: recompute every
// derived attribute that depends on raw state or policy.
func (m *Machine) recomputeFactors(r *Record, env Environment) {
	r.Derived.IsFocused = computeFocus(r, env, m.Policy)
	r.Derived.Shadow = computeShadow(r, m.Policy)
	r.Derived.ClipShadowAbove = callBool(m.Policy.ClipShadowAboveRule, r)
	r.Derived.BlurBackground = callBool(m.Policy.BlurBackgroundRule, r)
	r.Derived.InvertColor = callBool(m.Policy.InvertColorRule, r)
	if m.Policy.RoundedCornerRadius != nil {
		r.Derived.CornerRadius = m.Policy.RoundedCornerRadius(r)
	}
	r.Derived.PaintExcluded = callBool(m.Policy.PaintExcludeRule, r)
	r.Derived.UnredirectExcluded = callBool(m.Policy.UnredirectExcludeRule, r)
	r.Derived.FadeExcluded = callBool(m.Policy.FadeExcludeRule, r)
	r.Derived.TransparentClip = callBool(m.Policy.TransparentClipRule, r)
	if m.Policy.ForegroundShaderRule != nil {
		r.Derived.ForegroundShader = m.Policy.ForegroundShaderRule(r)
	}
	r.Derived.PaintMode = computePaintMode(r)
	if r.Raw.OpacityHint != nil {
		r.Derived.OpacityTarget = *r.Raw.OpacityHint
	} else {
		r.Derived.OpacityTarget = 1
	}
}

// releaseShadowAndMask releases the shadow and mask images eagerly on size
// change, per spec.md §4.2 "Image drain".
func (m *Machine) releaseShadowAndMask(r *Record) {
	if m.Backend == nil {
		r.Res.Shadow = gpu.Image{}
		r.Res.Mask = gpu.Image{}
		return
	}
	if r.Res.Shadow.Valid() {
		m.Backend.ReleaseImage(r.Res.Shadow)
	}
	if r.Res.Mask.Valid() {
		m.Backend.ReleaseImage(r.Res.Mask)
	}
	r.Res.Shadow = gpu.Image{}
	r.Res.Mask = gpu.Image{}
}

// ImageDrain implements spec.md §4.2 "Image drain": refresh the window's
// GPU pixmap binding if stale.
func (m *Machine) ImageDrain(r *Record, acquirer PixmapAcquirer) {
	if r.Destroyed {
		return
	}
	if !r.Flags.Has(FlagPixmapStale) {
		return
	}
	if r.Raw.MapState != xserver.Mapped || r.Flags.Has(FlagImageError) {
		return
	}
	if r.Res.Window.Valid() && m.Backend != nil {
		m.Backend.ReleaseImage(r.Res.Window)
	}
	if acquirer == nil {
		r.Flags.Set(FlagImageError)
		return
	}
	img, err := acquirer.AcquirePixmap(r.Handle)
	if err != nil {
		m.Log.Debugf("pixmap bind failed handle=%d: %v", r.Handle, err)
		r.Flags.Set(FlagImageError)
		return
	}
	r.Res.Window = img
	r.Flags.Clear(FlagPixmapStale)
	r.Flags.Clear(FlagPixmapNone)
}
