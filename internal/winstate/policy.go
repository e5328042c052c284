package winstate

import "github.com/oxywm/corewm/internal/gpu"

// Policy bundles the rule predicates the state machine consults when
// recomputing derived attributes on `factor-changed`, per spec.md §4.2's
// "Focus" and "Shadow policy" sections. Every predicate defaults to "does
// not match" when left nil, so a zero Policy behaves as "shadows on by
// default, nothing focused by rule".
type Policy struct {
	// FocusByType reports whether wt should be focused purely by its
	// window type (spec.md: "the window type has focus-by-type enabled").
	FocusByType func(wt WindowType) bool

	// WMWindowsFocused, when true, focuses records whose WindowType is a
	// window-manager decoration type (docks, toolbars acting as chrome).
	WMWindowsFocused bool
	IsWMWindow       func(r *Record) bool

	// FocusBlacklist reports whether r is excluded from rule-based focus.
	FocusBlacklist func(r *Record) bool
	// FocusRule reports whether r matches a configured focus rule.
	FocusRule func(r *Record) bool

	// LeaderFocusTracking, when true, focuses r if r.Raw.Leader equals the
	// environment's active leader.
	LeaderFocusTracking bool

	// ShadowExcludeByType reports whether wt never gets a shadow.
	ShadowExcludeByType func(wt WindowType) bool
	// ShadowExcludeRule reports whether r matches a configured
	// shadow-exclude rule.
	ShadowExcludeRule func(r *Record) bool
	// ShadowIgnoreShaped, when true, denies a shadow to an irregularly
	// shaped, non-round-cornered window.
	ShadowIgnoreShaped bool

	// PaintExcludeRule, FadeExcludeRule, UnredirectExcludeRule mirror the
	// shadow-exclude shape for the other per-window exclusion bits named
	// in spec.md §4.2 step 6.
	PaintExcludeRule     func(r *Record) bool
	FadeExcludeRule      func(r *Record) bool
	UnredirectExcludeRule func(r *Record) bool

	// BlurBackgroundRule reports whether r should blur whatever is behind
	// it.
	BlurBackgroundRule func(r *Record) bool
	// InvertColorRule reports whether r's content should be color-inverted.
	InvertColorRule func(r *Record) bool
	// RoundedCornerRadius returns the corner radius to apply to r, or 0.
	RoundedCornerRadius func(r *Record) int32
	// ClipShadowAboveRule reports whether r's shadow should be clipped by
	// windows above it instead of drawn in full.
	ClipShadowAboveRule func(r *Record) bool

	// TransparentClipRule reports whether r's frame-transparent region
	// should be clipped against whatever is painted beneath it (spec.md
	// §4.2 step 6 "transparent-clipping"), rather than left to blend.
	TransparentClipRule func(r *Record) bool
	// ForegroundShaderRule returns the foreground shader binding to apply
	// to r, or the zero gpu.Shader for "none" (spec.md §4.2 step 6
	// "foreground shader").
	ForegroundShaderRule func(r *Record) gpu.Shader
}

func callBool(f func(r *Record) bool, r *Record) bool {
	if f == nil {
		return false
	}
	return f(r)
}
