package winstate

import (
	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/xserver"
)

// Environment is the per-frame ambient state the focus/shadow computation
// needs but that does not live on any single record: the active window and
// leader, and the monitor layout used for monitor-index assignment.
type Environment struct {
	ActiveWindow xserver.Handle
	ActiveLeader xserver.Handle
	Monitors     []geom.Rect
}

// computeFocus implements spec.md §4.2 "Focus": a record is focused if any
// of a fixed list of conditions hold, in the order given there.
func computeFocus(r *Record, env Environment, p Policy) bool {
	if r.Overrides.Focus != nil {
		return *r.Overrides.Focus
	}
	if env.ActiveWindow != 0 && env.ActiveWindow == r.Handle {
		return true
	}
	if p.FocusByType != nil && p.FocusByType(r.Raw.WindowType) {
		return true
	}
	if p.WMWindowsFocused && callBool(p.IsWMWindow, r) {
		return true
	}
	if !callBool(p.FocusBlacklist, r) && callBool(p.FocusRule, r) {
		return true
	}
	if p.LeaderFocusTracking && r.Raw.Leader != 0 && env.ActiveLeader != 0 && r.Raw.Leader == env.ActiveLeader {
		return true
	}
	return false
}

// assignMonitor returns the index of the first monitor rectangle that
// contains effGeom's top-left corner, or -1 if none does.
func assignMonitor(effGeom geom.Rect, monitors []geom.Rect) int {
	for i, m := range monitors {
		if effGeom.X >= m.X && effGeom.Y >= m.Y && effGeom.X < m.Right() && effGeom.Y < m.Bottom() {
			return i
		}
	}
	return -1
}

// PropagateFocusGroup sets Derived.IsFocused on every record sharing
// focused's leader to focused's own focus state, per spec.md §4.2 "Changes
// in focus propagate to all group members sharing the same leader."
func PropagateFocusGroup(records []*Record, changed *Record) {
	if changed.Raw.Leader == 0 {
		return
	}
	for _, r := range records {
		if r == changed || r.Destroyed {
			continue
		}
		if r.Raw.Leader == changed.Raw.Leader {
			r.Derived.IsFocused = changed.Derived.IsFocused
		}
	}
}
