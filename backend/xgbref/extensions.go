package xgbref

import (
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/oxywm/corewm/internal/xserver"
)

// SubscribeDamage registers a DAMAGE object on handle reporting bounding-box
// damage, per spec.md §6 "Display.SubscribeDamage". The core never reads
// damage region contents directly (spec.md §1 Non-goals exclude precise
// sub-window damage tracking). The resulting DamageNotify events are
// acknowledged by PollEvents and not surfaced to the core (see events.go).
func (d *Display) SubscribeDamage(handle xserver.Handle) error {
	win := xproto.Window(handle)
	damageID, err := damage.NewDamageId(d.conn)
	if err != nil {
		return err
	}
	return damage.CreateChecked(d.conn, damageID, xproto.Drawable(win), damage.ReportLevelBoundingBox).Check()
}

// SubscribeShape registers for ShapeNotify events on handle, per spec.md §6
// "Display.SubscribeShape".
func (d *Display) SubscribeShape(handle xserver.Handle) error {
	win := xproto.Window(handle)
	return shape.SelectInputChecked(d.conn, win, true).Check()
}

// AcquireSelection attempts to take ownership of the _NET_WM_CM_Sn
// compositor-manager selection, per spec.md §6 "Display.AcquireSelection":
// "returns false if another compositor already owns it".
func (d *Display) AcquireSelection() (bool, error) {
	ownerReply, err := xproto.GetSelectionOwner(d.conn, d.netWMCMAtom).Reply()
	if err != nil {
		return false, err
	}
	if ownerReply.Owner != 0 {
		return false, nil
	}

	owner, err := xproto.NewWindowId(d.conn)
	if err != nil {
		return false, err
	}
	screen := xproto.Setup(d.conn).DefaultScreen(d.conn)
	if err := xproto.CreateWindowChecked(
		d.conn, screen.RootDepth, owner, d.root,
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOnly, screen.RootVisual, 0, nil,
	).Check(); err != nil {
		return false, err
	}

	if err := xproto.SetSelectionOwnerChecked(d.conn, owner, d.netWMCMAtom, xproto.TimeCurrentTime).Check(); err != nil {
		return false, err
	}

	confirm, err := xproto.GetSelectionOwner(d.conn, d.netWMCMAtom).Reply()
	if err != nil {
		return false, err
	}
	return confirm.Owner == owner, nil
}

// RedirectSubwindows enables or disables compositing redirection of every
// top-level window under root, per spec.md §4.4 "Redirection". Manual mode
// is used throughout: the core drives repaint timing itself rather than
// delegating to the X server's automatic redirect-update scheduling.
func (d *Display) RedirectSubwindows(enabled bool) error {
	if !enabled {
		return composite.UnredirectSubwindowsChecked(d.conn, d.root, composite.RedirectManual).Check()
	}
	return composite.RedirectSubwindowsChecked(d.conn, d.root, composite.RedirectManual).Check()
}
