package xgbref

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/xserver"
)

// PollEvents drains every event xgb has already buffered plus any vblank
// ticks the fallback vblankSource produced since the last call, per
// spec.md §5's pre-sleep "flushes output, drains all queued events" hook.
// It never blocks: xgb.Conn.PollForEvent returns (nil, nil) once the queue
// is empty rather than waiting for the next one.
func (d *Display) PollEvents() []xserver.Event {
	var out []xserver.Event

	for {
		ev, err := d.conn.PollForEvent()
		if err != nil {
			d.log.Debugf("xgbref: poll error: %v", err)
			continue
		}
		if ev == nil {
			break
		}
		if decoded, ok := d.decode(ev); ok {
			out = append(out, decoded)
		}
	}

	out = append(out, d.vblank.drain()...)
	return out
}

// Flush sends any requests xgb has buffered locally. xgb itself writes
// requests to the wire as they are issued rather than batching them client
// side, so this is a no-op kept to satisfy spec.md §6's Display interface
// and to give a future buffering adapter a seam to hook into.
func (d *Display) Flush() error { return nil }

// decode translates a raw xgb event into the core's xserver.Event, or
// reports ok=false for events the core doesn't model (spec.md §1 Non-goals
// exclude precise sub-window damage-region tracking, so DamageNotify is
// acknowledged here via damage.Subtract and never surfaced as an Event;
// the redraw it implies arrives instead through the ConfigureNotify/
// MapNotify/PropertyNotify flag-drain path).
func (d *Display) decode(raw xgb.Event) (xserver.Event, bool) {
	switch e := raw.(type) {
	case xproto.CreateNotifyEvent:
		return xserver.Event{Kind: xserver.EventCreateNotify, Handle: xserver.Handle(e.Window)}, true

	case xproto.DestroyNotifyEvent:
		return xserver.Event{Kind: xserver.EventDestroyNotify, Handle: xserver.Handle(e.Window)}, true

	case xproto.MapNotifyEvent:
		return xserver.Event{Kind: xserver.EventMapNotify, Handle: xserver.Handle(e.Window)}, true

	case xproto.UnmapNotifyEvent:
		return xserver.Event{Kind: xserver.EventUnmapNotify, Handle: xserver.Handle(e.Window)}, true

	case xproto.ConfigureNotifyEvent:
		return xserver.Event{
			Kind:   xserver.EventConfigureNotify,
			Handle: xserver.Handle(e.Window),
			Geometry: geom.Rect{
				X: int32(e.X), Y: int32(e.Y),
				Width: int32(e.Width), Height: int32(e.Height),
			},
		}, true

	case xproto.ReparentNotifyEvent:
		return xserver.Event{
			Kind:   xserver.EventReparentNotify,
			Handle: xserver.Handle(e.Window),
			Parent: xserver.Handle(e.Parent),
		}, true

	case xproto.PropertyNotifyEvent:
		return xserver.Event{
			Kind:   xserver.EventPropertyNotify,
			Handle: xserver.Handle(e.Window),
			Atom:   xserver.Atom(e.Atom),
		}, true

	case shape.NotifyEvent:
		return xserver.Event{Kind: xserver.EventShapeNotify, Handle: xserver.Handle(e.AffectedWindow)}, true

	case damage.NotifyEvent:
		d.acknowledgeDamage(e)
		return xserver.Event{}, false

	default:
		return xserver.Event{}, false
	}
}

// acknowledgeDamage subtracts the reported region from the DAMAGE object's
// accumulated state so the server keeps delivering future notifications;
// errors are logged at debug per spec.md §7 ("transient errors on async
// requests") since a missed subtract only delays the next notification.
func (d *Display) acknowledgeDamage(e damage.NotifyEvent) {
	if err := damage.SubtractChecked(d.conn, e.Damage, 0, 0).Check(); err != nil {
		d.log.Debugf("xgbref: damage subtract: %v", err)
	}
}
