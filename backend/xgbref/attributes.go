package xgbref

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/xserver"
)

// QueryTree returns root's current children, bottom to top, matching
// xproto.QueryTree's Children ordering (spec.md §6 "Display.QueryTree").
func (d *Display) QueryTree() ([]xserver.Handle, error) {
	reply, err := xproto.QueryTree(d.conn, d.root).Reply()
	if err != nil {
		return nil, err
	}
	out := make([]xserver.Handle, len(reply.Children))
	for i, c := range reply.Children {
		out[i] = xserver.Handle(c)
	}
	return out, nil
}

// FetchAttributesAsync submits a GetWindowAttributes+GetGeometry round
// trip to the dispatch pool (no shape query is made) and delivers the result on
// Replies(), tagged with handle/generation so the receiver can apply the
// "Async X replies with identity" discipline of spec.md §9: a reply for a
// handle that has since been destroyed and recreated (generation bumped)
// is still delivered, but the registry is expected to discard it.
func (d *Display) FetchAttributesAsync(handle xserver.Handle, generation uint64) {
	win := xproto.Window(handle)

	d.pool.SubmitTask(worker.Task{
		ID: d.nextTaskID(),
		Do: func() (any, error) {
			attrs, err := fetchRawAttributes(d.conn, win)
			reply := xserver.AttrReply{Handle: handle, Generation: generation}
			if err != nil {
				reply.Err = err
			} else {
				reply.Attrs = attrs
			}
			d.attrReplies <- reply
			return nil, nil
		},
	})
}

// fetchRawAttributes performs the two blocking round trips
// GetWindowAttributes/GetGeometry need, and is factored out
// of FetchAttributesAsync so it can be unit tested independent of the
// worker pool's dispatch plumbing.
func fetchRawAttributes(conn *xgb.Conn, win xproto.Window) (xserver.RawAttributes, error) {
	attrCookie := xproto.GetWindowAttributes(conn, win)
	geomCookie := xproto.GetGeometry(conn, xproto.Drawable(win))

	attrReply, err := attrCookie.Reply()
	if err != nil {
		return xserver.RawAttributes{}, err
	}
	geomReply, err := geomCookie.Reply()
	if err != nil {
		return xserver.RawAttributes{}, err
	}

	out := xserver.RawAttributes{
		Viewable: attrReply.MapState == xproto.MapStateViewable,
		Geometry: geom.Rect{
			X:      int32(geomReply.X),
			Y:      int32(geomReply.Y),
			Width:  int32(geomReply.Width),
			Height: int32(geomReply.Height),
		},
		Border: int32(geomReply.BorderWidth),
	}
	switch attrReply.MapState {
	case xproto.MapStateUnmapped:
		out.MapState = xserver.Unmapped
	default:
		out.MapState = xserver.Mapped
	}
	if attrReply.Class == xproto.WindowClassInputOnly {
		out.Class = xserver.ClassInputOnly
	} else {
		out.Class = xserver.ClassInputOutput
	}
	return out, nil
}

// NamedPixmap acquires a composite "named window pixmap" for handle,
// suitable for gpu.Backend.BindPixmap. The caller is responsible for
// freeing the returned pixmap via xproto.FreePixmap once the backend image
// it was bound into is released.
func (d *Display) NamedPixmap(handle xserver.Handle) (uintptr, error) {
	win := xproto.Window(handle)
	pixmapID, err := xproto.NewPixmapId(d.conn)
	if err != nil {
		return 0, err
	}
	if err := composite.NameWindowPixmapChecked(d.conn, win, pixmapID).Check(); err != nil {
		return 0, err
	}
	return uintptr(pixmapID), nil
}
