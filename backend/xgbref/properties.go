package xgbref

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/oxywm/corewm/internal/xserver"
)

// maxPropertyLen bounds the GetProperty reply length requested; large
// enough for any WM property this adapter cares about (window lists,
// UTF8_STRING titles), small enough to bound one malicious/misbehaving
// client's property.
const maxPropertyLen = 1 << 20

// FetchPropertyAsync submits a GetProperty round trip to the dispatch pool
// and delivers the typed result on PropertyReplies(), per spec.md §6
// "Display.FetchPropertyAsync".
func (d *Display) FetchPropertyAsync(handle xserver.Handle, generation uint64, atom xserver.Atom, kind xserver.PropertyKind) {
	win := xproto.Window(handle)
	propAtom := xproto.Atom(atom)

	d.pool.SubmitTask(worker.Task{
		ID: d.nextTaskID(),
		Do: func() (any, error) {
			value, err := fetchProperty(d.conn, win, propAtom, kind)
			reply := xserver.PropertyReply{Handle: handle, Generation: generation, Atom: atom}
			if err != nil {
				reply.Err = err
			} else {
				reply.Value = value
			}
			d.propReplies <- reply
			return nil, nil
		},
	})
}

// fetchProperty performs the blocking GetProperty round trip and decodes
// the reply according to kind. Factored out of FetchPropertyAsync so the
// decoding logic can be unit tested without a live connection.
func fetchProperty(conn *xgb.Conn, win xproto.Window, atom xproto.Atom, kind xserver.PropertyKind) (xserver.PropertyValue, error) {
	reply, err := xproto.GetProperty(conn, false, win, atom, xproto.GetPropertyTypeAny, 0, maxPropertyLen).Reply()
	if err != nil {
		return xserver.PropertyValue{}, err
	}
	if reply == nil || reply.Format == 0 {
		return xserver.PropertyValue{}, nil
	}

	switch kind {
	case xserver.PropertyCardinal:
		if len(reply.Value) < 4 {
			return xserver.PropertyValue{Kind: kind}, nil
		}
		v := uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 | uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
		return xserver.PropertyValue{Kind: kind, Cardinal: v}, nil

	case xserver.PropertyAtom:
		if len(reply.Value) < 4 {
			return xserver.PropertyValue{Kind: kind}, nil
		}
		v := uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 | uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
		return xserver.PropertyValue{Kind: kind, Atom: xserver.Atom(v)}, nil

	case xserver.PropertyStringList:
		return xserver.PropertyValue{Kind: kind, Strings: splitNulTerminated(reply.Value)}, nil

	default:
		return xserver.PropertyValue{Kind: kind}, nil
	}
}

// splitNulTerminated splits an ICCCM STRING-list/UTF8_STRING-list property
// buffer (nul-separated, no trailing delimiter guarantee) into its parts.
func splitNulTerminated(buf []byte) []string {
	if len(buf) == 0 {
		return nil
	}
	var out []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			out = append(out, string(buf[start:i]))
			start = i + 1
		}
	}
	if start < len(buf) {
		out = append(out, string(buf[start:]))
	}
	return out
}
