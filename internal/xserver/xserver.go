// Package xserver defines the abstract display-server client the
// compositor core consumes, per spec.md §6. The core never talks to the X
// wire protocol directly; it is handed a Display implementation (in
// production, backend/xgbref; in tests, a fake) and only ever calls through
// this interface.
package xserver

import "github.com/oxywm/corewm/internal/geom"

// Handle identifies a server-side window (an X11 XID, opaquely).
type Handle uint32

// None is the distinguished absence of a Handle (X11's None/0).
const None Handle = 0

// Atom identifies an interned X property atom.
type Atom uint32

// MapState is a window's observable map state, per spec.md §3.
type MapState int

const (
	Unmapped MapState = iota
	Mapped
	Destroyed
)

// WindowClass distinguishes renderable (InputOutput) windows from
// input-only windows, per spec.md §3.
type WindowClass int

const (
	ClassInputOutput WindowClass = iota
	ClassInputOnly
)

// RawAttributes is the server-side attribute snapshot returned by an
// attribute fetch, per spec.md §3 "Raw attributes".
type RawAttributes struct {
	MapState MapState
	Class    WindowClass
	Geometry geom.Rect
	Border   int32
	Shape    geom.Region
	Client   Handle
	Leader   Handle
	Viewable bool
}

// PropertyKind enumerates the typed property fetches spec.md §6 names
// (atom, cardinal, string-list).
type PropertyKind int

const (
	PropertyAtom PropertyKind = iota
	PropertyCardinal
	PropertyStringList
)

// PropertyValue is the typed result of a property fetch.
type PropertyValue struct {
	Kind     PropertyKind
	Atom     Atom
	Cardinal uint32
	Strings  []string
}

// PresentEvent is a monotonic present/vblank notification, per spec.md §6:
// "monotonic present/vblank events with (count, timestamp)".
type PresentEvent struct {
	MSC        uint64 // vblank/frame counter
	TimestampU int64  // microseconds, server clock domain
}

// AttrReply is delivered asynchronously in response to FetchAttributesAsync,
// carrying the handle/generation it was requested for so the receiver can
// apply the "Async X replies with identity" discipline of spec.md §9.
type AttrReply struct {
	Handle     Handle
	Generation uint64
	Attrs      RawAttributes
	Err        error
}

// PropertyReply is delivered asynchronously in response to
// FetchPropertyAsync.
type PropertyReply struct {
	Handle     Handle
	Generation uint64
	Atom       Atom
	Value      PropertyValue
	Err        error
}

// Display is the abstract display-server client named in spec.md §6. All
// Fetch* operations are asynchronous: the reply arrives later on the
// channel returned by Replies/PropertyReplies, tagged with the identity the
// caller requested it for, rather than via a blocking call or callback
// invoked from an arbitrary goroutine — this keeps the core's event loop
// single-threaded per §5 while still letting a real adapter use background
// I/O to satisfy the request.
type Display interface {
	// QueryTree returns the current child-window stacking order of root,
	// bottom to top.
	QueryTree() ([]Handle, error)

	// FetchAttributesAsync requests geometry/class/map-state/shape for
	// handle at the given generation; the reply arrives on Replies().
	FetchAttributesAsync(handle Handle, generation uint64)

	// FetchPropertyAsync requests a single typed property; the reply
	// arrives on PropertyReplies().
	FetchPropertyAsync(handle Handle, generation uint64, atom Atom, kind PropertyKind)

	// Replies returns the channel attribute-fetch replies are delivered on.
	Replies() <-chan AttrReply

	// PropertyReplies returns the channel property-fetch replies are
	// delivered on.
	PropertyReplies() <-chan PropertyReply

	// SubscribeDamage registers for damage notifications on handle.
	SubscribeDamage(handle Handle) error

	// SubscribeShape registers for bounding-shape-changed notifications.
	SubscribeShape(handle Handle) error

	// AcquireSelection attempts to take ownership of the compositor
	// manager selection (e.g. _NET_WM_CM_Sn); returns false if another
	// compositor already owns it.
	AcquireSelection() (bool, error)

	// RedirectSubwindows turns on/off compositing redirection for all
	// top-level windows, per spec.md §4.4 "Redirection".
	RedirectSubwindows(enabled bool) error

	// NamedPixmap acquires a server-side pixmap binding for handle,
	// suitable for handing to gpu.Backend.BindPixmap.
	NamedPixmap(handle Handle) (uintptr, error)

	// PollEvents drains all queued events without blocking, per spec.md §5
	// "the pre-sleep hook that flushes output, drains all queued events".
	// The returned slice is only valid until the next PollEvents call.
	PollEvents() []Event

	// Flush flushes any buffered outgoing requests to the server.
	Flush() error
}

// EventKind discriminates the variants carried by Event.
type EventKind int

const (
	EventCreateNotify EventKind = iota
	EventDestroyNotify
	EventMapNotify
	EventUnmapNotify
	EventConfigureNotify
	EventReparentNotify
	EventPropertyNotify
	EventShapeNotify
	EventPresent
)

// Event is a decoded server event, fed into the registry/state machine by
// the compositor event loop (spec.md §4.1/§4.2).
type Event struct {
	Kind     EventKind
	Handle   Handle
	Parent   Handle // ReparentNotify's new parent
	Geometry geom.Rect
	Atom     Atom
	Present  PresentEvent
}
