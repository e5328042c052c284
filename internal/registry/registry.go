// Package registry implements the Window Registry of spec.md §4.1: the
// arena owning every known window record, its stacking order, and its
// server-handle index. Grounded in shape on engine/scene/scene.go's
// registry map plus its Add/Remove mutation pattern, but stripped of
// scene.go's sync.RWMutex — spec.md §5 makes the core single-threaded, so
// no concurrent access to the registry is possible and a lock would only
// hide bugs rather than prevent races.
package registry

import (
	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/winstate"
	"github.com/oxywm/corewm/internal/xserver"
)

type slot struct {
	record     *winstate.Record
	generation uint64
	prev, next int // stacking-order links; -1 means "no neighbor"
}

const none = -1

// Registry owns every known window record: an arena indexed by slot,
// a server-handle hash index for hot lookups, and a doubly linked stacking
// order from bottom to top, per spec.md §3 "Registry".
type Registry struct {
	slots    []slot
	freeList []int
	byHandle map[xserver.Handle]int
	bottom   int // slot index of the lowest stacked record, or none
	top      int // slot index of the highest stacked record, or none
	log      corelog.Logger
}

// New builds an empty Registry.
func New(log corelog.Logger) *Registry {
	return &Registry{
		byHandle: make(map[xserver.Handle]int),
		bottom:   none,
		top:      none,
		log:      log,
	}
}

// alloc reserves a slot, reusing a freed one if available, and returns its
// index and the generation the new record should carry. Generations start
// at 1 so the zero winstate.Ref is never valid.
func (r *Registry) alloc() (int, uint64) {
	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.slots[idx].generation++
		return idx, r.slots[idx].generation
	}
	r.slots = append(r.slots, slot{generation: 1, prev: none, next: none})
	return len(r.slots) - 1, 1
}

func (r *Registry) pushTop(idx int) {
	r.slots[idx].prev = r.top
	r.slots[idx].next = none
	if r.top != none {
		r.slots[r.top].next = idx
	}
	r.top = idx
	if r.bottom == none {
		r.bottom = idx
	}
}

func (r *Registry) unlink(idx int) {
	s := r.slots[idx]
	if s.prev != none {
		r.slots[s.prev].next = s.next
	} else {
		r.bottom = s.next
	}
	if s.next != none {
		r.slots[s.next].prev = s.prev
	} else {
		r.top = s.prev
	}
	r.slots[idx].prev = none
	r.slots[idx].next = none
}

func (r *Registry) insertAbove(idx, belowIdx int) {
	above := r.slots[belowIdx].next
	r.slots[idx].prev = belowIdx
	r.slots[idx].next = above
	r.slots[belowIdx].next = idx
	if above != none {
		r.slots[above].prev = idx
	} else {
		r.top = idx
	}
}

// NoteNewToplevel implements spec.md §4.1 "note_new_toplevel": allocate a
// placeholder record, push it to the top of the stacking order, and issue
// an asynchronous attribute fetch. The reply is applied by
// CompleteAttributeFetch.
func (r *Registry) NoteNewToplevel(disp xserver.Display, handle xserver.Handle) *winstate.Record {
	idx, gen := r.alloc()
	rec := winstate.NewRecord(handle, gen)
	r.slots[idx].record = rec
	r.byHandle[handle] = idx
	r.pushTop(idx)
	disp.FetchAttributesAsync(handle, gen)
	return rec
}

// CompleteAttributeFetch applies an asynchronous attribute-fetch reply,
// per spec.md §4.1: handle-generation mismatches are logged and ignored;
// errors or unviewable windows drop the placeholder; otherwise the record
// is promoted to managed (renderable class) or kept as an unmanaged
// stacking placeholder.
func (r *Registry) CompleteAttributeFetch(reply xserver.AttrReply) {
	idx, ok := r.byHandle[reply.Handle]
	if !ok {
		return
	}
	s := &r.slots[idx]
	if s.record == nil || s.generation != reply.Generation {
		r.log.Debugf("attribute reply for handle=%d generation=%d ignored: slot now at generation=%d", reply.Handle, reply.Generation, s.generation)
		return
	}
	if reply.Err != nil || !reply.Attrs.Viewable {
		r.dropPlaceholder(idx)
		return
	}
	rec := s.record
	rec.Raw.MapState = reply.Attrs.MapState
	rec.Raw.Class = reply.Attrs.Class
	rec.Raw.PendingGeom = reply.Attrs.Geometry
	rec.Raw.BoundingShape = reply.Attrs.Shape
	rec.Raw.Client = reply.Attrs.Client
	rec.Raw.Leader = reply.Attrs.Leader
	rec.Managed = reply.Attrs.Class == xserver.ClassInputOutput
	if rec.Raw.MapState == xserver.Mapped {
		rec.Flags.Set(winstate.FlagMapped)
	}
	rec.Flags.Set(winstate.FlagPixmapNone)
}

// dropPlaceholder removes idx from both the hash index and the stacking
// order without freeing the slot's generation (a future reuse still bumps
// it), per spec.md §4.1 "Failure semantics".
func (r *Registry) dropPlaceholder(idx int) {
	rec := r.slots[idx].record
	if rec == nil {
		return
	}
	delete(r.byHandle, rec.Handle)
	r.unlink(idx)
	r.slots[idx].record = nil
	r.freeList = append(r.freeList, idx)
}

// Destroy implements spec.md §4.1 "destroy": mark the record destroyed,
// clear pixmap-stale, set map-state to unmapped, remove it from the hash
// index immediately, but leave it in the stacking order for rendering
// tear-down animations. The record's literal map-state goes to Unmapped
// (not the MapState.Destroyed enumerator) — Destroyed is tracked
// separately as rec.Destroyed so the animation trigger table (spec.md
// §4.3) can still observe a "→ destroyed" transition distinct from a
// plain hide.
func (r *Registry) Destroy(handle xserver.Handle) {
	idx, ok := r.byHandle[handle]
	if !ok {
		return
	}
	rec := r.slots[idx].record
	if rec == nil || rec.Destroyed {
		return
	}
	rec.Destroyed = true
	rec.Flags.Clear(winstate.FlagPixmapStale)
	rec.Raw.MapState = xserver.Unmapped
	delete(r.byHandle, handle)
}

// ChangeClient implements spec.md §4.1 "change_client": sets client-stale;
// the actual client re-scan runs during primary drain.
func (r *Registry) ChangeClient(handle xserver.Handle, newClient xserver.Handle) {
	rec := r.byHandleRecord(handle)
	if rec == nil {
		return
	}
	rec.Raw.Client = newClient
	rec.Flags.Set(winstate.FlagClientStale)
}

func (r *Registry) byHandleRecord(handle xserver.Handle) *winstate.Record {
	idx, ok := r.byHandle[handle]
	if !ok {
		return nil
	}
	return r.slots[idx].record
}

// RestackAbove moves w directly above belowHandle in the stacking order,
// per spec.md §4.1 "restack_above". A no-op if either handle is unknown or
// w already sits directly above belowHandle.
func (r *Registry) RestackAbove(w, belowHandle xserver.Handle) {
	idx, ok := r.byHandle[w]
	if !ok {
		return
	}
	belowIdx, ok := r.byHandle[belowHandle]
	if !ok || belowIdx == idx {
		return
	}
	if r.slots[belowIdx].next == idx {
		return
	}
	r.unlink(idx)
	r.insertAbove(idx, belowIdx)
}

// RestackTop moves w to the top of the stacking order.
func (r *Registry) RestackTop(w xserver.Handle) {
	idx, ok := r.byHandle[w]
	if !ok || idx == r.top {
		return
	}
	r.unlink(idx)
	r.pushTop(idx)
}

// RestackBottom moves w to the bottom of the stacking order.
func (r *Registry) RestackBottom(w xserver.Handle) {
	idx, ok := r.byHandle[w]
	if !ok || idx == r.bottom {
		return
	}
	r.unlink(idx)
	oldBottom := r.bottom
	r.slots[idx].prev = none
	r.slots[idx].next = oldBottom
	if oldBottom != none {
		r.slots[oldBottom].prev = idx
	}
	r.bottom = idx
	if r.top == none {
		r.top = idx
	}
}

// Lookup returns the record for a server handle, if known.
func (r *Registry) Lookup(handle xserver.Handle) (*winstate.Record, bool) {
	rec := r.byHandleRecord(handle)
	return rec, rec != nil
}

// LookupByClient performs the linear scan over the registry named in
// spec.md §3 "Lookups by client-window handle are supported by linear scan
// over the registry (rare)."
func (r *Registry) LookupByClient(client xserver.Handle) (*winstate.Record, bool) {
	for i := range r.slots {
		rec := r.slots[i].record
		if rec != nil && !rec.Destroyed && rec.Raw.Client == client {
			return rec, true
		}
	}
	return nil, false
}

// RefFor returns the stable Ref another record can hold onto to reference
// handle, per the §9 "Cyclic references" redesign.
func (r *Registry) RefFor(handle xserver.Handle) (winstate.Ref, bool) {
	idx, ok := r.byHandle[handle]
	if !ok {
		return winstate.Ref{}, false
	}
	return winstate.Ref{Index: idx, Generation: r.slots[idx].generation}, true
}

// Resolve dereferences ref to its current record, returning false if the
// slot has since been freed and reused (a stale Ref), per §9.
func (r *Registry) Resolve(ref winstate.Ref) (*winstate.Record, bool) {
	if ref.Index < 0 || ref.Index >= len(r.slots) {
		return nil, false
	}
	s := &r.slots[ref.Index]
	if s.record == nil || s.generation != ref.Generation {
		return nil, false
	}
	return s.record, true
}

// StackingTopToBottom returns every living record from the top of the
// stacking order down to the bottom, for spec.md §4.4's "iterate stacking
// top-to-bottom" paint preprocess. The returned slice is freshly
// allocated; callers may retain it across the current frame only.
func (r *Registry) StackingTopToBottom() []*winstate.Record {
	out := make([]*winstate.Record, 0, len(r.slots))
	for i := r.top; i != none; i = r.slots[i].prev {
		if rec := r.slots[i].record; rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// All returns every living record, stacking order unspecified. Used for
// group-focus propagation and the destroyed-record finalization scan.
func (r *Registry) All() []*winstate.Record {
	out := make([]*winstate.Record, 0, len(r.slots))
	for i := range r.slots {
		if rec := r.slots[i].record; rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// FinalizeDestroyed implements spec.md §4.2 "Termination of destroyed
// records": a destroyed record whose animation instance is nil and which
// is not referenced by any other living record's prev_trans is removed
// from the stacking order and freed. Returns the handles that were freed.
func (r *Registry) FinalizeDestroyed() []xserver.Handle {
	referenced := make(map[int]bool)
	for i := range r.slots {
		rec := r.slots[i].record
		if rec == nil {
			continue
		}
		if ref := rec.Anim.PrevTrans; ref.Valid() {
			referenced[ref.Index] = true
		}
	}

	var freed []xserver.Handle
	for i := range r.slots {
		rec := r.slots[i].record
		if rec == nil || !rec.Destroyed {
			continue
		}
		if rec.Anim.Instance != nil {
			continue
		}
		if referenced[i] {
			continue
		}
		r.unlink(i)
		freed = append(freed, rec.Handle)
		r.slots[i].record = nil
		r.freeList = append(r.freeList, i)
	}
	return freed
}
