package registry

import (
	"testing"

	"github.com/oxywm/corewm/internal/animscript"
	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/winstate"
	"github.com/oxywm/corewm/internal/xserver"
)

type fakeDisplay struct {
	fetched []xserver.Handle
}

func (f *fakeDisplay) QueryTree() ([]xserver.Handle, error) { return nil, nil }
func (f *fakeDisplay) FetchAttributesAsync(handle xserver.Handle, generation uint64) {
	f.fetched = append(f.fetched, handle)
}
func (f *fakeDisplay) FetchPropertyAsync(xserver.Handle, uint64, xserver.Atom, xserver.PropertyKind) {}
func (f *fakeDisplay) Replies() <-chan xserver.AttrReply                                            { return nil }
func (f *fakeDisplay) PropertyReplies() <-chan xserver.PropertyReply                                { return nil }
func (f *fakeDisplay) SubscribeDamage(xserver.Handle) error                                          { return nil }
func (f *fakeDisplay) SubscribeShape(xserver.Handle) error                                           { return nil }
func (f *fakeDisplay) AcquireSelection() (bool, error)                                                { return true, nil }
func (f *fakeDisplay) RedirectSubwindows(bool) error                                                  { return nil }
func (f *fakeDisplay) NamedPixmap(xserver.Handle) (uintptr, error)                                    { return 0, nil }
func (f *fakeDisplay) PollEvents() []xserver.Event                                                    { return nil }
func (f *fakeDisplay) Flush() error                                                                    { return nil }

func handles(recs []*winstate.Record) []xserver.Handle {
	out := make([]xserver.Handle, len(recs))
	for i, r := range recs {
		out[i] = r.Handle
	}
	return out
}

func TestRestackAboveProducesCanonicalOrder(t *testing.T) {
	reg := New(corelog.Nop())
	disp := &fakeDisplay{}
	reg.NoteNewToplevel(disp, 1)
	reg.NoteNewToplevel(disp, 2)
	reg.NoteNewToplevel(disp, 3)
	// bottom-to-top after three NoteNewToplevel (each pushed to top): 1,2,3

	reg.RestackAbove(1, 2) // move 1 directly above 2: order becomes 2,1,3
	order := handles(reg.StackingTopToBottom())
	want := []xserver.Handle{3, 1, 2}
	if !equalHandles(order, want) {
		t.Fatalf("stacking top-to-bottom = %v, want %v", order, want)
	}
}

func TestRestackTopAndBottom(t *testing.T) {
	reg := New(corelog.Nop())
	disp := &fakeDisplay{}
	reg.NoteNewToplevel(disp, 1)
	reg.NoteNewToplevel(disp, 2)
	reg.NoteNewToplevel(disp, 3)

	reg.RestackBottom(3)
	order := handles(reg.StackingTopToBottom())
	if !equalHandles(order, []xserver.Handle{2, 1, 3}) {
		t.Fatalf("after RestackBottom(3): %v", order)
	}

	reg.RestackTop(3)
	order = handles(reg.StackingTopToBottom())
	if !equalHandles(order, []xserver.Handle{3, 2, 1}) {
		t.Fatalf("after RestackTop(3): %v", order)
	}
}

func TestCompleteAttributeFetchIgnoresGenerationMismatch(t *testing.T) {
	reg := New(corelog.Nop())
	disp := &fakeDisplay{}
	rec := reg.NoteNewToplevel(disp, 1)
	reg.Destroy(1) // handle removed from index but slot generation unchanged
	reg.FinalizeDestroyed()
	reg.NoteNewToplevel(disp, 1) // reuses the freed slot at a bumped generation

	reg.CompleteAttributeFetch(xserver.AttrReply{Handle: 1, Generation: rec.Generation, Attrs: xserver.RawAttributes{Viewable: true}})

	got, ok := reg.Lookup(1)
	if !ok {
		t.Fatalf("handle 1 should still be registered under its new slot")
	}
	if got.Managed {
		t.Fatalf("stale-generation reply must not have mutated the new record")
	}
}

func TestFinalizeDestroyedRespectsPrevTransReference(t *testing.T) {
	reg := New(corelog.Nop())
	disp := &fakeDisplay{}
	w := reg.NoteNewToplevel(disp, 10)
	other := reg.NoteNewToplevel(disp, 11)

	ref, ok := reg.RefFor(w.Handle)
	if !ok {
		t.Fatalf("expected a Ref for handle 10")
	}
	other.Anim.PrevTrans = ref

	reg.Destroy(10)
	freed := reg.FinalizeDestroyed()
	if len(freed) != 0 {
		t.Fatalf("w must not be finalized while referenced by prev_trans, freed=%v", freed)
	}

	other.Anim.PrevTrans = winstate.Ref{}
	freed = reg.FinalizeDestroyed()
	if len(freed) != 1 || freed[0] != 10 {
		t.Fatalf("w should finalize once no longer referenced, got %v", freed)
	}
	if _, ok := reg.Resolve(ref); ok {
		t.Fatalf("resolving a freed slot's old Ref should fail")
	}
}

func TestFinalizeDestroyedWaitsForAnimationInstance(t *testing.T) {
	reg := New(corelog.Nop())
	disp := &fakeDisplay{}
	w := reg.NoteNewToplevel(disp, 5)
	w.Anim.Instance = animscript.NewInstance(animscript.NewFadeScript("close", animscript.Opacity, animscript.Fixed(1), animscript.Fixed(0), 0.3, animscript.Linear))

	reg.Destroy(5)
	freed := reg.FinalizeDestroyed()
	if len(freed) != 0 {
		t.Fatalf("destroyed record with a live animation instance must not finalize, freed=%v", freed)
	}

	w.Anim.Instance = nil
	freed = reg.FinalizeDestroyed()
	if len(freed) != 1 {
		t.Fatalf("expected finalization once the animation instance clears")
	}
}

func equalHandles(a, b []xserver.Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
