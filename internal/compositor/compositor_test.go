package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/scheduler"
	"github.com/oxywm/corewm/internal/winstate"
	"github.com/oxywm/corewm/internal/xserver"
)

type fakeDisplay struct {
	redirected     *bool
	redirectCalls  int
	events         []xserver.Event
	flushErr       error
}

func (f *fakeDisplay) QueryTree() ([]xserver.Handle, error) { return nil, nil }
func (f *fakeDisplay) FetchAttributesAsync(xserver.Handle, uint64) {}
func (f *fakeDisplay) FetchPropertyAsync(xserver.Handle, uint64, xserver.Atom, xserver.PropertyKind) {
}
func (f *fakeDisplay) Replies() <-chan xserver.AttrReply         { return nil }
func (f *fakeDisplay) PropertyReplies() <-chan xserver.PropertyReply { return nil }
func (f *fakeDisplay) SubscribeDamage(xserver.Handle) error      { return nil }
func (f *fakeDisplay) SubscribeShape(xserver.Handle) error       { return nil }
func (f *fakeDisplay) AcquireSelection() (bool, error)           { return true, nil }
func (f *fakeDisplay) RedirectSubwindows(enabled bool) error {
	f.redirectCalls++
	f.redirected = &enabled
	return nil
}
func (f *fakeDisplay) NamedPixmap(xserver.Handle) (uintptr, error) { return 0, nil }
func (f *fakeDisplay) PollEvents() []xserver.Event {
	out := f.events
	f.events = nil
	return out
}
func (f *fakeDisplay) Flush() error { return f.flushErr }

func TestQueueRedrawArmsSchedulerOnce(t *testing.T) {
	c := New().(*compositor)
	assert.False(t, c.sched.RenderQueued())

	c.QueueRedraw()
	assert.True(t, c.sched.RenderQueued())

	// Idempotent while already queued (§8 testable property 5).
	c.QueueRedraw()
	assert.True(t, c.sched.RenderQueued())
}

func TestAddDamageIgnoresEmptyRegion(t *testing.T) {
	c := New().(*compositor)
	c.AddDamage(geom.Rect{})
	assert.False(t, c.sched.RenderQueued())

	c.AddDamage(geom.Rect{X: 0, Y: 0, Width: 10, Height: 10})
	assert.True(t, c.sched.RenderQueued())
}

func TestWindowSetForceOverridesSetFactorChanged(t *testing.T) {
	c := New().(*compositor)
	disp := &fakeDisplay{}
	rec := c.reg.NoteNewToplevel(disp, 1)

	yes := true
	c.WindowSetFocusForce(1, &yes)
	assert.Equal(t, &yes, rec.Overrides.Focus)
	assert.True(t, rec.Flags.Has(winstate.FlagFactorChanged))
}

func TestRestackDelegatesToRegistry(t *testing.T) {
	c := New().(*compositor)
	disp := &fakeDisplay{}
	c.reg.NoteNewToplevel(disp, 1)
	c.reg.NoteNewToplevel(disp, 2)

	c.RestackBottom(2)
	stacking := c.reg.StackingTopToBottom()
	require.Len(t, stacking, 2)
	assert.Equal(t, xserver.Handle(1), stacking[0].Handle)
	assert.Equal(t, xserver.Handle(2), stacking[1].Handle)
}

func TestRunFrameRendersMappedRecordsAndUpdatesRedirection(t *testing.T) {
	disp := &fakeDisplay{}
	root := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

	var renderedEntries []scheduler.PaintEntry
	c := New(
		WithDisplay(disp),
		WithRoot(root),
		WithRenderFunc(func(entries []scheduler.PaintEntry) error {
			renderedEntries = entries
			return nil
		}),
	).(*compositor)

	rec := c.reg.NoteNewToplevel(disp, 1)
	rec.Raw.MapState = xserver.Mapped
	rec.Derived.EffectiveGeom = geom.Rect{X: 0, Y: 0, Width: 200, Height: 200}
	rec.Derived.FrameOpacity = 1.0
	rec.Derived.OpacityTarget = 1.0

	c.QueueRedraw()
	require.NoError(t, c.runFrame())

	require.Len(t, renderedEntries, 1)
	assert.True(t, renderedEntries[0].ToPaint)
	assert.False(t, c.sched.RenderQueued(), "EndFrame must clear render_queued once no animation is running")

	require.Equal(t, 1, disp.redirectCalls)
	require.NotNil(t, disp.redirected)
	assert.True(t, *disp.redirected)
	assert.True(t, c.redirected)
}

func TestRunReturnsImmediatelyWhenQuitAlreadyRequested(t *testing.T) {
	c := New().(*compositor)
	c.quitRequested = true
	require.NoError(t, c.Run())
}
