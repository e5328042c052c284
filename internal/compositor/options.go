package compositor

import (
	"github.com/oxywm/corewm/internal/animation"
	"github.com/oxywm/corewm/internal/clock"
	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/gpu"
	"github.com/oxywm/corewm/internal/scheduler"
	"github.com/oxywm/corewm/internal/winstate"
	"github.com/oxywm/corewm/internal/xserver"
)

// Option is a functional option for configuring a Compositor, following
// the same With*-function-over-unexported-struct shape as
// engine/engine_builder.go's EngineBuilderOption.
type Option func(*compositor)

// WithDisplay sets the display-server client the event loop polls and
// issues requests through.
func WithDisplay(d xserver.Display) Option {
	return func(c *compositor) { c.display = d }
}

// WithBackend sets the GPU backend used for image binding and rendering.
func WithBackend(b gpu.Backend) Option {
	return func(c *compositor) { c.backend = b }
}

// WithClock overrides the monotonic clock; defaults to clock.NewSystem().
func WithClock(clk clock.Clock) Option {
	return func(c *compositor) { c.clk = clk }
}

// WithLogger overrides the logger; defaults to corelog.Nop().
func WithLogger(log corelog.Logger) Option {
	return func(c *compositor) { c.ctx.Log = log }
}

// WithErrorSink installs the injected error reporter used in place of the
// source's process-wide error pointer (spec.md §9).
func WithErrorSink(sink ErrorSink) Option {
	return func(c *compositor) { c.ctx.OnErr = sink }
}

// WithPolicy sets the focus/shadow/paint-exclusion policy the state
// machine evaluates derived attributes against.
func WithPolicy(p winstate.Policy) Option {
	return func(c *compositor) { c.policy = p }
}

// WithRoot sets the root window's geometry, used for paint preprocess's
// off-screen and full-screen-solid checks.
func WithRoot(root geom.Rect) Option {
	return func(c *compositor) { c.root = root }
}

// WithMonitors sets the monitor rectangles used for per-window monitor
// assignment.
func WithMonitors(monitors []geom.Rect) Option {
	return func(c *compositor) { c.env.Monitors = monitors }
}

// WithSchedulerConfig overrides the frame scheduler's tuning; defaults to
// scheduler.DefaultConfig().
func WithSchedulerConfig(cfg scheduler.Config) Option {
	return func(c *compositor) { c.schedCfg = cfg }
}

// WithAnimationConfig sets the trigger-to-script and suppression tables
// the animation engine evaluates.
func WithAnimationConfig(cfg animation.Config) Option {
	return func(c *compositor) { c.animCfg = cfg }
}

// WithClientRescanner sets the primary-drain client-rescan hook.
func WithClientRescanner(r winstate.ClientRescanner) Option {
	return func(c *compositor) { c.rescan = r }
}

// WithPropertyRefresher sets the primary-drain property-refresh hook.
func WithPropertyRefresher(p winstate.PropertyRefresher) Option {
	return func(c *compositor) { c.props = p }
}

// WithPixmapAcquirer sets the image-drain pixmap-acquisition hook.
func WithPixmapAcquirer(p winstate.PixmapAcquirer) Option {
	return func(c *compositor) { c.pixmaps = p }
}

// WithImageErrorCheck overrides the paint-preprocess image-error
// predicate; defaults to "never".
func WithImageErrorCheck(f func(*winstate.Record) bool) Option {
	return func(c *compositor) { c.imageError = f }
}

// WithRenderFunc sets the hook invoked once per drawn frame with the
// stacking-order paint-preprocess result, responsible for issuing the
// actual GPU present.
func WithRenderFunc(f RenderFunc) Option {
	return func(c *compositor) { c.renderFn = f }
}
