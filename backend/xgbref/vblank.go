package xgbref

import (
	"sync"
	"time"

	"github.com/BurntSushi/xgb/randr"

	"github.com/oxywm/corewm/internal/xserver"
)

// defaultRefreshHz is used when randr is unavailable or no active output's
// mode reports a usable refresh rate.
const defaultRefreshHz = 60.0

// vblankSource synthesizes xserver.EventPresent notifications at the
// display's refresh rate. BurntSushi/xgb carries no Present extension
// bindings (the library predates the Present protocol extension, and the
// pack this adapter was grounded on has no source showing one either), so
// real per-vblank MSC/timestamp delivery isn't available through it; this
// is the documented, best-effort fallback. DESIGN.md records the same
// caveat: the frame scheduler's vblank estimator (internal/scheduler)
// tolerates jitter from any source by design (its Welford-based variance
// tracking and 3σ outlier reset, spec.md §4.5), so a fixed-rate ticker
// degrades to "as if vsync jitter were unusually low" rather than breaking
// an invariant.
type vblankSource struct {
	mu     sync.Mutex
	events []xserver.Event

	stopCh chan struct{}
	done   chan struct{}
}

func newVblankSource(d *Display) *vblankSource {
	v := &vblankSource{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	hz := v.queryRefreshHz(d)
	go v.run(hz)
	return v
}

func (v *vblankSource) queryRefreshHz(d *Display) float64 {
	if !d.haveRandr {
		return defaultRefreshHz
	}
	res, err := randr.GetScreenResourcesCurrent(d.conn, d.root).Reply()
	if err != nil || len(res.Modes) == 0 {
		return defaultRefreshHz
	}
	for _, mode := range res.Modes {
		hz := modeRefreshHz(mode)
		if hz > 0 {
			return hz
		}
	}
	return defaultRefreshHz
}

// modeRefreshHz computes a randr ModeInfo's vertical refresh rate from its
// pixel clock and total scanline counts, per the standard RandR dotclock
// formula: dotClock / (hTotal * vTotal).
func modeRefreshHz(mode randr.ModeInfo) float64 {
	if mode.HTotal == 0 || mode.VTotal == 0 {
		return 0
	}
	return float64(mode.DotClock) / (float64(mode.HTotal) * float64(mode.VTotal))
}

func (v *vblankSource) run(hz float64) {
	defer close(v.done)
	if hz <= 0 {
		hz = defaultRefreshHz
	}
	period := time.Duration(float64(time.Second) / hz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var msc uint64
	for {
		select {
		case <-v.stopCh:
			return
		case t := <-ticker.C:
			msc++
			v.mu.Lock()
			v.events = append(v.events, xserver.Event{
				Kind: xserver.EventPresent,
				Present: xserver.PresentEvent{
					MSC:        msc,
					TimestampU: t.UnixMicro(),
				},
			})
			v.mu.Unlock()
		}
	}
}

func (v *vblankSource) drain() []xserver.Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.events) == 0 {
		return nil
	}
	out := v.events
	v.events = nil
	return out
}

func (v *vblankSource) stop() {
	close(v.stopCh)
	<-v.done
}
