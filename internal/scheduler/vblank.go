package scheduler

import "math"

// VblankEstimator maintains a running mean/variance of vblank-interval
// samples (microseconds) via Welford's algorithm, resetting on a 3-sigma
// outlier, per spec.md §3 "Vblank-interval estimates reset on 3-sigma
// outliers" and §8 testable property 7.
type VblankEstimator struct {
	count int64
	mean  float64
	m2    float64

	lastMSC       uint64
	lastTimestamp int64
	haveLast      bool
}

// NewVblankEstimator builds an empty estimator.
func NewVblankEstimator() *VblankEstimator {
	return &VblankEstimator{}
}

// ObserveVblank implements spec.md §4.4 "Statistics collection": given the
// new vblank count and timestamp, push (ust_delta) as a sample if the MSC
// delta is exactly one; reset on 3-sigma outliers or a backward-going
// counter. Returns whether a sample was accepted (as opposed to only
// having reset or been ignored).
func (e *VblankEstimator) ObserveVblank(msc uint64, timestampU int64) bool {
	if !e.haveLast {
		e.lastMSC = msc
		e.lastTimestamp = timestampU
		e.haveLast = true
		return false
	}
	if msc <= e.lastMSC {
		e.Reset()
		e.lastMSC = msc
		e.lastTimestamp = timestampU
		return false
	}
	delta := msc - e.lastMSC
	ustDelta := timestampU - e.lastTimestamp
	e.lastMSC = msc
	e.lastTimestamp = timestampU
	if delta != 1 {
		return false
	}
	e.push(ustDelta)
	return true
}

// push incorporates sample v, resetting first if v is a 3-sigma outlier
// against the current running statistics.
func (e *VblankEstimator) push(v int64) {
	if e.count >= 4 {
		variance := e.m2 / float64(e.count)
		stddev := math.Sqrt(variance)
		if math.Abs(float64(v)-e.mean) > 3*stddev {
			e.Reset()
		}
	}
	e.count++
	delta := float64(v) - e.mean
	e.mean += delta / float64(e.count)
	delta2 := float64(v) - e.mean
	e.m2 += delta * delta2
}

// Reset clears the running statistics; the next sample seeds them afresh.
func (e *VblankEstimator) Reset() {
	e.count = 0
	e.mean = 0
	e.m2 = 0
}

// Mean returns the current mean vblank interval in microseconds, and
// whether any sample has been observed.
func (e *VblankEstimator) Mean() (float64, bool) {
	return e.mean, e.count > 0
}

// Count returns the number of samples currently folded into the estimate.
func (e *VblankEstimator) Count() int64 { return e.count }

// LastInstant returns the timestamp (in the same microsecond clock as
// clock.Clock.NowMicros) of the most recently observed vblank, and whether
// any vblank has been observed yet. schedule_render uses this as the phase
// anchor for picking the next vblank deadline (spec.md §4.4/§8 S3's
// "now − last_msc_instant" term), rather than assuming now always sits
// exactly on a vblank boundary.
func (e *VblankEstimator) LastInstant() (int64, bool) {
	return e.lastTimestamp, e.haveLast
}
