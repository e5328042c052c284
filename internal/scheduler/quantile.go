package scheduler

import "math"

// QuantileEstimator tracks a target quantile (spec.md §3: "the 98th
// percentile of render times") over a Window with a tolerance band,
// recomputing via quickselect only when the current estimate's observed
// rank drifts outside the band — the "rolling quantile estimator" named in
// spec.md §3 and exercised by §8 testable property 6.
type QuantileEstimator struct {
	window      *Window
	quantile    float64
	band        float64
	estimate    float64
	hasEstimate bool
}

// NewQuantileEstimator builds an estimator for quantile q (e.g. 0.98) with
// tolerance band (e.g. 0.01 for ±1%) over window.
func NewQuantileEstimator(window *Window, q, band float64) *QuantileEstimator {
	return &QuantileEstimator{window: window, quantile: q, band: band}
}

// Push records a new sample into the backing Window and recomputes the
// estimate if its rank has drifted outside the tolerance band. Callers
// must not also push the sample into that Window themselves — Push does
// that itself, and double-pushing silently halves the window's effective
// sample history.
func (e *QuantileEstimator) Push(v int64) {
	e.window.Push(v)
	if !e.hasEstimate {
		e.recompute()
		return
	}
	rank := e.observedRank()
	if rank < e.quantile-e.band || rank > e.quantile+e.band {
		e.recompute()
	}
}

// observedRank returns the fraction of the current window's samples at or
// below the current estimate.
func (e *QuantileEstimator) observedRank() float64 {
	vals := e.window.Values()
	if len(vals) == 0 {
		return 0
	}
	below := 0
	for _, v := range vals {
		if float64(v) <= e.estimate {
			below++
		}
	}
	return float64(below) / float64(len(vals))
}

func (e *QuantileEstimator) recompute() {
	vals := e.window.Values()
	if len(vals) == 0 {
		e.estimate = 0
		e.hasEstimate = false
		return
	}
	k := int(math.Round(e.quantile * float64(len(vals)-1)))
	if k < 0 {
		k = 0
	}
	if k >= len(vals) {
		k = len(vals) - 1
	}
	e.estimate = float64(quickselect(vals, k))
	e.hasEstimate = true
}

// Estimate returns the current quantile estimate in microseconds, and
// whether any sample has been observed yet.
func (e *QuantileEstimator) Estimate() (float64, bool) {
	return e.estimate, e.hasEstimate
}
