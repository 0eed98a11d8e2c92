// Package threshold implements the Window Decision System: a sliding-window
// noise-floor estimator that drives the decoder's per-symbol tone decision
// threshold.
package threshold

import "math"

// WDS holds the ring buffer of recent symbol-window noise-power averages and
// derives a decision threshold from it.
//
// When the window length L is 0, WDS never adapts: Level() always returns
// the static threshold set by SetStatic. When L > 0, Update accumulates
// (P(F0)+P(F1))/2 averages into a ring of length L; once the ring has filled
// once, Recalibrate sets the threshold to mean(ring)*snrLinear, clamped so
// that an over-large product falls back to max(mean, 1/snrLinear).
type WDS struct {
	window    []float64
	pos       int
	filled    bool
	snrLinear float64

	static  float64
	current float64
}

// New constructs a WDS with ring length windowLen (0 disables adaptation)
// and an SNR margin expressed in dB, per spec: snrLinear = 10^(snrDB/10).
func New(windowLen int, snrDB float64) *WDS {
	w := &WDS{
		snrLinear: SNRLinear(snrDB),
	}
	if windowLen > 0 {
		w.window = make([]float64, windowLen)
	}
	return w
}

// SNRLinear converts an SNR margin in dB to the linear ratio used throughout
// this package and by the tick synchroniser.
func SNRLinear(snrDB float64) float64 {
	return math.Pow(10, snrDB/10)
}

// SetStatic sets the fixed decision threshold (linear power, not dB) used
// when the WDS window length is 0, or before the ring has filled once.
func (w *WDS) SetStatic(thresholdLinear float64) {
	w.static = thresholdLinear
	if w.current == 0 {
		w.current = thresholdLinear
	}
}

// SetStaticDB is a convenience wrapper taking the threshold in dB, matching
// the CLI surface's --threshold-db flag.
func (w *WDS) SetStaticDB(db float64) {
	w.SetStatic(math.Pow(10, db/10))
}

// Adaptive reports whether the ring buffer is in use (windowLen > 0).
func (w *WDS) Adaptive() bool {
	return len(w.window) > 0
}

// Update pushes one symbol window's averaged tone power into the ring.
func (w *WDS) Update(p0, p1 float64) {
	if !w.Adaptive() {
		return
	}
	avg := (p0 + p1) / 2
	w.window[w.pos] = avg
	w.pos++
	if w.pos >= len(w.window) {
		w.pos = 0
		w.filled = true
	}
}

// Recalibrate recomputes the threshold from the ring mean, following the
// clamp rule: if mean*snrLinear > 1, the threshold becomes
// max(mean, 1/snrLinear) instead. Only takes effect once the ring has
// filled at least once; otherwise the static threshold remains in force.
// The caller is responsible for only invoking this while the decoder is
// still searching for block start (c == 0), per spec §4.C.
func (w *WDS) Recalibrate() {
	if !w.Adaptive() || !w.filled {
		return
	}

	var sum float64
	for _, v := range w.window {
		sum += v
	}
	mean := sum / float64(len(w.window))

	w.current = ScaleAndClamp(mean, w.snrLinear)
}

// ScaleAndClamp applies the WDS clamp rule to an arbitrary measured power:
// scale by snrLinear, and if that exceeds 1, fall back to
// max(measured, 1/snrLinear). Shared by Recalibrate above and the tick
// synchroniser's own calibration window (§4.G), which applies the same rule
// to a measured tick power instead of a ring mean.
func ScaleAndClamp(measured, snrLinear float64) float64 {
	candidate := measured * snrLinear
	if candidate > 1 {
		candidate = math.Max(measured, 1/snrLinear)
	}
	return candidate
}

// Level returns the current decision threshold (linear power).
func (w *WDS) Level() float64 {
	if !w.Adaptive() {
		return w.static
	}
	if !w.filled {
		return w.static
	}
	return w.current
}

// Pin hard-sets the current threshold, bypassing ring recalibration. The
// tick synchroniser does not use it; it keeps its own P/2 threshold once
// phase has locked.
func (w *WDS) Pin(thresholdLinear float64) {
	w.current = thresholdLinear
	w.filled = true
}

// Reset clears the ring and filled state, restoring the static threshold.
// The decoder does not call it: a parse error ends the Decode call, and the
// ring carries over into the next one.
func (w *WDS) Reset() {
	for i := range w.window {
		w.window[i] = 0
	}
	w.pos = 0
	w.filled = false
	w.current = w.static
}
