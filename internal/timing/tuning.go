// Package timing implements symbol-timing recovery ("tuning"): a peak-search
// over a small range of candidate block-start offsets, used to keep the
// decoder's sample alignment locked to the transmitted symbol edges.
package timing

import "github.com/cwsl/srcclock/internal/tone"

// Result is the outcome of a tuning search: the offset (into the caller's
// look-ahead buffer) that produced the strongest tone, and that tone's
// power, which the caller feeds back into the WDS threshold recalibration.
type Result struct {
	Offset int
	Power  float64
}

// Search evaluates freq's Goertzel power for every candidate block-start
// offset in {n-delta, n-delta+step, ..., n+delta} (clamped to the buffer
// bounds) and returns the offset with maximum power. buf must contain at
// least n+delta samples beyond the smallest candidate offset; the caller is
// expected to have read DELTA extra samples into the tail of its work
// buffer before calling Search, per spec §4.D.
func Search(buf []float64, n, delta, step int, freq, fs float64) Result {
	if step <= 0 {
		step = 1
	}

	best := Result{Offset: n, Power: -1}
	for offset := n - delta; offset <= n+delta; offset += step {
		if offset < 0 {
			continue
		}
		end := offset + n
		if end > len(buf) {
			break
		}
		p := tone.Power(buf[offset:end], freq, fs)
		if p > best.Power {
			best = Result{Offset: offset, Power: p}
		}
	}
	return best
}

// SymbolStep returns the STEP used for symbol decoding: N/30.
func SymbolStep(n int) int {
	s := n / 30
	if s < 1 {
		s = 1
	}
	return s
}

// SyncStep returns the STEP used for sync-tick alignment: N/100.
func SyncStep(n int) int {
	s := n / 100
	if s < 1 {
		s = 1
	}
	return s
}
