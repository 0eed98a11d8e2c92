// Package window implements the decoder's work buffer: a persistent,
// sample-accurate sliding buffer that backs both the frame codec's symbol
// timing recovery (spec §4.D) and the tick synchroniser's sync-tick
// alignment (spec §4.G). Both reduce to the same shape - read a
// look-ahead, peak-search for the true block start, shift the buffer so
// that start lands at index 0 - so they share this one implementation.
package window

import "github.com/cwsl/srcclock/internal/timing"

// Source is the minimal read contract the buffer needs from the sample
// adapter: fill buf with mono f32 samples, return the count actually read.
type Source interface {
	Read(buf []float32) (int, error)
}

// Buffer accumulates samples from a Source and exposes them as float64 for
// the Goertzel/tuning math, carrying any unconsumed look-ahead forward
// between calls exactly as spec §4.D describes ("residual samples beyond
// [the anchor] are carried over as extra").
type Buffer struct {
	src Source
	buf []float64

	scratch []float32
}

// New wraps src.
func New(src Source) *Buffer {
	return &Buffer{src: src}
}

// fill ensures the buffer holds at least n samples, reading the deficit
// from the source and converting f32 -> float64 at the boundary.
func (b *Buffer) fill(n int) error {
	deficit := n - len(b.buf)
	if deficit <= 0 {
		return nil
	}
	if cap(b.scratch) < deficit {
		b.scratch = make([]float32, deficit)
	}
	scratch := b.scratch[:deficit]

	got, err := b.src.Read(scratch)
	if err != nil {
		return err
	}
	for i := 0; i < got; i++ {
		b.buf = append(b.buf, float64(scratch[i]))
	}
	return nil
}

// NextWindow returns the next n samples at the buffer's current alignment,
// consuming them. Used for cells that are not re-tuned (spec §4.F,
// "for 1 <= c < 32 ... each window").
func (b *Buffer) NextWindow(n int) ([]float64, error) {
	if err := b.fill(n); err != nil {
		return nil, err
	}
	take := n
	if take > len(b.buf) {
		take = len(b.buf)
	}
	out := make([]float64, n)
	copy(out, b.buf[:take])
	b.buf = b.buf[take:]
	return out, nil
}

// TuneResult is the outcome of a Tune call.
type TuneResult struct {
	Power float64
}

// Tune implements spec §4.D's symbol timing recovery: it reads DELTA extra
// samples into the tail of the work buffer, searches offsets
// {n-delta, ..., n+delta} step step for the strongest tone at freq, shifts
// the buffer so the winning offset lands at index 0, and returns that
// tone's power (for WDS recalibration) alongside the window itself.
func (b *Buffer) Tune(n, delta, step int, freq, fs float64) ([]float64, TuneResult, error) {
	// The largest candidate offset is n+delta, and each candidate evaluates
	// a full n-sample window starting there, so the buffer must reach
	// n+delta+n samples deep.
	if err := b.fill(n + delta + n); err != nil {
		return nil, TuneResult{}, err
	}

	res := timing.Search(b.buf, n, delta, step, freq, fs)

	window := make([]float64, n)
	end := res.Offset + n
	if end > len(b.buf) {
		end = len(b.buf)
	}
	copy(window, b.buf[res.Offset:end])

	b.buf = b.buf[min(res.Offset+n, len(b.buf)):]
	return window, TuneResult{Power: res.Power}, nil
}

// TuneBest behaves like Tune but searches every frequency in freqs at each
// candidate offset and keeps whichever (offset, frequency) pair produced
// the strongest tone. Used where the decoder must realign to a symbol
// boundary without yet knowing whether that symbol carries F0 or F1 (spec
// §4.F, cell 0 and cell 32).
func (b *Buffer) TuneBest(n, delta, step int, freqs []float64, fs float64) ([]float64, int, float64, error) {
	if err := b.fill(n + delta + n); err != nil {
		return nil, 0, 0, err
	}

	bestOffset, bestFreqIdx, bestPower := n, 0, -1.0
	for fi, freq := range freqs {
		res := timing.Search(b.buf, n, delta, step, freq, fs)
		if res.Power > bestPower {
			bestPower, bestOffset, bestFreqIdx = res.Power, res.Offset, fi
		}
	}

	out := make([]float64, n)
	end := bestOffset + n
	if end > len(b.buf) {
		end = len(b.buf)
	}
	copy(out, b.buf[bestOffset:end])
	b.buf = b.buf[min(bestOffset+n, len(b.buf)):]
	return out, bestFreqIdx, bestPower, nil
}

// Skip discards exactly n samples from the front of the buffer, consuming
// any already-buffered look-ahead first and reading fresh samples only for
// the remainder. Used for the §4.F inter-block gap (0.04*Fs samples). Only
// a read error from the source is returned; a short read is not reported.
func (b *Buffer) Skip(n int) error {
	if n <= len(b.buf) {
		b.buf = b.buf[n:]
		return nil
	}
	remaining := n - len(b.buf)
	b.buf = nil
	if cap(b.scratch) < remaining {
		b.scratch = make([]float32, remaining)
	}
	_, err := b.src.Read(b.scratch[:remaining])
	return err
}

// Clear discards any buffered look-ahead without reading, per §4.F's "clear
// the work buffer" step at cell 32.
func (b *Buffer) Clear() {
	b.buf = nil
}
