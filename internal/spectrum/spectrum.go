// Package spectrum provides a diagnostic FFT view of audio samples fed to
// it, for operator visibility only; it never feeds back into decode
// decisions, and neither the decoder nor cmd/srcclock feeds it. It follows the
// buffered-window-plus-gonum-FFT idiom this codebase's ancestry uses for
// its own CW spectrum analyzer.
package spectrum

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Snapshot is one diagnostic view of the spectrum around the SRC tones.
type Snapshot struct {
	FreqBins  []float64
	PowerDB   []float64
	F0PowerDB float64
	F1PowerDB float64
	FsyncDB   float64
}

// Monitor accumulates samples into fixed-size windows and computes an FFT
// snapshot each time a window fills.
type Monitor struct {
	sampleRate float64
	fftSize    int
	window     []float64
	buffer     []float64
	pos        int
	fft        *fourier.FFT
	freqBins   []float64
	df         float64
}

// NewMonitor builds a Monitor with a Hann-windowed FFT of size fftSize
// (rounded up to the nearest power of two not already one) over audio
// sampled at sampleRate.
func NewMonitor(sampleRate int, fftSize int) *Monitor {
	n := nextPowerOfTwo(fftSize)
	m := &Monitor{
		sampleRate: float64(sampleRate),
		fftSize:    n,
		window:     make([]float64, n),
		buffer:     make([]float64, n),
		fft:        fourier.NewFFT(n),
		freqBins:   make([]float64, n/2+1),
		df:         float64(sampleRate) / float64(n),
	}
	for i := 0; i < n; i++ {
		m.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	for i := range m.freqBins {
		m.freqBins[i] = float64(i) * m.df
	}
	return m
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Feed appends samples to the internal buffer. Each time fftSize samples
// have accumulated it computes a Snapshot and appends it to out, then
// starts a fresh window; it returns the (possibly empty) slice of
// snapshots produced.
func (m *Monitor) Feed(samples []float32, out []Snapshot) []Snapshot {
	for _, s := range samples {
		m.buffer[m.pos] = float64(s)
		m.pos++
		if m.pos >= m.fftSize {
			out = append(out, m.compute())
			m.pos = 0
		}
	}
	return out
}

func (m *Monitor) compute() Snapshot {
	windowed := make([]float64, m.fftSize)
	for i := range windowed {
		windowed[i] = m.buffer[i] * m.window[i]
	}
	coeffs := m.fft.Coefficients(nil, windowed)

	powerDB := make([]float64, len(m.freqBins))
	for i := range powerDB {
		re, im := real(coeffs[i]), imag(coeffs[i])
		p := re*re + im*im
		powerDB[i] = toDB(p)
	}

	snap := Snapshot{
		FreqBins: m.freqBins,
		PowerDB:  powerDB,
	}
	snap.F0PowerDB = m.binPowerDB(powerDB, 2000.0)
	snap.F1PowerDB = m.binPowerDB(powerDB, 2500.0)
	snap.FsyncDB = m.binPowerDB(powerDB, 1000.0)
	return snap
}

func (m *Monitor) binPowerDB(powerDB []float64, freq float64) float64 {
	bin := int(math.Round(freq / m.df))
	if bin < 0 {
		bin = 0
	}
	if bin >= len(powerDB) {
		bin = len(powerDB) - 1
	}
	return powerDB[bin]
}

func toDB(power float64) float64 {
	if power < 1e-12 {
		power = 1e-12
	}
	return 10 * math.Log10(power)
}
