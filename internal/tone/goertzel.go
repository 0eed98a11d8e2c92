// Package tone implements the Goertzel single-frequency power estimator that
// the decoder uses to test a window of samples against the F0/F1/Fsync
// candidate tones.
package tone

import "math"

// Power runs the Goertzel recurrence for target frequency f over Fs-rate
// samples and returns the normalised single-side power at f.
//
// coeff = 2*cos(2*pi*f/Fs); V0 = x[i] + coeff*V1 - V2 (V2, V1 shifted each
// sample). The returned power is dimensionless: a unit-amplitude cosine at
// exactly f yields P ~= 1.0 (0 dB). No state is retained between calls -
// every call is a fresh N-sample block.
func Power(samples []float64, f, fs float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}

	coeff := 2 * math.Cos(2*math.Pi*f/fs)

	var v0, v1, v2 float64
	for _, x := range samples {
		v0 = x + coeff*v1 - v2
		v2 = v1
		v1 = v0
	}

	nf := float64(n)
	return (v2*v2 + v1*v1 - coeff*v1*v2) * 4 / (nf * nf)
}

// PowerDB converts a Power() result to decibels relative to a unit-amplitude
// tone (0 dB). Power <= 0 maps to negative infinity.
func PowerDB(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(p)
}
