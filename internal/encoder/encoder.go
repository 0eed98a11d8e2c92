// Package encoder renders the SRC play waveform: 48 data cells as F0/F1
// tones, the inter-block gap, optional noise and random phase, and the
// trailing 1 kHz tick train, per spec §4.I.
package encoder

import (
	"math"
	"math/rand"

	"github.com/cwsl/srcclock/internal/calendar"
	"github.com/cwsl/srcclock/internal/frame"
)

const (
	F0    = 2000.0
	F1    = 2500.0
	Fsync = 1000.0

	symbolSeconds = 0.030
	gapSeconds    = 0.04
	tickSeconds   = 0.1
)

// Params configures one Render call.
type Params struct {
	SampleRate  int
	PowerDB     float64 // attenuation, forced <= 0
	NoiseSigma  float64
	RandomPhase bool
	RandomDelay bool // optional [0, Fs) noise lead-in, per spec §4.I step 1
	Sync        bool
}

// Encoder renders SRC frames to PCM and owns its own RNG, per Design Note 9
// ("global RNG seed" -> an RNG owned by the Encoder, not hidden process
// state).
type Encoder struct {
	rng   *rand.Rand
	noise *gaussianSource
	sigma float64
}

// New builds an Encoder seeded from seed. Pass a value derived from a clock
// source for non-deterministic output, or a fixed value for reproducible
// tests.
func New(seed int64) *Encoder {
	rng := rand.New(rand.NewSource(seed))
	return &Encoder{
		rng:   rng,
		noise: newGaussianSource(rng),
	}
}

func (e *Encoder) noiseSample(sigma float64) float64 {
	if sigma != e.sigma {
		e.noise.invalidate()
		e.sigma = sigma
	}
	if sigma == 0 {
		return 0
	}
	return e.noise.Next() * sigma
}

func clip(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// toneFreq returns F0 or F1 for a cell bit value.
func toneFreq(c int) float64 {
	if c == 1 {
		return F1
	}
	return F0
}

// Render synthesises one full minute of SRC audio for t: the 48-symbol
// frame (with inter-block gap), and, if p.Sync, the trailing tick train.
// t is advanced by one minute afterward so a subsequent call renders the
// following minute, per spec §4.I step 6.
func (e *Encoder) Render(t *calendar.Time, p Params) []float32 {
	fs := float64(p.SampleRate)
	n := int(math.Round(fs * symbolSeconds))
	gap := int(fs * gapSeconds)

	f := frame.New()
	f.Encode(frame.CivilInput{
		Hour: t.Hour, Minute: t.Minute, DST: t.DST,
		Month: t.Month, Day: t.Day, Weekday: t.Weekday,
		YearMod100: t.Year % 100, ChangeTime: t.ChangeTime, LeapSecond: t.LeapSecond,
	})

	powerDB := p.PowerDB
	if powerDB > 0 {
		powerDB = 0
	}
	amp := math.Pow(10, powerDB/20)

	theta := 0.0
	if p.RandomPhase {
		theta = e.rng.Float64() * 2 * math.Pi
	}

	var out []float32

	// Optional initial delay: [0, Fs) samples of pure Gaussian noise.
	if p.RandomDelay {
		delay := e.rng.Intn(p.SampleRate)
		for i := 0; i < delay; i++ {
			out = append(out, float32(clip(e.noiseSample(p.NoiseSigma))))
		}
	}

	for i := 0; i < frame.NumCells; i++ {
		freq := toneFreq(f.Cells[i].Int())
		for s := 0; s < n; s++ {
			sample := amp*math.Cos(2*math.Pi*freq*float64(s)/fs+theta) + e.noiseSample(p.NoiseSigma)
			out = append(out, float32(clip(sample)))
		}
		if i == 31 {
			for s := 0; s < gap; s++ {
				out = append(out, float32(clip(e.noiseSample(p.NoiseSigma))))
			}
		}
	}

	if p.Sync {
		out = append(out, e.renderTickTrain(*t, p, fs, amp, theta)...)
	}

	t.AddMinute()
	return out
}

// renderTickTrain emits 0.52s of noise, then ticks at 1s spacing: 5 always,
// a 6th if the RP count is >= 6, a 7th if it is 7, per spec §4.I step 4.
func (e *Encoder) renderTickTrain(t calendar.Time, p Params, fs, amp, theta float64) []float32 {
	rp := t.NumberOfRP()

	lead := int(0.52 * fs)
	tickLen := int(tickSeconds * fs)
	secondLen := int(fs) - tickLen

	var out []float32
	for i := 0; i < lead; i++ {
		out = append(out, float32(clip(e.noiseSample(p.NoiseSigma))))
	}

	emitTick := func() {
		for s := 0; s < tickLen; s++ {
			sample := amp*math.Cos(2*math.Pi*Fsync*float64(s)/fs+theta) + e.noiseSample(p.NoiseSigma)
			out = append(out, float32(clip(sample)))
		}
		for s := 0; s < secondLen; s++ {
			out = append(out, float32(clip(e.noiseSample(p.NoiseSigma))))
		}
	}

	ticks := 5
	if rp >= 6 {
		ticks = 6
	}
	if rp == 7 {
		ticks = 7
	}
	for i := 0; i < ticks; i++ {
		emitTick()
	}

	return out
}
