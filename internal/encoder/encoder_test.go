package encoder

import (
	"math"
	"testing"

	"github.com/cwsl/srcclock/internal/calendar"
	"github.com/stretchr/testify/assert"
)

type fixedUniform struct{ values []float64; i int }

func (f *fixedUniform) Float64() float64 {
	v := f.values[f.i%len(f.values)]
	f.i++
	return v
}

func Test_GaussianSource_InvalidateClearsCache(t *testing.T) {
	g := newGaussianSource(&fixedUniform{values: []float64{0.3, 0.4, 0.1, 0.6}})
	_ = g.Next()
	assert.True(t, g.hasCached)
	g.invalidate()
	assert.False(t, g.hasCached)
}

func Test_GaussianSource_RoughlyStandardNormal(t *testing.T) {
	e := New(42)
	sum, sumSq := 0.0, 0.0
	const n = 20000
	for i := 0; i < n; i++ {
		v := e.noise.Next()
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 1, variance, 0.1)
}

func Test_Render_ClipsToUnitRange(t *testing.T) {
	e := New(1)
	tm := calendar.Time{Year: 2014, Month: 5, Day: 7, Weekday: 3, Hour: 13, Minute: 27, ChangeTime: 7}
	samples := e.Render(&tm, Params{SampleRate: 8000, PowerDB: 0, NoiseSigma: 2.0})
	for _, s := range samples {
		assert.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
}

func Test_Render_PositivePowerDBForcedToZero(t *testing.T) {
	e1 := New(7)
	e2 := New(7)
	t1 := calendar.Time{Year: 2014, Month: 5, Day: 7, Weekday: 3, Hour: 13, Minute: 27, ChangeTime: 7}
	t2 := t1
	out1 := e1.Render(&t1, Params{SampleRate: 8000, PowerDB: 5})
	out2 := e2.Render(&t2, Params{SampleRate: 8000, PowerDB: 0})
	assert.Equal(t, out1, out2, "positive power_dB must be clamped to 0 dB, same as explicitly requesting 0")
}

func Test_Render_AdvancesMinute(t *testing.T) {
	e := New(1)
	tm := calendar.Time{Year: 2014, Month: 5, Day: 7, Weekday: 3, Hour: 13, Minute: 27, ChangeTime: 7}
	e.Render(&tm, Params{SampleRate: 8000})
	assert.Equal(t, 28, tm.Minute)
}

func Test_NumberOfRP_DefaultIsSix(t *testing.T) {
	tm := calendar.Time{Day: 15, Hour: 10, Minute: 30}
	assert.Equal(t, 6, tm.NumberOfRP())
}

func Test_NumberOfRP_LeapAdjustsAtFormulaCondition(t *testing.T) {
	tm := calendar.Time{Day: 1, Hour: 0, Minute: 59, DST: false, LeapSecond: 1}
	assert.Equal(t, 7, tm.NumberOfRP())
	tm.LeapSecond = -1
	assert.Equal(t, 5, tm.NumberOfRP())
}
