package threshold

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_WDS_StaticWhenWindowZero(t *testing.T) {
	w := New(0, 16)
	w.SetStaticDB(-35)
	w.Update(0.9, 0.9) // ignored, ring disabled
	w.Recalibrate()    // no-op
	assert.Equal(t, math.Pow(10, -3.5), w.Level())
}

func Test_WDS_AdaptsAfterRingFills(t *testing.T) {
	w := New(4, 16)
	w.SetStatic(0.001)

	for i := 0; i < 3; i++ {
		w.Update(0.01, 0.01)
	}
	w.Recalibrate()
	assert.Equal(t, 0.001, w.Level(), "threshold should not adapt until the ring has filled once")

	w.Update(0.01, 0.01) // 4th sample fills the ring
	w.Recalibrate()
	assert.InDelta(t, 0.01*math.Pow(10, 1.6), w.Level(), 1e-9)
}

func Test_WDS_ClampsOversizedThreshold(t *testing.T) {
	w := New(2, 16) // snrLinear ~= 39.8
	w.SetStatic(0)
	w.Update(0.5, 0.5)
	w.Update(0.5, 0.5)
	w.Recalibrate()

	snrLinear := math.Pow(10, 1.6)
	mean := 0.5
	assert.Greater(t, mean*snrLinear, 1.0, "test setup should actually exercise the clamp")
	assert.InDelta(t, math.Max(mean, 1/snrLinear), w.Level(), 1e-9)
}
