package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(freq, fs float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / fs))
	}
	return out
}

func Test_Monitor_ReportsStrongestPowerNearInputTone(t *testing.T) {
	fs := 8000.0
	m := NewMonitor(int(fs), 1024)

	samples := tone(2000.0, fs, 1024)
	snaps := m.Feed(samples, nil)
	require.Len(t, snaps, 1)

	snap := snaps[0]
	assert.Greater(t, snap.F0PowerDB, snap.F1PowerDB)
	assert.Greater(t, snap.F0PowerDB, snap.FsyncDB)
}

func Test_Monitor_AccumulatesAcrossMultipleFeeds(t *testing.T) {
	fs := 8000.0
	m := NewMonitor(int(fs), 256)

	var snaps []Snapshot
	full := tone(1000.0, fs, 256)
	snaps = m.Feed(full[:100], snaps)
	assert.Empty(t, snaps)
	snaps = m.Feed(full[100:], snaps)
	require.Len(t, snaps, 1)
	assert.Greater(t, snaps[0].FsyncDB, snaps[0].F0PowerDB)
}

func Test_NextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 256, nextPowerOfTwo(200))
	assert.Equal(t, 1024, nextPowerOfTwo(1024))
	assert.Equal(t, 1, nextPowerOfTwo(0))
}
