package sync

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cwsl/srcclock/internal/calendar"
	"github.com/cwsl/srcclock/internal/frame"
	"github.com/cwsl/srcclock/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFs = 8000.0

// fakeTickSource renders silence plus a clean 1 kHz tick train at 1s
// spacing so the synchroniser's acquisition loop can be exercised without a
// real audio device.
type fakeTickSource struct {
	samples []float32
	pos     int
}

func newFakeTickSource(fs float64, leadSilenceSec float64, ticks int) *fakeTickSource {
	var out []float32
	lead := int(leadSilenceSec * fs)
	for i := 0; i < lead; i++ {
		out = append(out, 0)
	}
	tickLen := int(0.1 * fs)
	secondLen := int(fs) - tickLen
	for i := 0; i < ticks; i++ {
		for s := 0; s < tickLen; s++ {
			out = append(out, float32(0.9*math.Cos(2*math.Pi*fsync*float64(s)/fs)))
		}
		for s := 0; s < secondLen; s++ {
			out = append(out, 0)
		}
	}
	// pad generously so Skip/Tune lookahead never runs dry.
	for i := 0; i < int(fs); i++ {
		out = append(out, 0)
	}
	return &fakeTickSource{samples: out}
}

func (f *fakeTickSource) Read(buf []float32) (int, error) {
	n := copy(buf, f.samples[f.pos:])
	f.pos += n
	return n, nil
}

func baseCivil() calendar.Time {
	return calendar.Time{Year: 2014, Month: 5, Day: 7, Weekday: 3, Hour: 13, Minute: 27, ChangeTime: 7}
}

func Test_Synchroniser_LocksOntoSixTicks(t *testing.T) {
	src := newFakeTickSource(testFs, 0.6, 6)
	buf := window.New(src)
	s := New(int(testFs), 16)

	res := s.Run(context.Background(), buf, baseCivil(), time.Now())

	require.True(t, res.Locked)
	assert.Equal(t, frame.ErrNone, res.ErrorCode)
	assert.Equal(t, 100, res.Msec)
	assert.Equal(t, 59, res.Sec) // six ticks, first lands on 54
}

func Test_Synchroniser_TimesOutOnSilence(t *testing.T) {
	src := newFakeTickSource(testFs, 0, 0)
	// Only silence for the whole deadline window: never produces a tick.
	src.samples = make([]float32, int(8*testFs))
	buf := window.New(src)
	s := New(int(testFs), 16)

	res := s.Run(context.Background(), buf, baseCivil(), time.Now())

	assert.False(t, res.Locked)
	assert.Equal(t, frame.ErrSyncTimeout, res.ErrorCode)
	assert.Equal(t, timeoutSec, res.Sec)
}

func Test_Synchroniser_RespectsCancellation(t *testing.T) {
	src := newFakeTickSource(testFs, 0, 0)
	src.samples = make([]float32, int(20*testFs))
	buf := window.New(src)
	s := New(int(testFs), 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.Run(ctx, buf, baseCivil(), time.Now())
	assert.Equal(t, frame.ErrSyncTimeout, res.ErrorCode)
}
