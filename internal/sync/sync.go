// Package sync implements the tick synchroniser, spec §4.G: after a frame
// has been decoded, it locks onto the trailing 1 kHz reference-pulse train
// and uses it to stamp the decoded minute with a sub-second time, the way a
// radio clock confirms it is still ticking in step with the transmitter.
package sync

import (
	"context"
	"math"
	"time"

	"github.com/cwsl/srcclock/internal/calendar"
	"github.com/cwsl/srcclock/internal/frame"
	"github.com/cwsl/srcclock/internal/threshold"
	"github.com/cwsl/srcclock/internal/timing"
	"github.com/cwsl/srcclock/internal/tone"
	"github.com/cwsl/srcclock/internal/window"
)

const (
	fsync           = 1000.0
	calibrationRuns = 5
	lockSecBase     = 53 // second the tick train starts counting from; first tick lands on 54
	timeoutSec      = 53
)

// Result is the outcome of one Run call.
type Result struct {
	Locked       bool
	ErrorCode    frame.ErrorCode // frame.ErrNone on lock, frame.ErrSyncTimeout otherwise
	Sec          int
	Msec         int
	NanosecDelay time.Duration
}

// Synchroniser drives the tick-train acquisition loop with its own symbol
// size Nsync = 0.1*Fs, independent of the frame decoder's 0.030s cells.
type Synchroniser struct {
	fs        float64
	snrLinear float64
}

// New builds a Synchroniser for the given sample rate and SNR margin (dB),
// matching the decoder's own threshold margin by convention.
func New(sampleRate int, snrMarginDB float64) *Synchroniser {
	return &Synchroniser{fs: float64(sampleRate), snrLinear: threshold.SNRLinear(snrMarginDB)}
}

// Run consumes samples from buf until it has counted civil.NumberOfRP()
// ticks or the per-phase timeout elapses. lastRead is the adapter's
// timestamp of the most recent sample batch, used to compute NanosecDelay.
//
// On success, Sec reports the last counted tick's second-of-minute (54..59,
// or higher across a leap second) for diagnostics; the caller is expected
// to call civil.AddMinute() and apply Msec/NanosecDelay, per spec §4.G's
// "advance civil fields by one minute, set msec=100". On timeout it returns
// Sec=53 and frame.ErrSyncTimeout, per spec; the caller is responsible for
// falling back to "today" if no usable civil time exists at all.
func (s *Synchroniser) Run(ctx context.Context, buf *window.Buffer, civil calendar.Time, lastRead time.Time) Result {
	nsync := int(math.Round(0.1 * s.fs))
	delta := nsync
	step := timing.SyncStep(nsync)
	expected := civil.NumberOfRP()
	deadline := int64(expected+1) * int64(s.fs)

	var elapsed int64
	th := 0.0

	for i := 0; i < calibrationRuns; i++ {
		wnd, err := buf.NextWindow(nsync)
		if err != nil {
			return Result{ErrorCode: frame.ErrSyncTimeout, Sec: timeoutSec}
		}
		p := tone.Power(wnd, fsync, s.fs)
		if cand := threshold.ScaleAndClamp(p, s.snrLinear); cand > th {
			th = cand
		}
		elapsed += int64(nsync)
	}

	locked := false
	ticks := 0
	sec := lockSecBase

	for ticks < expected {
		select {
		case <-ctx.Done():
			return Result{ErrorCode: frame.ErrSyncTimeout, Sec: timeoutSec}
		default:
		}

		_, tuned, err := buf.Tune(nsync, delta, step, fsync, s.fs)
		if err != nil {
			return Result{ErrorCode: frame.ErrSyncTimeout, Sec: timeoutSec}
		}
		elapsed += int64(nsync)

		if tuned.Power > th {
			if !locked {
				locked = true
				th = tuned.Power / 2
			}
			ticks++
			sec++
			if err := buf.Skip(int(s.fs) - nsync); err != nil {
				return Result{ErrorCode: frame.ErrSyncTimeout, Sec: timeoutSec}
			}
			elapsed += int64(s.fs) - int64(nsync)
		}

		if elapsed > deadline {
			return Result{ErrorCode: frame.ErrSyncTimeout, Sec: timeoutSec}
		}
	}

	return Result{
		Locked:       true,
		ErrorCode:    frame.ErrNone,
		Sec:          sec,
		Msec:         100,
		NanosecDelay: time.Since(lastRead),
	}
}
