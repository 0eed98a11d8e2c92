// Package decoder implements the SRC decoder state machine, spec §4.F:
// acquire 48 cells from a sample stream, validate them progressively, and
// hand the synced result to the tick synchroniser for sub-second timing.
package decoder

import (
	"context"
	"time"

	"github.com/cwsl/srcclock/internal/audioio"
	"github.com/cwsl/srcclock/internal/calendar"
	"github.com/cwsl/srcclock/internal/cell"
	"github.com/cwsl/srcclock/internal/frame"
	"github.com/cwsl/srcclock/internal/sync"
	"github.com/cwsl/srcclock/internal/threshold"
	"github.com/cwsl/srcclock/internal/timing"
	"github.com/cwsl/srcclock/internal/tone"
	"github.com/cwsl/srcclock/internal/window"
)

const (
	f0 = 2000.0
	f1 = 2500.0

	symbolSeconds = 0.030
	gapSeconds    = 0.04
)

// Params configures a Decoder. Zero values are replaced by DefaultParams'
// values where a Decoder is built with New.
type Params struct {
	SampleRate  int
	Channels    int
	ThresholdDB float64
	WDSWindow   int
	SNRMarginDB float64
	Timeout     time.Duration
	CenturyBase int // e.g. 2000; added to the frame's 2-digit year
}

// DefaultParams mirrors spec §4.F's stated defaults: Fs=8000, mono,
// threshold -35dB, 600s timeout, a 50-symbol WDS window and 16dB SNR
// margin.
func DefaultParams() Params {
	return Params{
		SampleRate:  8000,
		Channels:    1,
		ThresholdDB: -35,
		WDSWindow:   50,
		SNRMarginDB: 16,
		Timeout:     600 * time.Second,
		CenturyBase: (time.Now().Year() / 100) * 100,
	}
}

// Outcome is the result of one Decode call.
type Outcome struct {
	Time      calendar.Time
	ErrorCode frame.ErrorCode
	FrameText string
}

// Decoder orchestrates the tone, threshold, timing, frame and sync
// components against a live or file-backed sample stream, via composition
// over an audioio.Adapter rather than an inherited I/O base class.
type Decoder struct {
	adapter *audioio.Adapter
	params  Params
	wds     *threshold.WDS
	sync    *sync.Synchroniser
	now     func() time.Time
}

// New builds a Decoder reading from adapter. Any zero field in p is
// replaced with the matching DefaultParams() value.
func New(adapter *audioio.Adapter, p Params) *Decoder {
	def := DefaultParams()
	if p.SampleRate == 0 {
		p.SampleRate = def.SampleRate
	}
	if p.Channels == 0 {
		p.Channels = def.Channels
	}
	if p.ThresholdDB == 0 {
		p.ThresholdDB = def.ThresholdDB
	}
	if p.WDSWindow == 0 {
		p.WDSWindow = def.WDSWindow
	}
	if p.SNRMarginDB == 0 {
		p.SNRMarginDB = def.SNRMarginDB
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.CenturyBase == 0 {
		p.CenturyBase = def.CenturyBase
	}

	wds := threshold.New(p.WDSWindow, p.SNRMarginDB)
	wds.SetStaticDB(p.ThresholdDB)

	return &Decoder{
		adapter: adapter,
		params:  p,
		wds:     wds,
		sync:    sync.New(p.SampleRate, p.SNRMarginDB),
		now:     time.Now,
	}
}

// Close releases the underlying stream.
func (d *Decoder) Close() error {
	return d.adapter.Close()
}

// Decode runs one full acquisition: 48 cells followed by tick sync. It
// returns as soon as a validation error aborts the frame, or once the
// frame and (if possible) the tick train have both been read.
func (d *Decoder) Decode(ctx context.Context) Outcome {
	fs := float64(d.params.SampleRate)
	n := roundInt(fs * symbolSeconds)
	gap := int(fs * gapSeconds)
	delta := n
	step := timing.SymbolStep(n)

	buf := window.New(d.adapter)
	f := frame.New()
	// The timeout is counted in stream time (symbol windows consumed), not
	// on the wall clock, so offline decoding ends deterministically.
	budget := int64(d.params.Timeout.Seconds() * fs)
	var elapsed int64

	for c := 0; c < frame.NumCells; {
		select {
		case <-ctx.Done():
			return d.timeoutOutcome(f)
		default:
		}
		if elapsed > budget {
			return d.timeoutOutcome(f)
		}

		var wnd []float64
		var err error
		if c == 0 || c == 32 {
			// Cell 32 always carries ID2's leading 1, so its realignment
			// searches F1 only: with both tones, an F0 symbol at cell 33
			// inside the search range can score as high as cell 32 and win.
			freqs := []float64{f0, f1}
			if c == 32 {
				freqs = []float64{f1}
			}
			wnd, _, _, err = buf.TuneBest(n, delta, step, freqs, fs)
		} else {
			wnd, err = buf.NextWindow(n)
		}
		if err != nil {
			return d.timeoutOutcome(f)
		}
		elapsed += int64(n)

		p0 := tone.Power(wnd, f0, fs)
		p1 := tone.Power(wnd, f1, fs)
		if c == 0 {
			d.wds.Recalibrate()
		}

		th := d.wds.Level()

		// IDLE: while still hunting for cell 0, a sub-threshold window is
		// not a decode failure - it just means the burst hasn't started
		// yet (or this is trailing noise from the previous minute). Keep
		// the ring fed and keep searching instead of forcing frame[0].
		if c == 0 && p0 <= th && p1 <= th {
			d.wds.Update(p0, p1)
			continue
		}

		var symbol cell.Cell
		switch {
		case p0 > th && p0 >= p1:
			symbol = cell.Zero
		case p1 > th && p1 > p0:
			symbol = cell.One
		default:
			symbol = cell.Unknown
		}
		f.Set(c, symbol)
		d.wds.Update(p0, p1)

		if code := f.Check(c + 1); code != frame.ErrNone {
			return Outcome{Time: d.fallbackToday(), ErrorCode: code, FrameText: f.Text()}
		}

		if c == 31 {
			buf.Clear()
			if err := buf.Skip(gap); err != nil {
				return d.timeoutOutcome(f)
			}
		}
		c++
	}

	decoded := f.DeconvertAll()
	civil := calendar.Time{
		Year:       d.params.CenturyBase + decoded.YearMod100,
		Month:      decoded.Month,
		Day:        decoded.Day,
		Weekday:    decoded.Weekday,
		Hour:       decoded.Hour,
		Minute:     decoded.Minute,
		DST:        decoded.DST,
		ChangeTime: decoded.ChangeTime,
		LeapSecond: decoded.LeapSecond,
	}

	if err := civil.Validate(); err != nil {
		return Outcome{Time: d.fallbackToday(), ErrorCode: frame.ErrTimeoutOrIllegal, FrameText: f.Text()}
	}

	// Placeholder stamp for the just-decoded minute while entering
	// SYNC_WAIT; sync.Run either replaces it (lock) or reasserts it
	// (timeout), per spec §4.F/§4.G.
	civil.Sec = 53
	civil.Msec = 480

	syncRes := d.sync.Run(ctx, buf, civil, d.adapter.LastRead())
	if syncRes.ErrorCode == frame.ErrNone {
		civil.AddMinute()
		civil.Msec = syncRes.Msec
		civil.Nsec = syncRes.NanosecDelay.Nanoseconds()
	} else {
		civil.Sec = syncRes.Sec
	}

	return Outcome{Time: civil, ErrorCode: syncRes.ErrorCode, FrameText: f.Text()}
}

func (d *Decoder) timeoutOutcome(f *frame.Frame) Outcome {
	return Outcome{Time: d.fallbackToday(), ErrorCode: frame.ErrTimeoutOrIllegal, FrameText: f.Text()}
}

// fallbackToday builds a civil time from the wall clock, used whenever
// acquisition fails before a usable frame is available.
func (d *Decoder) fallbackToday() calendar.Time {
	now := d.now()
	y, m, day := now.Date()
	return calendar.Time{
		Year: y, Month: int(m), Day: day,
		Weekday: calendar.Weekday(y, int(m), day),
		Hour:    now.Hour(), Minute: now.Minute(), Sec: now.Second(),
		ChangeTime: 7,
	}
}

func roundInt(x float64) int {
	return int(x + 0.5)
}
