// Package frame implements the 48-bit SRC frame codec: BCD/weight-table
// field conversion, even parity, ID literals, and the progressive bit-level
// validation the decoder state machine drives as symbols arrive.
package frame

import "github.com/cwsl/srcclock/internal/cell"

// ErrorCode mirrors the internal error field of spec §6.
type ErrorCode int

const (
	ErrNone             ErrorCode = 0
	ErrID1              ErrorCode = 1
	ErrP1               ErrorCode = 2
	ErrP2               ErrorCode = 3
	ErrID2              ErrorCode = 4
	ErrPA               ErrorCode = 5
	ErrTimeoutOrIllegal ErrorCode = 6
	ErrSyncTimeout      ErrorCode = 7
)

// Field boundaries, inclusive, as laid out in spec §3.
const (
	id1Lo, id1Hi     = 0, 1
	hourLo, hourHi   = 2, 7
	minLo, minHi     = 8, 14
	dstBit           = 15
	p1Bit            = 16
	monthLo, monthHi = 17, 21
	dayLo, dayHi     = 22, 27
	dowLo, dowHi     = 28, 30
	p2Bit            = 31
	id2Lo, id2Hi     = 32, 33
	yearLo, yearHi   = 34, 41
	ctLo, ctHi       = 42, 44
	leapLo, leapHi   = 45, 46
	paBit            = 47

	NumCells = 48
)

// weightTable is the fixed greatest-weight-first BCD table; a field of
// length L is encoded with the trailing L entries, per spec §9 open
// question 4. This applies uniformly across the 6- and 7-bit fields
// (hour, day) and (minute) as well as the 5- and 8-bit fields (month,
// year) - the table is not re-derived per field width.
var weightTable = [8]int{80, 40, 20, 10, 8, 4, 2, 1}

func weightsFor(length int) []int {
	return weightTable[8-length:]
}

// Frame is the 48-cell SRC transmission unit.
type Frame struct {
	Cells [NumCells]cell.Cell
}

// New returns a Frame with every cell Unknown.
func New() *Frame {
	f := &Frame{}
	f.Clear()
	return f
}

// Clear resets every cell to Unknown, as the decoder does on restart.
func (f *Frame) Clear() {
	for i := range f.Cells {
		f.Cells[i] = cell.Unknown
	}
}

// Set stores a decoded bit at position i.
func (f *Frame) Set(i int, c cell.Cell) {
	f.Cells[i] = c
}

// Text renders the frame per spec §6: 32 binary digits, a space, 16 binary
// digits (49 characters total).
func (f *Frame) Text() string {
	buf := make([]byte, 0, 49)
	for i := 0; i < NumCells; i++ {
		if i == 32 {
			buf = append(buf, ' ')
		}
		buf = append(buf, f.Cells[i].Byte())
	}
	return string(buf)
}

func countOnes(cells []cell.Cell) int {
	n := 0
	for _, c := range cells {
		if c == cell.One {
			n++
		}
	}
	return n
}

// evenParity returns the parity cell for a range: 1 iff the number of 1s in
// the range is odd, equivalently 1 - (sum mod 2).
func evenParity(cells []cell.Cell) cell.Cell {
	if countOnes(cells)%2 == 1 {
		return cell.One
	}
	return cell.Zero
}

func (f *Frame) p1() cell.Cell { return evenParity(f.Cells[id1Hi+1 : p1Bit]) }
func (f *Frame) p2() cell.Cell { return evenParity(f.Cells[monthLo:p2Bit]) }
func (f *Frame) pa() cell.Cell { return evenParity(f.Cells[id2Lo:paBit]) }

// setField writes value into f.Cells[lo:hi+1] using the weight table,
// greedy greatest-weight-first, per spec §4.E "Encode".
func (f *Frame) setField(lo, hi, value int) {
	weights := weightsFor(hi - lo + 1)
	for i, w := range weights {
		if value >= w {
			f.Cells[lo+i] = cell.One
			value -= w
		} else {
			f.Cells[lo+i] = cell.Zero
		}
	}
}

// Deconvert reads a field back to an integer using the same weight table.
// No range check is performed at this layer; that is Calendar's job.
func (f *Frame) Deconvert(lo, hi int) int {
	weights := weightsFor(hi - lo + 1)
	value := 0
	for i, w := range weights {
		if f.Cells[lo+i] == cell.One {
			value += w
		}
	}
	return value
}

// CivilInput carries the fields an encoder populates into a frame.
type CivilInput struct {
	Hour, Minute int
	DST          bool
	Month, Day   int
	Weekday      int // 1=Mon .. 7=Sun
	YearMod100   int
	ChangeTime   int // 0..6 days until switch, 7 = none; out-of-range forces 1,1,1
	LeapSecond   int // -1, 0, +1; any other value is treated as 0 (none)
}

// Encode populates frame[0..47] from civil fields and computes P1, P2, PA.
func (f *Frame) Encode(in CivilInput) {
	f.Cells[id1Lo] = cell.Zero
	f.Cells[id1Hi] = cell.One

	f.setField(hourLo, hourHi, in.Hour)
	f.setField(minLo, minHi, in.Minute)
	f.Cells[dstBit] = cell.FromBit(in.DST)
	f.Cells[p1Bit] = f.p1()

	f.setField(monthLo, monthHi, in.Month)
	f.setField(dayLo, dayHi, in.Day)
	f.setField(dowLo, dowHi, in.Weekday)
	f.Cells[p2Bit] = f.p2()

	f.Cells[id2Lo] = cell.One
	f.Cells[id2Hi] = cell.Zero

	f.setField(yearLo, yearHi, in.YearMod100)

	if in.ChangeTime < 0 || in.ChangeTime > 6 {
		f.Cells[ctLo] = cell.One
		f.Cells[ctLo+1] = cell.One
		f.Cells[ctLo+2] = cell.One
	} else {
		f.setField(ctLo, ctHi, in.ChangeTime)
	}

	switch in.LeapSecond {
	case 1:
		f.Cells[leapLo] = cell.One
		f.Cells[leapLo+1] = cell.Zero
	case -1:
		f.Cells[leapLo] = cell.One
		f.Cells[leapLo+1] = cell.One
	default:
		f.Cells[leapLo] = cell.Zero
		f.Cells[leapLo+1] = cell.Zero
	}

	f.Cells[paBit] = f.pa()
}

// Decoded is the civil-field extraction of a frame that has passed Check.
type Decoded struct {
	Hour, Minute int
	DST          bool
	Month, Day   int
	Weekday      int
	YearMod100   int
	ChangeTime   int
	LeapSecond   int
}

// DeconvertAll reads all civil fields back out of the frame via the weight
// table. Callers should only trust this after a successful Check(48).
func (f *Frame) DeconvertAll() Decoded {
	d := Decoded{
		Hour:       f.Deconvert(hourLo, hourHi),
		Minute:     f.Deconvert(minLo, minHi),
		DST:        f.Cells[dstBit] == cell.One,
		Month:      f.Deconvert(monthLo, monthHi),
		Day:        f.Deconvert(dayLo, dayHi),
		Weekday:    f.Deconvert(dowLo, dowHi),
		YearMod100: f.Deconvert(yearLo, yearHi),
		ChangeTime: f.Deconvert(ctLo, ctHi),
	}
	switch {
	case f.Cells[leapLo] == cell.Zero && f.Cells[leapLo+1] == cell.Zero:
		d.LeapSecond = 0
	case f.Cells[leapLo] == cell.One && f.Cells[leapLo+1] == cell.Zero:
		d.LeapSecond = 1
	case f.Cells[leapLo] == cell.One && f.Cells[leapLo+1] == cell.One:
		d.LeapSecond = -1
	}
	return d
}

// leapPatternValid reports whether bits 45..46 hold one of the three
// defined patterns (00, 10, 11); the fourth combination (01) is invalid.
func (f *Frame) leapPatternValid() bool {
	return !(f.Cells[leapLo] == cell.Zero && f.Cells[leapLo+1] == cell.One)
}

// Check runs the progressive validation described in spec §4.E as bits
// arrive one at a time. bits is the count of cells received so far
// (1..48); the caller invokes Check once per newly-received cell. It
// returns ErrNone while acquisition should continue, or the specific
// error code that should abort and restart acquisition.
func (f *Frame) Check(bits int) ErrorCode {
	if bits < 1 || bits > NumCells {
		return ErrNone
	}

	for i := 0; i < bits; i++ {
		if f.Cells[i] == cell.Unknown {
			return ErrTimeoutOrIllegal
		}
	}

	switch bits {
	case id1Lo + 1:
		if f.Cells[id1Lo] != cell.Zero {
			return ErrID1
		}
	case id1Hi + 1:
		if f.Cells[id1Hi] != cell.One {
			return ErrID1
		}
	case p1Bit + 1:
		if f.Cells[p1Bit] != f.p1() {
			return ErrP1
		}
	case p2Bit + 1:
		if f.Cells[p2Bit] != f.p2() {
			return ErrP2
		}
	case id2Lo + 1:
		if f.Cells[id2Lo] != cell.One {
			return ErrID2
		}
	case id2Hi + 1:
		if f.Cells[id2Hi] != cell.Zero {
			return ErrID2
		}
	case leapHi + 1:
		if !f.leapPatternValid() {
			return ErrPA
		}
	case paBit + 1:
		if f.Cells[paBit] != f.pa() {
			return ErrPA
		}
	}

	return ErrNone
}
