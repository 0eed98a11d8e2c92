package frame

import (
	"testing"

	"github.com/cwsl/srcclock/internal/cell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func s1Input() CivilInput {
	// 2014-05-07 Wed 13:27, dst=true, change=7 (none), leap=0.
	return CivilInput{
		Hour: 13, Minute: 27, DST: true,
		Month: 5, Day: 7, Weekday: 3,
		YearMod100: 14, ChangeTime: 7, LeapSecond: 0,
	}
}

func Test_S1_EncodeRoundTrip(t *testing.T) {
	f := New()
	f.Encode(s1Input())

	assert.Equal(t, cell.Zero, f.Cells[0])
	assert.Equal(t, cell.One, f.Cells[1])
	assert.Equal(t, cell.One, f.Cells[32])
	assert.Equal(t, cell.Zero, f.Cells[33])

	for bits := 1; bits <= NumCells; bits++ {
		require.Equal(t, ErrNone, f.Check(bits), "bit %d should validate cleanly", bits)
	}

	got := f.DeconvertAll()
	assert.Equal(t, s1Input().Hour, got.Hour)
	assert.Equal(t, s1Input().Minute, got.Minute)
	assert.True(t, got.DST)
	assert.Equal(t, s1Input().Month, got.Month)
	assert.Equal(t, s1Input().Day, got.Day)
	assert.Equal(t, s1Input().Weekday, got.Weekday)
	assert.Equal(t, s1Input().YearMod100, got.YearMod100)
	assert.Equal(t, 7, got.ChangeTime)
	assert.Equal(t, 0, got.LeapSecond)
}

func Test_S2_LeapPositiveField(t *testing.T) {
	f := New()
	in := CivilInput{Hour: 23, Minute: 59, DST: true, Month: 6, Day: 30, Weekday: 6, YearMod100: 12, ChangeTime: 7, LeapSecond: 1}
	f.Encode(in)
	assert.Equal(t, cell.One, f.Cells[45])
	assert.Equal(t, cell.Zero, f.Cells[46])
	assert.Equal(t, 1, f.DeconvertAll().LeapSecond)
}

func Test_S6_InvalidLeapPatternRejected(t *testing.T) {
	f := New()
	f.Encode(s1Input())
	// Force the invalid 0,1 leap pattern.
	f.Cells[45] = cell.Zero
	f.Cells[46] = cell.One

	var lastErr ErrorCode
	for bits := 1; bits <= NumCells; bits++ {
		if e := f.Check(bits); e != ErrNone {
			lastErr = e
		}
	}
	assert.Equal(t, ErrPA, lastErr)
}

func Test_S5_FlippedP1Detected(t *testing.T) {
	f := New()
	f.Encode(s1Input())
	f.Cells[16] = cell.One - f.Cells[16] // flip

	var gotErr ErrorCode
	for bits := 1; bits <= 17; bits++ {
		if e := f.Check(bits); e != ErrNone {
			gotErr = e
			break
		}
	}
	assert.Equal(t, ErrP1, gotErr)
}

func Test_Property_OneBitFlipFailsSomeParity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := New()
		in := CivilInput{
			Hour:       rapid.IntRange(0, 23).Draw(t, "hour"),
			Minute:     rapid.IntRange(0, 59).Draw(t, "min"),
			DST:        rapid.Bool().Draw(t, "dst"),
			Month:      rapid.IntRange(1, 12).Draw(t, "month"),
			Day:        rapid.IntRange(1, 28).Draw(t, "day"),
			Weekday:    rapid.IntRange(1, 7).Draw(t, "wday"),
			YearMod100: rapid.IntRange(0, 99).Draw(t, "year"),
			ChangeTime: 7,
			LeapSecond: 0,
		}
		f.Encode(in)

		flipIdx := rapid.SampledFrom([]int{0, 1, 16, 17, 31, 32, 33, 47}).Draw(t, "flip")
		f.Cells[flipIdx] = cell.One - f.Cells[flipIdx]

		gotError := false
		for bits := 1; bits <= NumCells; bits++ {
			if e := f.Check(bits); e != ErrNone {
				gotError = true
				assert.Contains(t, []ErrorCode{ErrID1, ErrP1, ErrP2, ErrID2, ErrPA}, e)
				break
			}
		}
		assert.True(t, gotError, "flipping an ID/parity-covered bit should always be caught")
	})
}

func Test_Deconvert_WeightTableTrailingEntries(t *testing.T) {
	f := New()
	f.setField(minLo, minHi, 59)
	assert.Equal(t, 59, f.Deconvert(minLo, minHi))

	f.setField(yearLo, yearHi, 99)
	assert.Equal(t, 99, f.Deconvert(yearLo, yearHi))
}
