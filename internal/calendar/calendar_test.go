package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_IsLeapYear(t *testing.T) {
	assert.True(t, IsLeapYear(2000))
	assert.False(t, IsLeapYear(1900))
	assert.True(t, IsLeapYear(2012))
	assert.False(t, IsLeapYear(2013))
}

func Test_Weekday_S1(t *testing.T) {
	// 2014-05-07 was a Wednesday.
	assert.Equal(t, 3, Weekday(2014, 5, 7))
}

func Test_Invariant5_Add1440MinutesReturnsSameTimeNextDay(t *testing.T) {
	start := Time{Year: 2015, Month: 3, Day: 10, Weekday: Weekday(2015, 3, 10), Hour: 0, Minute: 0, ChangeTime: 7, LeapSecond: 0}
	tm := start
	for i := 0; i < 1440; i++ {
		tm.AddMinute()
	}
	assert.Equal(t, start.Hour, tm.Hour)
	assert.Equal(t, start.Minute, tm.Minute)
	assert.Equal(t, 11, tm.Day)
	assert.Equal(t, start.Month, tm.Month)
	assert.Equal(t, start.Year, tm.Year)
}

func Test_Invariant6_DSTSpringForward(t *testing.T) {
	tm := Time{Year: 2014, Month: 3, Day: 30, Weekday: 7, Hour: 1, Minute: 59, DST: false, ChangeTime: 0}
	tm.AddMinute()
	assert.Equal(t, 3, tm.Hour)
	assert.Equal(t, 0, tm.Minute)
	assert.True(t, tm.DST)
	assert.Equal(t, 7, tm.ChangeTime)
}

func Test_DSTFallBack(t *testing.T) {
	tm := Time{Year: 2014, Month: 10, Day: 26, Weekday: 7, Hour: 2, Minute: 59, DST: true, ChangeTime: 0}
	tm.AddMinute()
	assert.Equal(t, 2, tm.Hour)
	assert.Equal(t, 0, tm.Minute)
	assert.False(t, tm.DST)
}

func Test_Validate_RejectsInconsistentWeekday(t *testing.T) {
	tm := Time{Year: 2014, Month: 5, Day: 7, Weekday: 4} // actually Wednesday=3
	assert.Error(t, tm.Validate())

	tm.Weekday = 3
	assert.NoError(t, tm.Validate())
}

func Test_Validate_RejectsImpossibleDay(t *testing.T) {
	tm := Time{Year: 2015, Month: 2, Day: 29, Weekday: Weekday(2015, 2, 29)}
	assert.Error(t, tm.Validate())
}

func Test_NumberOfRP_DefaultSix(t *testing.T) {
	tm := Time{Day: 15, Hour: 10, Minute: 30}
	assert.Equal(t, 6, tm.NumberOfRP())
}

func Test_NumberOfRP_LeapAdjustment(t *testing.T) {
	tm := Time{Day: 1, Hour: 0, Minute: 59, LeapSecond: 1}
	assert.Equal(t, 7, tm.NumberOfRP())
}

func Test_MonthRollover(t *testing.T) {
	tm := Time{Year: 2014, Month: 1, Day: 31, Weekday: Weekday(2014, 1, 31), Hour: 23, Minute: 59, ChangeTime: 7}
	tm.AddMinute()
	assert.Equal(t, 2, tm.Month)
	assert.Equal(t, 1, tm.Day)
	assert.Equal(t, 0, tm.Hour)
	assert.Equal(t, 0, tm.Minute)
}
