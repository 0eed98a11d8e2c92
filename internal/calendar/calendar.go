// Package calendar implements the civil date/time model the SRC frame
// carries, including leap-year rules, Zeller-congruence weekday
// computation, and the minute-advance state transition the tick
// synchroniser drives.
package calendar

import "fmt"

// Time is the full civil-time representation the decoder emits and the
// encoder consumes. Weekday is 1=Monday .. 7=Sunday, matching the frame's
// day-of-week field.
type Time struct {
	Year, Month, Day int
	Weekday          int
	Hour, Minute, Sec int
	Msec             int
	Nsec             int64 // sub-millisecond remainder, set by the sync phase

	DST        bool
	ChangeTime int // 0..6 days to switch, 7 = none
	LeapSecond int // -1, 0, +1
}

var monthAbbrev = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Set", "Oct", "Nov", "Dec"}
var weekdayAbbrev = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// IsLeapYear reports whether y is a leap year: divisible by 400, or
// divisible by 4 and not by 100.
func IsLeapYear(y int) bool {
	return y%400 == 0 || (y%4 == 0 && y%100 != 0)
}

// DaysInMonth returns the length of month m (1-12) in year y.
func DaysInMonth(y, m int) int {
	lengths := [...]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	d := lengths[m-1]
	if m == 2 && IsLeapYear(y) {
		d = 29
	}
	return d
}

// zellerT is the month-offset table used by the Zeller congruence below,
// indexed by month-1.
var zellerT = [...]int{0, 3, 2, 5, 0, 3, 5, 1, 4, 6, 2, 4}

// mod is a floor-style modulo: Go's % can return a negative result for a
// negative dividend, which the Zeller congruence below does not want.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Weekday computes the Zeller-congruence day of week for a calendar date
// and maps the conventional dow==0 (Sunday) result onto 7, so the return
// value matches the frame's 1=Mon..7=Sun field.
func Weekday(y, m, d int) int {
	yPrime := y
	if m < 3 {
		yPrime--
	}
	dow := mod(yPrime+yPrime/4-yPrime/100+yPrime/400+zellerT[m-1]+d, 7)
	if dow == 0 {
		return 7
	}
	return dow
}

// Validate reports whether t names a real calendar day and whether its
// transmitted Weekday matches the Zeller computation, per invariant 1.
func (t Time) Validate() error {
	if t.Month < 1 || t.Month > 12 {
		return fmt.Errorf("calendar: month %d out of range", t.Month)
	}
	if t.Day < 1 || t.Day > DaysInMonth(t.Year, t.Month) {
		return fmt.Errorf("calendar: day %d invalid for %04d-%02d", t.Day, t.Year, t.Month)
	}
	if t.Weekday < 1 || t.Weekday > 7 {
		return fmt.Errorf("calendar: weekday %d out of range", t.Weekday)
	}
	if want := Weekday(t.Year, t.Month, t.Day); want != t.Weekday {
		return fmt.Errorf("calendar: transmitted weekday %d does not match computed %d", t.Weekday, want)
	}
	return nil
}

// AddMinute advances t by one minute, carrying into hour/day/month/year,
// cycling Weekday 1..7, and applying the DST fold at the designated
// transition minute, per spec §4.H.
func (t *Time) AddMinute() {
	t.Sec = 0

	atDSTFold := t.Minute == 59 && t.ChangeTime == 0 &&
		((t.Hour == 1 && !t.DST) || (t.Hour == 2 && t.DST))
	if atDSTFold {
		dstBefore := 0
		if t.DST {
			dstBefore = 1
		}
		t.Hour = 3 - dstBefore
		t.Minute = 0
		t.DST = !t.DST
		t.ChangeTime = 7
		return
	}

	t.Minute++
	if t.Minute < 60 {
		return
	}
	t.Minute = 0
	t.Hour++
	if t.Hour < 24 {
		return
	}
	t.Hour = 0
	t.advanceWeekday()

	t.Day++
	if t.Day <= DaysInMonth(t.Year, t.Month) {
		return
	}
	t.Day = 1
	t.Month++
	if t.Month <= 12 {
		return
	}
	t.Month = 1
	t.Year++
}

// NumberOfRP returns the number of reference pulses (ticks) the sync phase
// should expect to see after this minute's frame, per spec §4.G's
// number_of_RP. Preserved verbatim including its apparent boundary
// oddity around UTC day rollover (see DESIGN.md, Open Question 1) -
// this is not a bug to fix, it is a defect to transcribe faithfully.
func (t Time) NumberOfRP() int {
	dstHour := 0
	if t.DST {
		dstHour = 1
	}
	if t.Day == 1 && t.Hour-dstHour == 0 && t.Minute == 59 {
		return 6 + t.LeapSecond
	}
	return 6
}

func (t *Time) advanceWeekday() {
	t.Weekday++
	if t.Weekday > 7 {
		t.Weekday = 1
	}
}

// RFC2822 formats t as "Wed, 07 May 2014 13:27:53 +0200"-style text. zone
// is the signed UTC offset in minutes (e.g. 120 for +0200); dst does not
// affect the printed offset, which reflects the caller's chosen zone.
func (t Time) RFC2822(zoneMinutes int) string {
	return fmt.Sprintf("%s, %02d %s %04d %02d:%02d:%02d %s",
		weekdayAbbrev[t.Weekday-1], t.Day, monthAbbrev[t.Month-1], t.Year,
		t.Hour, t.Minute, t.Sec, formatZone(zoneMinutes))
}

// ISO8601 formats t as "2014-05-07T13:27:53+0200".
func (t Time) ISO8601(zoneMinutes int) string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d%s",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Sec, formatZone(zoneMinutes))
}

func formatZone(zoneMinutes int) string {
	sign := "+"
	if zoneMinutes < 0 {
		sign = "-"
		zoneMinutes = -zoneMinutes
	}
	return fmt.Sprintf("%s%02d%02d", sign, zoneMinutes/60, zoneMinutes%60)
}
