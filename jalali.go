package ledgerbulk

import (
	"fmt"
	"time"
)

// jalaliBreaks are the years at which the 33-year leap cycle of the Jalali
// (Solar Hijri) calendar shifts. Conversion is defined for years in
// [jalaliBreaks[0], jalaliBreaks[len-1]).
var jalaliBreaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// jalaliYear describes the start of a Jalali year in the Gregorian calendar.
type jalaliYear struct {
	// gy is the Gregorian year in which the Jalali year starts
	gy int
	// march is the day in March of gy that is 1 Farvardin
	march int
	// leap is the number of years since the last leap year, 0 means jy
	// itself is a leap year
	leap int
}

// jalaliCalendar computes the start of the Jalali year jy and its position
// in the leap cycle.
func jalaliCalendar(jy int) (jalaliYear, error) {
	n := len(jalaliBreaks)
	if jy < jalaliBreaks[0] || jy >= jalaliBreaks[n-1] {
		return jalaliYear{}, fmt.Errorf("jalali year %d out of range", jy)
	}

	gy := jy + 621
	leapJ := -14
	jp := jalaliBreaks[0]
	jump := 0
	for i := 1; i < n; i++ {
		jm := jalaliBreaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}
	years := jy - jp

	// Leap years from AD 621 to the start of jy, in both calendars.
	leapJ += years/33*8 + (years%33+3)/4
	if jump%33 == 4 && jump-years == 4 {
		leapJ++
	}
	leapG := gy/4 - (gy/100+1)*3/4 - 150

	if jump-years < 6 {
		years = years - jump + (jump+4)/33*33
	}
	leap := ((years+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}

	return jalaliYear{gy: gy, march: 20 + leapJ - leapG, leap: leap}, nil
}

// IsJalaliLeap reports whether the Jalali year y has 366 days. Years outside
// the supported range are never leap years.
func IsJalaliLeap(y int) bool {
	c, err := jalaliCalendar(y)
	return err == nil && c.leap == 0
}

// JalaliMonthLength returns the number of days in month m of the Jalali year
// y. The first six months have 31 days, the next five 30 and Esfand has 29,
// or 30 in a leap year.
func JalaliMonthLength(y, m int) int {
	switch {
	case m < 1 || m > 12:
		return 0
	case m <= 6:
		return 31
	case m <= 11:
		return 30
	case IsJalaliLeap(y):
		return 30
	default:
		return 29
	}
}

// JalaliToGregorian converts the Jalali date y/m/d to midnight UTC of the
// same day in the Gregorian calendar. Invalid dates, including 30 Esfand in
// a common year, are an error.
func JalaliToGregorian(y, m, d int) (time.Time, error) {
	c, err := jalaliCalendar(y)
	if err != nil {
		return time.Time{}, err
	}
	if m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("jalali month %d out of range", m)
	}
	if d < 1 || d > JalaliMonthLength(y, m) {
		return time.Time{}, fmt.Errorf("jalali day %d out of range for %d/%d", d, y, m)
	}

	dayOfYear := (m-1)*31 - m/7*(m-7) + d - 1
	return time.Date(c.gy, time.March, c.march+dayOfYear, 0, 0, 0, 0, time.UTC), nil
}
