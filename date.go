package ledgerbulk

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateFormat is the strict Gregorian layout tried after the Jalali layouts.
const DateFormat = "2006-01-02"

// WireDateFormat is how canonical instants are rendered for the ledger API.
const WireDateFormat = time.RFC3339

var delimiterReplacer = strings.NewReplacer("/", "-", ".", "-")

// NormalizeDate converts a raw date cell into a canonical instant in UTC.
//
// A time.Time is used as is. Text is first tried as a Jalali date in one of
// Y/M/D, Y-M-D, Y.M.D, D/M/Y, D-M-Y or D.M.Y, with the position of the year
// decided by which field has four digits, then as a Gregorian YYYY-MM-DD. If
// nothing parses, NormalizeDate returns now and reports fallback as true. It
// never fails.
func NormalizeDate(raw any, now time.Time) (t time.Time, fallback bool) {
	var s string
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return now.UTC(), true
		}
		return v.UTC(), false
	case *time.Time:
		if v == nil || v.IsZero() {
			return now.UTC(), true
		}
		return v.UTC(), false
	case string:
		s = v
	case nil:
		return now.UTC(), true
	default:
		s = fmt.Sprint(v)
	}

	s = strings.TrimSpace(NormalizeDigits(s))
	if s == "" {
		return now.UTC(), true
	}

	if t, ok := parseJalali(s); ok {
		return t, false
	}
	if t, err := time.Parse(DateFormat, s); err == nil {
		return t.UTC(), false
	}
	return now.UTC(), true
}

// parseJalali parses s as a Jalali date written with any mix of '/', '-' and
// '.' as delimiters. A four digit first field means year-month-day, a four
// digit last field means day-month-year. When both fields have four digits
// the first one wins.
func parseJalali(s string) (time.Time, bool) {
	if !strings.ContainsAny(s, "/-.") {
		return time.Time{}, false
	}
	parts := strings.Split(delimiterReplacer.Replace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	var y, m, d string
	switch {
	case len(parts[0]) == 4:
		y, m, d = parts[0], parts[1], parts[2]
	case len(parts[2]) == 4:
		d, m, y = parts[0], parts[1], parts[2]
	default:
		return time.Time{}, false
	}

	year, ok := atoi(y)
	if !ok {
		return time.Time{}, false
	}
	month, ok := atoi(m)
	if !ok {
		return time.Time{}, false
	}
	day, ok := atoi(d)
	if !ok {
		return time.Time{}, false
	}

	t, err := JalaliToGregorian(year, month, day)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// atoi accepts only non-empty runs of ASCII digits.
func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// foldDigit maps Persian and Arabic-Indic digits to their ASCII equivalent.
func foldDigit(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r == '٫': // Arabic decimal separator
		return '.'
	}
	return r
}

// NormalizeDigits returns s in NFKC form with bidi control marks removed and
// Persian or Arabic-Indic digits replaced by ASCII digits. Spreadsheets
// exported from Persian locales routinely contain all three.
func NormalizeDigits(s string) string {
	t := transform.Chain(norm.NFKC, runes.Remove(runes.In(unicode.Bidi_Control)), runes.Map(foldDigit))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
