package ledgerbulk

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Directory is the list of known persons fetched once per run.
type Directory []Person

// Resolve returns the first person whose account number equals the
// canonical form of cardNumber. An empty card number never matches.
func (d Directory) Resolve(cardNumber string) (Person, bool) {
	number := CanonicalAccountNumber(cardNumber)
	if number == "" {
		return Person{}, false
	}
	for _, p := range d {
		if p.AccountNumber == number {
			return p, true
		}
	}
	return Person{}, false
}

// CanonicalAccountNumber undoes what a numeric spreadsheet import does to an
// account number. Values that read as a number, including float renderings
// like "6037991234567890.0" or "6.03799123456789E+15", become their integer
// string. Anything else is returned trimmed and with ASCII digits.
func CanonicalAccountNumber(raw string) string {
	s := strings.TrimSpace(NormalizeDigits(raw))
	if s == "" {
		return ""
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d.Truncate(0).String()
	}
	return s
}
