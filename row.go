package ledgerbulk

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Columns of the source table in order. Header names are ignored, only the
// position counts.
const (
	ColumnRow = iota
	ColumnDate
	ColumnDescription
	ColumnCardHolder
	ColumnDeposit
	ColumnWithdrawal
	ColumnCardNumber

	ColumnCount
)

var groupSeparators = strings.NewReplacer(",", "", "\u066c", "", " ", "", "\u00a0", "")

// AmountParser reads an amount cell. An empty cell is a null amount. Group
// separators and Persian digits are accepted.
func AmountParser(s string) (decimal.NullDecimal, error) {
	s = groupSeparators.Replace(strings.TrimSpace(NormalizeDigits(s)))
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// RowIDParser reads the row identifier cell. Spreadsheets often store it as
// a float, so "12.0" is accepted while "12.5" is not.
func RowIDParser(s string) (int64, error) {
	s = strings.TrimSpace(NormalizeDigits(s))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing row id %q: %w", s, err)
	}
	if !d.IsInteger() || d.IsNegative() {
		return 0, fmt.Errorf("row id %q is not a non-negative integer", s)
	}
	return d.IntPart(), nil
}

// IsBlank reports whether every cell is empty or whitespace.
func IsBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseRow maps the cells of one source line to a Row. Missing trailing
// cells are treated as empty. The date is kept as text, readers with typed
// cells may replace it. An amount that cannot be parsed is returned as null
// together with an error wrapping ErrUnreadableAmount so the caller can
// decide to keep the row.
func ParseRow(cells []string) (Row, error) {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	id, err := RowIDParser(cell(ColumnRow))
	if err != nil {
		return Row{}, err
	}

	row := Row{
		ID:          id,
		Date:        cell(ColumnDate),
		Description: cell(ColumnDescription),
		CardHolder:  cell(ColumnCardHolder),
		CardNumber:  cell(ColumnCardNumber),
	}

	var amountErr error
	if row.Deposit, err = AmountParser(cell(ColumnDeposit)); err != nil {
		amountErr = fmt.Errorf("%w: deposit: %w", ErrUnreadableAmount, err)
	}
	if row.Withdrawal, err = AmountParser(cell(ColumnWithdrawal)); err != nil && amountErr == nil {
		amountErr = fmt.Errorf("%w: withdrawal: %w", ErrUnreadableAmount, err)
	}
	return row, amountErr
}
