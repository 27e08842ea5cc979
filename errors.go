package ledgerbulk

import (
	"errors"
	"fmt"
)

// ErrNoTransactionType means neither deposit nor withdrawal is positive.
var ErrNoTransactionType = errors.New("no transaction type")

// ErrNonPositiveAmount means the amount picked for the transaction is not
// greater than zero.
var ErrNonPositiveAmount = errors.New("amount is not positive")

// ErrUnreadableAmount means an amount cell holds something other than a
// number.
var ErrUnreadableAmount = errors.New("unreadable amount")

// InvalidRowError is returned when a row cannot be turned into a
// transaction. Rows failing this way are never retried within a run.
type InvalidRowError struct {
	RowID  int64
	Reason error
}

func (e InvalidRowError) Error() string {
	return fmt.Sprintf("invalid transaction amount or type for row %d: %s", e.RowID, e.Reason)
}

func (e InvalidRowError) Unwrap() error {
	return e.Reason
}

// Is checks if the error is an invalid row error
func (e InvalidRowError) Is(target error) bool {
	_, ok := target.(InvalidRowError)
	return ok
}
