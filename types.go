package ledgerbulk

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Row is a single record read from the source table. Rows are read-only for
// the duration of a run.
type Row struct {
	// ID identifies the row across runs and is the key of the processed
	// store.
	ID int64

	// Date is the raw date cell. Readers set it to a time.Time when the
	// source carries a structured timestamp and to a string otherwise.
	Date any

	Description string

	// CardHolder is empty when the source cell is empty.
	CardHolder string

	Deposit    decimal.NullDecimal
	Withdrawal decimal.NullDecimal

	// CardNumber is the raw card or account number, empty when absent.
	CardNumber string
}

// Person is an entry in the remote person directory.
type Person struct {
	// ID is kept as the raw JSON value returned by the API so it can be sent
	// back verbatim.
	ID            json.RawMessage `json:"id"`
	Name          string          `json:"personName"`
	AccountNumber string          `json:"accountNumber"`
}

// TransactionType is the ledger's transaction direction.
type TransactionType int

const (
	Deposit    TransactionType = 1
	Withdrawal TransactionType = 2
)

func (t TransactionType) String() string {
	switch t {
	case Deposit:
		return "deposit"
	case Withdrawal:
		return "withdrawal"
	default:
		return "unknown"
	}
}

// Transaction is the create-transaction payload built from one row.
type Transaction struct {
	Name        string
	Description string
	// Amount is always positive
	Amount decimal.Decimal
	IsCash bool
	// Date is the canonical instant in UTC
	Date time.Time
	Type TransactionType
	// PersonID is nil when the row's card number did not resolve
	PersonID json.RawMessage
}

// State is the terminal state of a row within a run.
type State int

const (
	Pending State = iota
	Skipped
	Invalid
	Accepted
	Rejected
	Malformed
	TransportFailure
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Skipped:
		return "SKIPPED"
	case Invalid:
		return "INVALID"
	case Accepted:
		return "ACCEPTED"
	case Rejected:
		return "REJECTED"
	case Malformed:
		return "MALFORMED"
	case TransportFailure:
		return "TRANSPORT_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the classified result of submitting one transaction. Kind is
// one of Accepted, Rejected, Malformed or TransportFailure.
type Outcome struct {
	Kind State

	// Code and Message are the API's embedded code and message. Set for
	// Accepted and Rejected.
	Code             int
	Message          string
	DeveloperMessage string

	// StatusCode and Body are the raw HTTP status and a truncated body
	// excerpt. Set for Malformed.
	StatusCode int
	Body       string

	// Err is the transport error. Set for TransportFailure.
	Err error
}

// Summary holds the run-level counters. Seen = Skipped + Attempted and
// Attempted = Succeeded + Failed.
type Summary struct {
	Seen      int
	Skipped   int
	Attempted int
	Succeeded int
	Failed    int
}
