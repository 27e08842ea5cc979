package ledgerbulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Store is the set of row ids already accepted by the ledger.
type Store interface {
	Contains(id int64) bool
	// Record must persist id before returning
	Record(ctx context.Context, id int64) error
}

// Poster turns rows into transactions and submits them to the ledger.
type Poster interface {
	Build(row Row, person *Person) (Transaction, error)
	Submit(ctx context.Context, tx Transaction) Outcome
}

// SessionLog is the audit trail of a run.
type SessionLog interface {
	Record(rowID int64, state State, message string) error
}

// Ingester drives rows through the per-row state machine:
//
//	Pending -> Skipped | Invalid | Accepted | Rejected | Malformed | TransportFailure
//
// Rows are processed strictly in order and only Accepted rows are added to
// the store.
type Ingester struct {
	Store     Store
	Directory Directory
	Poster    Poster
	Log       SessionLog
	logger    *slog.Logger
}

// NewIngester returns an Ingester. A nil logger uses slog.Default().
func NewIngester(store Store, directory Directory, poster Poster, log SessionLog, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		Store:     store,
		Directory: directory,
		Poster:    poster,
		Log:       log,
		logger:    logger,
	}
}

// Run processes rows in source order and returns the run counters. Per-row
// failures are counted, never returned. An error is returned only when the
// context is done or an accepted row could not be recorded, in which case
// the summary covers the rows seen so far.
func (in *Ingester) Run(ctx context.Context, rows []Row) (Summary, error) {
	var summary Summary

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Seen++

		if in.Store.Contains(row.ID) {
			in.logger.Debug("row already processed, skipping", "row", row.ID)
			summary.Skipped++
			continue
		}
		summary.Attempted++

		state, message, err := in.process(ctx, row)
		if state == Accepted {
			summary.Succeeded++
		} else {
			summary.Failed++
		}

		logger := in.logger.With("row", row.ID, "state", state)
		switch state {
		case Accepted:
			logger.Info(message)
		default:
			logger.Warn(message)
		}
		if in.Log != nil {
			if logErr := in.Log.Record(row.ID, state, message); logErr != nil {
				in.logger.Error("writing session log", "row", row.ID, "error", logErr)
			}
		}

		if err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// process takes a single row from Pending to a terminal state. The returned
// error is non-nil only if the row was accepted but could not be recorded.
func (in *Ingester) process(ctx context.Context, row Row) (State, string, error) {
	var person *Person
	if row.CardNumber != "" {
		if p, ok := in.Directory.Resolve(row.CardNumber); ok {
			person = &p
			in.logger.Debug("resolved person", "row", row.ID, "person", string(p.ID))
		} else {
			in.logger.Debug("no person for card number", "row", row.ID)
		}
	}

	tx, err := in.Poster.Build(row, person)
	if err != nil {
		return Invalid, err.Error(), nil
	}

	outcome := in.Poster.Submit(ctx, tx)
	message := outcomeMessage(tx, outcome)
	if outcome.Kind != Accepted {
		return outcome.Kind, message, nil
	}

	if err := in.Store.Record(ctx, row.ID); err != nil {
		err = fmt.Errorf("recording row %d: %w", row.ID, err)
		return Accepted, fmt.Sprintf("%s (not recorded: %s)", message, err), err
	}
	return Accepted, message, nil
}

func outcomeMessage(tx Transaction, o Outcome) string {
	switch o.Kind {
	case Accepted:
		return fmt.Sprintf("Transaction added for %s - amount: %s", tx.Name, tx.Amount)
	case Rejected:
		detail := fmt.Sprintf("API Code: %d, Message: %s", o.Code, o.Message)
		if o.DeveloperMessage != "" {
			detail += ", Dev Message: " + o.DeveloperMessage
		}
		return fmt.Sprintf("Failed to add transaction for %s: %s", tx.Name, detail)
	case Malformed:
		return fmt.Sprintf("Failed to parse API response for %s: HTTP %d, Response: %s", tx.Name, o.StatusCode, o.Body)
	case TransportFailure:
		if o.Err == nil {
			return "transport failure"
		}
		return o.Err.Error()
	default:
		return fmt.Sprintf("unexpected outcome %s", o.Kind)
	}
}

// IsFatal reports whether err returned by Run should stop the process with
// a non-zero exit code.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
