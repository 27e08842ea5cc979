// Package json implements a writer that prints transactions as JSON lines
// instead of posting them. It backs dry runs: every built transaction is
// written in its wire form and reported as accepted.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/martinohansen/ledgerbulk"
	"github.com/martinohansen/ledgerbulk/writer/ledger"
)

type builder interface {
	Build(row ledgerbulk.Row, person *ledgerbulk.Person) (ledgerbulk.Transaction, error)
}

// Writer outputs transactions as JSON to out.
type Writer struct {
	builder builder
	out     io.Writer

	mu           sync.Mutex
	totalWritten int
}

// NewWriter returns a writer that builds transactions with b and prints
// them to out.
func NewWriter(b builder, out io.Writer) *Writer {
	return &Writer{builder: b, out: out}
}

func (w *Writer) String() string { return "json" }

// Build delegates to the wrapped builder so dry runs validate rows exactly
// like real runs.
func (w *Writer) Build(row ledgerbulk.Row, person *ledgerbulk.Person) (ledgerbulk.Transaction, error) {
	return w.builder.Build(row, person)
}

// Submit writes tx as a single line of JSON.
func (w *Writer) Submit(ctx context.Context, tx ledgerbulk.Transaction) ledgerbulk.Outcome {
	if err := ctx.Err(); err != nil {
		return ledgerbulk.Outcome{Kind: ledgerbulk.TransportFailure, Err: err}
	}

	b, err := json.Marshal(ledger.Payload(tx))
	if err != nil {
		return ledgerbulk.Outcome{Kind: ledgerbulk.TransportFailure, Err: fmt.Errorf("marshalling: %w", err)}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintln(w.out, string(b)); err != nil {
		return ledgerbulk.Outcome{Kind: ledgerbulk.TransportFailure, Err: fmt.Errorf("writing: %w", err)}
	}
	w.totalWritten++
	return ledgerbulk.Outcome{Kind: ledgerbulk.Accepted, Code: 200, Message: "dry run"}
}

// Written returns how many transactions have been printed.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalWritten
}
