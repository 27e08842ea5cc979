package ledgerbulk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeStore struct {
	ids       map[int64]bool
	recorded  []int64
	recordErr error
}

func newFakeStore(ids ...int64) *fakeStore {
	s := &fakeStore{ids: make(map[int64]bool)}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

func (s *fakeStore) Contains(id int64) bool { return s.ids[id] }

func (s *fakeStore) Record(_ context.Context, id int64) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.ids[id] = true
	s.recorded = append(s.recorded, id)
	return nil
}

// fakePoster builds a transaction from the deposit column only and answers
// submissions by description.
type fakePoster struct {
	outcomes  map[string]Outcome
	submitted []Transaction
	persons   []*Person
}

func (p *fakePoster) Build(row Row, person *Person) (Transaction, error) {
	p.persons = append(p.persons, person)
	if !row.Deposit.Valid || !row.Deposit.Decimal.IsPositive() {
		return Transaction{}, InvalidRowError{RowID: row.ID, Reason: ErrNoTransactionType}
	}
	tx := Transaction{
		Name:        row.CardHolder,
		Description: row.Description,
		Amount:      row.Deposit.Decimal,
		Type:        Deposit,
	}
	if person != nil {
		tx.PersonID = person.ID
	}
	return tx, nil
}

func (p *fakePoster) Submit(_ context.Context, tx Transaction) Outcome {
	p.submitted = append(p.submitted, tx)
	if o, ok := p.outcomes[tx.Description]; ok {
		return o
	}
	return Outcome{Kind: Accepted, Code: 200}
}

type logLine struct {
	id      int64
	state   State
	message string
}

type fakeSessionLog struct {
	lines []logLine
}

func (l *fakeSessionLog) Record(id int64, state State, message string) error {
	l.lines = append(l.lines, logLine{id, state, message})
	return nil
}

func deposit(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngesterRun(t *testing.T) {
	store := newFakeStore()
	poster := &fakePoster{outcomes: map[string]Outcome{
		"rent": {Kind: Rejected, Code: 400, Message: "Invalid date"},
	}}
	log := &fakeSessionLog{}
	in := NewIngester(store, nil, poster, log, testLogger())

	rows := []Row{
		{ID: 1, Date: "1402/10/15", Description: "salary", CardHolder: "Ali", Deposit: deposit("500000")},
		{ID: 2, Date: "1402/10/16", Description: "empty", CardHolder: "Ali"},
		{ID: 3, Date: "1402/10/17", Description: "rent", CardHolder: "Sara", Deposit: deposit("100")},
	}

	got, err := in.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := Summary{Seen: 3, Skipped: 0, Attempted: 3, Succeeded: 1, Failed: 2}
	if got != want {
		t.Errorf("Run() = %+v, want %+v", got, want)
	}

	if len(store.recorded) != 1 || store.recorded[0] != 1 {
		t.Errorf("recorded = %v, want [1]", store.recorded)
	}

	wantStates := []State{Accepted, Invalid, Rejected}
	if len(log.lines) != len(wantStates) {
		t.Fatalf("got %d session log lines, want %d", len(log.lines), len(wantStates))
	}
	for i, s := range wantStates {
		if log.lines[i].state != s {
			t.Errorf("line %d state = %s, want %s", i, log.lines[i].state, s)
		}
	}
	if msg := log.lines[0].message; msg != "Transaction added for Ali - amount: 500000" {
		t.Errorf("accepted message = %q", msg)
	}
	if msg := log.lines[2].message; msg != "Failed to add transaction for Sara: API Code: 400, Message: Invalid date" {
		t.Errorf("rejected message = %q", msg)
	}

	// A second run over the same rows must not submit anything new.
	poster.submitted = nil
	log.lines = nil
	poster.outcomes = nil
	got, err = in.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want = Summary{Seen: 3, Skipped: 1, Attempted: 2, Succeeded: 1, Failed: 1}
	if got != want {
		t.Errorf("rerun = %+v, want %+v", got, want)
	}
	for _, tx := range poster.submitted {
		if tx.Description == "salary" {
			t.Error("accepted row was submitted again")
		}
	}
}

func TestIngesterRunAllProcessed(t *testing.T) {
	store := newFakeStore(1, 2, 3)
	poster := &fakePoster{}
	log := &fakeSessionLog{}
	in := NewIngester(store, nil, poster, log, testLogger())

	rows := []Row{
		{ID: 1, Deposit: deposit("1")},
		{ID: 2, Deposit: deposit("2")},
		{ID: 3, Deposit: deposit("3")},
	}
	got, err := in.Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	want := Summary{Seen: 3, Skipped: 3}
	if got != want {
		t.Errorf("Run() = %+v, want %+v", got, want)
	}
	if len(poster.submitted) != 0 {
		t.Errorf("submitted %d transactions, want 0", len(poster.submitted))
	}
	if len(log.lines) != 0 {
		t.Errorf("skipped rows wrote %d session log lines", len(log.lines))
	}
}

func TestIngesterRunDuplicateRowIDs(t *testing.T) {
	store := newFakeStore()
	poster := &fakePoster{}
	in := NewIngester(store, nil, poster, nil, testLogger())

	rows := []Row{
		{ID: 5, Description: "first", Deposit: deposit("10")},
		{ID: 5, Description: "second", Deposit: deposit("20")},
	}
	got, err := in.Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	want := Summary{Seen: 2, Skipped: 1, Attempted: 1, Succeeded: 1}
	if got != want {
		t.Errorf("Run() = %+v, want %+v", got, want)
	}
	if len(poster.submitted) != 1 || poster.submitted[0].Description != "first" {
		t.Errorf("submitted = %+v", poster.submitted)
	}
}

func TestIngesterRunFailedRowRetried(t *testing.T) {
	store := newFakeStore()
	poster := &fakePoster{outcomes: map[string]Outcome{
		"flaky": {Kind: TransportFailure, Err: errors.New("connection refused")},
	}}
	log := &fakeSessionLog{}
	in := NewIngester(store, nil, poster, log, testLogger())

	rows := []Row{{ID: 8, Description: "flaky", Deposit: deposit("10")}}
	if _, err := in.Run(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
	if store.Contains(8) {
		t.Fatal("failed row was recorded")
	}
	if log.lines[0].message != "connection refused" {
		t.Errorf("transport message = %q", log.lines[0].message)
	}

	poster.outcomes = nil
	got, err := in.Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if got.Succeeded != 1 || !store.Contains(8) {
		t.Errorf("row was not retried: %+v", got)
	}
}

func TestIngesterRunResolvesPerson(t *testing.T) {
	dir := Directory{{ID: json.RawMessage(`42`), Name: "Ali", AccountNumber: "6037991234567890"}}
	poster := &fakePoster{}
	in := NewIngester(newFakeStore(), dir, poster, nil, testLogger())

	rows := []Row{
		{ID: 1, Deposit: deposit("1"), CardNumber: "6037991234567890.0"},
		{ID: 2, Deposit: deposit("1"), CardNumber: "1111"},
		{ID: 3, Deposit: deposit("1")},
	}
	if _, err := in.Run(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
	if p := poster.persons[0]; p == nil || string(p.ID) != "42" {
		t.Errorf("row 1 person = %+v, want id 42", p)
	}
	if poster.persons[1] != nil || poster.persons[2] != nil {
		t.Errorf("unresolved rows got a person: %+v %+v", poster.persons[1], poster.persons[2])
	}
	if string(poster.submitted[0].PersonID) != "42" {
		t.Errorf("PersonID = %s", poster.submitted[0].PersonID)
	}
}

func TestIngesterRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poster := &fakePoster{}
	in := NewIngester(newFakeStore(), nil, poster, nil, testLogger())
	got, err := in.Run(ctx, []Row{{ID: 1, Deposit: deposit("1")}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if got != (Summary{}) {
		t.Errorf("Run() = %+v, want zero summary", got)
	}
	if IsFatal(err) {
		t.Error("cancellation reported as fatal")
	}
}

func TestIngesterRunRecordFailure(t *testing.T) {
	store := newFakeStore()
	store.recordErr = errors.New("disk full")
	poster := &fakePoster{}
	log := &fakeSessionLog{}
	in := NewIngester(store, nil, poster, log, testLogger())

	rows := []Row{
		{ID: 1, Description: "a", Deposit: deposit("1")},
		{ID: 2, Description: "b", Deposit: deposit("1")},
	}
	got, err := in.Run(context.Background(), rows)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Run() error = %v, want disk full", err)
	}
	if !IsFatal(err) {
		t.Error("record failure not fatal")
	}
	want := Summary{Seen: 1, Attempted: 1, Succeeded: 1}
	if got != want {
		t.Errorf("Run() = %+v, want %+v", got, want)
	}
	if len(poster.submitted) != 1 {
		t.Errorf("submitted %d transactions after record failure", len(poster.submitted))
	}
	if len(log.lines) != 1 || !strings.Contains(log.lines[0].message, "not recorded") {
		t.Errorf("session log = %+v", log.lines)
	}
}

func TestOutcomeMessage(t *testing.T) {
	tx := Transaction{Name: "Ali", Amount: decimal.RequireFromString("1500.50")}
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{
			name:    "accepted",
			outcome: Outcome{Kind: Accepted},
			want:    "Transaction added for Ali - amount: 1500.5",
		},
		{
			name:    "rejected with developer message",
			outcome: Outcome{Kind: Rejected, Code: 422, Message: "Duplicate", DeveloperMessage: "unique key"},
			want:    "Failed to add transaction for Ali: API Code: 422, Message: Duplicate, Dev Message: unique key",
		},
		{
			name:    "malformed",
			outcome: Outcome{Kind: Malformed, StatusCode: 502, Body: "<html>"},
			want:    "Failed to parse API response for Ali: HTTP 502, Response: <html>",
		},
		{
			name:    "transport",
			outcome: Outcome{Kind: TransportFailure, Err: errors.New("timeout")},
			want:    "timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcomeMessage(tx, tt.outcome); got != tt.want {
				t.Errorf("outcomeMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
