package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kelseyhightower/envconfig"
	"github.com/martinohansen/ledgerbulk"
	client "github.com/martinohansen/ledgerbulk/writer/ledger/ledger-go"
	"github.com/shopspring/decimal"
)

// bodyExcerptLength is how many characters of an undecodable answer are
// kept for diagnostics.
const bodyExcerptLength = 200

// ErrTokenExpired is returned by Login when the issued token is already
// past its expiry.
var ErrTokenExpired = errors.New("token already expired")

type ledger interface {
	Login(ctx context.Context, username, password string) (*client.LoginData, error)
	SetToken(token string)
	Persons(ctx context.Context) ([]client.Person, error)
	CreateTransaction(ctx context.Context, tx client.Transaction) (*client.Response, error)
}

type Writer struct {
	Config Config
	logger *slog.Logger
	now    func() time.Time
	client ledger
}

func (w Writer) String() string {
	return "ledger"
}

func NewWriter(logger *slog.Logger) (Writer, error) {
	cfg := Config{}
	if err := envconfig.Process("", &cfg); err != nil {
		return Writer{}, fmt.Errorf("processing config: %w", err)
	}
	if cfg.Username == "" {
		return Writer{}, fmt.Errorf("LEDGER_USERNAME is required")
	}
	if cfg.Password == "" {
		return Writer{}, fmt.Errorf("LEDGER_PASSWORD is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("writer", "ledger")
	client := client.NewClient(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout}, logger)
	if len(cfg.TokenPaths) > 0 {
		client.TokenPaths = cfg.TokenPaths
	}

	return Writer{
		Config: cfg,
		logger: logger,
		now:    time.Now,
		client: client,
	}, nil
}

// Login authenticates and installs the bearer token for all later calls. If
// the token is a JWT with an expiry in the past it is refused.
func (w Writer) Login(ctx context.Context) error {
	data, err := w.client.Login(ctx, w.Config.Username, w.Config.Password)
	if err != nil {
		return fmt.Errorf("logging in as %s: %w", w.Config.Username, err)
	}

	token := data.Token
	logger := w.logger.With("username", w.Config.Username)
	if len(data.Roles) > 0 {
		logger = logger.With("roles", data.Roles)
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		logger.Debug("token is not a jwt, using it as is", "error", err)
	} else if claims.ExpiresAt != nil {
		if !claims.ExpiresAt.After(w.now()) {
			return fmt.Errorf("logging in as %s: %w at %s", w.Config.Username, ErrTokenExpired, claims.ExpiresAt.Time)
		}
		logger = logger.With("expires", claims.ExpiresAt.Time)
	}

	w.client.SetToken(token)
	logger.Info("logged in")
	return nil
}

// Directory fetches all persons known to the ledger.
func (w Writer) Directory(ctx context.Context) (ledgerbulk.Directory, error) {
	persons, err := w.client.Persons(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching persons: %w", err)
	}

	dir := make(ledgerbulk.Directory, 0, len(persons))
	for _, p := range persons {
		dir = append(dir, ledgerbulk.Person{
			ID:            p.ID,
			Name:          p.PersonName,
			AccountNumber: p.AccountNumber,
		})
	}
	w.logger.Info("fetched persons", "count", len(dir))
	return dir, nil
}

// Build maps row to a transaction. A positive deposit wins over a positive
// withdrawal. The card holder names the transaction, falling back to the
// description.
func (w Writer) Build(row ledgerbulk.Row, person *ledgerbulk.Person) (ledgerbulk.Transaction, error) {
	var kind ledgerbulk.TransactionType
	var amount decimal.Decimal
	switch {
	case positive(row.Deposit):
		kind, amount = ledgerbulk.Deposit, row.Deposit.Decimal
	case positive(row.Withdrawal):
		kind, amount = ledgerbulk.Withdrawal, row.Withdrawal.Decimal
	case negative(row.Deposit) || negative(row.Withdrawal):
		return ledgerbulk.Transaction{}, ledgerbulk.InvalidRowError{RowID: row.ID, Reason: ledgerbulk.ErrNonPositiveAmount}
	default:
		return ledgerbulk.Transaction{}, ledgerbulk.InvalidRowError{RowID: row.ID, Reason: ledgerbulk.ErrNoTransactionType}
	}

	name := strings.TrimSpace(row.CardHolder)
	if name == "" {
		name = row.Description
	}

	date, fallback := ledgerbulk.NormalizeDate(row.Date, w.now())
	if fallback {
		w.logger.Warn("could not parse date, using current time", "row", row.ID, "value", row.Date)
	}

	tx := ledgerbulk.Transaction{
		Name:        name,
		Description: row.Description,
		Amount:      amount,
		IsCash:      false,
		Date:        date,
		Type:        kind,
	}
	if person != nil {
		tx.PersonID = person.ID
	}
	return tx, nil
}

// Submit posts tx and classifies the answer.
func (w Writer) Submit(ctx context.Context, tx ledgerbulk.Transaction) ledgerbulk.Outcome {
	res, err := w.client.CreateTransaction(ctx, Payload(tx))
	if err != nil {
		return ledgerbulk.Outcome{Kind: ledgerbulk.TransportFailure, Err: err}
	}
	return decodeOutcome(res)
}

// Payload is the wire form of tx as sent to the create-transaction endpoint.
func Payload(tx ledgerbulk.Transaction) client.Transaction {
	return client.Transaction{
		Name:            tx.Name,
		Description:     tx.Description,
		Amount:          tx.Amount.String(),
		IsCash:          tx.IsCash,
		Date:            tx.Date.UTC().Format(ledgerbulk.WireDateFormat),
		TransactionType: int(tx.Type),
		PersonID:        tx.PersonID,
	}
}

// decodeOutcome is the only place the create-transaction answer is
// interpreted. The embedded code defaults to the HTTP status and success
// defaults to false.
func decodeOutcome(res *client.Response) ledgerbulk.Outcome {
	malformed := ledgerbulk.Outcome{
		Kind:       ledgerbulk.Malformed,
		StatusCode: res.StatusCode,
		Body:       excerpt(res.Body, bodyExcerptLength),
	}

	if !bytes.HasPrefix(bytes.TrimSpace(res.Body), []byte("{")) {
		return malformed
	}
	var env client.Envelope
	if err := json.Unmarshal(res.Body, &env); err != nil {
		return malformed
	}

	o := ledgerbulk.Outcome{
		Code:    res.StatusCode,
		Message: "No message",
	}
	if env.Code != nil {
		o.Code = *env.Code
	}
	if env.Message != nil {
		o.Message = *env.Message
	}
	if env.DeveloperMessage != nil {
		o.DeveloperMessage = *env.DeveloperMessage
	}

	success := env.Success != nil && *env.Success
	if success && (o.Code == http.StatusOK || o.Code == http.StatusCreated) {
		o.Kind = ledgerbulk.Accepted
	} else {
		o.Kind = ledgerbulk.Rejected
	}
	return o
}

// excerpt returns at most n characters of b.
func excerpt(b []byte, n int) string {
	s := string(b)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func positive(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsPositive()
}

func negative(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsNegative()
}
