package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
	"github.com/martinohansen/ledgerbulk/internal/log"
)

const (
	loginPath        = "/api/Auth/login"
	personsPath      = "/api/Persons"
	transactionsPath = "/api/Transactions"
)

// maxResponseBodyBytes caps how much of an HTTP response body we buffer.
const maxResponseBodyBytes = 10 * 1024 * 1024

// ErrUnauthorized is returned when the API answers 401 or 403.
var ErrUnauthorized = errors.New("rejected by ledger api")

// ErrNoToken is returned when a login succeeds without carrying a token.
var ErrNoToken = errors.New("login response has no token")

// StatusError is returned for non-2xx answers to login and directory calls.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("ledger api response %d: %s", e.StatusCode, e.Body)
}

// Is reports 401 and 403 answers as ErrUnauthorized
func (e StatusError) Is(target error) bool {
	if target == ErrUnauthorized {
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	_, ok := target.(StatusError)
	return ok
}

// Envelope wraps every answer of the ledger API. Fields are pointers so
// absent values can be told apart from zero values.
type Envelope struct {
	Success          *bool           `json:"success"`
	Code             *int            `json:"code"`
	Message          *string         `json:"message"`
	DeveloperMessage *string         `json:"developerMessage"`
	Data             json.RawMessage `json:"data"`
}

// DefaultTokenPaths are tried in order to find the bearer token in a login
// answer.
var DefaultTokenPaths = []string{"$.data.token", "$.data.access_token", "$.data.jwt"}

type LoginData struct {
	// Token is the first non-empty string found at one of the token paths
	Token    string   `json:"-"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type Person struct {
	ID            json.RawMessage `json:"id"`
	PersonName    string          `json:"personName"`
	AccountNumber string          `json:"accountNumber"`
}

type Transaction struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Amount          string          `json:"amount"`
	IsCash          bool            `json:"isCash"`
	Date            string          `json:"date"`
	TransactionType int             `json:"transactionType"`
	PersonID        json.RawMessage `json:"personId"`
}

// Response is an undecoded API answer.
type Response struct {
	StatusCode int
	Body       []byte
}

type Client struct {
	// TokenPaths are JSONPath expressions evaluated against the login
	// answer, the first one yielding a non-empty string wins.
	TokenPaths []string

	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		TokenPaths: DefaultTokenPaths,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// SetToken sets the bearer token sent with every later request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login exchanges username and password for a bearer token. The token is
// returned, not installed, see SetToken.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginData, error) {
	res, err := c.do(ctx, http.MethodPost, loginPath, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, StatusError{StatusCode: res.StatusCode, Body: string(res.Body)}
	}

	var env Envelope
	if err := json.Unmarshal(res.Body, &env); err != nil {
		return nil, fmt.Errorf("parsing login response: %w", err)
	}
	var data LoginData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		// Only the optional user details, the token may be anywhere.
		_ = json.Unmarshal(env.Data, &data)
	}

	var doc any
	if err := json.Unmarshal(res.Body, &doc); err != nil {
		return nil, fmt.Errorf("parsing login response: %w", err)
	}
	data.Token = findToken(doc, c.TokenPaths)
	if data.Token == "" {
		if env.Message != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoToken, *env.Message)
		}
		return nil, ErrNoToken
	}
	return &data, nil
}

// findToken returns the first non-empty string at one of paths in doc.
func findToken(doc any, paths []string) string {
	for _, path := range paths {
		v, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		// A path may yield a list of one match.
		if list, ok := v.([]any); ok && len(list) > 0 {
			v = list[0]
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Persons returns the person directory.
func (c *Client) Persons(ctx context.Context) ([]Person, error) {
	res, err := c.do(ctx, http.MethodGet, personsPath, nil)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, StatusError{StatusCode: res.StatusCode, Body: string(res.Body)}
	}

	var env Envelope
	if err := json.Unmarshal(res.Body, &env); err != nil {
		return nil, fmt.Errorf("parsing persons response: %w", err)
	}
	if env.Success != nil && !*env.Success {
		msg := ""
		if env.Message != nil {
			msg = *env.Message
		}
		return nil, fmt.Errorf("listing persons: %s", msg)
	}

	var persons []Person
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &persons); err != nil {
			return nil, fmt.Errorf("parsing persons: %w", err)
		}
	}
	return persons, nil
}

// CreateTransaction posts tx and returns the answer undecoded. An error is
// only returned if no answer was received.
func (c *Client) CreateTransaction(ctx context.Context, tx Transaction) (*Response, error) {
	return c.do(ctx, http.MethodPost, transactionsPath, tx)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	var reader io.Reader
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	traced := payload
	if path == loginPath {
		traced = []byte("[redacted]")
	}
	log.Trace(c.logger, "http request", "method", req.Method, "url", url, "request_id", requestID, "body", traced)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer res.Body.Close()

	resPayload, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	log.Trace(c.logger, "http response", "status", res.StatusCode, "request_id", requestID, "body", resPayload)

	return &Response{StatusCode: res.StatusCode, Body: resPayload}, nil
}
