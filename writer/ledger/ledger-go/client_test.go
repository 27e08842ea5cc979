package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturingTransport struct {
	requests []*http.Request
	bodies   [][]byte
	status   int
	response string
}

func (c *capturingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}
	c.requests = append(c.requests, req)
	c.bodies = append(c.bodies, bodyBytes)

	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(c.response)),
		Header:     make(http.Header),
	}, nil
}

func TestCreateTransaction(t *testing.T) {
	transport := &capturingTransport{response: `{"success":true,"code":200}`}
	client := NewClient("https://ledger.example.com/", &http.Client{Transport: transport}, nil)
	client.SetToken("tok")

	tx := Transaction{
		Name:            "Ali",
		Description:     "salary",
		Amount:          "500000",
		Date:            "2024-01-05T00:00:00Z",
		TransactionType: 1,
	}
	res, err := client.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != `{"success":true,"code":200}` {
		t.Fatalf("unexpected response %d %s", res.StatusCode, res.Body)
	}

	if len(transport.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(transport.requests))
	}
	req := transport.requests[0]
	if req.Method != http.MethodPost {
		t.Fatalf("expected POST got %s", req.Method)
	}
	if req.URL.String() != "https://ledger.example.com/api/Transactions" {
		t.Fatalf("unexpected url %s", req.URL)
	}
	if req.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("expected bearer token header, got %q", req.Header.Get("Authorization"))
	}
	if req.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}

	var body map[string]any
	if err := json.Unmarshal(transport.bodies[0], &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["personId"] != nil {
		t.Fatalf("expected null personId, got %v", body["personId"])
	}
	if _, ok := body["personId"]; !ok {
		t.Fatalf("personId missing from body")
	}
	if body["isCash"] != false {
		t.Fatalf("expected isCash false, got %v", body["isCash"])
	}
	if body["amount"] != "500000" {
		t.Fatalf("expected amount as text, got %v", body["amount"])
	}
	if body["transactionType"] != float64(1) {
		t.Fatalf("unexpected transactionType %v", body["transactionType"])
	}
}

func TestCreateTransactionPersonID(t *testing.T) {
	transport := &capturingTransport{response: `{}`}
	client := NewClient("https://ledger.example.com", &http.Client{Transport: transport}, nil)

	_, err := client.CreateTransaction(context.Background(), Transaction{PersonID: json.RawMessage(`17`)})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(transport.bodies[0], []byte(`"personId":17`)) {
		t.Fatalf("person id not echoed verbatim: %s", transport.bodies[0])
	}
}

func TestCreateTransactionTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, nil, nil)
	if _, err := client.CreateTransaction(context.Background(), Transaction{}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantErr   error
	}{
		{
			name:      "token",
			body:      `{"success":true,"code":200,"data":{"token":"a.b.c","username":"admin","roles":["Admin"]}}`,
			wantToken: "a.b.c",
		},
		{
			name:      "access_token",
			body:      `{"data":{"access_token":"x"}}`,
			wantToken: "x",
		},
		{
			name:      "jwt",
			body:      `{"data":{"jwt":"y"}}`,
			wantToken: "y",
		},
		{
			name:    "no token",
			body:    `{"success":false,"message":"Invalid username or password","data":null}`,
			wantErr: ErrNoToken,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"success":false}`,
			wantErr: ErrUnauthorized,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: StatusError{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/Auth/login" || r.Method != http.MethodPost {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
					t.Errorf("decoding login body: %v", err)
				}
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, srv.Client(), nil)
			data, err := client.Login(context.Background(), "admin", "secret")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if data.Token != tt.wantToken {
				t.Errorf("token = %q, want %q", data.Token, tt.wantToken)
			}
			if gotBody["username"] != "admin" || gotBody["password"] != "secret" {
				t.Errorf("unexpected login body %v", gotBody)
			}
		})
	}
}

func TestLoginTokenPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"auth":{"bearer":"z"},"username":"admin","roles":["Admin"]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	if _, err := client.Login(context.Background(), "admin", "secret"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Login() with default paths error = %v, want ErrNoToken", err)
	}

	client.TokenPaths = []string{"$.data.missing", "$.data.auth.bearer"}
	data, err := client.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if data.Token != "z" || data.Username != "admin" || len(data.Roles) != 1 {
		t.Errorf("unexpected login data %+v", data)
	}
}

func TestFindToken(t *testing.T) {
	doc := map[string]any{
		"data": map[string]any{
			"token": "",
			"jwt":   "j",
			"code":  float64(1),
		},
	}
	tests := []struct {
		paths []string
		want  string
	}{
		{paths: DefaultTokenPaths, want: "j"},
		{paths: []string{"$.data.code"}, want: ""},
		{paths: []string{"not a path"}, want: ""},
		{paths: nil, want: ""},
	}
	for _, tt := range tests {
		if got := findToken(doc, tt.paths); got != tt.want {
			t.Errorf("findToken(%v) = %q, want %q", tt.paths, got, tt.want)
		}
	}
}

func TestPersons(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    int
		wantErr bool
	}{
		{
			name: "persons",
			body: `{"success":true,"code":200,"data":[{"id":1,"personName":"Ali","accountNumber":"6037"},{"id":2,"personName":"Sara","accountNumber":""}]}`,
			want: 2,
		},
		{
			name: "null data",
			body: `{"success":true,"data":null}`,
			want: 0,
		},
		{
			name:    "not success",
			body:    `{"success":false,"message":"Forbidden"}`,
			wantErr: true,
		},
		{
			name:    "status",
			status:  http.StatusBadGateway,
			body:    `bad gateway`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `<html>`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("missing bearer token")
				}
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, srv.Client(), nil)
			client.SetToken("tok")
			persons, err := client.Persons(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Persons() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(persons) != tt.want {
				t.Errorf("got %d persons, want %d", len(persons), tt.want)
			}
		})
	}
}

func TestStatusErrorIs(t *testing.T) {
	if !errors.Is(StatusError{StatusCode: http.StatusForbidden}, ErrUnauthorized) {
		t.Error("403 is not ErrUnauthorized")
	}
	if errors.Is(StatusError{StatusCode: http.StatusInternalServerError}, ErrUnauthorized) {
		t.Error("500 is ErrUnauthorized")
	}
}
