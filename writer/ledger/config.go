// Package ledger provides a writer that posts transactions to the ledger
// HTTP API one at a time.
package ledger

import "time"

// Config drives how the writer connects to the ledger API.
type Config struct {
	// BaseURL points to the running ledger API, e.g. http://localhost:5159
	BaseURL string `envconfig:"LEDGER_BASE_URL" default:"http://localhost:5159"`

	// Username and Password are exchanged for a bearer token once per run.
	Username string `envconfig:"LEDGER_USERNAME"`
	Password string `envconfig:"LEDGER_PASSWORD"`

	// TokenPaths are JSONPath expressions locating the bearer token in the
	// login answer. The first one yielding a non-empty string is used.
	TokenPaths []string `envconfig:"LEDGER_TOKEN_PATHS" default:"$.data.token,$.data.access_token,$.data.jwt"`

	// Timeout bounds every call to the API: login, directory fetch and each
	// transaction post.
	Timeout time.Duration `envconfig:"LEDGER_TIMEOUT" default:"20s"`
}
