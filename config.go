package ledgerbulk

//go:generate go run ./cmd/gendocs -file config.go -file store/*/*.go -file writer/ledger/config.go -file reader/*/*.go -file notifier/*/*.go -o CONFIGURATION.md

import (
	"fmt"
	"path/filepath"
	"strings"
)

// StoreKind selects the backing of the processed row store.
type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreSQLite StoreKind = "sqlite"
	StoreRedis  StoreKind = "redis"
)

// Decode implements `envconfig.Decoder` for StoreKind
func (k *StoreKind) Decode(value string) error {
	lowered := StoreKind(strings.ToLower(strings.TrimSpace(value)))
	switch lowered {
	case StoreFile, StoreSQLite, StoreRedis:
		*k = lowered
		return nil
	default:
		return fmt.Errorf("unknown store %q", value)
	}
}

// Config is loaded from the environment during execution with cmd/ledgerbulk
type Config struct {
	// DataDir is the base directory for relative file paths such as the
	// processed store and the session log
	DataDir string `envconfig:"LEDGERBULK_DATADIR" default:"."`

	// LogLevel sets the log level. Valid options are: trace, debug, info,
	// warn, error and fatal.
	LogLevel string `envconfig:"LEDGERBULK_LOG_LEVEL" default:"info"`

	// LogFormat sets the log format. Valid options are: text and json.
	LogFormat string `envconfig:"LEDGERBULK_LOG_FORMAT" default:"text"`

	// Reader is the source table format. Valid options are: xlsx, csv and
	// generator.
	Reader string `envconfig:"LEDGERBULK_READER" default:"xlsx"`

	// Store is where processed row ids are kept between runs. Valid options
	// are: file, sqlite and redis.
	Store StoreKind `envconfig:"LEDGERBULK_STORE" default:"file"`

	// SessionLog is the append-only audit file written on every run
	SessionLog string `envconfig:"LEDGERBULK_SESSION_LOG" default:"processing_log.txt"`

	// Notifiers receive the run summary when the run ends. Valid options
	// are: telegram.
	Notifiers []string `envconfig:"LEDGERBULK_NOTIFIERS"`
}

// Path resolves name against DataDir unless it is already absolute.
func (c Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}
