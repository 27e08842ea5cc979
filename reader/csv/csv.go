// Package csv reads transaction rows from a delimited text export.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kelseyhightower/envconfig"
	"github.com/martinohansen/ledgerbulk"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding is the character set of the file.
type Encoding struct {
	name    string
	decoder func() *encoding.Decoder
}

// Decode implements `envconfig.Decoder` for Encoding
func (e *Encoding) Decode(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "utf-8", "utf8":
		*e = Encoding{name: "utf-8", decoder: func() *encoding.Decoder {
			return unicode.UTF8BOM.NewDecoder()
		}}
	case "windows-1256", "cp1256":
		*e = Encoding{name: "windows-1256", decoder: charmap.Windows1256.NewDecoder}
	case "windows-1252", "cp1252":
		*e = Encoding{name: "windows-1252", decoder: charmap.Windows1252.NewDecoder}
	default:
		return fmt.Errorf("unknown encoding %q", value)
	}
	return nil
}

func (e Encoding) String() string {
	if e.name == "" {
		return "utf-8"
	}
	return e.name
}

func (e Encoding) reader(r io.Reader) io.Reader {
	if e.decoder == nil {
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	}
	return transform.NewReader(r, e.decoder())
}

// Delimiter is the single character separating fields.
type Delimiter rune

// Decode implements `envconfig.Decoder` for Delimiter
func (d *Delimiter) Decode(value string) error {
	if value == `\t` || value == "tab" {
		*d = '\t'
		return nil
	}
	r, size := utf8.DecodeRuneInString(value)
	if size == 0 || size != len(value) || r == utf8.RuneError {
		return fmt.Errorf("delimiter must be a single character, got %q", value)
	}
	*d = Delimiter(r)
	return nil
}

type Config struct {
	// File is the export to read
	File string `envconfig:"CSV_FILE"`

	Delimiter Delimiter `envconfig:"CSV_DELIMITER" default:","`

	// Encoding of the file. Valid options are: utf-8, windows-1256 and
	// windows-1252.
	Encoding Encoding `envconfig:"CSV_ENCODING" default:"utf-8"`

	// HeaderRows are skipped before the first data row
	HeaderRows int `envconfig:"CSV_HEADER_ROWS" default:"1"`
}

type Reader struct {
	Config  Config
	dataDir string
	logger  *slog.Logger
}

// NewReader returns a new csv reader
func NewReader(logger *slog.Logger, dataDir string) (Reader, error) {
	cfg := Config{}
	if err := envconfig.Process("", &cfg); err != nil {
		return Reader{}, fmt.Errorf("processing config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Reader{
		Config:  cfg,
		dataDir: dataDir,
		logger:  logger.With("reader", "csv"),
	}, nil
}

// String returns the reader name
func (r Reader) String() string {
	return "csv"
}

func (r Reader) path() string {
	if r.Config.File == "" || filepath.IsAbs(r.Config.File) || r.dataDir == "" {
		return r.Config.File
	}
	return filepath.Join(r.dataDir, r.Config.File)
}

// Bulk reads every data line of the file in order. Blank lines are skipped.
func (r Reader) Bulk(ctx context.Context) ([]ledgerbulk.Row, error) {
	path := r.path()
	if path == "" {
		return nil, fmt.Errorf("CSV_FILE is required")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(r.Config.Encoding.reader(file))
	reader.Comma = ','
	if r.Config.Delimiter != 0 {
		reader.Comma = rune(r.Config.Delimiter)
	}
	reader.FieldsPerRecord = -1

	var rows []ledgerbulk.Row
	for i := 0; ; i++ {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if i < r.Config.HeaderRows || ledgerbulk.IsBlank(cells) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)
		row, err := ledgerbulk.ParseRow(cells)
		if err != nil {
			if !errors.Is(err, ledgerbulk.ErrUnreadableAmount) {
				return nil, fmt.Errorf("%s line %d: %w", path, line, err)
			}
			r.logger.Warn("unreadable amount", "line", line, "row", row.ID, "error", err)
		}
		rows = append(rows, row)
	}

	r.logger.Info("read rows", "path", path, "encoding", r.Config.Encoding, "rows", len(rows))
	return rows, nil
}
