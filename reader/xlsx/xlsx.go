// Package xlsx reads transaction rows from an Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/martinohansen/ledgerbulk"
	"github.com/xuri/excelize/v2"
)

// maxSerialDate is the Excel serial number of 9999-12-31.
const maxSerialDate = 2958465

type Config struct {
	// File is the workbook to read
	File string `envconfig:"XLSX_FILE"`

	// Sheet holding the rows
	Sheet string `envconfig:"XLSX_SHEET" default:"Final_Data"`

	// HeaderRows are skipped before the first data row
	HeaderRows int `envconfig:"XLSX_HEADER_ROWS" default:"1"`
}

type Reader struct {
	Config  Config
	dataDir string
	logger  *slog.Logger
}

// NewReader returns a new xlsx reader
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
		logger:  logger.With("reader", "xlsx"),
	}, nil
}

// String returns the reader name
func (r Reader) String() string {
	return "xlsx"
}

func (r Reader) path() string {
	if r.Config.File == "" || filepath.IsAbs(r.Config.File) || r.dataDir == "" {
		return r.Config.File
	}
	return filepath.Join(r.dataDir, r.Config.File)
}

// Bulk reads every data row of the sheet in order. Blank lines are skipped.
// Numeric date cells are converted from Excel serial dates, text date cells
// are left for the date normalizer.
func (r Reader) Bulk(ctx context.Context) ([]ledgerbulk.Row, error) {
	path := r.path()
	if path == "" {
		return nil, fmt.Errorf("XLSX_FILE is required")
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	lines, err := f.GetRows(r.Config.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", r.Config.Sheet, err)
	}

	var rows []ledgerbulk.Row
	for i, cells := range lines {
		if i < r.Config.HeaderRows || ledgerbulk.IsBlank(cells) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := i + 1
		row, err := ledgerbulk.ParseRow(cells)
		if err != nil {
			if !errors.Is(err, ledgerbulk.ErrUnreadableAmount) {
				return nil, fmt.Errorf("%s line %d: %w", r.Config.Sheet, line, err)
			}
			r.logger.Warn("unreadable amount", "line", line, "row", row.ID, "error", err)
		}

		if s, ok := row.Date.(string); ok {
			if t, ok := serialDate(s, date1904); ok {
				row.Date = t
			}
		}
		rows = append(rows, row)
	}

	r.logger.Info("read rows", "path", path, "sheet", r.Config.Sheet, "rows", len(rows))
	return rows, nil
}

// serialDate converts a raw numeric cell to a timestamp.
func serialDate(s string, date1904 bool) (time.Time, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > maxSerialDate {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(v, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
