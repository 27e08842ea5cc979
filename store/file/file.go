// Package file stores processed row ids in a plain text file, one decimal
// id per line. The file is only ever appended to.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Path of the id file, relative paths are resolved against the data
	// directory
	Path string `envconfig:"STORE_FILE" default:"processed_ids.txt"`
}

type File struct {
	path   string
	f      *os.File
	logger *slog.Logger
}

// Open opens the id file at path for appending, creating it if it does not
// exist.
func Open(path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &File{
		path:   path,
		f:      f,
		logger: logger.With("store", "file"),
	}, nil
}

// Load reads every id in the file. Lines that are not a non-negative
// integer are logged and skipped.
func (s *File) Load(ctx context.Context) ([]int64, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	defer f.Close()

	var ids []int64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		id, ok := parseID(text)
		if !ok {
			s.logger.Warn("skipping corrupt line", "path", s.path, "line", line, "value", text)
			continue
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return ids, nil
}

// Append writes id on its own line and syncs the file before returning.
func (s *File) Append(_ context.Context, id int64) error {
	if _, err := s.f.WriteString(strconv.FormatInt(id, 10) + "\n"); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", s.path, err)
	}
	return nil
}

func (s *File) Close() error {
	return s.f.Close()
}

func parseID(s string) (int64, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}
