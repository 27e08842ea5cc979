// Package sessionlog writes the human readable audit trail of ingestion
// runs. Each run appends a header, one line per processed row and a summary
// block to the same file. The file is never read back.
package sessionlog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/martinohansen/ledgerbulk"
)

const timestampFormat = "2006-01-02 15:04:05"

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

type Log struct {
	f   *os.File
	id  uuid.UUID
	now func() time.Time
}

// Open appends a new session to the log at path, creating the file if
// needed. A nil now uses time.Now.
func Open(path string, now func() time.Time) (*Log, error) {
	if now == nil {
		now = time.Now
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}

	l := &Log{f: f, id: uuid.New(), now: now}
	header := fmt.Sprintf("\n=== New Processing Session Started at: %s ===\nSession: %s\n",
		now().Format(timestampFormat), l.id)
	if _, err := f.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing session header: %w", err)
	}
	return l, nil
}

// ID identifies the session in the log and in console output.
func (l *Log) ID() string {
	return l.id.String()
}

// Event writes a run level line such as the outcome of the directory fetch.
func (l *Log) Event(tag, message string) error {
	return l.write(fmt.Sprintf("%s | %s\n", tag, clean(message)))
}

// Record writes the terminal state of a row.
func (l *Log) Record(rowID int64, state ledgerbulk.State, message string) error {
	return l.write(fmt.Sprintf("%d | %s | %s\n", rowID, state, clean(message)))
}

// Summary writes the closing block of the session.
func (l *Log) Summary(s ledgerbulk.Summary) error {
	var b strings.Builder
	b.WriteString("\n=== Session Summary ===\n")
	fmt.Fprintf(&b, "Total rows in source: %d\n", s.Seen)
	fmt.Fprintf(&b, "Previously processed (skipped): %d\n", s.Skipped)
	fmt.Fprintf(&b, "Newly processed: %d\n", s.Attempted)
	fmt.Fprintf(&b, "Successful: %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "Processing completed at: %s\n", l.now().Format(timestampFormat))
	return l.write(b.String())
}

// Close flushes the log to disk and closes it.
func (l *Log) Close() error {
	if err := l.f.Sync(); err != nil {
		l.f.Close()
		return fmt.Errorf("syncing session log: %w", err)
	}
	return l.f.Close()
}

func (l *Log) write(s string) error {
	if _, err := l.f.WriteString(s); err != nil {
		return fmt.Errorf("writing session log: %w", err)
	}
	return nil
}

// clean keeps a message on a single line.
func clean(message string) string {
	return lineBreaks.Replace(message)
}
