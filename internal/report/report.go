// Package report collects the outcome of every row of a run and writes it as
// a YAML document for tooling that should not parse the session log.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/martinohansen/ledgerbulk"
	"gopkg.in/yaml.v3"
)

type Row struct {
	ID      int64  `yaml:"id"`
	State   string `yaml:"state"`
	Message string `yaml:"message"`
}

type Report struct {
	Session  string             `yaml:"session"`
	DryRun   bool               `yaml:"dry_run,omitempty"`
	Started  time.Time          `yaml:"started"`
	Finished time.Time          `yaml:"finished"`
	Summary  ledgerbulk.Summary `yaml:"summary"`
	Error    string             `yaml:"error,omitempty"`
	Rows     []Row              `yaml:"rows"`
}

func New(session string, started time.Time, dryRun bool) *Report {
	return &Report{
		Session: session,
		DryRun:  dryRun,
		Started: started.UTC(),
		Rows:    []Row{},
	}
}

// Record adds the terminal state of a row.
func (r *Report) Record(rowID int64, state ledgerbulk.State, message string) error {
	r.Rows = append(r.Rows, Row{ID: rowID, State: state.String(), Message: message})
	return nil
}

// Finish sets the run counters and the error that ended the run, if any.
func (r *Report) Finish(s ledgerbulk.Summary, runErr error, finished time.Time) {
	r.Summary = s
	r.Finished = finished.UTC()
	if runErr != nil {
		r.Error = runErr.Error()
	}
}

// WriteFile writes the report to path, replacing any previous content.
func (r *Report) WriteFile(path string) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
