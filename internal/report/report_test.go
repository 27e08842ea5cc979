package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/martinohansen/ledgerbulk"
	"gopkg.in/yaml.v3"
)

func TestWriteFile(t *testing.T) {
	started := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	r := New("abc", started, false)
	r.Record(1, ledgerbulk.Accepted, "Transaction added for Ali - amount: 500000")
	r.Record(2, ledgerbulk.Rejected, "Failed to add transaction for Sara: API Code: 400, Message: Invalid person")
	r.Finish(ledgerbulk.Summary{Seen: 3, Skipped: 1, Attempted: 2, Succeeded: 1, Failed: 1}, nil, started.Add(time.Minute))

	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := r.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Session  string    `yaml:"session"`
		Finished time.Time `yaml:"finished"`
		Summary  struct {
			Seen      int `yaml:"seen"`
			Succeeded int `yaml:"succeeded"`
			Failed    int `yaml:"failed"`
		} `yaml:"summary"`
		Rows []Row `yaml:"rows"`
	}
	if err := yaml.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Session != "abc" || !got.Finished.Equal(started.Add(time.Minute)) {
		t.Errorf("unexpected header %+v", got)
	}
	if got.Summary.Seen != 3 || got.Summary.Succeeded != 1 || got.Summary.Failed != 1 {
		t.Errorf("unexpected summary %+v", got.Summary)
	}
	if len(got.Rows) != 2 || got.Rows[1].State != "REJECTED" || got.Rows[0].ID != 1 {
		t.Errorf("unexpected rows %+v", got.Rows)
	}
	if strings.Contains(string(b), "error:") || strings.Contains(string(b), "dry_run:") {
		t.Errorf("empty fields not omitted:\n%s", b)
	}
}

func TestFinishWithError(t *testing.T) {
	r := New("abc", time.Now(), true)
	r.Finish(ledgerbulk.Summary{}, context.Canceled, time.Now())
	if r.Error != "context canceled" || !r.DryRun {
		t.Errorf("unexpected report %+v", r)
	}

	b, err := yaml.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "rows: []") {
		t.Errorf("empty rows not written as a list:\n%s", b)
	}
}
