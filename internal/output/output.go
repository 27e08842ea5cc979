// Package output prints human readable run results to the console. Colors
// are dropped automatically when the output is not a terminal.
package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/martinohansen/ledgerbulk"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
)

// Summary prints the counters of a run. sessionLog names the file holding
// the per-row details, it is omitted when empty.
func Summary(w io.Writer, s ledgerbulk.Summary, sessionLog string, runErr error) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Processing Summary ===")
	fmt.Fprintf(w, "Total rows in source: %d\n", s.Seen)
	fmt.Fprintf(w, "Previously processed (skipped): %d\n", s.Skipped)
	fmt.Fprintf(w, "Newly processed: %d\n", s.Attempted)
	green.Fprintf(w, "Successful: %d\n", s.Succeeded)
	if s.Failed > 0 {
		red.Fprintf(w, "Failed: %d\n", s.Failed)
	} else {
		fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	}

	if runErr != nil {
		yellow.Fprintf(w, "Stopped early: %s\n", runErr)
	}
	if sessionLog != "" {
		fmt.Fprintf(w, "Check '%s' for detailed results.\n", sessionLog)
	}
}
