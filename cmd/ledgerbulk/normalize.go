package main

import (
	"fmt"
	"time"

	"github.com/martinohansen/ledgerbulk"
	"github.com/spf13/cobra"
)

func newNormalizeDateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-date <value>...",
		Short: "Print the instant each date value normalizes to",
		Long: `Print the instant each date value normalizes to. Values may be Jalali
(1402/10/15) or Gregorian (2024-01-05) dates. A value that cannot be read
falls back to the current time and is marked as such.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			out := cmd.OutOrStdout()
			for _, arg := range args {
				t, fallback := ledgerbulk.NormalizeDate(arg, now)
				line := fmt.Sprintf("%s\t%s", arg, t.UTC().Format(time.RFC3339))
				if fallback {
					line += "\tfallback"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
