package main

import (
	"fmt"
	"runtime"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:    %s\n", versioninfo.Version)
			fmt.Fprintf(out, "Revision:   %s\n", versioninfo.Revision)
			if !versioninfo.LastCommit.IsZero() {
				fmt.Fprintf(out, "Commit:     %s\n", versioninfo.LastCommit.UTC().Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
			return nil
		},
	}
}
