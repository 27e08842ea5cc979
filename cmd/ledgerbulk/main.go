package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/kelseyhightower/envconfig"
	"github.com/martinohansen/ledgerbulk"
	"github.com/martinohansen/ledgerbulk/internal/log"
	"github.com/spf13/cobra"
)

// app holds what every command needs once the root command has run.
type app struct {
	cfg    ledgerbulk.Config
	logger *slog.Logger
	stderr io.Writer
}

func setupLogging(w io.Writer, logLevel, logFormat string) (*slog.Logger, error) {
	programLevel, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	// Add source information for debug or lower
	addSource := programLevel <= slog.LevelDebug

	logger, err := log.New(w, programLevel, addSource, logFormat)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:           "ledgerbulk",
		Short:         "Post spreadsheet transactions to the ledger API",
		Version:       versioninfo.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := envconfig.Process("", &a.cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				a.cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				a.cfg.LogFormat = logFormat
			}

			logger, err := setupLogging(a.stderr, a.cfg.LogLevel, a.cfg.LogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			a.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LEDGERBULK_LOG_LEVEL")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "override LEDGERBULK_LOG_FORMAT")

	root.AddCommand(
		newImportCmd(a),
		newNormalizeDateCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		// The default logger is the configured one unless setup itself failed.
		log.Fatal(slog.Default(), "ledgerbulk failed", "error", err)
	}
}
