package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/martinohansen/ledgerbulk"
	"github.com/martinohansen/ledgerbulk/internal/output"
	"github.com/martinohansen/ledgerbulk/internal/report"
	"github.com/martinohansen/ledgerbulk/internal/sessionlog"
	"github.com/martinohansen/ledgerbulk/notifier/telegram"
	"github.com/martinohansen/ledgerbulk/reader/csv"
	"github.com/martinohansen/ledgerbulk/reader/generator"
	"github.com/martinohansen/ledgerbulk/reader/xlsx"
	"github.com/martinohansen/ledgerbulk/store"
	"github.com/martinohansen/ledgerbulk/store/file"
	"github.com/martinohansen/ledgerbulk/store/redis"
	"github.com/martinohansen/ledgerbulk/store/sqlite"
	jsonwriter "github.com/martinohansen/ledgerbulk/writer/json"
	"github.com/martinohansen/ledgerbulk/writer/ledger"
	"github.com/spf13/cobra"
)

// notifyTimeout bounds notifications, which are sent even after an
// interrupt.
const notifyTimeout = 10 * time.Second

type reader interface {
	Bulk(ctx context.Context) ([]ledgerbulk.Row, error)
	String() string
}

type notifier interface {
	Notify(ctx context.Context, session string, s ledgerbulk.Summary, runErr error) error
	String() string
}

type importOptions struct {
	// source overrides the reader's configured file
	source string

	// dryRun prints transactions to out instead of posting them. Nothing is
	// recorded and no session log is written.
	dryRun bool
	out    io.Writer

	// report is a path to write the YAML run report to
	report string

	// summary receives the console summary, nothing is printed when nil
	summary io.Writer
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Post every row not yet accepted by the ledger",
		Long: `Read the source table and post every row whose id is not in the
processed store. Accepted rows are recorded so later runs skip them, failed
rows are retried on the next run. The optional file argument overrides
XLSX_FILE or CSV_FILE.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.source = args[0]
			}
			opts.out = cmd.OutOrStdout()
			opts.summary = cmd.OutOrStdout()
			if opts.dryRun {
				opts.summary = cmd.ErrOrStderr()
			}
			return runImport(cmd.Context(), a.cfg, opts, a.logger)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print transactions as JSON instead of posting them")
	cmd.Flags().StringVar(&opts.report, "report", "", "write a YAML report of the run to this file")
	return cmd
}

func newReader(cfg ledgerbulk.Config, source string, logger *slog.Logger) (reader, error) {
	// A file named on the command line is relative to the working directory.
	if source != "" {
		abs, err := filepath.Abs(source)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", source, err)
		}
		source = abs
	}

	switch cfg.Reader {
	case "xlsx":
		r, err := xlsx.NewReader(logger, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("creating xlsx reader: %w", err)
		}
		if source != "" {
			r.Config.File = source
		}
		return r, nil
	case "csv":
		r, err := csv.NewReader(logger, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("creating csv reader: %w", err)
		}
		if source != "" {
			r.Config.File = source
		}
		return r, nil
	case "generator":
		r, err := generator.NewReader(logger)
		if err != nil {
			return nil, fmt.Errorf("creating generator reader: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown reader: %s", cfg.Reader)
	}
}

func openBacking(ctx context.Context, cfg ledgerbulk.Config, logger *slog.Logger) (store.Backing, error) {
	switch cfg.Store {
	case ledgerbulk.StoreFile:
		var c file.Config
		if err := envconfig.Process("", &c); err != nil {
			return nil, fmt.Errorf("processing file store config: %w", err)
		}
		b, err := file.Open(cfg.Path(c.Path), logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case ledgerbulk.StoreSQLite:
		var c sqlite.Config
		if err := envconfig.Process("", &c); err != nil {
			return nil, fmt.Errorf("processing sqlite store config: %w", err)
		}
		b, err := sqlite.Open(ctx, cfg.Path(c.Path))
		if err != nil {
			return nil, err
		}
		return b, nil
	case ledgerbulk.StoreRedis:
		var c redis.Config
		if err := envconfig.Process("", &c); err != nil {
			return nil, fmt.Errorf("processing redis store config: %w", err)
		}
		b, err := redis.New(ctx, c, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store: %s", cfg.Store)
	}
}

func newNotifiers(names []string, logger *slog.Logger) ([]notifier, error) {
	var notifiers []notifier
	for _, name := range names {
		switch name {
		case "telegram":
			n, err := telegram.NewNotifier(logger)
			if err != nil {
				return nil, fmt.Errorf("creating telegram notifier: %w", err)
			}
			notifiers = append(notifiers, n)
		default:
			return nil, fmt.Errorf("unknown notifier: %s", name)
		}
	}
	return notifiers, nil
}

// multiLog records every row in each of its logs.
type multiLog []ledgerbulk.SessionLog

func (m multiLog) Record(rowID int64, state ledgerbulk.State, message string) error {
	var errs []error
	for _, l := range m {
		errs = append(errs, l.Record(rowID, state, message))
	}
	return errors.Join(errs...)
}

func closeLogged(logger *slog.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error("closing "+what, "error", err)
	}
}

// runImport performs a single ingestion run. Per-row failures are part of a
// successful run. Any returned error means the process should exit non-zero.
func runImport(ctx context.Context, cfg ledgerbulk.Config, opts importOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var notifiers []notifier
	if !opts.dryRun {
		var err error
		if notifiers, err = newNotifiers(cfg.Notifiers, logger); err != nil {
			return err
		}
	}
	src, err := newReader(cfg, opts.source, logger)
	if err != nil {
		return err
	}
	writer, err := ledger.NewWriter(logger)
	if err != nil {
		return fmt.Errorf("creating ledger writer: %w", err)
	}

	if err := writer.Login(ctx); err != nil {
		return err
	}

	rows, err := src.Bulk(ctx)
	if err != nil {
		return fmt.Errorf("reading %s source: %w", src, err)
	}
	logger.Info("read source", "reader", src.String(), "rows", len(rows))

	backing, err := openBacking(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store, err)
	}
	if opts.dryRun {
		if backing, err = detach(ctx, backing); err != nil {
			return err
		}
	}
	processed, err := store.Open(ctx, backing, logger)
	if err != nil {
		closeLogged(logger, "store", backing.Close)
		return err
	}
	defer closeLogged(logger, "store", processed.Close)

	var (
		session   *sessionlog.Log
		sessionID = "dry-run"
	)
	if !opts.dryRun {
		if session, err = sessionlog.Open(cfg.Path(cfg.SessionLog), nil); err != nil {
			return err
		}
		defer closeLogged(logger, "session log", session.Close)
		sessionID = session.ID()
	}
	logger = logger.With("session", sessionID)
	event := func(tag, message string) {
		if session == nil {
			return
		}
		if err := session.Event(tag, message); err != nil {
			logger.Error("writing session log", "error", err)
		}
	}

	directory, err := writer.Directory(ctx)
	if err != nil {
		event("FAILED", fmt.Sprintf("Could not fetch persons: %s", err))
		return err
	}
	event("SUCCESS", fmt.Sprintf("Fetched %d persons from API", len(directory)))

	var (
		poster ledgerbulk.Poster = writer
		logs   multiLog
		rep    *report.Report
	)
	if opts.dryRun {
		poster = jsonwriter.NewWriter(writer, opts.out)
	} else {
		logs = append(logs, session)
	}
	if opts.report != "" {
		rep = report.New(sessionID, time.Now(), opts.dryRun)
		logs = append(logs, rep)
	}

	ingester := ledgerbulk.NewIngester(processed, directory, poster, logs, logger)
	summary, runErr := ingester.Run(ctx, rows)

	if session != nil {
		if err := session.Summary(summary); err != nil {
			logger.Error("writing session summary", "error", err)
		}
	}
	logger.Info("run finished",
		"seen", summary.Seen,
		"skipped", summary.Skipped,
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"dry_run", opts.dryRun,
	)
	if rep != nil {
		rep.Finish(summary, runErr, time.Now())
		if err := rep.WriteFile(opts.report); err != nil {
			logger.Error("writing report", "error", err)
		}
	}
	if opts.summary != nil {
		var sessionLogPath string
		if session != nil {
			sessionLogPath = cfg.Path(cfg.SessionLog)
		}
		output.Summary(opts.summary, summary, sessionLogPath, runErr)
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	for _, n := range notifiers {
		if err := n.Notify(notifyCtx, sessionID, summary, runErr); err != nil {
			logger.Error("notifying", "notifier", n.String(), "error", err)
		}
	}

	if runErr != nil && !ledgerbulk.IsFatal(runErr) {
		return fmt.Errorf("run interrupted after %d rows: %w", summary.Seen, runErr)
	}
	return runErr
}

// detach copies the ids of backing into memory and closes it, so a dry run
// sees what was processed without recording anything.
func detach(ctx context.Context, backing store.Backing) (store.Backing, error) {
	ids, err := backing.Load(ctx)
	closeErr := backing.Close()
	if err != nil {
		return nil, fmt.Errorf("loading processed ids: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("closing store: %w", closeErr)
	}
	return store.NewMemory(ids...), nil
}
