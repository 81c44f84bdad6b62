package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"organize/internal/backend"
	"organize/internal/config"
	"organize/internal/core"
	"organize/internal/log"
	"organize/internal/services"
)

// now is replaced in tests.
var now = time.Now

type rootFlags struct {
	backend string
	dbPath  string
	userID  string
	seed    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "organizectl",
		Short:         "Household ledger reports and maintenance",
		Long:          "Inspect a ledger database: month summaries, card invoices, breakdowns, xlsx export and balance transfers.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.backend, "backend", "sqlite", "Ledger backend (memory or sqlite)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", cfg.SQLiteDBPath, "SQLite database path")
	root.PersistentFlags().StringVarP(&flags.userID, "user", "u", cfg.UserID, "Ledger user id")
	root.PersistentFlags().StringVar(&flags.seed, "seed", cfg.SeedFile, "TOML seed file for a new ledger")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newSummaryCmd(flags),
		newInvoiceCmd(flags),
		newBreakdownCmd(flags),
		newExportCmd(flags),
		newTransferCmd(flags),
		newIntegrityCmd(flags),
	)
	return root
}

// session is an open ledger for the lifetime of one command.
type session struct {
	svc   *services.LedgerService
	close func() error
}

func openLedger(ctx context.Context, cmd *cobra.Command, flags *rootFlags) (*session, error) {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	appCfg := config.Load()
	bc, err := backend.FromAppConfig(&config.Config{
		DataBackend:  flags.backend,
		SQLiteDBPath: flags.dbPath,
		UserID:       flags.userID,
		SeedFile:     flags.seed,
		AMQPURL:      appCfg.AMQPURL,
		AMQPExchange: appCfg.AMQPExchange,
		AMQPQueue:    appCfg.AMQPQueue,
	})
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	opts := []services.Option{
		services.WithClock(now),
		services.WithLogger(log.FromSlog(logger, log.ComponentLedger)),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	return &session{
		svc:   services.NewLedgerService(res.Repository, flags.userID, opts...),
		close: res.Cleanup,
	}, nil
}

// withLedger opens the ledger, runs fn and closes the ledger again.
func withLedger(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, svc *services.LedgerService, out io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openLedger(ctx, cmd, flags)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(ctx, s.svc, cmd.OutOrStdout())
}

// monthFlag parses a --month value; empty selects the current month.
func monthFlag(v string) (core.MonthKey, error) {
	if v == "" {
		return core.MonthKeyOf(core.DateOf(now())), nil
	}
	return core.ParseMonthKey(v)
}
