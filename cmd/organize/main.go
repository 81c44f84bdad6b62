package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"organize/internal/backend"
	"organize/internal/cache"
	"organize/internal/cli"
	"organize/internal/core"
	apphttp "organize/internal/http"
	"organize/internal/log"
	"organize/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	queries := cache.NewLRUCache[any](cfg.QueryCacheSize, cfg.QueryCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(queries)
	caches.StartCleanup(cfg.QueryCacheTTL)
	defer caches.Stop()

	opts := []services.Option{
		services.WithQueryCache(queries),
		services.WithLogger(log.FromSlog(logger, log.ComponentLedger)),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	svc := services.NewLedgerService(res.Repository, cfg.UserID, opts...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	watch, err := svc.Watch(ctx)
	if err != nil {
		logger.Error("Failed to watch ledger", "error", err)
		os.Exit(1)
	}
	defer watch.Cancel()

	changes, err := res.Repository.Subscribe(ctx, func(snap core.Snapshot) {
		logger.Debug("Ledger snapshot",
			log.FieldComponent, log.ComponentLedger,
			log.FieldRevision, snap.Revision,
			"transactions", len(snap.Transactions))
	})
	if err != nil {
		logger.Error("Failed to subscribe to ledger", "error", err)
		os.Exit(1)
	}
	defer changes.Cancel()

	ready := func(ctx context.Context) error {
		if p, ok := res.Repository.(pinger); ok {
			return p.Ping(ctx)
		}
		_, err := res.Repository.Snapshot(ctx)
		return err
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             log.FromSlog(logger, log.ComponentHTTP),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              ready,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting organize server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldUserID, cfg.UserID,
			"publisher", res.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)

	m := srv.Metrics()
	logger.Info("Server stopped gracefully",
		"requests", m.Trace.TotalRequests,
		"rate_limited", m.RateLimit.Rejected,
		"blocked", m.Security.BlockedRequests,
		"cache_hits", queries.Stats().Hits)
}
