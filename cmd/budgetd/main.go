package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetd/internal/auth"
	"budgetd/internal/cache"
	"budgetd/internal/cli"
	"budgetd/internal/config"
	"budgetd/internal/core"
	apphttp "budgetd/internal/http"
	"budgetd/internal/log"
	"budgetd/internal/remote"
	"budgetd/internal/remote/amqpfeed"
	"budgetd/internal/remote/memstore"
	"budgetd/internal/remote/sheets"
	"budgetd/internal/storage"
	"budgetd/internal/store"
	appsync "budgetd/internal/sync"

	"golang.org/x/sync/errgroup"
)

func main() {
	logger := cli.Setup()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, repo); err != nil {
		logger.Error("Fatal error", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, repo *storage.SQLiteRepository) error {
	initial, err := repo.LoadState(ctx)
	switch {
	case err == nil:
		logger.Info("Loaded saved state", log.FieldOperation, log.OpStartup)
	case errors.Is(err, storage.ErrNotFound):
		initial = core.DefaultState(time.Now())
		logger.Info("Starting with default state", log.FieldOperation, log.OpStartup)
	default:
		return err
	}

	st := store.New(initial)

	// Every committed snapshot lands in SQLite. A failed save is logged and
	// the next commit retries, so a transient disk error never halts edits.
	unsubPersist := st.Subscribe(func(state core.BudgetState, revision int64) {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.SaveState(saveCtx, state); err != nil {
			logger.Error("Failed to persist state",
				log.FieldError, err,
				log.FieldRevision, revision)
		}
	})
	defer unsubPersist()

	reset := func(ctx context.Context) error {
		st.Reset()
		return repo.ClearState(ctx)
	}

	var identity auth.Provider = auth.Anonymous{}
	if cfg.UserID != "" {
		identity = auth.Static{UserID: cfg.UserID}
	}

	if userID, ok := identity.CurrentUser(); ok && cfg.RemoteSyncEnabled() {
		syncer, err := startSync(ctx, cfg, logger, st, userID)
		if err != nil {
			return err
		}
		defer func() {
			if err := syncer.Close(); err != nil {
				logger.Error("Sync shutdown error", log.FieldError, err)
			}
		}()

		// Reset must also clear the remote mirror
		reset = func(ctx context.Context) error {
			if err := syncer.Reset(ctx); err != nil {
				return err
			}
			return repo.ClearState(ctx)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, st, reset, logger, cfg.ViewCacheSize, cfg.ViewCacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	caches := cache.NewManager()
	srv.RegisterCaches(caches)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting budgetd server",
			"port", cfg.Port,
			"remote_sync", cfg.RemoteSyncEnabled(),
			"remote_backend", cfg.RemoteBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// startSync builds the configured remote backend and starts mirroring.
func startSync(ctx context.Context, cfg *config.Config, logger *log.Logger, st *store.Store, userID string) (*appsync.Syncer, error) {
	var (
		docs remote.DocumentStore
		feed remote.ChangeFeed
	)

	switch cfg.RemoteBackend {
	case "memory":
		mem := memstore.New()
		docs, feed = mem, mem
		logger.Info("Using in-memory remote backend", log.FieldUserID, userID)
	default:
		client, err := sheets.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			return nil, err
		}
		docs = client

		if cfg.AMQPURL != "" {
			amqpClient, err := amqpfeed.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
			if err != nil {
				return nil, err
			}
			feed = amqpClient
			logger.Info("Change feed enabled", log.FieldUserID, userID)
		} else {
			logger.Info("No change feed configured, polling for remote changes",
				log.FieldUserID, userID)
		}
	}

	opts := []appsync.Option{
		appsync.WithDebounce(cfg.SyncDebounce),
		appsync.WithPollInterval(cfg.PollInterval),
	}
	if feed != nil {
		opts = append(opts, appsync.WithChangeFeed(feed))
	}

	syncer := appsync.New(st, docs, userID, logger, opts...)
	if err := syncer.Start(ctx); err != nil {
		return nil, err
	}
	return syncer, nil
}
