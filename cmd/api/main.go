package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/assetcraft/gemledger/internal/api"
	"github.com/assetcraft/gemledger/internal/cache"
	"github.com/assetcraft/gemledger/internal/gems"
	"github.com/assetcraft/gemledger/internal/infra/logging"
	"github.com/assetcraft/gemledger/internal/infra/pgutils"
	"github.com/assetcraft/gemledger/internal/repos/profiles"
	profmemory "github.com/assetcraft/gemledger/internal/repos/profiles/memory"
	profpostgres "github.com/assetcraft/gemledger/internal/repos/profiles/postgres"
	"github.com/assetcraft/gemledger/internal/repos/rewards"
	rwdmemory "github.com/assetcraft/gemledger/internal/repos/rewards/memory"
	rwdpostgres "github.com/assetcraft/gemledger/internal/repos/rewards/postgres"
	"github.com/assetcraft/gemledger/internal/session"
	"github.com/assetcraft/gemledger/pkg/envconf"
	"github.com/assetcraft/gemledger/pkg/shutdownqueue"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	queue := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := queue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Stores ---
	// The backend is a static construction-time choice. The memory backend
	// exists for demos and local runs; it is never a silent fallback for a
	// failing Postgres.
	var (
		store    profiles.Store
		receipts rewards.Receipts
	)

	switch cfg.StoreBackend {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("PG_DSN is required for the postgres backend")
		}

		db, derr := pgutils.OpenDB(ctx, cfg.Postgres)
		if derr != nil {
			return fmt.Errorf("open db: %w", derr)
		}

		queue.Add(func(context.Context) error {
			slog.Info("Close database")
			return db.Close()
		})

		store = profpostgres.New(db)
		receipts = rwdpostgres.New(db)

	case "memory":
		slog.Warn("using in-memory store backend; balances will not survive a restart")
		store = profmemory.New()
		receipts = rwdmemory.New()

	default:
		return fmt.Errorf("unknown store backend %q (want postgres or memory)", cfg.StoreBackend)
	}

	// --- Balance cache ---
	var balances *cache.Balances

	if cfg.Redis.Enabled {
		client, cerr := cache.Connect(cfg.Redis)
		if cerr != nil {
			return fmt.Errorf("open redis: %w", cerr)
		}

		queue.Add(func(context.Context) error {
			slog.Info("Close redis")
			return client.Close()
		})

		balances = cache.NewBalances(client, cfg.Redis.CacheTTL)
	}

	// --- Core ---
	sessions := session.NewManager(store, gems.Config{
		InitialBalance:   cfg.Gems.InitialBalance,
		DailyGrantAmount: cfg.Gems.DailyGrantAmount,
		GrantInterval:    cfg.Gems.GrantInterval,
	})

	limiter := api.NewUserLimiter(cfg.RateLimit.EarnPerSecond, cfg.RateLimit.EarnBurst)
	handler := api.NewHandler(sessions, store, receipts, balances, limiter, cfg.Gems)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.NewRouter(handler))

	queue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	<-sessions.Ready()
	slog.Info("gemstone API started", "port", cfg.Port, "backend", cfg.StoreBackend)

	select {
	case <-ctx.Done():
		// graceful path; the deferred queue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
