package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/grandkuni/gkb/internal/bank"
	"github.com/grandkuni/gkb/internal/catalog"
	"github.com/grandkuni/gkb/internal/config"
	"github.com/grandkuni/gkb/internal/ledger"
	"github.com/grandkuni/gkb/internal/logging"
	"github.com/grandkuni/gkb/internal/notification"
	"github.com/grandkuni/gkb/internal/routes"
	"github.com/grandkuni/gkb/internal/server"
	"github.com/grandkuni/gkb/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	kv, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logger.Error("open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	var cache *redis.Client
	if r, ok := kv.(*store.Redis); ok {
		cache = r.Client()
	}

	catalogs, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("load catalogs", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	engine, err := ledger.Open(ctx, kv, ledger.Options{
		InitialBalance: cfg.InitialBalance,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("restore ledger", "error", err)
		os.Exit(1)
	}
	logger.Info("ledger restored", "balance", engine.Balance().String(), "transactions", len(engine.Transactions()))

	ctrl := bank.New(engine, catalogs, bank.Options{
		Hold:           cfg.HoldConfig(),
		ConfirmHold:    cfg.ConfirmHoldConfig(),
		SwipeWindow:    cfg.SwipeWindow,
		SwipesToCredit: cfg.SwipesToCredit,
		Logger:         logger,
		Notifier:       notification.NewLoggerNotifier(logger),
	})
	defer ctrl.Close()

	srv, err := server.New(routes.Deps{
		Cfg:        cfg,
		Store:      kv,
		Cache:      cache,
		Controller: ctrl,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
