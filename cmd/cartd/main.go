// Package main runs the cart engine server: a session-scoped cart with
// pricing, discounts and checkout reconciliation against the catalog and
// order backends.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/Storeline/cart_engine/internal/app"
	"github.com/Storeline/cart_engine/internal/app/catalog"
	"github.com/Storeline/cart_engine/internal/app/httpapi"
	"github.com/Storeline/cart_engine/internal/app/orders"
	"github.com/Storeline/cart_engine/internal/app/storage"
	"github.com/Storeline/cart_engine/internal/app/storage/memory"
	"github.com/Storeline/cart_engine/internal/app/storage/postgres"
	"github.com/Storeline/cart_engine/internal/app/storage/redis"
	"github.com/Storeline/cart_engine/internal/config"
	"github.com/Storeline/cart_engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "cartd.yaml", "path to the configuration file")
	flag.Parse()

	if v := os.Getenv("CARTD_CONFIG"); v != "" {
		*configPath = v
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartd: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("cartd", os.Stdout, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("cartd exited")
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	application, err := app.New(ctx, app.Stores{Cart: store}, app.Collaborators{
		Catalog: catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout.Std()),
		Orders:  orders.NewClient(cfg.Orders.BaseURL, cfg.Orders.Timeout.Std()),
	}, app.Options{
		LookupTimeout: cfg.Checkout.LookupTimeout.Std(),
		Namespace:     cfg.Namespace,
	}, log)
	if err != nil {
		return err
	}

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	handler := httpapi.NewHandler(application, httpapi.Options{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, log)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).
			WithField("backend", cfg.Storage.Backend).
			WithField("namespace", cfg.Namespace).
			Info("cartd listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		application.Stop(context.Background())
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop application: %w", err)
	}
	return nil
}

// openStore builds the configured cart store. The memory backend only shares
// state between replicas inside one process; redis and postgres extend the
// change feed across processes.
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (storage.CartStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.NewBus().Adapter(cfg.Namespace), nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return redis.New(client, cfg.Namespace, log), nil

	case "postgres":
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := postgres.New(db, cfg.Storage.Postgres.DSN, cfg.Namespace, log)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
