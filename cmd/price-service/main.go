package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	rediscache "github.com/ahmethakanbesel/price-service/internal/cache/redis"
	"github.com/ahmethakanbesel/price-service/internal/collector"
	"github.com/ahmethakanbesel/price-service/internal/config"
	"github.com/ahmethakanbesel/price-service/internal/platform/postgres"
	"github.com/ahmethakanbesel/price-service/internal/platform/sqlite"
	"github.com/ahmethakanbesel/price-service/internal/price"
	"github.com/ahmethakanbesel/price-service/internal/quote/binance"
	pricerepo "github.com/ahmethakanbesel/price-service/internal/repository/price"
	"github.com/ahmethakanbesel/price-service/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("price service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(os.Stdout, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Root context: cancelled on SIGINT/SIGTERM. It is also the base context of
	// every request, so in-flight queries stop during shutdown.
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := initStore(rootCtx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher := binance.New(
		binance.WithEndpoint(cfg.Quote.Endpoint),
		binance.WithSymbol(cfg.Quote.Symbol),
		binance.WithTimeout(cfg.Quote.Timeout),
		binance.WithLogger(logger),
	)

	collectorOpts := []collector.Option{collector.WithLogger(logger)}
	serviceOpts := []price.Option{price.WithLogger(logger)}

	// The cache is optional; without it the latest sample is read from the store.
	if cfg.Redis.Addr != "" {
		cache, err := rediscache.New(rootCtx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, fetcher.Symbol())
		if err != nil {
			logger.Warn("latest price cache disabled", "error", err)
		} else {
			defer func() { _ = cache.Close() }()
			collectorOpts = append(collectorOpts, collector.WithPublisher(cache))
			serviceOpts = append(serviceOpts, price.WithCache(cache))
			logger.Info("latest price cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	pipeline := collector.New(fetcher, repo, collectorOpts...)
	scheduler := collector.NewScheduler(collector.Config{
		Interval:    cfg.Collector.Interval,
		TickTimeout: cfg.Collector.TickTimeout,
	}, pipeline, logger)

	if err := scheduler.Start(rootCtx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	srv := server.New(rootCtx, cfg.Port, price.NewService(repo, serviceOpts...), !cfg.IsProduction())

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop collecting first, then drain connections with the same deadline.
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler stop", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("price service started",
		"env", cfg.Env,
		"port", cfg.Port,
		"driver", cfg.Database.Driver,
		"symbol", fetcher.Symbol(),
	)

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("price service stopped")
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// initStore opens the configured store and creates its schema. Any failure
// here is fatal: the service never starts without a usable store.
func initStore(ctx context.Context, cfg config.DatabaseConfig) (price.Repository, func(), error) {
	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Init(ctx); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("initialize store: %w", err)
	}
	return repo, closeStore, nil
}

// openStore returns the repository for the configured driver and a func that
// releases its connections.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (price.Repository, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.URL, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return pricerepo.NewPostgresRepository(pool), pool.Close, nil
	default:
		db, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		// :memory: is already pinned to one connection.
		if cfg.MaxConns > 0 && cfg.Path != ":memory:" {
			db.SetMaxOpenConns(cfg.MaxConns)
		}
		return pricerepo.NewSQLiteRepository(db.DB), func() { _ = db.Close() }, nil
	}
}
