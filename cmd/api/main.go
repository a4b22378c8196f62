package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"libraryapi/internal/book"
	"libraryapi/internal/circulation"
	"libraryapi/internal/config"
	"libraryapi/internal/memstore"
	"libraryapi/internal/platform/logging"
	"libraryapi/internal/platform/postgres"
	"libraryapi/internal/student"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newHandler(ctx, cfg, repos, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories, func(), error) {
	if cfg.UseMemoryStore {
		logger.Warn("using in-memory store, data is lost on restart")
		store := memstore.New()
		return repositories{
			students: store.Students(),
			books:    store.Books(),
			loans:    store.Loans(),
			ping:     store.Ping,
		}, func() {}, nil
	}

	pool, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return repositories{}, nil, err
	}
	logger.Info("database connection OK", zap.String("dsn", postgres.RedactDSN(cfg.DatabaseDSN)))

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return repositories{}, nil, err
		}
		logger.Info("migrations applied")
	}

	return repositories{
		students: student.NewPostgresRepo(pool, cfg.DBTimeout),
		books:    book.NewPostgresRepo(pool, cfg.DBTimeout),
		loans:    circulation.NewPostgresRepo(pool, cfg.DBTimeout),
		ping:     pool.Ping,
	}, pool.Close, nil
}
