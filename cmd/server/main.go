package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dagnyr/canvas-critic/db"
	"github.com/dagnyr/canvas-critic/internal/catalog"
	"github.com/dagnyr/canvas-critic/internal/config"
	"github.com/dagnyr/canvas-critic/internal/events"
	httpserver "github.com/dagnyr/canvas-critic/internal/http"
	"github.com/dagnyr/canvas-critic/internal/logging"
	"github.com/dagnyr/canvas-critic/internal/repository"
	"github.com/dagnyr/canvas-critic/internal/review"
	"github.com/dagnyr/canvas-critic/internal/store"
)

const serviceName = "reviews-api"

type publisher interface {
	review.Publisher
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(serviceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	if cfg.RunMigrations {
		migrations, err := fs.Sub(db.Migrations, "migrations")
		if err != nil {
			logger.Fatal("open embedded migrations", zap.Error(err))
		}
		if err := st.Migrate(ctx, migrations); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
	}

	cat, err := catalog.Load(cfg.CatalogClassesPath, cfg.CatalogCategoriesPath)
	if err != nil {
		logger.Fatal("load catalog", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("classes", cat.Len()))

	var pub publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, serviceName, logger)
		logger.Info("publishing review events",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()

	repo := repository.New(st)
	svc := review.NewService(repo.Reviews, cat, review.Options{
		MaxCommentLength: cfg.MaxCommentLength,
		Publisher:        pub,
		Logger:           logger,
	})
	server := httpserver.New(cfg, st, svc, cat, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
}
