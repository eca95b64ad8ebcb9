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

	"github.com/bryanwahyu/cyberveli/internal/application"
	"github.com/bryanwahyu/cyberveli/internal/application/analysis"
	appreport "github.com/bryanwahyu/cyberveli/internal/application/report"
	"github.com/bryanwahyu/cyberveli/internal/config"
	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
	reportdomain "github.com/bryanwahyu/cyberveli/internal/domain/report"
	"github.com/bryanwahyu/cyberveli/internal/infra/ai/openai"
	"github.com/bryanwahyu/cyberveli/internal/infra/classifier"
	"github.com/bryanwahyu/cyberveli/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/cyberveli/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/cyberveli/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/cyberveli/internal/infra/db/sqlite"
	"github.com/bryanwahyu/cyberveli/internal/infra/httpserver"
	"github.com/bryanwahyu/cyberveli/internal/infra/pdf"
	"github.com/bryanwahyu/cyberveli/internal/infra/storage"
	"github.com/bryanwahyu/cyberveli/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

// backend groups the persistence pieces picked by storage.driver.
type backend struct {
	repo     domain.Repository
	failures domain.FailureRepository
	health   middleware.HealthChecker
	close    func() error
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return &backend{
			repo:     memory.NewHistoryRepository(),
			failures: memory.NewFailureRepository(),
			health:   middleware.CheckerFunc(func(context.Context) error { return nil }),
			close:    func() error { return nil },
		}, nil

	case "sqlite":
		db, err := sqlitep.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		logger.Info("history backend ready", zap.String("driver", "sqlite"), zap.String("path", cfg.SQLite.Path))
		return &backend{
			repo:     sqlitep.NewHistoryRepository(db),
			failures: sqlitep.NewFailureRepository(db),
			health:   &middleware.DatabaseHealthChecker{DB: db},
			close:    db.Close,
		}, nil

	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("mysql migrate: %w", err)
		}
		logger.Info("history backend ready", zap.String("driver", "mysql"), zap.String("host", cfg.Database.Host))
		return &backend{
			repo:     mysqlp.NewHistoryRepository(db),
			failures: mysqlp.NewFailureRepository(db),
			health:   &middleware.DatabaseHealthChecker{DB: db},
			close:    db.Close,
		}, nil

	case "postgres":
		db, err := pgp.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := pgp.Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		logger.Info("history backend ready", zap.String("driver", "postgres"))
		return &backend{
			repo:     pgp.NewHistoryRepository(db),
			failures: pgp.NewFailureRepository(db),
			health:   &middleware.DatabaseHealthChecker{DB: db.DB},
			close:    db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

type imageStore interface {
	domain.ImageStore
	Check(ctx context.Context) error
}

func openImages(ctx context.Context, cfg *config.Config, logger *zap.Logger) (imageStore, error) {
	if !cfg.Minio.Enabled {
		logger.Info("minio disabled, images kept in memory")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		return nil, fmt.Errorf("minio init: %w", err)
	}
	return store, nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	images, err := openImages(ctx, cfg, logger)
	if err != nil {
		return err
	}

	cls := classifier.NewClient(cfg.Classifier.URL, cfg.ClassifierTimeout())

	var reporter reportdomain.Reporter
	if cfg.LLM.APIKey != "" {
		reporter = openai.NewClient(openai.Options{
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   cfg.LLMTimeout(),
		})
	} else {
		logger.Warn("no LLM api key configured, reports use the built-in template")
	}

	svc := &analysis.Service{
		Repo:       be.repo,
		Failures:   be.failures,
		Images:     images,
		Classifier: cls,
		Composer:   appreport.NewComposer(reporter, logger.Named("report")),
		Renderer:   pdf.NewRenderer(logger.Named("pdf")),
		Clock:      application.SystemClock{},
		Logger:     logger.Named("analysis"),
		MaxBytes:   cfg.MaxUploadBytes(),
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSecond)
	defer limiter.Stop()

	handler := httpserver.NewRouter(svc, httpserver.Options{
		Logger:      logger.Named("http"),
		APIKeys:     cfg.Server.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     limiter,
		HealthCheckers: map[string]middleware.HealthChecker{
			"database":   be.health,
			"storage":    middleware.CheckerFunc(images.Check),
			"classifier": middleware.CheckerFunc(cls.Check),
		},
		ReadinessCheckers: map[string]middleware.HealthChecker{
			"database": be.health,
			"storage":  middleware.CheckerFunc(images.Check),
		},
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// classify + LLM bisa lama
		WriteTimeout: cfg.ClassifierTimeout() + cfg.LLMTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
