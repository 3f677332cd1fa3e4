// main is the entry point of the Students API.
//
// STARTUP SEQUENCE:
//  1. Load configuration (YAML file + environment, optional .env)
//  2. Initialise the logger
//  3. Open the Record Store (sqlite, postgres or memory)
//  4. Open the Image Store (local directory or minio bucket)
//  5. Register HTTP routes and middleware
//  6. Serve in a goroutine until SIGINT/SIGTERM, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/thedynamicdoers/institute-api/internal/config"
	"github.com/thedynamicdoers/institute-api/internal/http/router"
	"github.com/thedynamicdoers/institute-api/internal/images"
	"github.com/thedynamicdoers/institute-api/internal/images/local"
	"github.com/thedynamicdoers/institute-api/internal/images/minio"
	"github.com/thedynamicdoers/institute-api/internal/service"
	"github.com/thedynamicdoers/institute-api/internal/storage"
	"github.com/thedynamicdoers/institute-api/internal/storage/memory"
	"github.com/thedynamicdoers/institute-api/internal/storage/postgres"
	"github.com/thedynamicdoers/institute-api/internal/storage/sqlite"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	// handlers log through the default logger
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	store, closeStore, err := openStorage(cfg.Storage)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore.Close()

	log.Info("storage initialised", slog.String("driver", cfg.Storage.Driver))

	imageStore, err := openImages(context.Background(), cfg.Images)
	if err != nil {
		log.Error("failed to initialise image store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("image store initialised", slog.String("backend", cfg.Images.Backend))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := router.New(router.Deps{
		Storage:        store,
		Students:       service.NewStudents(store, imageStore, service.WithDeleteOnRemove(cfg.Images.DeleteOnRemove)),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         log,
		Registry:       registry,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.Addr))

		// ErrServerClosed is the expected result of Shutdown.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// openStorage returns the Record Store selected by cfg.Driver together with
// whatever must be closed on exit.
func openStorage(cfg config.Storage) (storage.Storage, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverPostgres:
		p, err := postgres.New(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case config.DriverMemory:
		m := memory.New()
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openImages(ctx context.Context, cfg config.Images) (images.Store, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return local.New(cfg.Dir)
	case config.BackendMinio:
		return minio.New(ctx, minio.Options{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown images backend %q", cfg.Backend)
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
}
