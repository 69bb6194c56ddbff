// Package main implements registryd, the asset and contract registry
// daemon. It serves the REST API backed by PostgreSQL, or by the
// in-memory store when no database is configured.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/xrf-labs/asset-registry/internal/app"
	"github.com/xrf-labs/asset-registry/internal/app/httpapi"
	"github.com/xrf-labs/asset-registry/internal/app/metrics"
	"github.com/xrf-labs/asset-registry/internal/app/storage/postgres"
	"github.com/xrf-labs/asset-registry/internal/config"
	"github.com/xrf-labs/asset-registry/internal/platform/migrations"
	"github.com/xrf-labs/asset-registry/pkg/logger"
)

func main() {
	configPath := flag.String("config", filepath.Join("config", "registry.yaml"), "path to the configuration file")
	envFile := flag.String("env", "", "optional .env file loaded before the configuration")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load env file: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "registryd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return err
	}

	log := logger.New(os.Stderr, "registryd", cfg.Log.Level)

	var stores app.Stores
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if err := migrations.Apply(ctx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Infof("applied %d migration statements", migrations.Count())

		store := postgres.New(sqlx.NewDb(db, "postgres"))
		stores = app.Stores{Assets: store, Contracts: store, Certificates: store}
	} else {
		log.Warn("no database DSN configured; using the in-memory store")
	}

	application := app.New(stores, log)

	api, err := httpapi.NewHandlerWithAudit(application, log.With("component", "httpapi"), cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("configure api: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", api)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
