// Command squadd runs the squad subsystem as a standalone daemon backed by
// PostgreSQL.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/ravenhold/squadcore/internal/app"
	"github.com/ravenhold/squadcore/internal/config"
	"github.com/ravenhold/squadcore/internal/storage/postgres"
	"github.com/ravenhold/squadcore/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/squads.yaml", "path to the squads configuration file")
	flag.Parse()

	cfg := config.LoadOrDefault(*configPath)
	log := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		Component: "squadd",
	})

	stores := app.Stores{}
	var db *sql.DB
	if cfg.Storage.Driver == "postgres" {
		dsn := cfg.Storage.DSN
		if env := os.Getenv("SQUADS_POSTGRES_DSN"); env != "" {
			dsn = env
		}
		if dsn == "" {
			log.Error("postgres driver selected but no DSN configured")
			os.Exit(1)
		}

		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			log.WithError(err).Error("open database")
			os.Exit(1)
		}
		if err := postgres.Migrate(db); err != nil {
			log.WithError(err).Error("run migrations")
			os.Exit(1)
		}
		store := postgres.New(db)
		stores = app.Stores{Squads: store, Members: store, Ledger: store, Audit: store}
	} else {
		log.Warn("using in-memory storage; squads will not survive a restart")
	}

	application, err := app.New(cfg, stores, nil, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}
	log.Info("squadd running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := application.Stop(stopCtx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
	if db != nil {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("close database")
		}
	}
}
