package main

import (
	"log"
	"os"

	"github.com/davisjt/quantcloud/internal/api"
	"github.com/davisjt/quantcloud/internal/config"
	"github.com/davisjt/quantcloud/internal/engine"
	"github.com/davisjt/quantcloud/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	logger.Info("quantcloud: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"time_unit", cfg.TimeUnit,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	eng := engine.NewEngine(db, logger, engine.RealClock{}, cfg.TimeUnit)
	srv := api.NewServer(cfg.ListenAddr, db, eng, cfg.APITokens, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	// Let in-flight job runners settle before the store closes.
	eng.Wait()
}
