// testserver starts a quantcloud server on an in-memory store with an
// accelerated simulation clock, so job lifecycles play out in milliseconds
// instead of seconds. Usage: go run ./cmd/testserver
package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/davisjt/quantcloud/internal/api"
	"github.com/davisjt/quantcloud/internal/engine"
	"github.com/davisjt/quantcloud/internal/store"
)

func main() {
	addr := ":8080"
	if v := os.Getenv("QUANTCLOUD_LISTEN_ADDR"); v != "" {
		addr = v
	}

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	eng := engine.NewEngine(db, logger, engine.RealClock{}, 50*time.Millisecond)
	srv := api.NewServer(addr, db, eng, []string{"demo-token-123", "test-token-456"}, logger)

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	eng.Wait()
}
