package main

import (
	"net/http"
	"time"

	"github.com/ozlphrt/vibeants/internal/colony"
)

func main() {
	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	srv := NewServer(logger)
	defer srv.Close()

	srv.SetSnapshotDir(cfg.SnapshotDir)
	srv.SetSnapshotEveryTicks(cfg.SnapshotEveryTicks)
	srv.tickInterval = time.Duration(cfg.TickIntervalMS) * time.Millisecond

	// Optionally create a world at startup from a config file.
	if cfg.ConfigFile != "" {
		worldCfg, err := loadWorldConfigFromFile(cfg.ConfigFile)
		if err != nil {
			logger.Fatalf("Failed to load world config from %s: %v", cfg.ConfigFile, err)
		}
		world, err := srv.manager.CreateWorld(colony.WorldID(cfg.DefaultWorldID), worldCfg)
		if err != nil {
			logger.Fatalf("Failed to create default world: %v", err)
		}
		srv.configureWorld(world)
		logger.Infof("Default world created: world_id=%s", cfg.DefaultWorldID)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/worlds", srv.handleListWorlds)
	mux.HandleFunc("/world/", srv.routeWorld)
	mux.HandleFunc("/ws", srv.handleWebSocket)
	mux.HandleFunc("/notifiers/webhook", srv.handleRegisterWebhook)

	logger.Infof("vibeants server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
