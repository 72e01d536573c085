package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/mmynk/tally/internal/config"
	"github.com/mmynk/tally/internal/httpapi"
	"github.com/mmynk/tally/internal/service"
	"github.com/mmynk/tally/internal/storage/sqlite"
	"github.com/mmynk/tally/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	srv := httpapi.New(service.NewLedgerService(store), service.NewGroupService(store))

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
