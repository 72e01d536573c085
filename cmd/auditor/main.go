package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmynk/tally/internal/config"
	"github.com/mmynk/tally/internal/service"
	"github.com/mmynk/tally/internal/storage/sqlite"
	"github.com/mmynk/tally/pkg/logging"
)

// The auditor sweeps every group on a fixed interval, recomputing splits
// for recomputable policies and repairing drift in place when AUDIT_FIX
// is set.
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

	ledger := service.NewLedgerService(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Audit worker starting",
		"interval", cfg.AuditInterval,
		"concurrency", cfg.AuditConcurrency,
		"fix", cfg.AuditFix,
	)

	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	runSweep(ctx, ledger, cfg)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Audit worker stopping")
			return
		case <-ticker.C:
			runSweep(ctx, ledger, cfg)
		}
	}
}

func runSweep(ctx context.Context, ledger *service.LedgerService, cfg *config.Config) {
	start := time.Now()
	reports, err := ledger.AuditAllGroups(ctx, cfg.AuditConcurrency, cfg.AuditFix)
	if err != nil {
		slog.Error("Audit sweep failed", "error", err)
		return
	}

	var issues, fixed int
	for _, r := range reports {
		issues += len(r.Issues)
		fixed += len(r.Fixed)
	}
	slog.Info("Audit sweep completed",
		"groups", len(reports),
		"issues", issues,
		"fixed", fixed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
