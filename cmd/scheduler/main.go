package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/pawn-ledger/internal/app"
	"github.com/segyhp/pawn-ledger/internal/config"
	"github.com/segyhp/pawn-ledger/internal/repository/redisstore"
	"github.com/segyhp/pawn-ledger/internal/scheduler"
	"github.com/segyhp/pawn-ledger/pkg/logger"
)

const snapshotTTL = 48 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting pawn scheduler")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ledger, err := app.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ledger.Close()

	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("scheduler is running against an empty in-memory ledger")
	}

	var snapshots scheduler.SnapshotWriter
	if ledger.Redis != nil {
		snapshots = redisstore.NewSnapshotStore(ledger.Redis, snapshotTTL)
	}

	jobs := scheduler.NewJobs(ledger.Ledger, snapshots, logger, scheduler.Config{
		OverdueCron:       cfg.Scheduler.OverdueCron,
		ReminderCron:      cfg.Scheduler.ReminderCron,
		Location:          cfg.GetSchedulerLocation(),
		ReminderDaysAhead: cfg.Scheduler.ReminderDaysAhead,
	})

	// Initialize cron scheduler
	c := jobs.NewCron()
	if err := jobs.Register(c); err != nil {
		logger.Error("failed to schedule jobs", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start the scheduler
	c.Start()
	logger.Info("scheduler started",
		slog.String("overdue_cron", cfg.Scheduler.OverdueCron),
		slog.String("reminder_cron", cfg.Scheduler.ReminderCron),
		slog.String("timezone", cfg.Scheduler.Timezone))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}
