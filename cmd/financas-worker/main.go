package main

import (
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/cli"
	"financas/internal/config"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/storage"
	"financas/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentWorker)
	logger.Info("Starting financas-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// Snapshots are persisted, so the worker needs the shared database and a
	// broker to listen on.
	if cfg.DataBackend != config.BackendSQLite {
		logger.Error("financas-worker requires DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("financas-worker requires AMQP_URL")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	processor := services.NewSnapshotProcessor(repo, repo)
	snapshotWorker := worker.NewSnapshotWorker(amqpClient, processor, repo, cfg.SnapshotSweepInterval)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	logger.Info("Consuming transaction events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.SnapshotSweepInterval)
	if err := snapshotWorker.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully", "pending_owners", snapshotWorker.Pending())
}
