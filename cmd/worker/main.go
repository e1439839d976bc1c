package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/budgetai/insights/internal/app"
	"github.com/budgetai/insights/internal/config"
	"github.com/budgetai/insights/internal/importer"
	"github.com/budgetai/insights/internal/jobs"
	"github.com/budgetai/insights/internal/jobs/amqp"
	"github.com/budgetai/insights/internal/jobs/inmemory"
	"github.com/budgetai/insights/internal/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Configure(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required to run the worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	txStore, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open transaction store")
	}
	defer closeStore()

	source, err := importer.NewGCSSource(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer source.Close()

	// Status updates recorded here are local to the worker process.
	jobStore := inmemory.NewStore()
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, jobStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
	}

	handler := jobs.NewImportHandler(importer.New(txStore, source, log), log)

	log.Info().Str("queue", cfg.AMQPQueue).Msg("Starting worker service")

	if err := client.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop consuming and wait for the in-flight job
	if err := client.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := client.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close AMQP connection")
	}

	log.Info().Msg("Worker service exited")
}
