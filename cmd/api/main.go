package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/budgetai/insights/internal/api"
	"github.com/budgetai/insights/internal/app"
	"github.com/budgetai/insights/internal/config"
	"github.com/budgetai/insights/internal/importer"
	"github.com/budgetai/insights/internal/insights"
	"github.com/budgetai/insights/internal/jobs"
	"github.com/budgetai/insights/internal/jobs/amqp"
	"github.com/budgetai/insights/internal/jobs/inmemory"
	"github.com/budgetai/insights/internal/logger"
	"github.com/budgetai/insights/internal/money"
	"github.com/budgetai/insights/internal/verification"
)

// jobQueue is what the API needs from either queue implementation.
type jobQueue interface {
	jobs.Publisher
	jobs.Consumer
}

func main() {
	cfg := config.Load()

	log := logger.Configure(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	txStore, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open transaction store")
	}
	defer closeStore()

	orc, closeOracle, err := app.NewOracle(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create oracle")
	}
	defer closeOracle()

	engine := insights.NewEngine(txStore, orc, cfg.OracleTimeout, log)
	converter := money.NewConverter(cfg.DisplayRate, cfg.DisplayCurrency)

	// Job status lives in-process even when delivery goes through AMQP.
	jobStore := inmemory.NewStore()
	var queue jobQueue
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, jobStore, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
		}
		queue = client
	} else {
		queue = inmemory.NewQueue(100, cfg.JobWorkers, jobStore)
	}

	var handler jobs.JobHandler
	if cfg.ImportBucket != "" {
		source, err := importer.NewGCSSource(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer source.Close()
		handler = jobs.NewImportHandler(importer.New(txStore, source, log), log)
	} else {
		log.Warn().Msg("No import bucket configured - CSV imports will fail")
		handler = func(ctx context.Context, job *jobs.ImportTransactionsJob) error {
			return errors.New("imports are disabled: IMPORT_BUCKET is not set")
		}
	}

	codeStore := verification.NewStore[verification.Code](time.Now)
	codes := verification.NewCodes(codeStore, verification.LogNotifier{Log: log}, cfg.VerificationTTL, log)

	router := api.NewRouter(api.Deps{
		Store:        txStore,
		Engine:       engine,
		Converter:    converter,
		Publisher:    queue,
		JobStore:     jobStore,
		Codes:        codes,
		JWTSecret:    []byte(cfg.JWTSecret),
		ImportBucket: cfg.ImportBucket,
		Log:          log,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OracleTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Int("workers", cfg.JobWorkers).Msg("Starting job worker")
		return queue.Start(gctx, handler)
	})

	g.Go(func() error {
		codeStore.Run(gctx, cfg.VerificationSweep, func(removed int) {
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("Swept expired verification codes")
			}
		})
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		// Stop the queue and wait for in-flight jobs
		if err := queue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
		if err := queue.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close job queue")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		return
	}
	log.Info().Msg("Server exited")
}
