// Package app builds the collaborators shared by the binaries from a Config.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/config"
	infraBQ "github.com/budgetai/insights/internal/infra/bigquery"
	"github.com/budgetai/insights/internal/infra/postgres"
	"github.com/budgetai/insights/internal/infra/sqlite"
	"github.com/budgetai/insights/internal/oracle"
	"github.com/budgetai/insights/internal/store"
)

const (
	// oracleCacheBytes bounds the response cache placed in front of the oracle.
	oracleCacheBytes = 8 << 20
	// migrationActor is recorded as applied_by for BigQuery schema migrations.
	migrationActor = "budgetai"
)

// OpenStore opens the transaction store selected by cfg.StoreBackend. The
// returned close func is never nil.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.TransactionStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory transaction store, data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil

	case config.BackendSQLite:
		repo, err := sqlite.NewTransactionRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		log.Info().Str("path", cfg.SQLiteDBPath).Msg("Using SQLite transaction store")
		return repo, func() { _ = repo.Close() }, nil

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		if err := postgres.RunMigrations(pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		log.Info().Msg("Using PostgreSQL transaction store")
		return postgres.NewTransactionRepository(pool), pool.Close, nil

	case config.BackendBigQuery:
		repo, err := infraBQ.NewBigQueryTransactionRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		applied, err := repo.Migrate(ctx, migrationActor)
		if err != nil {
			_ = repo.Close()
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		log.Info().
			Int("migrations_applied", applied).
			Str("project", cfg.BigQueryProject).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Using BigQuery transaction store")
		return repo, func() { _ = repo.Close() }, nil
	}

	return nil, nil, fmt.Errorf("OpenStore: unknown store backend %q", cfg.StoreBackend)
}

// NewOracle builds the oracle selected by cfg.OracleProvider, cached when
// cfg.OracleCacheTTL is positive. Provider "none" yields a nil oracle, which
// sends every analysis down the fallback path.
func NewOracle(ctx context.Context, cfg *config.Config, log zerolog.Logger) (oracle.Oracle, func(), error) {
	var o oracle.Oracle
	switch cfg.OracleProvider {
	case config.ProviderNone:
		log.Warn().Msg("No oracle configured, insights use fallback recommendations")
		return nil, func() {}, nil
	case config.ProviderGemini:
		g, err := oracle.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("NewOracle: %w", err)
		}
		o = g
	case config.ProviderGroq:
		o = oracle.NewGroq(&http.Client{}, cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel)
	default:
		return nil, nil, fmt.Errorf("NewOracle: unknown provider %q", cfg.OracleProvider)
	}

	log.Info().Str("provider", cfg.OracleProvider).Msg("Oracle configured")

	if cfg.OracleCacheTTL <= 0 {
		return o, func() {}, nil
	}
	cached, err := oracle.NewCached(o, cfg.OracleCacheTTL, oracleCacheBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("NewOracle: %w", err)
	}
	return cached, cached.Close, nil
}
