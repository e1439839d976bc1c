package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/api/middleware"
	"github.com/budgetai/insights/internal/app"
	"github.com/budgetai/insights/internal/config"
	"github.com/budgetai/insights/internal/domain"
	"github.com/budgetai/insights/internal/importer"
	infraBQ "github.com/budgetai/insights/internal/infra/bigquery"
	"github.com/budgetai/insights/internal/infra/postgres"
	"github.com/budgetai/insights/internal/infra/sqlite"
	"github.com/budgetai/insights/internal/insights"
	"github.com/budgetai/insights/internal/logger"
	"github.com/budgetai/insights/internal/money"
)

func main() {
	cfg := config.Load()
	log := logger.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(cfg, log)
	case "chat":
		runChat(cfg, log)
	case "import":
		runImport(cfg, log)
	case "upload":
		runUpload(log)
	case "migrate":
		runMigrate(cfg, log)
	case "token":
		runToken(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Budget Insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze   Analyze a JSON transaction file and print the report")
	fmt.Println("  chat      Ask a question about a JSON transaction file")
	fmt.Println("  import    Import a CSV file from disk or GCS into the store")
	fmt.Println("  upload    Upload a CSV file to GCS")
	fmt.Println("  migrate   Apply schema migrations for the configured store")
	fmt.Println("  token     Issue a bearer token for a user")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runAnalyze(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a JSON file of transactions")
	offline := fs.Bool("offline", false, "Skip the oracle and use fallback recommendations")
	dashboard := fs.Bool("dashboard", false, "Print dashboard totals instead of insights")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli analyze -file PATH [-offline] [-dashboard]")
	}

	txs, err := readTransactionsFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions")
	}

	if *dashboard {
		conv := money.NewConverter(cfg.DisplayRate, cfg.DisplayCurrency)
		printJSON(log, insights.BuildDashboard(txs, conv))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	engine, closeFn := newEngine(ctx, cfg, *offline, log)
	defer closeFn()

	printJSON(log, engine.AnalyzeTransactions(ctx, txs))
}

func runChat(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a JSON file of transactions")
	message := fs.String("message", "", "Question to ask")
	fs.Parse(os.Args[2:])

	if *filePath == "" || *message == "" {
		log.Fatal().Msg("Usage: cli chat -file PATH -message TEXT")
	}

	txs, err := readTransactionsFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	engine, closeFn := newEngine(ctx, cfg, false, log)
	defer closeFn()

	fmt.Println(engine.Chat(ctx, txs, *message))
}

func newEngine(ctx context.Context, cfg *config.Config, offline bool, log zerolog.Logger) (*insights.Engine, func()) {
	if offline {
		return insights.NewEngine(nil, nil, cfg.OracleTimeout, log), func() {}
	}
	orc, closeFn, err := app.NewOracle(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create oracle")
	}
	return insights.NewEngine(nil, orc, cfg.OracleTimeout, log), closeFn
}

func runImport(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	userID := fs.String("user", "", "User ID that will own the transactions")
	filePath := fs.String("file", "", "Path to a local CSV file")
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the CSV file")
	fs.Parse(os.Args[2:])

	if *userID == "" || (*filePath == "") == (*gcsURI == "") {
		log.Fatal().Msg("Usage: cli import -user ID (-file PATH | -gcs-uri URI)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	txStore, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open transaction store")
	}
	defer closeStore()

	var res importer.Result
	if *gcsURI != "" {
		source, err := importer.NewGCSSource(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer source.Close()

		log.Info().Str("gcs_uri", *gcsURI).Msg("Starting import")
		res, err = importer.New(txStore, source, log).ImportURI(ctx, *userID, *gcsURI)
		if err != nil {
			log.Fatal().Err(err).Msg("Import failed")
		}
	} else {
		f, err := os.Open(*filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open file")
		}
		defer f.Close()

		log.Info().Str("file", *filePath).Msg("Starting import")
		res, err = importer.New(txStore, nil, log).Import(ctx, *userID, f)
		if err != nil {
			log.Fatal().Err(err).Msg("Import failed")
		}
	}

	fmt.Printf("Imported %d transaction(s), skipped %d.\n", res.Imported, res.Skipped)
	for _, rowErr := range res.Errors {
		fmt.Printf("  line %d: %s\n", rowErr.Line, rowErr.Reason)
	}
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local CSV file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	source, err := importer.NewGCSSource(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer source.Close()

	uri, err := source.Upload(ctx, *bucketName, *objectName, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func runMigrate(cfg *config.Config, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0o755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create database directory")
		}
		if err := sqlite.RunMigrations(cfg.SQLiteDBPath); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()
		if err := postgres.RunMigrations(pool); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
	case config.BackendBigQuery:
		repo, err := infraBQ.NewBigQueryTransactionRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer repo.Close()
		applied, err := repo.Migrate(ctx, "migrate-cli")
		if err != nil {
			log.Fatal().Err(err).Int("applied", applied).Msg("Migration failed")
		}
		log.Info().Int("applied", applied).Msg("BigQuery migrations finished")
	default:
		log.Fatal().Str("backend", cfg.StoreBackend).Msg("Migrations are only available for sqlite, postgres and bigquery")
	}

	fmt.Printf("Migrations applied for %s store.\n", cfg.StoreBackend)
}

func runToken(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to put in the token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Usage: cli token -user ID [-ttl 24h]")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	token, err := middleware.NewToken([]byte(cfg.JWTSecret), *userID, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}

// readTransactionsFile loads either a bare JSON array of transactions or an
// object with a "transactions" array.
func readTransactionsFile(path string) ([]domain.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("readTransactionsFile: %w", err)
	}
	return decodeTransactions(bytes.NewReader(data))
}

func decodeTransactions(r io.Reader) ([]domain.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decodeTransactions: read: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("decodeTransactions: empty input")
	}

	if data[0] == '[' {
		var txs []domain.Transaction
		if err := json.Unmarshal(data, &txs); err != nil {
			return nil, fmt.Errorf("decodeTransactions: %w", err)
		}
		return txs, nil
	}

	var wrapped struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decodeTransactions: %w", err)
	}
	return wrapped.Transactions, nil
}

func printJSON(log zerolog.Logger, v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
}
