package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const schemaMigrationsTable = "schema_migrations"

// Migration files are named 0001_name.sql.
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is a single schema change.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Migrate applies pending schema migrations to the repository's dataset.
func (r *BigQueryTransactionRepository) Migrate(ctx context.Context, appliedBy string) (int, error) {
	return RunMigrations(ctx, r.client, r.dataset, appliedBy)
}

// RunMigrations applies the embedded migrations that schema_migrations does not
// list yet, in version order, and returns how many ran.
func RunMigrations(ctx context.Context, client *bigquery.Client, ds Dataset, appliedBy string) (int, error) {
	if err := ensureSchemaMigrationsTable(ctx, client, ds); err != nil {
		return 0, fmt.Errorf("RunMigrations: ensure schema_migrations: %w", err)
	}

	migrations, err := readMigrations(migrationsFS, "migrations", ds)
	if err != nil {
		return 0, fmt.Errorf("RunMigrations: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, client, ds)
	if err != nil {
		return 0, fmt.Errorf("RunMigrations: %w", err)
	}

	count := 0
	for _, m := range pendingMigrations(migrations, applied) {
		if err := runStatement(ctx, client.Query(m.SQL)); err != nil {
			return count, fmt.Errorf("RunMigrations: execute %s: %w", m.Filename, err)
		}
		if err := recordMigration(ctx, client, ds, m, appliedBy); err != nil {
			return count, fmt.Errorf("RunMigrations: record %s: %w", m.Filename, err)
		}
		count++
	}
	return count, nil
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, ds Dataset) error {
	q := client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, ds.table(schemaMigrationsTable)))
	return runStatement(ctx, q)
}

// readMigrations loads migration files from dir in fsys, substituting the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders. Checksums cover the file
// content before substitution.
func readMigrations(fsys fs.FS, dir string, ds Dataset) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", ds.ProjectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", ds.DatasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// pendingMigrations returns the migrations whose version has not been applied.
func pendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}
	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

func getAppliedMigrations(ctx context.Context, client *bigquery.Client, ds Dataset) ([]AppliedMigration, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, ds.table(schemaMigrationsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}

		am := AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
		}
		if row.Checksum.Valid {
			am.Checksum = row.Checksum.StringVal
		}
		if row.AppliedBy.Valid {
			am.AppliedBy = row.AppliedBy.StringVal
		}
		applied = append(applied, am)
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, ds Dataset, m Migration, appliedBy string) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, ds.table(schemaMigrationsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runStatement(ctx, q)
}

func runStatement(ctx context.Context, q *bigquery.Query) error {
	_, err := runDML(ctx, q)
	return err
}
