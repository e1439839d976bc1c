// Package postgres stores transactions in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/budgetai/insights/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("Connect: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}
	return pool, nil
}

// RunMigrations applies pending schema migrations through the pool.
func RunMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("RunMigrations: create pgx driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("RunMigrations: create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("RunMigrations: create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("RunMigrations: up: %w", err)
	}
	return nil
}

// TransactionRepository implements store.TransactionStore on PostgreSQL.
type TransactionRepository struct {
	db *pgxpool.Pool
}

// NewTransactionRepository wraps an open pool. The caller owns the pool.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const selectColumns = `SELECT id, user_id, amount, description, category, type, date, created_at FROM transactions`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		tx               domain.Transaction
		category, txType string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Description, &category, &txType, &tx.Date, &tx.CreatedAt)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.Category = domain.Category(category)
	tx.Type = domain.TransactionType(txType)
	tx.Date = tx.Date.UTC()
	return tx, nil
}

// List implements store.TransactionStore.
func (r *TransactionRepository) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, selectColumns+` WHERE user_id = $1 ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("TransactionRepository.List: query: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("TransactionRepository.List: scan: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TransactionRepository.List: rows: %w", err)
	}
	return txs, nil
}

// Get implements store.TransactionStore.
func (r *TransactionRepository) Get(ctx context.Context, userID, id string) (domain.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRow(ctx, selectColumns+` WHERE user_id = $1 AND id = $2`, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("TransactionRepository.Get: %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("TransactionRepository.Get: scan: %w", err)
	}
	return tx, nil
}

// Create implements store.TransactionStore.
func (r *TransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO transactions (id, user_id, amount, description, category, type, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.UserID, tx.Amount, tx.Description, string(tx.Category), string(tx.Type), tx.Date, tx.CreatedAt)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("TransactionRepository.Create: insert: %w", err)
	}
	return tx, nil
}

// Update implements store.TransactionStore.
func (r *TransactionRepository) Update(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	updated, err := scanTransaction(r.db.QueryRow(ctx, `
		UPDATE transactions
		SET amount = $3, description = $4, category = $5, type = $6, date = $7
		WHERE user_id = $1 AND id = $2
		RETURNING id, user_id, amount, description, category, type, date, created_at`,
		tx.UserID, tx.ID, tx.Amount, tx.Description, string(tx.Category), string(tx.Type), tx.Date))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("TransactionRepository.Update: %s: %w", tx.ID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("TransactionRepository.Update: %w", err)
	}
	return updated, nil
}

// Delete implements store.TransactionStore.
func (r *TransactionRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("TransactionRepository.Delete: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("TransactionRepository.Delete: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
