// Package sqlite stores transactions in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/budgetai/insights/internal/domain"
)

const (
	driverName = "sqlite"
	dateFormat = "2006-01-02"
)

// TransactionRepository implements store.TransactionStore on SQLite.
type TransactionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTransactionRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewTransactionRepository(dbPath string) (*TransactionRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("NewTransactionRepository: create db directory: %w", err)
	}

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionRepository: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewTransactionRepository: ping: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewTransactionRepository: %w", err)
	}

	return &TransactionRepository{db: db, now: time.Now}, nil
}

// Close closes the database.
func (r *TransactionRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const selectColumns = `SELECT id, user_id, amount, description, category, type, date, created_at FROM transactions`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (domain.Transaction, error) {
	var (
		tx                domain.Transaction
		category, txType  string
		date, createdAtTS string
	)
	if err := s.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Description, &category, &txType, &date, &createdAtTS); err != nil {
		return domain.Transaction{}, err
	}
	tx.Category = domain.Category(category)
	tx.Type = domain.TransactionType(txType)

	d, err := time.Parse(dateFormat, date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	tx.Date = d

	created, err := time.Parse(time.RFC3339Nano, createdAtTS)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse created_at %q: %w", createdAtTS, err)
	}
	tx.CreatedAt = created
	return tx, nil
}

// List implements store.TransactionStore.
func (r *TransactionRepository) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE user_id = ? ORDER BY date DESC, created_at DESC`, userID)
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
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE user_id = ? AND id = ?`, userID, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
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
		tx.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, description, category, type, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount, tx.Description, string(tx.Category), string(tx.Type),
		tx.Date.Format(dateFormat), tx.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("TransactionRepository.Create: insert: %w", err)
	}
	return tx, nil
}

// Update implements store.TransactionStore.
func (r *TransactionRepository) Update(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?, description = ?, category = ?, type = ?, date = ?
		WHERE user_id = ? AND id = ?`,
		tx.Amount, tx.Description, string(tx.Category), string(tx.Type), tx.Date.Format(dateFormat),
		tx.UserID, tx.ID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("TransactionRepository.Update: exec: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Transaction{}, fmt.Errorf("TransactionRepository.Update: %s: %w", tx.ID, domain.ErrNotFound)
	}
	return r.Get(ctx, tx.UserID, tx.ID)
}

// Delete implements store.TransactionStore.
func (r *TransactionRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("TransactionRepository.Delete: exec: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("TransactionRepository.Delete: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
