// Package bigquery stores transactions in a BigQuery dataset.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/budgetai/insights/internal/domain"
)

// BigQueryTransactionRepository implements store.TransactionStore on BigQuery. It holds
// a shared client so operations do not open a connection each.
type BigQueryTransactionRepository struct {
	client  *bigquery.Client
	dataset Dataset
}

// NewBigQueryTransactionRepository creates the repository with its own client.
func NewBigQueryTransactionRepository(ctx context.Context, projectID, datasetID string) (*BigQueryTransactionRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryTransactionRepository: creating client: %w", err)
	}
	return &BigQueryTransactionRepository{
		client:  client,
		dataset: Dataset{ProjectID: projectID, DatasetID: datasetID},
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryTransactionRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// List implements store.TransactionStore.
func (r *BigQueryTransactionRepository) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := QueryTransactionsByUserWithClient(ctx, r.client, r.dataset, userID)
	if err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, row.Transaction())
	}
	return txs, nil
}

// Get implements store.TransactionStore.
func (r *BigQueryTransactionRepository) Get(ctx context.Context, userID, id string) (domain.Transaction, error) {
	row, err := GetTransactionWithClient(ctx, r.client, r.dataset, userID, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if row == nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %s: %w", id, domain.ErrNotFound)
	}
	return row.Transaction(), nil
}

// Create implements store.TransactionStore.
func (r *BigQueryTransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if err := InsertTransactionWithClient(ctx, r.client, r.dataset, NewTransactionRow(tx)); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// Update implements store.TransactionStore.
func (r *BigQueryTransactionRepository) Update(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	n, err := UpdateTransactionWithClient(ctx, r.client, r.dataset, NewTransactionRow(tx))
	if err != nil {
		return domain.Transaction{}, err
	}
	if n == 0 {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, domain.ErrNotFound)
	}
	return r.Get(ctx, tx.UserID, tx.ID)
}

// Delete implements store.TransactionStore.
func (r *BigQueryTransactionRepository) Delete(ctx context.Context, userID, id string) error {
	n, err := DeleteTransactionWithClient(ctx, r.client, r.dataset, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
