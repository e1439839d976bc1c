// Package store defines transaction persistence and the in-memory implementation.
// Database-backed implementations live under internal/infra.
package store

import (
	"context"
	"sort"

	"github.com/budgetai/insights/internal/domain"
)

// TransactionStore persists transactions. Every operation is scoped to one user;
// a transaction owned by another user is reported as domain.ErrNotFound.
type TransactionStore interface {
	// List returns the user's transactions, most recent date first.
	List(ctx context.Context, userID string) ([]domain.Transaction, error)
	Get(ctx context.Context, userID, id string) (domain.Transaction, error)
	// Create stores tx, assigning an ID and CreatedAt when they are empty.
	Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	// Update replaces an existing transaction. CreatedAt is preserved.
	Update(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
}

// SortRecentFirst orders transactions by date, then creation time, newest first.
func SortRecentFirst(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
