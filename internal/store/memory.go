package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/budgetai/insights/internal/domain"
)

// MemoryStore keeps transactions in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string]map[string]domain.Transaction
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUser: make(map[string]map[string]domain.Transaction),
		now:    time.Now,
	}
}

// List implements TransactionStore.
func (s *MemoryStore) List(_ context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.Transaction, 0, len(s.byUser[userID]))
	for _, tx := range s.byUser[userID] {
		txs = append(txs, tx)
	}
	SortRecentFirst(txs)
	return txs, nil
}

// Get implements TransactionStore.
func (s *MemoryStore) Get(_ context.Context, userID, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byUser[userID][id]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("MemoryStore.Get: %s: %w", id, domain.ErrNotFound)
	}
	return tx, nil
}

// Create implements TransactionStore.
func (s *MemoryStore) Create(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if tx.UserID == "" {
		return domain.Transaction{}, fmt.Errorf("MemoryStore.Create: missing user id: %w", domain.ErrInvalidTransaction)
	}
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, ok := s.byUser[tx.UserID]
	if !ok {
		txs = make(map[string]domain.Transaction)
		s.byUser[tx.UserID] = txs
	}
	txs[tx.ID] = tx
	return tx, nil
}

// Update implements TransactionStore.
func (s *MemoryStore) Update(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byUser[tx.UserID][tx.ID]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("MemoryStore.Update: %s: %w", tx.ID, domain.ErrNotFound)
	}
	tx.CreatedAt = existing.CreatedAt
	s.byUser[tx.UserID][tx.ID] = tx
	return tx, nil
}

// Delete implements TransactionStore.
func (s *MemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUser[userID][id]; !ok {
		return fmt.Errorf("MemoryStore.Delete: %s: %w", id, domain.ErrNotFound)
	}
	delete(s.byUser[userID], id)
	return nil
}
