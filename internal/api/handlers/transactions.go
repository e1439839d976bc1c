package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/api/middleware"
	"github.com/budgetai/insights/internal/domain"
	"github.com/budgetai/insights/internal/store"
)

const dateLayout = "2006-01-02"

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store store.TransactionStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(s store.TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: s,
		log:   log,
		now:   time.Now,
	}
}

// transactionRequest is the body of create and update calls. Date accepts
// YYYY-MM-DD or RFC3339 and defaults to today.
type transactionRequest struct {
	Amount      float64                `json:"amount"`
	Description string                 `json:"description"`
	Category    domain.Category        `json:"category"`
	Type        domain.TransactionType `json:"type"`
	Date        string                 `json:"date"`
}

func (req transactionRequest) apply(tx *domain.Transaction) error {
	tx.Amount = req.Amount
	tx.Description = strings.TrimSpace(req.Description)
	tx.Category = req.Category
	tx.Type = req.Type
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return err
		}
		tx.Date = date
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := middleware.UserIDFromContext(ctx)

	query := r.URL.Query()
	var startDate, endDate time.Time
	var err error

	if s := query.Get("start_date"); s != "" {
		if startDate, err = time.Parse(dateLayout, s); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	}
	if s := query.Get("end_date"); s != "" {
		if endDate, err = time.Parse(dateLayout, s); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	}

	transactions, err := h.store.List(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}

	// Return array directly for frontend compatibility
	filtered := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if !startDate.IsZero() && tx.Date.Before(startDate) {
			continue
		}
		if !endDate.IsZero() && tx.Date.After(endDate) {
			continue
		}
		filtered = append(filtered, tx)
	}
	middleware.WriteJSON(w, http.StatusOK, filtered)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := middleware.UserIDFromContext(ctx)

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx := domain.Transaction{UserID: userID}
	if err := req.apply(&tx); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx.Normalize(h.now().UTC())
	if err := tx.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.store.Create(ctx, tx)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	h.log.Info().Str("user_id", userID).Str("transaction_id", created.ID).Msg("Transaction created")
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := middleware.UserIDFromContext(ctx)
	id := chi.URLParam(r, "id")

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.store.Get(ctx, userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to load transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	if err := req.apply(&tx); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx.Normalize(h.now().UTC())
	if err := tx.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.store.Update(ctx, tx)
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, updated)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := middleware.UserIDFromContext(ctx)
	id := chi.URLParam(r, "id")

	err := h.store.Delete(ctx, userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/categories
func ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := domain.Categories()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}
