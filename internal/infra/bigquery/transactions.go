package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/budgetai/insights/internal/domain"
)

// TransactionRow mirrors a row of the transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount    *big.Rat `bigquery:"amount"`    // REQUIRED NUMERIC, positive magnitude
	Direction string   `bigquery:"direction"` // REQUIRED: income | expense

	Description  string `bigquery:"description"`   // REQUIRED
	CategoryName string `bigquery:"category_name"` // REQUIRED

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// NewTransactionRow converts a domain transaction into a row.
func NewTransactionRow(tx domain.Transaction) *TransactionRow {
	amount := new(big.Rat)
	if r := new(big.Rat).SetFloat64(tx.Amount); r != nil {
		amount = r
	}
	return &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		TransactionDate: civil.DateOf(tx.Date),
		Amount:          amount,
		Direction:       string(tx.Type),
		Description:     tx.Description,
		CategoryName:    string(tx.Category),
		CreatedTS:       tx.CreatedAt,
	}
}

// Transaction converts the row back into a domain transaction.
func (r *TransactionRow) Transaction() domain.Transaction {
	var amount float64
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	return domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		Amount:      amount,
		Description: r.Description,
		Category:    domain.Category(r.CategoryName),
		Type:        domain.TransactionType(r.Direction),
		Date:        r.TransactionDate.In(time.UTC),
		CreatedAt:   r.CreatedTS,
	}
}
