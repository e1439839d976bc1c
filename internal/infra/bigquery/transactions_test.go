package bigquery

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/budgetai/insights/internal/domain"
)

func TestTransactionRow_RoundTrip(t *testing.T) {
	tx := domain.Transaction{
		ID:          "tx-1",
		UserID:      "user-1",
		Amount:      1234.56,
		Description: "Rent",
		Category:    domain.CategoryHousing,
		Type:        domain.TypeExpense,
		Date:        time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
	}

	row := NewTransactionRow(tx)

	if row.TransactionDate != (civil.Date{Year: 2025, Month: time.May, Day: 1}) {
		t.Errorf("TransactionDate = %v", row.TransactionDate)
	}
	if row.Amount.FloatString(2) != "1234.56" {
		t.Errorf("Amount = %s", row.Amount.FloatString(2))
	}
	if row.Direction != "expense" || row.CategoryName != "Housing" {
		t.Errorf("row = %+v", row)
	}

	back := row.Transaction()
	if back != tx {
		t.Errorf("Transaction() = %+v, want %+v", back, tx)
	}
}

func TestNewTransactionRow_NonFiniteAmount(t *testing.T) {
	var zero float64
	row := NewTransactionRow(domain.Transaction{Amount: 1 / zero})
	if row.Amount == nil || row.Amount.Sign() != 0 {
		t.Errorf("Amount = %v, want 0", row.Amount)
	}
}

func TestDatasetTable(t *testing.T) {
	ds := Dataset{ProjectID: "proj", DatasetID: "budget"}
	if got := ds.table(transactionsTable); got != "`proj.budget.transactions`" {
		t.Errorf("table() = %s", got)
	}
}
