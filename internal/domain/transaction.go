package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// TransactionType says which side of the ledger a transaction sits on.
// It is authoritative over the sign of Amount.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Category is one of the fixed spending categories.
type Category string

const (
	CategoryFood          Category = "Food & Dining"
	CategoryTransport     Category = "Transportation"
	CategoryHousing       Category = "Housing"
	CategoryUtilities     Category = "Utilities"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryEducation     Category = "Education"
	CategoryTravel        Category = "Travel"
	CategoryPersonalCare  Category = "Personal Care"
	CategoryInsurance     Category = "Insurance"
	CategoryDebt          Category = "Debt Payments"
	CategorySavings       Category = "Savings"
	CategoryInvestments   Category = "Investments"
	CategoryIncome        Category = "Income"
	CategoryOther         Category = "Other"
)

var categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryHousing,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryEntertainment,
	CategoryShopping,
	CategoryEducation,
	CategoryTravel,
	CategoryPersonalCare,
	CategoryInsurance,
	CategoryDebt,
	CategorySavings,
	CategoryInvestments,
	CategoryIncome,
	CategoryOther,
}

// Categories returns the recognised categories in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// IsKnownCategory reports whether c is one of the fixed categories.
func IsKnownCategory(c Category) bool {
	for _, known := range categories {
		if known == c {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound is returned by stores when a transaction does not exist for the user.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidTransaction wraps boundary validation failures.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Transaction is a single income or expense record owned by one user.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId,omitempty"`
	Amount      float64         `json:"amount" validate:"required,finite"`
	Description string          `json:"description" validate:"notblank,max=500"`
	Category    Category        `json:"category" validate:"required,category"`
	Type        TransactionType `json:"type" validate:"required,oneof=income expense"`
	// Date is used for month bucketing. CreatedAt is audit-only.
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Magnitude returns the absolute amount. Analysis always works on magnitudes
// and lets Type decide the direction.
func (t Transaction) Magnitude() float64 {
	return math.Abs(t.Amount)
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// IsIncome reports whether the transaction is income.
func (t Transaction) IsIncome() bool {
	return t.Type == TypeIncome
}

// Normalize applies the storage convention: amounts are stored as positive
// magnitudes, a missing date defaults to now and a missing category is
// derived from the description.
func (t *Transaction) Normalize(now time.Time) {
	t.Amount = math.Abs(t.Amount)
	if t.Date.IsZero() {
		t.Date = now
	}
	if t.Category == "" {
		t.Category = SmartCategorize(t.Description)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
}

// UnmarshalJSON accepts dates as YYYY-MM-DD as well as RFC3339 timestamps.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	aux := struct {
		*plain
		Date      string `json:"date"`
		CreatedAt string `json:"createdAt"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if t.Date, err = parseTime(aux.Date); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if t.CreatedAt, err = parseTime(aux.CreatedAt); err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}
