package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		Amount:      12.5,
		Description: "Groceries",
		Category:    CategoryFood,
		Type:        TypeExpense,
	}

	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr bool
	}{
		{name: "valid expense", mutate: func(tx *Transaction) {}},
		{name: "negative amount is accepted", mutate: func(tx *Transaction) { tx.Amount = -12.5 }},
		{name: "zero amount", mutate: func(tx *Transaction) { tx.Amount = 0 }, wantErr: true},
		{name: "NaN amount", mutate: func(tx *Transaction) { tx.Amount = math.NaN() }, wantErr: true},
		{name: "infinite amount", mutate: func(tx *Transaction) { tx.Amount = math.Inf(1) }, wantErr: true},
		{name: "blank description", mutate: func(tx *Transaction) { tx.Description = "   " }, wantErr: true},
		{name: "unknown category", mutate: func(tx *Transaction) { tx.Category = "Gadgets" }, wantErr: true},
		{name: "missing type", mutate: func(tx *Transaction) { tx.Type = "" }, wantErr: true},
		{name: "bad type", mutate: func(tx *Transaction) { tx.Type = "transfer" }, wantErr: true},
		{name: "expense in Income category", mutate: func(tx *Transaction) { tx.Category = CategoryIncome }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransaction) {
				t.Errorf("Validate() error = %v, want wrapped ErrInvalidTransaction", err)
			}
		})
	}
}

func TestTransaction_Normalize(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	tx := Transaction{Amount: -42, Description: "Netflix subscription", Type: TypeExpense}

	tx.Normalize(now)

	if tx.Amount != 42 {
		t.Errorf("Amount = %v, want 42", tx.Amount)
	}
	if !tx.Date.Equal(now) {
		t.Errorf("Date = %v, want %v", tx.Date, now)
	}
	if tx.Category != CategoryEntertainment {
		t.Errorf("Category = %q, want %q", tx.Category, CategoryEntertainment)
	}
	if !tx.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", tx.CreatedAt, now)
	}
}

func TestSmartCategorize(t *testing.T) {
	tests := []struct {
		desc string
		want Category
	}{
		{"Weekly grocery run", CategoryFood},
		{"UBER trip", CategoryTransport},
		{"March rent", CategoryHousing},
		{"Internet bill", CategoryUtilities},
		{"Pharmacy", CategoryHealthcare},
		{"Cinema tickets", CategoryEntertainment},
		{"Amazon order", CategoryShopping},
		{"Tuition fee", CategoryEducation},
		{"Hotel stay", CategoryTravel},
		{"Monthly salary", CategoryIncome},
		{"Something else", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := SmartCategorize(tt.desc); got != tt.want {
				t.Errorf("SmartCategorize(%q) = %q, want %q", tt.desc, got, tt.want)
			}
		})
	}
}

func TestCategories_ReturnsCopy(t *testing.T) {
	cats := Categories()
	if len(cats) != 16 {
		t.Fatalf("len(Categories()) = %d, want 16", len(cats))
	}
	cats[0] = "mutated"
	if Categories()[0] != CategoryFood {
		t.Error("Categories() must not expose the internal slice")
	}
}

func TestTransaction_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantDate time.Time
		wantErr  bool
	}{
		{
			name:     "date only",
			body:     `{"amount":-200,"type":"expense","category":"Food & Dining","date":"2025-03-01"}`,
			wantDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "rfc3339",
			body:     `{"amount":500,"type":"income","date":"2025-03-01T10:30:00Z"}`,
			wantDate: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{name: "missing date", body: `{"amount":5,"type":"income"}`},
		{name: "bad date", body: `{"amount":5,"date":"yesterday"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tx Transaction
			err := json.Unmarshal([]byte(tt.body), &tx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !tx.Date.Equal(tt.wantDate) {
				t.Errorf("Date = %v, want %v", tx.Date, tt.wantDate)
			}
		})
	}

	var tx Transaction
	_ = json.Unmarshal([]byte(`{"amount":-200,"type":"expense","category":"Food & Dining"}`), &tx)
	if tx.Amount != -200 || tx.Type != TypeExpense || tx.Category != CategoryFood {
		t.Errorf("fields = %+v", tx)
	}
}
