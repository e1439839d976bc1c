package insights

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/budgetai/insights/internal/domain"
	"github.com/budgetai/insights/internal/money"
)

func TestSummarize(t *testing.T) {
	txs := []domain.Transaction{
		income(1000),
		expense(domain.CategoryShopping, 100),
		expense(domain.CategoryFood, -300),
		expense(domain.CategoryShopping, 100),
	}

	got := Summarize(txs)

	if got.TotalIncome != 1000 || got.TotalExpenses != 500 {
		t.Errorf("totals = %v/%v, want 1000/500", got.TotalIncome, got.TotalExpenses)
	}
	if got.SavingsRate != 50 {
		t.Errorf("SavingsRate = %v, want 50", got.SavingsRate)
	}
	if got.ExpenseCount != 3 {
		t.Errorf("ExpenseCount = %d, want 3", got.ExpenseCount)
	}
	want := []CategoryTotal{{domain.CategoryFood, 300}, {domain.CategoryShopping, 200}}
	if len(got.Categories) != 2 || got.Categories[0] != want[0] || got.Categories[1] != want[1] {
		t.Errorf("Categories = %+v, want %+v", got.Categories, want)
	}
}

func TestSummarize_NoIncome(t *testing.T) {
	if got := Summarize([]domain.Transaction{expense(domain.CategoryFood, 10)}); got.SavingsRate != 0 {
		t.Errorf("SavingsRate = %v, want 0", got.SavingsRate)
	}
}

func TestBuildContext_SampleIsRecentFirstAndCapped(t *testing.T) {
	var txs []domain.Transaction
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		tx := expense(domain.CategoryOther, 1)
		tx.Date = base.AddDate(0, 0, i)
		txs = append(txs, tx)
	}

	ctx := BuildContext(txs, DefaultSampleSize)

	line := ""
	for _, l := range strings.Split(ctx, "\n") {
		if strings.HasPrefix(l, "- Recent transactions: ") {
			line = strings.TrimPrefix(l, "- Recent transactions: ")
		}
	}
	var sample []sampleTransaction
	if err := json.Unmarshal([]byte(line), &sample); err != nil {
		t.Fatalf("sample is not JSON: %v\n%s", err, line)
	}
	if len(sample) != DefaultSampleSize {
		t.Fatalf("sample size = %d, want %d", len(sample), DefaultSampleSize)
	}
	if sample[0].Date != "2025-01-30" || sample[len(sample)-1].Date != "2025-01-11" {
		t.Errorf("sample range = %s..%s", sample[0].Date, sample[len(sample)-1].Date)
	}
	if !txs[0].Date.Equal(base) {
		t.Error("BuildContext reordered its input")
	}
}

func TestBuildDashboard(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		{Amount: 100, Type: domain.TypeIncome, Category: domain.CategoryIncome, Date: feb},
		{Amount: 20, Type: domain.TypeExpense, Category: domain.CategoryFood, Date: feb},
		{Amount: 200, Type: domain.TypeIncome, Category: domain.CategoryIncome, Date: jan},
		{Amount: -80, Type: domain.TypeExpense, Category: domain.CategoryShopping, Date: jan},
	}

	got := BuildDashboard(txs, money.NewConverter(56.5, "PHP"))

	if got.TotalIncome != 300 || got.TotalExpenses != 100 || got.Balance != 200 {
		t.Errorf("totals = %v/%v/%v", got.TotalIncome, got.TotalExpenses, got.Balance)
	}
	if got.Transactions != 4 {
		t.Errorf("Transactions = %d", got.Transactions)
	}
	wantMonths := []MonthBucket{
		{Month: "2025-01", Income: 200, Expenses: 80},
		{Month: "2025-02", Income: 100, Expenses: 20},
	}
	if len(got.Months) != 2 || got.Months[0] != wantMonths[0] || got.Months[1] != wantMonths[1] {
		t.Errorf("Months = %+v, want %+v", got.Months, wantMonths)
	}
	if got.DisplayExpenses != "₱5,650.00" || got.DisplayBalance != "₱11,300.00" {
		t.Errorf("display = %q / %q", got.DisplayExpenses, got.DisplayBalance)
	}
	if got.Currency != "PHP" {
		t.Errorf("Currency = %q", got.Currency)
	}
}
