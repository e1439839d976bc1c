package insights

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/budgetai/insights/internal/domain"
)

// DefaultSampleSize caps how many recent transactions are sent to the oracle.
const DefaultSampleSize = 20

// CategoryTotal is the expense magnitude for one category.
type CategoryTotal struct {
	Category domain.Category `json:"category"`
	Amount   float64         `json:"amount"`
}

// Summary condenses a snapshot into the figures the oracle needs.
type Summary struct {
	TotalIncome   float64         `json:"totalIncome"`
	TotalExpenses float64         `json:"totalExpenses"`
	SavingsRate   float64         `json:"savingsRate"`
	ExpenseCount  int             `json:"expenseCount"`
	Categories    []CategoryTotal `json:"categories"`
}

// Summarize computes totals and the per-category breakdown sorted by amount, largest first.
// SavingsRate is zero when there is no income.
func Summarize(txs []domain.Transaction) Summary {
	t := newTally(txs)
	s := Summary{
		TotalIncome:   t.totalIncome,
		TotalExpenses: t.totalExpenses,
		ExpenseCount:  t.expenseCount,
		Categories:    make([]CategoryTotal, 0, len(t.order)),
	}
	if t.totalIncome > 0 {
		s.SavingsRate = t.savingsRate()
	}
	for _, c := range t.order {
		s.Categories = append(s.Categories, CategoryTotal{Category: c, Amount: t.byCategory[c]})
	}
	sort.SliceStable(s.Categories, func(i, j int) bool {
		return s.Categories[i].Amount > s.Categories[j].Amount
	})
	return s
}

func formatCategories(cats []CategoryTotal) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = fmt.Sprintf("%s: $%.2f", c.Category, c.Amount)
	}
	return strings.Join(parts, ", ")
}

// sampleTransaction is the trimmed view of a transaction sent to the oracle.
type sampleTransaction struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
}

// recentSample returns up to limit transactions, most recent date first.
// The input slice is not reordered.
func recentSample(txs []domain.Transaction, limit int) []sampleTransaction {
	sorted := make([]domain.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]sampleTransaction, len(sorted))
	for i, tx := range sorted {
		out[i] = sampleTransaction{
			Date:        tx.Date.Format("2006-01-02"),
			Description: tx.Description,
			Category:    string(tx.Category),
			Type:        string(tx.Type),
			Amount:      tx.Magnitude(),
		}
	}
	return out
}

// BuildContext renders the summary and a capped sample of recent transactions as the
// user-data block of an oracle prompt.
func BuildContext(txs []domain.Transaction, sampleSize int) string {
	s := Summarize(txs)

	top := s.Categories
	if len(top) > 5 {
		top = top[:5]
	}

	sample, err := json.Marshal(recentSample(txs, sampleSize))
	if err != nil {
		// Only float NaN/Inf can fail here; the sample is best-effort context.
		sample = []byte("[]")
	}

	var b strings.Builder
	b.WriteString("User transaction data:\n")
	fmt.Fprintf(&b, "- Total income: $%.2f\n", s.TotalIncome)
	fmt.Fprintf(&b, "- Total expenses: $%.2f\n", s.TotalExpenses)
	fmt.Fprintf(&b, "- Savings rate: %.1f%%\n", s.SavingsRate)
	fmt.Fprintf(&b, "- Number of expense transactions: %d\n", s.ExpenseCount)
	fmt.Fprintf(&b, "- All expense categories: %s\n", formatCategories(s.Categories))
	fmt.Fprintf(&b, "- Top 5 categories: %s\n", formatCategories(top))
	fmt.Fprintf(&b, "- Recent transactions: %s\n", sample)
	return b.String()
}
