package insights

import (
	"sort"

	"github.com/budgetai/insights/internal/domain"
	"github.com/budgetai/insights/internal/money"
)

// MonthBucket holds income and expense totals for one calendar month.
type MonthBucket struct {
	Month    string  `json:"month"` // YYYY-MM
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// Dashboard is the overview shown on the user's home screen.
type Dashboard struct {
	TotalIncome     float64         `json:"totalIncome"`
	TotalExpenses   float64         `json:"totalExpenses"`
	Balance         float64         `json:"balance"`
	SavingsRate     float64         `json:"savingsRate"`
	Transactions    int             `json:"transactionCount"`
	Months          []MonthBucket   `json:"months"`
	Categories      []CategoryTotal `json:"categories"`
	Currency        string          `json:"currency"`
	DisplayIncome   string          `json:"displayIncome"`
	DisplayExpenses string          `json:"displayExpenses"`
	DisplayBalance  string          `json:"displayBalance"`
}

// BuildDashboard summarizes a snapshot. Months are sorted oldest first; categories
// largest first.
func BuildDashboard(txs []domain.Transaction, conv money.Converter) Dashboard {
	s := Summarize(txs)

	byMonth := make(map[string]*MonthBucket)
	for _, tx := range txs {
		key := tx.Date.Format("2006-01")
		b, ok := byMonth[key]
		if !ok {
			b = &MonthBucket{Month: key}
			byMonth[key] = b
		}
		switch {
		case tx.IsIncome():
			b.Income += tx.Magnitude()
		case tx.IsExpense():
			b.Expenses += tx.Magnitude()
		}
	}

	months := make([]MonthBucket, 0, len(byMonth))
	for _, b := range byMonth {
		months = append(months, *b)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })

	balance := s.TotalIncome - s.TotalExpenses
	return Dashboard{
		TotalIncome:     s.TotalIncome,
		TotalExpenses:   s.TotalExpenses,
		Balance:         balance,
		SavingsRate:     s.SavingsRate,
		Transactions:    len(txs),
		Months:          months,
		Categories:      s.Categories,
		Currency:        conv.Currency,
		DisplayIncome:   conv.Format(s.TotalIncome),
		DisplayExpenses: conv.Format(s.TotalExpenses),
		DisplayBalance:  conv.Format(balance),
	}
}
