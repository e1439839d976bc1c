package insights

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/budgetai/insights/internal/domain"
)

// Evaluator produces deterministic insights and budget alerts from a transaction snapshot.
// It holds no state between calls and performs no I/O.
type Evaluator struct {
	Thresholds Thresholds
	Budgets    []Budget
}

// NewEvaluator returns an Evaluator over the fixed threshold and budget tables.
func NewEvaluator() Evaluator {
	return Evaluator{
		Thresholds: DefaultThresholds(),
		Budgets:    DefaultBudgets(),
	}
}

// tally is the per-snapshot aggregation shared by the rule evaluator, the summary
// builder and the local recommendations.
type tally struct {
	totalIncome   float64
	totalExpenses float64
	expenseCount  int
	// byCategory holds expense magnitudes; order records first encounter.
	byCategory map[domain.Category]float64
	order      []domain.Category
}

func newTally(txs []domain.Transaction) tally {
	t := tally{byCategory: make(map[domain.Category]float64)}
	for _, tx := range txs {
		switch {
		case tx.IsIncome():
			t.totalIncome += tx.Magnitude()
		case tx.IsExpense():
			t.totalExpenses += tx.Magnitude()
			t.expenseCount++
			if _, seen := t.byCategory[tx.Category]; !seen {
				t.order = append(t.order, tx.Category)
			}
			t.byCategory[tx.Category] += tx.Magnitude()
		}
	}
	return t
}

func (t tally) spent(c domain.Category) float64 {
	return t.byCategory[c]
}

func (t tally) percentOfExpenses(amount float64) float64 {
	return amount / t.totalExpenses * 100
}

// savingsRate is only meaningful when totalIncome > 0.
func (t tally) savingsRate() float64 {
	return (t.totalIncome - t.totalExpenses) / t.totalIncome * 100
}

// Evaluate runs the insight rules and the budget checks. Both lists are returned in
// emission order, which callers may rely on.
func (e Evaluator) Evaluate(txs []domain.Transaction) ([]Insight, []BudgetAlert) {
	t := newTally(txs)
	return e.insights(t), e.alerts(t)
}

func (e Evaluator) insights(t tally) []Insight {
	out := []Insight{}
	if t.totalExpenses == 0 {
		return out
	}
	th := e.Thresholds

	food := t.spent(domain.CategoryFood)
	if food > t.totalExpenses*th.FoodSpendingRatio {
		out = append(out, Insight{
			Type:  InsightWarning,
			Title: "High Food Spending",
			Message: fmt.Sprintf("Your food expenses ($%.2f, %.1f%% of total spending) are quite high. Consider meal prepping to save money.",
				food, t.percentOfExpenses(food)),
			Icon:  iconAlert,
			Color: colorYellow,
		})
	}

	for _, c := range t.order {
		if highCategoryExcluded[c] {
			continue
		}
		amount := t.byCategory[c]
		if amount > t.totalExpenses*th.HighCategoryRatio {
			out = append(out, Insight{
				Type:  InsightInfo,
				Title: fmt.Sprintf("High %s Spending", c),
				Message: fmt.Sprintf("%s represents $%.2f (%.1f%% of your expenses). Consider reviewing your %s habits.",
					c, amount, t.percentOfExpenses(amount), strings.ToLower(string(c))),
				Icon:  iconLightbulb,
				Color: colorBlue,
			})
		}
	}

	if t.spent(domain.CategoryEntertainment) > t.totalExpenses*th.EntertainmentSpendingRatio {
		out = append(out, Insight{
			Type:    InsightInfo,
			Title:   "Entertainment Budget",
			Message: "You're spending more on entertainment than average. Look for free or low-cost alternatives.",
			Icon:    iconLightbulb,
			Color:   colorBlue,
		})
	}

	if t.totalIncome > 0 {
		rate := t.savingsRate()
		switch {
		case rate > th.SavingsRateHigh:
			out = append(out, Insight{
				Type:    InsightSuccess,
				Title:   "Great Savings Rate!",
				Message: fmt.Sprintf("You're saving %.1f%% of your $%.2f income. Keep up the excellent work!", rate, t.totalIncome),
				Icon:    iconTrending,
				Color:   colorGreen,
			})
		case rate < th.SavingsRateLow:
			out = append(out, Insight{
				Type:    InsightWarning,
				Title:   "Low Savings Rate",
				Message: fmt.Sprintf("You're only saving %.1f%% of your $%.2f income. Consider cutting back on non-essential expenses.", rate, t.totalIncome),
				Icon:    iconAlert,
				Color:   colorRed,
			})
		}
	}

	var recurring float64
	for _, c := range t.order {
		if recurringCategories[c] {
			recurring += t.byCategory[c]
		}
	}
	if recurring > t.totalExpenses*th.RecurringExpensesRatio {
		out = append(out, Insight{
			Type:  InsightInfo,
			Title: "Fixed Expenses Analysis",
			Message: fmt.Sprintf("$%.2f (%.1f%% of your expenses) are fixed costs. Focus on optimizing variable expenses.",
				recurring, t.percentOfExpenses(recurring)),
			Icon:  iconBrain,
			Color: colorPurple,
		})
	}

	return out
}

func (e Evaluator) alerts(t tally) []BudgetAlert {
	out := []BudgetAlert{}
	for _, b := range e.Budgets {
		spent := t.spent(b.Category)
		limit := strconv.FormatFloat(b.Limit, 'f', -1, 64)
		switch {
		case spent > b.Limit:
			out = append(out, BudgetAlert{
				Type:  InsightWarning,
				Title: fmt.Sprintf("Budget Exceeded: %s", b.Category),
				Message: fmt.Sprintf("You've exceeded your %s budget by %.1f%%. Spent $%.2f of $%s.",
					b.Category, (spent-b.Limit)/b.Limit*100, spent, limit),
				Icon: iconAlert,
			})
		case spent > b.Limit*e.Thresholds.BudgetApproachingRatio:
			out = append(out, BudgetAlert{
				Type:  InsightInfo,
				Title: fmt.Sprintf("Approaching %s Budget", b.Category),
				Message: fmt.Sprintf("You're at %.1f%% of your %s budget. Spent $%.2f of $%s.",
					spent/b.Limit*100, b.Category, spent, limit),
				Icon: iconTrending,
			})
		}
	}
	return out
}
