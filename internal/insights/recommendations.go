package insights

import (
	"fmt"

	"github.com/budgetai/insights/internal/domain"
)

// estimatedSavingsShare is the fraction of food or entertainment spend a recommendation
// is assumed to save.
const estimatedSavingsShare = 0.2

// FallbackRecommendations derives local suggestions from the same checks the rule
// evaluator uses. It is shown only when the oracle produced no recommendations.
func (e Evaluator) FallbackRecommendations(txs []domain.Transaction) []Recommendation {
	out := []Recommendation{}
	t := newTally(txs)
	if t.totalExpenses == 0 {
		return out
	}
	th := e.Thresholds

	food := t.spent(domain.CategoryFood)
	if food > t.totalExpenses*th.FoodSpendingRatio {
		saving := food * estimatedSavingsShare
		out = append(out, Recommendation{
			Title: "Meal Planning",
			Description: fmt.Sprintf("Based on your food spending (%.1f%% of expenses), implementing a weekly meal plan could save you approximately $%.0f per month.",
				t.percentOfExpenses(food), saving),
			PotentialSavings: fmt.Sprintf("$%.0f/month", saving),
		})
	}

	entertainment := t.spent(domain.CategoryEntertainment)
	if entertainment > t.totalExpenses*th.EntertainmentSpendingRatio {
		out = append(out, Recommendation{
			Title:            "Entertainment Alternatives",
			Description:      "Consider free or low-cost entertainment options like community events, libraries, or home activities.",
			PotentialSavings: fmt.Sprintf("$%.0f/month potential", entertainment*estimatedSavingsShare),
		})
	}

	if t.totalIncome > 0 && t.savingsRate() < th.SavingsRateLow {
		out = append(out, Recommendation{
			Title:            "Savings Goal",
			Description:      "Set up automatic transfers to a savings account to build an emergency fund.",
			PotentialSavings: "Ongoing",
		})
	}

	if len(out) == 0 {
		out = append(out, Recommendation{
			Title:            "Review Budget",
			Description:      "Consider reviewing your spending patterns for optimization opportunities.",
			PotentialSavings: "TBD",
		})
	}
	return out
}
