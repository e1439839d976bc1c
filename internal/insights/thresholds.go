package insights

import "github.com/budgetai/insights/internal/domain"

// Thresholds holds the ratio and rate cut-offs used by the rule evaluator.
// Ratios are fractions of total expenses; savings rates are percentages.
type Thresholds struct {
	FoodSpendingRatio          float64
	EntertainmentSpendingRatio float64
	HighCategoryRatio          float64
	SavingsRateHigh            float64
	SavingsRateLow             float64
	RecurringExpensesRatio     float64
	BudgetApproachingRatio     float64
}

// DefaultThresholds returns the fixed threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FoodSpendingRatio:          0.30,
		EntertainmentSpendingRatio: 0.15,
		HighCategoryRatio:          0.20,
		SavingsRateHigh:            20,
		SavingsRateLow:             10,
		RecurringExpensesRatio:     0.60,
		BudgetApproachingRatio:     0.80,
	}
}

// Budget is a monthly spending ceiling for one category.
type Budget struct {
	Category domain.Category
	Limit    float64
}

// DefaultBudgets returns the fixed category budget table in declaration order.
// Alert emission iterates this order.
func DefaultBudgets() []Budget {
	return []Budget{
		{Category: domain.CategoryFood, Limit: 400},
		{Category: domain.CategoryTransport, Limit: 200},
		{Category: domain.CategoryEntertainment, Limit: 150},
		{Category: domain.CategoryShopping, Limit: 200},
		{Category: domain.CategoryHealthcare, Limit: 100},
		{Category: domain.CategoryTravel, Limit: 300},
		{Category: domain.CategoryPersonalCare, Limit: 50},
		{Category: domain.CategoryOther, Limit: 100},
	}
}

// Categories excluded from the generic "high category" check; they have dedicated rules
// or are treated as unavoidable.
var highCategoryExcluded = map[domain.Category]bool{
	domain.CategoryFood:      true,
	domain.CategoryHousing:   true,
	domain.CategoryTransport: true,
}

// Recurring categories are used as a proxy for fixed costs.
var recurringCategories = map[domain.Category]bool{
	domain.CategoryHousing:   true,
	domain.CategoryUtilities: true,
	domain.CategoryTransport: true,
}
