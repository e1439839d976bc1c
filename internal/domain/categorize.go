package domain

import "strings"

// categoryKeywords is checked in order; the first matching rule wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryFood, []string{"grocery", "supermarket", "food"}},
	{CategoryTransport, []string{"gas", "fuel", "uber", "taxi"}},
	{CategoryHousing, []string{"rent", "mortgage"}},
	{CategoryUtilities, []string{"electric", "water", "internet", "phone"}},
	{CategoryHealthcare, []string{"doctor", "pharmacy", "medical"}},
	{CategoryEntertainment, []string{"movie", "cinema", "netflix", "spotify"}},
	{CategoryShopping, []string{"amazon", "shopping", "store"}},
	{CategoryEducation, []string{"school", "tuition", "book"}},
	{CategoryTravel, []string{"hotel", "flight", "vacation"}},
	{CategoryIncome, []string{"salary", "payroll", "income"}},
}

// SmartCategorize guesses a category from free-text description keywords.
// It falls back to CategoryOther.
func SmartCategorize(description string) Category {
	desc := strings.ToLower(description)
	for _, rule := range categoryKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(desc, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}
