package insights

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/budgetai/insights/internal/domain"
)

var testDate = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func income(amount float64) domain.Transaction {
	return domain.Transaction{Amount: amount, Type: domain.TypeIncome, Category: domain.CategoryIncome, Description: "Salary", Date: testDate}
}

func expense(c domain.Category, amount float64) domain.Transaction {
	return domain.Transaction{Amount: amount, Type: domain.TypeExpense, Category: c, Description: "spend", Date: testDate}
}

func titles(in []Insight) []string {
	out := make([]string, len(in))
	for i, x := range in {
		out[i] = x.Title
	}
	return out
}

func alertTitles(in []BudgetAlert) []string {
	out := make([]string, len(in))
	for i, x := range in {
		out[i] = x.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func findInsight(in []Insight, title string) (Insight, bool) {
	for _, x := range in {
		if x.Title == title {
			return x, true
		}
	}
	return Insight{}, false
}

func TestEvaluate_NoExpensesYieldsNoInsights(t *testing.T) {
	tests := []struct {
		name string
		txs  []domain.Transaction
	}{
		{"nil", nil},
		{"income only", []domain.Transaction{income(1000)}},
		{"zero expense", []domain.Transaction{income(100), expense(domain.CategoryFood, 0)}},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, alerts := e.Evaluate(tt.txs)
			if got == nil || len(got) != 0 {
				t.Errorf("insights = %#v, want empty non-nil slice", got)
			}
			if alerts == nil {
				t.Error("alerts is nil, want empty slice")
			}
			// Idempotent.
			again, _ := e.Evaluate(tt.txs)
			if len(again) != 0 {
				t.Errorf("second call insights = %v, want empty", titles(again))
			}
		})
	}
}

func TestEvaluate_HighFoodSpending(t *testing.T) {
	txs := []domain.Transaction{income(500), expense(domain.CategoryFood, -200)}

	got, _ := NewEvaluator().Evaluate(txs)

	in, ok := findInsight(got, "High Food Spending")
	if !ok {
		t.Fatalf("High Food Spending not emitted, got %v", titles(got))
	}
	if in.Type != InsightWarning {
		t.Errorf("Type = %q, want warning", in.Type)
	}
	for _, want := range []string{"200.00", "100.0%"} {
		if !strings.Contains(in.Message, want) {
			t.Errorf("Message %q does not contain %q", in.Message, want)
		}
	}
	if got[0].Title != "High Food Spending" {
		t.Errorf("first insight = %q, want High Food Spending", got[0].Title)
	}
}

func TestEvaluate_SavingsRate(t *testing.T) {
	tests := []struct {
		name      string
		income    float64
		expenses  float64
		wantGreat bool
		wantLow   bool
	}{
		{"eighty percent", 1000, 200, true, false},
		{"exactly twenty", 1000, 800, false, false},
		{"middle", 1000, 850, false, false},
		{"exactly ten", 1000, 900, false, false},
		{"five percent", 1000, 950, false, true},
		{"negative", 1000, 1500, false, true},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := e.Evaluate([]domain.Transaction{income(tt.income), expense(domain.CategoryHousing, tt.expenses)})
			great, hasGreat := findInsight(got, "Great Savings Rate!")
			_, hasLow := findInsight(got, "Low Savings Rate")
			if hasGreat != tt.wantGreat {
				t.Errorf("Great Savings Rate emitted = %v, want %v", hasGreat, tt.wantGreat)
			}
			if hasLow != tt.wantLow {
				t.Errorf("Low Savings Rate emitted = %v, want %v", hasLow, tt.wantLow)
			}
			if hasGreat && hasLow {
				t.Error("both savings insights emitted")
			}
			if hasGreat && great.Type != InsightSuccess {
				t.Errorf("Great Savings Rate type = %q, want success", great.Type)
			}
		})
	}
}

func TestEvaluate_SavingsRateNeedsIncome(t *testing.T) {
	got, _ := NewEvaluator().Evaluate([]domain.Transaction{expense(domain.CategoryHousing, 100)})
	for _, title := range titles(got) {
		if strings.Contains(title, "Savings Rate") {
			t.Errorf("unexpected %q without income", title)
		}
	}
}

func TestEvaluate_HighCategoryEncounterOrder(t *testing.T) {
	txs := []domain.Transaction{
		expense(domain.CategoryShopping, 300),
		expense(domain.CategoryEntertainment, 400),
		expense(domain.CategoryEducation, 200),
		expense(domain.CategoryEducation, 100),
	}

	got, _ := NewEvaluator().Evaluate(txs)

	want := []string{
		"High Shopping Spending",
		"High Entertainment Spending",
		"High Education Spending",
		"Entertainment Budget",
	}
	if !equalStrings(titles(got), want) {
		t.Errorf("titles = %v, want %v", titles(got), want)
	}

	// Reversed encounter order reverses the high-category insights.
	reversed := []domain.Transaction{txs[2], txs[1], txs[0]}
	got, _ = NewEvaluator().Evaluate(reversed)
	if got[0].Title != "High Education Spending" || got[2].Title != "High Shopping Spending" {
		t.Errorf("reversed titles = %v", titles(got))
	}
}

func TestEvaluate_HighCategoryExclusions(t *testing.T) {
	txs := []domain.Transaction{
		expense(domain.CategoryFood, 100),
		expense(domain.CategoryHousing, 100),
		expense(domain.CategoryTransport, 100),
	}

	got, _ := NewEvaluator().Evaluate(txs)
	for _, title := range titles(got) {
		switch title {
		case "High Housing Spending", "High Transportation Spending", "High Food & Dining Spending":
			t.Errorf("excluded category emitted %q", title)
		}
	}
}

func TestEvaluate_FixedExpenses(t *testing.T) {
	txs := []domain.Transaction{
		expense(domain.CategoryHousing, 500),
		expense(domain.CategoryUtilities, 150),
		expense(domain.CategoryTransport, 50),
		expense(domain.CategoryShopping, 100),
	}

	got, _ := NewEvaluator().Evaluate(txs)

	in, ok := findInsight(got, "Fixed Expenses Analysis")
	if !ok {
		t.Fatalf("Fixed Expenses Analysis not emitted, got %v", titles(got))
	}
	if !strings.Contains(in.Message, "700.00") || !strings.Contains(in.Message, "87.5%") {
		t.Errorf("Message = %q", in.Message)
	}
	if got[len(got)-1].Title != "Fixed Expenses Analysis" {
		t.Errorf("Fixed Expenses Analysis is not last: %v", titles(got))
	}
}

func TestEvaluate_BudgetExceeded(t *testing.T) {
	_, alerts := NewEvaluator().Evaluate([]domain.Transaction{expense(domain.CategoryShopping, 250)})

	if len(alerts) != 1 {
		t.Fatalf("alerts = %v, want 1", alertTitles(alerts))
	}
	a := alerts[0]
	if a.Title != "Budget Exceeded: Shopping" {
		t.Errorf("Title = %q", a.Title)
	}
	if a.Type != InsightWarning {
		t.Errorf("Type = %q, want warning", a.Type)
	}
	for _, want := range []string{"25.0%", "250.00", "200"} {
		if !strings.Contains(a.Message, want) {
			t.Errorf("Message %q does not contain %q", a.Message, want)
		}
	}
}

func TestEvaluate_BudgetAlertOrder(t *testing.T) {
	txs := []domain.Transaction{
		expense(domain.CategoryOther, 500),
		expense(domain.CategoryTravel, 250),
		expense(domain.CategoryFood, 900),
	}

	_, alerts := NewEvaluator().Evaluate(txs)

	want := []string{"Budget Exceeded: Food & Dining", "Approaching Travel Budget", "Budget Exceeded: Other"}
	if !equalStrings(alertTitles(alerts), want) {
		t.Errorf("alerts = %v, want %v", alertTitles(alerts), want)
	}
}

func TestEvaluate_BudgetAlertMonotonic(t *testing.T) {
	const (
		none = iota
		approaching
		exceeded
	)
	e := NewEvaluator()
	state := none

	for spent := 0.0; spent <= 300; spent += 2.5 {
		_, alerts := e.Evaluate([]domain.Transaction{expense(domain.CategoryShopping, spent)})

		next := none
		if len(alerts) == 1 {
			switch {
			case strings.HasPrefix(alerts[0].Title, "Budget Exceeded"):
				next = exceeded
			case strings.HasPrefix(alerts[0].Title, "Approaching"):
				next = approaching
			}
		} else if len(alerts) > 1 {
			t.Fatalf("spent %.1f: %d alerts", spent, len(alerts))
		}

		if next < state {
			t.Fatalf("spent %.1f: alert state went from %d back to %d", spent, state, next)
		}
		if next-state > 1 {
			t.Fatalf("spent %.1f: alert state skipped from %d to %d", spent, state, next)
		}
		state = next
	}
	if state != exceeded {
		t.Errorf("final state = %d, want exceeded", state)
	}
}

func TestEvaluate_NaNAmountIsNonFatal(t *testing.T) {
	txs := []domain.Transaction{income(100), expense(domain.CategoryFood, math.NaN())}

	got, alerts := NewEvaluator().Evaluate(txs)
	if got == nil || alerts == nil {
		t.Error("Evaluate returned nil slices for NaN input")
	}
}

func TestFallbackRecommendations(t *testing.T) {
	tests := []struct {
		name string
		txs  []domain.Transaction
		want []string
	}{
		{"empty", nil, []string{}},
		{
			"food and low savings",
			[]domain.Transaction{income(1000), expense(domain.CategoryFood, 500), expense(domain.CategoryHousing, 480)},
			[]string{"Meal Planning", "Savings Goal"},
		},
		{
			"entertainment",
			[]domain.Transaction{expense(domain.CategoryEntertainment, 50), expense(domain.CategoryHousing, 150)},
			[]string{"Entertainment Alternatives"},
		},
		{
			"nothing triggered",
			[]domain.Transaction{income(1000), expense(domain.CategoryHousing, 100)},
			[]string{"Review Budget"},
		},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.FallbackRecommendations(tt.txs)
			gotTitles := make([]string, len(got))
			for i, r := range got {
				gotTitles[i] = r.Title
			}
			if !equalStrings(gotTitles, tt.want) {
				t.Errorf("titles = %v, want %v", gotTitles, tt.want)
			}
		})
	}
}

func TestFallbackRecommendations_MealPlanningSavings(t *testing.T) {
	got := NewEvaluator().FallbackRecommendations([]domain.Transaction{expense(domain.CategoryFood, 400)})
	if len(got) == 0 || got[0].PotentialSavings != "$80/month" {
		t.Errorf("recommendations = %+v, want Meal Planning with $80/month", got)
	}
}

func TestFallbackRecommendations_EntertainmentSavings(t *testing.T) {
	got := NewEvaluator().FallbackRecommendations([]domain.Transaction{
		expense(domain.CategoryEntertainment, 50),
		expense(domain.CategoryHousing, 150),
	})
	if len(got) == 0 || got[0].PotentialSavings != "$10/month potential" {
		t.Errorf("recommendations = %+v, want a fifth of entertainment spend", got)
	}
}
