package insights

import (
	"reflect"
	"testing"
)

func TestAggregate(t *testing.T) {
	rule := []Insight{
		{Type: InsightWarning, Title: "High Food Spending"},
		{Type: InsightSuccess, Title: "Great Savings Rate!"},
	}
	alerts := []BudgetAlert{{Type: InsightWarning, Title: "Budget Exceeded: Shopping"}}
	local := []Recommendation{{Title: "Meal Planning"}}

	t.Run("oracle recommendations win", func(t *testing.T) {
		parsed := Result{Kind: ResultOK, Payload: Payload{
			Insights:        []Insight{{Type: InsightInfo, Title: "High Food Spending"}},
			Recommendations: []Recommendation{{Title: "Cook at home"}},
		}}

		got := Aggregate(rule, alerts, parsed, local)

		wantTitles := []string{"High Food Spending", "Great Savings Rate!", "High Food Spending"}
		if !equalStrings(titles(got.Insights), wantTitles) {
			t.Errorf("insights = %v, want %v", titles(got.Insights), wantTitles)
		}
		if len(got.Recommendations) != 1 || got.Recommendations[0].Title != "Cook at home" {
			t.Errorf("recommendations = %+v", got.Recommendations)
		}
		if got.RecommendationSource != SourceOracle {
			t.Errorf("source = %q, want oracle", got.RecommendationSource)
		}
		if !reflect.DeepEqual(got.BudgetAlerts, alerts) {
			t.Errorf("alerts = %+v", got.BudgetAlerts)
		}
		if got.OracleStatus != ResultOK {
			t.Errorf("status = %q", got.OracleStatus)
		}
	})

	t.Run("empty oracle recommendations use local set", func(t *testing.T) {
		got := Aggregate(rule, alerts, Unreachable(nil), local)

		if len(got.Insights) != 3 || got.Insights[2].Title != "Analysis Error" {
			t.Errorf("insights = %v", titles(got.Insights))
		}
		if !reflect.DeepEqual(got.Recommendations, local) {
			t.Errorf("recommendations = %+v, want local", got.Recommendations)
		}
		if got.RecommendationSource != SourceLocal {
			t.Errorf("source = %q, want local", got.RecommendationSource)
		}
	})

	t.Run("nil inputs give empty lists", func(t *testing.T) {
		got := Aggregate(nil, nil, Result{Kind: ResultOK}, nil)

		if got.Insights == nil || got.Recommendations == nil || got.BudgetAlerts == nil {
			t.Errorf("report has nil lists: %#v", got)
		}
	})

	t.Run("rule input is not modified", func(t *testing.T) {
		before := append([]Insight(nil), rule...)
		Aggregate(rule, alerts, ParseResponse("nope"), local)
		if !reflect.DeepEqual(rule, before) {
			t.Error("Aggregate modified its rule input")
		}
	})
}
