package insights

// RecommendationSource says where the presented recommendations came from.
type RecommendationSource string

const (
	SourceOracle RecommendationSource = "oracle"
	SourceLocal  RecommendationSource = "local"
)

// Report is the presentation-ready result of one analysis pass.
type Report struct {
	Insights             []Insight            `json:"insights"`
	Recommendations      []Recommendation     `json:"recommendations"`
	BudgetAlerts         []BudgetAlert        `json:"budgetAlerts"`
	RecommendationSource RecommendationSource `json:"recommendationSource"`
	OracleStatus         ResultKind           `json:"oracleStatus"`
}

// Aggregate merges rule insights with the oracle result. Rule insights come first and
// neither list is re-sorted or de-duplicated. Recommendations are either the oracle's
// (when non-empty) or the local fallback set, never a mix. Alerts pass through untouched.
func Aggregate(rule []Insight, alerts []BudgetAlert, parsed Result, local []Recommendation) Report {
	merged := make([]Insight, 0, len(rule)+len(parsed.Payload.Insights))
	merged = append(merged, rule...)
	merged = append(merged, parsed.Payload.Insights...)

	r := Report{
		Insights:     merged,
		BudgetAlerts: alerts,
		OracleStatus: parsed.Kind,
	}
	if r.BudgetAlerts == nil {
		r.BudgetAlerts = []BudgetAlert{}
	}

	if len(parsed.Payload.Recommendations) > 0 {
		r.Recommendations = parsed.Payload.Recommendations
		r.RecommendationSource = SourceOracle
	} else {
		r.Recommendations = local
		r.RecommendationSource = SourceLocal
		if r.Recommendations == nil {
			r.Recommendations = []Recommendation{}
		}
	}
	return r
}
