package insights

// InsightType classifies an insight card.
type InsightType string

const (
	InsightWarning InsightType = "warning"
	InsightInfo    InsightType = "info"
	InsightSuccess InsightType = "success"
)

// Presentation tokens. The engine never interprets them.
const (
	iconAlert     = "AlertTriangle"
	iconLightbulb = "Lightbulb"
	iconTrending  = "TrendingUp"
	iconBrain     = "Brain"

	colorRed    = "text-red-600"
	colorYellow = "text-yellow-600"
	colorBlue   = "text-blue-600"
	colorGreen  = "text-green-600"
	colorPurple = "text-purple-600"
)

// Insight is one analysis card. Rule-based and oracle-derived insights share this shape.
type Insight struct {
	Type    InsightType `json:"type"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Icon    string      `json:"icon"`
	Color   string      `json:"color"`
}

// Recommendation is an actionable suggestion. PotentialSavings is free-form ("TBD", "₱120/month").
type Recommendation struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	PotentialSavings string `json:"potentialSavings"`
}

// BudgetAlert reports a category that is over, or close to, its monthly budget.
type BudgetAlert struct {
	Type    InsightType `json:"type"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Icon    string      `json:"icon"`
}

// Payload is the structured shape expected from the oracle.
type Payload struct {
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
}
