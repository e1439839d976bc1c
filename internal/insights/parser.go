package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ResultKind tags how an oracle exchange ended.
type ResultKind string

const (
	// ResultOK means the oracle answered with a valid payload.
	ResultOK ResultKind = "ok"
	// ResultMalformed means the oracle answered but the text could not be used.
	ResultMalformed ResultKind = "malformed"
	// ResultUnreachable means the oracle never answered.
	ResultUnreachable ResultKind = "unreachable"
)

// Result is the parser's tagged outcome. Payload is always usable: on Malformed and
// Unreachable it holds the matching fixed fallback.
type Result struct {
	Kind    ResultKind
	Payload Payload
	// Err describes why the payload was rejected; nil on ResultOK.
	Err error
}

// ContentFallback is the payload used when the oracle responded with unusable content.
func ContentFallback() Payload {
	return Payload{
		Insights: []Insight{{
			Type:    InsightInfo,
			Title:   "Analysis Complete",
			Message: "Your financial data has been analyzed. Check back for detailed insights.",
			Icon:    iconBrain,
			Color:   colorBlue,
		}},
		Recommendations: []Recommendation{{
			Title:            "Review Your Budget",
			Description:      "Consider reviewing your spending patterns for optimization opportunities.",
			PotentialSavings: "TBD",
		}},
	}
}

// TransportFallback is the payload used when the oracle could not be reached.
func TransportFallback() Payload {
	return Payload{
		Insights: []Insight{{
			Type:    InsightWarning,
			Title:   "Analysis Error",
			Message: "Unable to generate AI insights at this time. Please try again later.",
			Icon:    iconAlert,
			Color:   colorRed,
		}},
		Recommendations: []Recommendation{},
	}
}

// Unreachable wraps a transport failure into a Result.
func Unreachable(err error) Result {
	return Result{Kind: ResultUnreachable, Payload: TransportFallback(), Err: err}
}

// wirePayload mirrors Payload with pointer slices so missing keys can be told apart
// from empty arrays.
type wirePayload struct {
	Insights        *[]Insight        `json:"insights"`
	Recommendations *[]Recommendation `json:"recommendations"`
}

// ParseResponse converts raw oracle text into a payload. It never fails: any parse or
// validation problem yields the content fallback with ResultMalformed.
func ParseResponse(raw string) Result {
	payload, err := decodePayload(extractJSONObject(raw))
	if err != nil {
		return Result{Kind: ResultMalformed, Payload: ContentFallback(), Err: err}
	}
	return Result{Kind: ResultOK, Payload: payload}
}

// extractJSONObject keeps the span from the first '{' to the last '}' when present,
// which strips prose and Markdown fences the model may add around the object.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

func decodePayload(s string) (Payload, error) {
	if s == "" {
		return Payload{}, errors.New("empty response")
	}

	var wire wirePayload
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return Payload{}, fmt.Errorf("decodePayload: unmarshal: %w", err)
	}
	if wire.Insights == nil {
		return Payload{}, errors.New("decodePayload: missing insights array")
	}
	if wire.Recommendations == nil {
		return Payload{}, errors.New("decodePayload: missing recommendations array")
	}

	for i, in := range *wire.Insights {
		if err := validateInsight(in); err != nil {
			return Payload{}, fmt.Errorf("decodePayload: insight %d: %w", i, err)
		}
	}
	for i, rec := range *wire.Recommendations {
		if strings.TrimSpace(rec.Title) == "" {
			return Payload{}, fmt.Errorf("decodePayload: recommendation %d: missing title", i)
		}
	}

	return Payload{Insights: *wire.Insights, Recommendations: *wire.Recommendations}, nil
}

func validateInsight(in Insight) error {
	switch in.Type {
	case InsightWarning, InsightInfo, InsightSuccess:
	default:
		return fmt.Errorf("unknown type %q", in.Type)
	}
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("missing title")
	}
	return nil
}
