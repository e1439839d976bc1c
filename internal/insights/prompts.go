package insights

import (
	"fmt"
	"strings"

	"github.com/budgetai/insights/internal/domain"
)

const insightsSystemPrompt = `You are an AI financial analyst for BudgetAI. Analyze the user's transaction data and provide 3-5 personalized financial insights and recommendations.
Focus on spending patterns, savings opportunities, budget optimization, and financial health.
IMPORTANT: Base ALL calculations, amounts, and numbers strictly on the provided transaction data. Do not invent, estimate, or approximate numbers. Use only the exact figures from the user's data.
Return insights in JSON format with this structure:
{
  "insights": [
    {
      "type": "warning|info|success",
      "title": "Brief title",
      "message": "Detailed explanation with specific numbers from the user's actual data",
      "icon": "AlertTriangle|Lightbulb|TrendingUp|Brain",
      "color": "text-red-600|text-blue-600|text-green-600|text-purple-600"
    }
  ],
  "recommendations": [
    {
      "title": "Recommendation title",
      "description": "Detailed recommendation based on actual spending patterns",
      "potentialSavings": "Estimated monthly savings based on real data if applicable"
    }
  ]
}
Always include a disclaimer that this is not professional financial advice.
Make insights specific to the user's actual data, not generic.`

const chatSystemPrompt = `You are a helpful AI financial assistant for the BudgetAI System. Analyze the user's transaction data and provide personalized, accurate financial advice.
You can also help users view, understand, and discuss their financial records and activities within the system.
Always include a disclaimer: "This is not professional financial advice. Consult a qualified advisor for personalized recommendations."
Answer any questions about finances, budgeting, spending, or the user's financial records and activities.`

const (
	insightsTemperature = 0.7
	insightsMaxTokens   = 1500
	chatTemperature     = 0.7
	chatMaxTokens       = 1000
)

func insightsUserPrompt(txs []domain.Transaction, sampleSize int) string {
	return "Analyze my financial data and provide insights:\n" + BuildContext(txs, sampleSize)
}

// chatUserPrompt carries a lighter context than the insights prompt: totals and the
// top categories only, followed by the question.
func chatUserPrompt(txs []domain.Transaction, question string) string {
	s := Summarize(txs)
	top := s.Categories
	if len(top) > 5 {
		top = top[:5]
	}

	var b strings.Builder
	b.WriteString("User transaction data:\n")
	fmt.Fprintf(&b, "- Total income: $%.2f\n", s.TotalIncome)
	fmt.Fprintf(&b, "- Total expenses: $%.2f\n", s.TotalExpenses)
	fmt.Fprintf(&b, "- Number of expense transactions: %d\n", s.ExpenseCount)
	fmt.Fprintf(&b, "- Top categories: %s\n", formatCategories(top))
	fmt.Fprintf(&b, "\nUser question: %s", question)
	return b.String()
}
