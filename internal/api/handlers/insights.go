package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/api/middleware"
	"github.com/budgetai/insights/internal/domain"
	"github.com/budgetai/insights/internal/insights"
	"github.com/budgetai/insights/internal/money"
)

// InsightsHandler serves analysis, alert, chat and dashboard endpoints.
type InsightsHandler struct {
	engine *insights.Engine
	store  insights.TransactionLister
	conv   money.Converter
	log    zerolog.Logger
	now    func() time.Time
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(engine *insights.Engine, s insights.TransactionLister, conv money.Converter, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{
		engine: engine,
		store:  s,
		conv:   conv,
		log:    log,
		now:    time.Now,
	}
}

// GetInsights handles GET /api/insights. It analyzes the stored snapshot.
func (h *InsightsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := middleware.UserIDFromContext(ctx)

	report, err := h.engine.Analyze(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to analyze transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// PostInsights handles POST /api/insights with a caller-supplied snapshot.
// Every entry is normalized and validated; the first invalid one answers 400.
// Oracle failures still answer 200 with fallback content.
func (h *InsightsHandler) PostInsights(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions *[]domain.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Transactions == nil {
		middleware.WriteError(w, http.StatusBadRequest, "Transactions data is required")
		return
	}

	txs := *req.Transactions
	now := h.now().UTC()
	for i := range txs {
		txs[i].Normalize(now)
		if err := txs[i].Validate(); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("transactions[%d]: %v", i, err))
			return
		}
	}

	report := h.engine.AnalyzeTransactions(r.Context(), txs)
	middleware.WriteJSON(w, http.StatusOK, report)
}

// GetBudgetAlerts handles GET /api/budget-alerts
func (h *InsightsHandler) GetBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := middleware.UserIDFromContext(ctx)

	alerts, err := h.engine.Alerts(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to evaluate budget alerts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgetAlerts": alerts,
		"count":        len(alerts),
	})
}

// Chat handles POST /api/chat. Only an unparsable body is rejected; every
// other outcome is a 200 with a reply.
func (h *InsightsHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := middleware.UserIDFromContext(ctx)

	var req struct {
		Message      string                `json:"message"`
		Transactions *[]domain.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"response": "Invalid request format."})
		return
	}

	var reply string
	if req.Transactions != nil {
		txs := *req.Transactions
		now := h.now().UTC()
		for i := range txs {
			txs[i].Normalize(now)
		}
		reply = h.engine.Chat(ctx, txs, req.Message)
	} else {
		reply = h.engine.ChatForUser(ctx, userID, req.Message)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// GetDashboard handles GET /api/dashboard
func (h *InsightsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := middleware.UserIDFromContext(ctx)

	txs, err := h.store.List(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, insights.BuildDashboard(txs, h.conv))
}
