package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/api/handlers"
	"github.com/budgetai/insights/internal/api/middleware"
	"github.com/budgetai/insights/internal/insights"
	"github.com/budgetai/insights/internal/jobs"
	"github.com/budgetai/insights/internal/money"
	"github.com/budgetai/insights/internal/store"
	"github.com/budgetai/insights/internal/verification"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Store        store.TransactionStore
	Engine       *insights.Engine
	Converter    money.Converter
	Publisher    jobs.Publisher
	JobStore     jobs.JobStore
	Codes        *verification.Codes
	JWTSecret    []byte
	ImportBucket string
	Log          zerolog.Logger
}

// NewRouter wires every route. Routes under /api other than verification
// require a bearer token.
func NewRouter(d Deps) *chi.Mux {
	transactionsHandler := handlers.NewTransactionsHandler(d.Store, d.Log)
	insightsHandler := handlers.NewInsightsHandler(d.Engine, d.Store, d.Converter, d.Log)
	importsHandler := handlers.NewImportsHandler(d.Publisher, d.ImportBucket, d.Log)
	jobsHandler := handlers.NewJobsHandler(d.JobStore, d.Log)
	verificationHandler := handlers.NewVerificationHandler(d.Codes, d.JWTSecret, d.Log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/verification/request", verificationHandler.RequestCode)
		r.Post("/verification/confirm", verificationHandler.ConfirmCode)

		// Protected routes
		r.With(middleware.Auth(d.JWTSecret)).Group(func(r chi.Router) {
			r.Get("/transactions", transactionsHandler.ListTransactions)
			r.Post("/transactions", transactionsHandler.CreateTransaction)
			r.Put("/transactions/{id}", transactionsHandler.UpdateTransaction)
			r.Delete("/transactions/{id}", transactionsHandler.DeleteTransaction)
			r.Get("/categories", handlers.ListCategories)

			r.Get("/insights", insightsHandler.GetInsights)
			r.Post("/insights", insightsHandler.PostInsights)
			r.Get("/budget-alerts", insightsHandler.GetBudgetAlerts)
			r.Post("/chat", insightsHandler.Chat)
			r.Get("/dashboard", insightsHandler.GetDashboard)

			r.Post("/imports", importsHandler.EnqueueImport)
			r.Get("/jobs", jobsHandler.ListJobs)
			r.Get("/jobs/{id}", jobsHandler.GetJob)
		})
	})

	return r
}
