package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/metrics"
	"github.com/segyhp/lending-ledger/pkg/response"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Loans    *LoanHandler
	Expenses *ExpenseHandler
	Payments *PaymentHandler
	Health   *HealthHandler
	Metrics  *metrics.HTTP // optional
}

// NewRouter mounts the API under /api/v1 and the probes under /health.
func NewRouter(h Handlers, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))
	if h.Metrics != nil {
		router.Use(h.Metrics.Middleware)
		router.Handle("/metrics", h.Metrics.Handler()).Methods(http.MethodGet)
	}

	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.JSONMiddleware)

	api.HandleFunc("/simulations", h.Loans.Simulate).Methods(http.MethodPost)

	api.HandleFunc("/loans", h.Loans.Create).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.Loans.List).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", h.Loans.Get).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", h.Loans.Update).Methods(http.MethodPatch)
	api.HandleFunc("/loans/{loanId}", h.Loans.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/loans/{loanId}/cancel", h.Loans.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/schedule/export", h.Loans.ExportSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/audit", h.Loans.Audit).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/recalculation/preview", h.Loans.PreviewRecalculation).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/recalculation/commit", h.Loans.CommitRecalculation).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/deletion/preview", h.Loans.PreviewDeletion).Methods(http.MethodGet)

	api.HandleFunc("/loans/{loanId}/expenses", h.Expenses.Attach).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{expenseId}", h.Expenses.Update).Methods(http.MethodPatch)
	api.HandleFunc("/expenses/{expenseId}", h.Expenses.Remove).Methods(http.MethodDelete)

	api.HandleFunc("/installments/overdue", h.Loans.Overdue).Methods(http.MethodGet)
	api.HandleFunc("/installments/{installmentId}/payments", h.Payments.Pay).Methods(http.MethodPost)

	return router
}
