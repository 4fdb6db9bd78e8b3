package handler

import (
	"log/slog"
	"net/http"

	"github.com/segyhp/pawn-ledger/internal/service"
	"github.com/segyhp/pawn-ledger/pkg/metrics"
	"github.com/segyhp/pawn-ledger/pkg/response"

	"github.com/gorilla/mux"
)

// NewRouter wires every endpoint onto a mux router behind the CORS and
// logging middleware. collector may be nil, in which case /metrics is not
// served.
func NewRouter(ledger service.Ledger, health *HealthHandler, collector *metrics.Collector, logger *slog.Logger) http.Handler {
	contracts := NewContractHandler(ledger, logger)
	customers := NewCustomerHandler(ledger)
	dashboard := NewDashboardHandler(ledger)
	advisory := NewAdvisoryHandler(ledger)

	router := mux.NewRouter()

	var observe func(method string, code int)
	if collector != nil {
		observe = collector.RecordHTTPRequest
		router.Handle("/metrics", collector.GetHandler()).Methods(http.MethodGet)
	}

	// Health check
	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/contracts", contracts.Create).Methods(http.MethodPost)
	api.HandleFunc("/contracts", contracts.List).Methods(http.MethodGet)
	api.HandleFunc("/contracts/{id}", contracts.Get).Methods(http.MethodGet)
	api.HandleFunc("/contracts/{id}", contracts.Edit).Methods(http.MethodPatch)
	api.HandleFunc("/contracts/{id}/renew", contracts.Renew).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{id}/redeem", contracts.Redeem).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{id}/adjust-principal", contracts.AdjustPrincipal).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{id}/cancel", contracts.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{id}/forfeit", contracts.Forfeit).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{id}/statement", contracts.Statement).Methods(http.MethodGet)

	api.HandleFunc("/customers", customers.Create).Methods(http.MethodPost)
	api.HandleFunc("/customers", customers.List).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}", customers.Get).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}/contracts", customers.Contracts).Methods(http.MethodGet)

	api.HandleFunc("/summary", dashboard.Summary).Methods(http.MethodGet)
	api.HandleFunc("/settings/defaults", dashboard.Defaults).Methods(http.MethodGet)

	api.HandleFunc("/advisory/valuation", advisory.Valuation).Methods(http.MethodPost)
	api.HandleFunc("/advisory/image", advisory.Image).Methods(http.MethodPost)

	return response.CORSMiddleware(response.LoggingMiddleware(logger, observe)(router))
}
