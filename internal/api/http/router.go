package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"parkspot-backend/internal/config"
	"parkspot-backend/internal/jobs"
	"parkspot-backend/internal/metrics"
	"parkspot-backend/internal/security"
	"parkspot-backend/internal/service"
)

// RuleRefresher reloads the engine from the rule store on demand.
type RuleRefresher interface {
	RefreshDiscountRulesNow(ctx context.Context) (*jobs.RefreshResult, error)
}

// RuleCounter reports how many rules the engine holds.
type RuleCounter interface {
	Len() int
}

// Deps holds everything the HTTP API serves from.
type Deps struct {
	Quotes    service.QuoteService
	Rules     service.RuleService
	Refresher RuleRefresher
	Registry  RuleCounter
	Tokens    security.TokenManager
	Metrics   *metrics.Metrics
	Formatter *DisplayFormatter
}

type Handler struct {
	quotes    service.QuoteService
	rules     service.RuleService
	refresher RuleRefresher
	registry  RuleCounter
	formatter *DisplayFormatter
}

// NewRouter registers every route by name; the auth middleware looks the
// name up in config.EndpointSecurityConfig.
func NewRouter(d Deps) *mux.Router {
	formatter := d.Formatter
	if formatter == nil {
		formatter = NewDisplayFormatter()
	}
	h := &Handler{
		quotes:    d.Quotes,
		rules:     d.Rules,
		refresher: d.Refresher,
		registry:  d.Registry,
		formatter: formatter,
	}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(NewAuthMiddleware(d.Tokens).Middleware)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name(config.RouteHealth)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet).Name(config.RouteMetrics)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/quotes", h.CreateQuote).Methods(http.MethodPost).Name(config.RouteCreateQuote)

	api.HandleFunc("/rules", h.ListRules).Methods(http.MethodGet).Name(config.RouteListRules)
	api.HandleFunc("/rules", h.CreateRule).Methods(http.MethodPost).Name(config.RouteCreateRule)
	api.HandleFunc("/rules/validate", h.ValidateRule).Methods(http.MethodPost).Name(config.RouteValidateRule)
	api.HandleFunc("/rules/refresh", h.RefreshRules).Methods(http.MethodPost).Name(config.RouteRefreshRules)
	api.HandleFunc("/rules/{id}", h.GetRule).Methods(http.MethodGet).Name(config.RouteGetRule)
	api.HandleFunc("/rules/{id}", h.DeleteRule).Methods(http.MethodDelete).Name(config.RouteDeleteRule)
	api.HandleFunc("/rules/{id}/activate", h.ActivateRule).Methods(http.MethodPost).Name(config.RouteActivateRule)
	api.HandleFunc("/rules/{id}/deactivate", h.DeactivateRule).Methods(http.MethodPost).Name(config.RouteDeactivateRule)
	api.HandleFunc("/rules/{id}/percentage", h.UpdatePercentage).Methods(http.MethodPut).Name(config.RouteUpdatePercentage)
	api.HandleFunc("/rules/{id}/vat-exemption", h.UpdateVATExemption).Methods(http.MethodPut).Name(config.RouteUpdateVATExempt)
	api.HandleFunc("/rules/{id}/conditions", h.AddCondition).Methods(http.MethodPost).Name(config.RouteAddCondition)
	api.HandleFunc("/rules/{id}/conditions/{index:[0-9]+}", h.RemoveCondition).Methods(http.MethodDelete).Name(config.RouteRemoveCondition)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	loaded := 0
	if h.registry != nil {
		loaded = h.registry.Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rules_loaded": loaded})
}
