// Package handlers contains the HTTP handler implementations for the
// CropGuard API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cropguard/internal/advisor"
	"cropguard/internal/core"
	"cropguard/internal/types"
)

// FarmGetter resolves a farm by ID. Defined locally to keep the handler
// decoupled from the repository package.
type FarmGetter interface {
	Get(ctx context.Context, farmID string) (*types.Farm, error)
}

// AdvisorService is the slice of the advisory service the handler needs.
type AdvisorService interface {
	Recommend(ctx context.Context, farm types.Farm) (advisor.Inputs, []types.Recommendation)
}

// StatusAggregator derives and records advisory notification state.
type StatusAggregator interface {
	Status(ctx context.Context, farmID string, recs []types.Recommendation, pest *types.PestReport) (types.AdvisorStatus, error)
	Dismiss(ctx context.Context, farmID, ruleID string, now types.Clock) error
}

// AdvisorHandler maps HTTP requests to the advisory engine.
type AdvisorHandler struct {
	farms     FarmGetter
	service   AdvisorService
	agg       StatusAggregator
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewAdvisorHandler creates an AdvisorHandler with the provided dependencies.
func NewAdvisorHandler(
	farms FarmGetter,
	service AdvisorService,
	agg StatusAggregator,
	clock types.Clock,
	validator *core.Validator,
	logger *slog.Logger,
) *AdvisorHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisorHandler{
		farms:     farms,
		service:   service,
		agg:       agg,
		clock:     clock,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the advisor endpoints onto the v1 router.
func (h *AdvisorHandler) RegisterRoutes(r chi.Router) {
	r.Route("/farms/{farmID}/advisor", func(r chi.Router) {
		r.Get("/recommendations", h.HandleGetRecommendations)
		r.Get("/status", h.HandleGetStatus)
		r.Post("/dismissals", h.HandleDismiss)
	})
}

// recommendationsResponse is the payload for GET recommendations. Weather is
// the classified current conditions, nil when the forecast upstream was
// unavailable.
type recommendationsResponse struct {
	Recommendations []types.Recommendation `json:"recommendations"`
	Weather         *weatherSummary        `json:"weather,omitempty"`
}

type weatherSummary struct {
	Temperature float64               `json:"temperature"`
	Humidity    float64               `json:"humidity"`
	WeatherCode int                   `json:"weather_code"`
	Category    types.WeatherCategory `json:"category"`
	Description string                `json:"description"`
	Daily       *types.DailyForecast  `json:"daily,omitempty"`
}

// HandleGetRecommendations handles GET /v1/farms/{farmID}/advisor/recommendations.
// Runs a fresh evaluation and returns the recommendations most-urgent-first.
func (h *AdvisorHandler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	in, recs := h.service.Recommend(r.Context(), *farm)

	resp := recommendationsResponse{
		Recommendations: advisor.SortByUrgency(recs),
	}
	if in.Weather != nil {
		info := advisor.Classify(in.Weather.Current.WeatherCode)
		resp.Weather = &weatherSummary{
			Temperature: in.Weather.Current.Temperature,
			Humidity:    in.Weather.Current.Humidity,
			WeatherCode: in.Weather.Current.WeatherCode,
			Category:    info.Category,
			Description: info.Description,
			Daily:       &in.Weather.Daily,
		}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}

// HandleGetStatus handles GET /v1/farms/{farmID}/advisor/status. Returns the
// aggregated notification state for the farm's latest evaluation.
func (h *AdvisorHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	in, recs := h.service.Recommend(r.Context(), *farm)

	status, err := h.agg.Status(r.Context(), farm.ID, recs, in.Pest)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: status})
}

// dismissRequest is the body for POST dismissals.
type dismissRequest struct {
	RuleID string `json:"rule_id" validate:"required"`
}

// HandleDismiss handles POST /v1/farms/{farmID}/advisor/dismissals. Records
// a dismissal timestamp so the current advisory stops surfacing until a
// newer pest report arrives.
func (h *AdvisorHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req dismissRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.agg.Dismiss(r.Context(), farm.ID, req.RuleID, h.clock); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("advisory dismissed", "farm_id", farm.ID, "rule_id", req.RuleID)
	w.WriteHeader(http.StatusNoContent)
}
