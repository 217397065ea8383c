package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cropguard/internal/core"
	"cropguard/internal/types"
)

// defaultMarketListLimit bounds an unqualified market price listing.
const defaultMarketListLimit = 50

// MarketStore is the slice of the market repository the handler needs.
type MarketStore interface {
	Recent(ctx context.Context, limit int) ([]types.MarketSample, error)
	Insert(ctx context.Context, s *types.MarketSample) error
}

// MarketHandler ingests community price submissions and serves the recent
// samples the trend rule consumes.
type MarketHandler struct {
	market    MarketStore
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the provided dependencies.
func NewMarketHandler(market MarketStore, clock types.Clock, validator *core.Validator, logger *slog.Logger) *MarketHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketHandler{market: market, clock: clock, validator: validator, logger: logger}
}

// RegisterRoutes mounts the market endpoints onto the v1 router.
func (h *MarketHandler) RegisterRoutes(r chi.Router) {
	r.Route("/market/prices", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Get("/", h.HandleListRecent)
	})
}

// priceRequest is the body for POST market prices.
type priceRequest struct {
	CropName   string  `json:"crop_name" validate:"required,max=100"`
	PricePerKg float64 `json:"price_per_kg" validate:"required,gt=0"`
}

// HandleSubmit handles POST /v1/market/prices.
func (h *MarketHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	sample := &types.MarketSample{
		CropName:   req.CropName,
		PricePerKg: req.PricePerKg,
		CreatedAt:  h.clock.Now().UTC(),
	}
	if err := h.market.Insert(r.Context(), sample); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: sample})
}

// HandleListRecent handles GET /v1/market/prices.
// Query params: limit (optional, default 50).
func (h *MarketHandler) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultMarketListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationOutOfRange,
				"limit must be a positive integer",
				nil,
			))
			return
		}
		limit = parsed
	}

	samples, err := h.market.Recent(r.Context(), limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if samples == nil {
		samples = []types.MarketSample{}
	}

	// Prices age quickly but not instantly; let clients cache briefly.
	w.Header().Set("Cache-Control", "private, max-age=60")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: samples})
}
