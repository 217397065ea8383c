package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cropguard/internal/core"
	"cropguard/internal/types"
)

// ReadingStore is the slice of the sensor reading repository the handler
// needs.
type ReadingStore interface {
	Latest(ctx context.Context, farmID string) (*types.SensorSnapshot, error)
	Insert(ctx context.Context, farmID string, s *types.SensorSnapshot) error
}

// SensorThresholds evaluates a snapshot against the sensor alert rules,
// returning the number of alerts created.
type SensorThresholds interface {
	Evaluate(ctx context.Context, farmID string, s *types.SensorSnapshot) int
}

// ReadingHandler ingests sensor readings and serves the latest snapshot.
// Ingestion evaluates the sensor thresholds inline so a breach alerts on
// arrival rather than waiting for the next poller cycle.
type ReadingHandler struct {
	farms      FarmGetter
	readings   ReadingStore
	thresholds SensorThresholds
	clock      types.Clock
	validator  *core.Validator
	logger     *slog.Logger
}

// NewReadingHandler creates a ReadingHandler with the provided dependencies.
func NewReadingHandler(
	farms FarmGetter,
	readings ReadingStore,
	thresholds SensorThresholds,
	clock types.Clock,
	validator *core.Validator,
	logger *slog.Logger,
) *ReadingHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingHandler{
		farms:      farms,
		readings:   readings,
		thresholds: thresholds,
		clock:      clock,
		validator:  validator,
		logger:     logger,
	}
}

// RegisterRoutes mounts the reading endpoints onto the v1 router.
func (h *ReadingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/farms/{farmID}/readings", h.HandleIngest)
	r.Get("/farms/{farmID}/readings/latest", h.HandleGetLatest)
}

// readingRequest is the body for POST readings. Every metric is optional;
// farms report only the sensors they have.
type readingRequest struct {
	Temperature    *float64   `json:"temperature" validate:"omitempty,gte=-50,lte=60"`
	Humidity       *float64   `json:"humidity" validate:"omitempty,gte=0,lte=100"`
	SoilMoisture   *float64   `json:"soil_moisture" validate:"omitempty,gte=0,lte=100"`
	LightIntensity *float64   `json:"light_intensity" validate:"omitempty,gte=0"`
	RecordedAt     *time.Time `json:"recorded_at"`
}

// ingestResponse reports how many alerts the inline threshold evaluation
// created for this reading.
type ingestResponse struct {
	AlertsCreated int `json:"alerts_created"`
}

// HandleIngest handles POST /v1/farms/{farmID}/readings.
func (h *ReadingHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req readingRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.Temperature == nil && req.Humidity == nil && req.SoilMoisture == nil && req.LightIntensity == nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"at least one sensor metric is required",
			nil,
		))
		return
	}

	snapshot := &types.SensorSnapshot{
		Temperature:    req.Temperature,
		Humidity:       req.Humidity,
		SoilMoisture:   req.SoilMoisture,
		LightIntensity: req.LightIntensity,
		RecordedAt:     h.clock.Now(),
	}
	if req.RecordedAt != nil {
		snapshot.RecordedAt = req.RecordedAt.UTC()
	}

	if err := h.readings.Insert(r.Context(), farm.ID, snapshot); err != nil {
		core.Error(w, r, err)
		return
	}

	created := h.thresholds.Evaluate(r.Context(), farm.ID, snapshot)

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: ingestResponse{AlertsCreated: created}})
}

// HandleGetLatest handles GET /v1/farms/{farmID}/readings/latest. Returns
// 200 with a null body when the farm has no readings yet.
func (h *ReadingHandler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	snapshot, err := h.readings.Latest(r.Context(), farm.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: snapshot})
}
