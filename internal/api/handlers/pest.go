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

// PestStore is the slice of the pest report repository the handler needs.
type PestStore interface {
	Latest(ctx context.Context, farmID string) (*types.PestReport, error)
	Insert(ctx context.Context, farmID string, p *types.PestReport) error
}

// PestHandler ingests pest detection results from the analysis pipeline and
// serves the latest report.
type PestHandler struct {
	farms     FarmGetter
	pests     PestStore
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewPestHandler creates a PestHandler with the provided dependencies.
func NewPestHandler(farms FarmGetter, pests PestStore, clock types.Clock, validator *core.Validator, logger *slog.Logger) *PestHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PestHandler{farms: farms, pests: pests, clock: clock, validator: validator, logger: logger}
}

// RegisterRoutes mounts the pest report endpoints onto the v1 router.
func (h *PestHandler) RegisterRoutes(r chi.Router) {
	r.Post("/farms/{farmID}/pest-reports", h.HandleIngest)
	r.Get("/farms/{farmID}/pest-reports/latest", h.HandleGetLatest)
}

// pestReportRequest is the body for POST pest-reports. The level and score
// are optional: the detection pipeline emits partial results while a scan is
// still refining.
type pestReportRequest struct {
	InfestationLevel *string    `json:"infestation_level" validate:"omitempty,oneof=none low moderate medium high critical"`
	ConfidenceScore  *float64   `json:"confidence_score" validate:"omitempty,gte=0,lte=1"`
	AnalyzedAt       *time.Time `json:"analyzed_at"`
}

// HandleIngest handles POST /v1/farms/{farmID}/pest-reports.
func (h *PestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req pestReportRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	report := &types.PestReport{
		ConfidenceScore: req.ConfidenceScore,
		AnalyzedAt:      h.clock.Now().UTC(),
	}
	if req.InfestationLevel != nil {
		level := types.InfestationLevel(*req.InfestationLevel)
		report.InfestationLevel = &level
	}
	if req.AnalyzedAt != nil {
		report.AnalyzedAt = req.AnalyzedAt.UTC()
	}

	if err := h.pests.Insert(r.Context(), farm.ID, report); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("pest report ingested",
		"farm_id", farm.ID,
		"analyzed_at", report.AnalyzedAt,
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: report})
}

// HandleGetLatest handles GET /v1/farms/{farmID}/pest-reports/latest.
// Returns 200 with a null body when the farm has no reports yet.
func (h *PestHandler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	report, err := h.pests.Latest(r.Context(), farm.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: report})
}
