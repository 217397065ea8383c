package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cropguard/internal/core"
	"cropguard/internal/types"
)

// FarmStore is the slice of the farm repository the handler needs.
type FarmStore interface {
	Get(ctx context.Context, farmID string) (*types.Farm, error)
	ListAll(ctx context.Context) ([]types.Farm, error)
	Create(ctx context.Context, f *types.Farm) error
}

// ContactRecorder logs an agronomist contact for a farm.
type ContactRecorder interface {
	Record(ctx context.Context, farmID string, at time.Time) error
}

// FarmHandler manages farm registration and the agronomist contact log.
type FarmHandler struct {
	farms     FarmStore
	contacts  ContactRecorder
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewFarmHandler creates a FarmHandler with the provided dependencies.
func NewFarmHandler(farms FarmStore, contacts ContactRecorder, clock types.Clock, validator *core.Validator, logger *slog.Logger) *FarmHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FarmHandler{farms: farms, contacts: contacts, clock: clock, validator: validator, logger: logger}
}

// RegisterRoutes mounts the farm endpoints onto the v1 router.
func (h *FarmHandler) RegisterRoutes(r chi.Router) {
	r.Post("/farms", h.HandleCreate)
	r.Get("/farms", h.HandleList)
	r.Get("/farms/{farmID}", h.HandleGet)
	r.Post("/farms/{farmID}/agronomist-contacts", h.HandleRecordContact)
}

// farmRequest is the body for POST farms.
type farmRequest struct {
	OwnerID string  `json:"owner_id" validate:"required,uuid4"`
	Name    string  `json:"name" validate:"required,max=200"`
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// HandleCreate handles POST /v1/farms.
func (h *FarmHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req farmRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	farm := &types.Farm{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		Name:      req.Name,
		Lat:       req.Lat,
		Lon:       req.Lon,
		CreatedAt: h.clock.Now(),
	}
	if err := h.farms.Create(r.Context(), farm); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("farm registered", "farm_id", farm.ID, "name", farm.Name)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: farm})
}

// HandleList handles GET /v1/farms.
func (h *FarmHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	farms, err := h.farms.ListAll(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if farms == nil {
		farms = []types.Farm{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: farms})
}

// HandleGet handles GET /v1/farms/{farmID}.
func (h *FarmHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: farm})
}

// HandleRecordContact handles POST /v1/farms/{farmID}/agronomist-contacts.
// Called when the user reaches out to an expert about the current advisory;
// the status aggregator reports this context alongside the urgent flag.
func (h *FarmHandler) HandleRecordContact(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.contacts.Record(r.Context(), farm.ID, h.clock.Now()); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("agronomist contact recorded", "farm_id", farm.ID)
	w.WriteHeader(http.StatusNoContent)
}
