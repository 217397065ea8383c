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

// defaultAlertListLimit bounds an unqualified alert listing.
const defaultAlertListLimit = 100

// AlertStore is the slice of the alert repository the handler needs.
type AlertStore interface {
	List(ctx context.Context, farmID string, unreadOnly bool, limit int) ([]types.Alert, error)
	MarkRead(ctx context.Context, alertID string) error
}

// AlertHandler maps HTTP requests to alert reads and acknowledgements.
// Alerts are only ever created by the threshold evaluators; the API exposes
// listing and mark-read.
type AlertHandler struct {
	farms  FarmGetter
	alerts AlertStore
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler with the provided dependencies.
func NewAlertHandler(farms FarmGetter, alerts AlertStore, logger *slog.Logger) *AlertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHandler{farms: farms, alerts: alerts, logger: logger}
}

// RegisterRoutes mounts the alert endpoints onto the v1 router.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Get("/farms/{farmID}/alerts", h.HandleList)
	r.Post("/alerts/{alertID}/read", h.HandleMarkRead)
}

// HandleList handles GET /v1/farms/{farmID}/alerts.
// Query params: unread (optional bool), limit (optional, default 100).
func (h *AlertHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	farm, err := h.farms.Get(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	q := r.URL.Query()

	unreadOnly := false
	if v := q.Get("unread"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidBody,
				"unread must be a boolean",
				nil,
			))
			return
		}
		unreadOnly = parsed
	}

	limit := defaultAlertListLimit
	if v := q.Get("limit"); v != "" {
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

	alerts, err := h.alerts.List(r.Context(), farm.ID, unreadOnly, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []types.Alert{}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: alerts})
}

// HandleMarkRead handles POST /v1/alerts/{alertID}/read. Flags one alert as
// read; returns 404 when the alert does not exist.
func (h *AlertHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	if err := h.alerts.MarkRead(r.Context(), alertID); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("alert marked read", "alert_id", alertID)
	w.WriteHeader(http.StatusNoContent)
}
