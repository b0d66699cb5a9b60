package handlers

import (
	"context"
	"net/http"

	"github.com/you/transit-analytics/models"
)

// ReportService defines the aggregate report operations
type ReportService interface {
	BusiestStops(ctx context.Context, scope models.ServiceScope, limit models.Limit) ([]models.BusiestStop, error)
	RouteDurations(ctx context.Context, scope models.ServiceScope, limit models.Limit) (models.DurationReport, error)
	TransferPoints(ctx context.Context, scope models.ServiceScope, limit models.Limit) ([]models.TransferPoint, error)
	HourlyFrequency(ctx context.Context, scope models.ServiceScope, limit models.Limit) (models.FrequencyReport, error)
}

// ReportHandler handles HTTP requests for the four aggregate reports
type ReportHandler struct {
	reports ReportService
}

// NewReportHandler creates a new handler with the given report service
func NewReportHandler(reports ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// reportParams reads service_id and limit. Neither ever fails: unknown
// filters mean every calendar and bad limits fall back to the default.
func reportParams(r *http.Request) (models.ServiceScope, models.Limit) {
	q := r.URL.Query()
	return models.ParseServiceScope(q.Get("service_id")), models.ParseLimit(q.Get("limit"))
}

// BusiestStops handles GET /api/q1
func (h *ReportHandler) BusiestStops(w http.ResponseWriter, r *http.Request) {
	scope, limit := reportParams(r)
	items, err := h.reports.BusiestStops(r.Context(), scope, limit)
	if err != nil {
		writeInternalError(w, r, "Failed to compute busiest stops", err)
		return
	}
	writeJSON(w, http.StatusOK, models.ItemsResponse[models.BusiestStop]{Items: items})
}

// RouteDurations handles GET /api/q2
func (h *ReportHandler) RouteDurations(w http.ResponseWriter, r *http.Request) {
	scope, limit := reportParams(r)
	report, err := h.reports.RouteDurations(r.Context(), scope, limit)
	if err != nil {
		writeInternalError(w, r, "Failed to compute trip durations", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// TransferPoints handles GET /api/q3
func (h *ReportHandler) TransferPoints(w http.ResponseWriter, r *http.Request) {
	scope, limit := reportParams(r)
	items, err := h.reports.TransferPoints(r.Context(), scope, limit)
	if err != nil {
		writeInternalError(w, r, "Failed to compute transfer points", err)
		return
	}
	writeJSON(w, http.StatusOK, models.ItemsResponse[models.TransferPoint]{Items: items})
}

// HourlyFrequency handles GET /api/q4
func (h *ReportHandler) HourlyFrequency(w http.ResponseWriter, r *http.Request) {
	scope, limit := reportParams(r)
	report, err := h.reports.HourlyFrequency(r.Context(), scope, limit)
	if err != nil {
		writeInternalError(w, r, "Failed to compute hourly frequency", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
