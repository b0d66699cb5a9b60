package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/you/transit-analytics/models"
)

// TimetableService defines the per-stop timetable queries
type TimetableService interface {
	Stops(ctx context.Context) ([]models.StopSummary, error)
	Timetable(ctx context.Context, stopID string) (models.GroupedTimetable, error)
	RoutesForStop(ctx context.Context, stopID string, scope models.ServiceScope) ([]models.RoutePair, error)
	ArrivalsFor(ctx context.Context, q models.ArrivalsQuery) (models.ArrivalTimes, error)
	GroupedArrivals(ctx context.Context, q models.ArrivalsQuery) (*models.GroupedArrivals, error)
}

// TimetableHandler handles HTTP requests for stop timetables
type TimetableHandler struct {
	timetables TimetableService
}

// NewTimetableHandler creates a new handler with the given timetable service
func NewTimetableHandler(timetables TimetableService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables}
}

// GetStops handles GET /get_stops
// Returns every stop sorted by name
func (h *TimetableHandler) GetStops(w http.ResponseWriter, r *http.Request) {
	stops, err := h.timetables.Stops(r.Context())
	if err != nil {
		writeInternalError(w, r, "Failed to retrieve stops", err)
		return
	}
	writeJSON(w, http.StatusOK, stops)
}

// GetTimetable handles GET /get_timetable?stop_id=S
// Returns the stop's times grouped by route and headsign
func (h *TimetableHandler) GetTimetable(w http.ResponseWriter, r *http.Request) {
	stopID := r.URL.Query().Get("stop_id")
	if stopID == "" {
		writeMissingParam(w, "stop_id")
		return
	}

	timetable, err := h.timetables.Timetable(r.Context(), stopID)
	if errors.Is(err, models.ErrStopNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "Stop not found",
			Details: map[string]interface{}{
				"stop_id": stopID,
			},
		})
		return
	}
	if err != nil {
		writeInternalError(w, r, "Failed to retrieve timetable", err)
		return
	}
	writeJSON(w, http.StatusOK, timetable)
}

// GetRoutesForStop handles GET /get_routes_for_stop?stop_id=S&service_id=
// An unknown stop yields an empty list
func (h *TimetableHandler) GetRoutesForStop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stopID := q.Get("stop_id")
	if stopID == "" {
		writeMissingParam(w, "stop_id")
		return
	}

	routes, err := h.timetables.RoutesForStop(r.Context(), stopID, models.ParseServiceScope(q.Get("service_id")))
	if err != nil {
		writeInternalError(w, r, "Failed to retrieve routes", err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

// GetArrivals handles GET /get_arrivals?stop_id=S&route_short_name=&trip_headsign=&service_id=
// Both route_short_name and trip_headsign select a flat time list,
// otherwise times are grouped by route and headsign
func (h *TimetableHandler) GetArrivals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.ArrivalsQuery{
		StopID:         q.Get("stop_id"),
		RouteShortName: q.Get("route_short_name"),
		TripHeadsign:   q.Get("trip_headsign"),
		Service:        models.ParseServiceScope(q.Get("service_id")),
	}
	if query.StopID == "" {
		writeMissingParam(w, "stop_id")
		return
	}

	if query.IsFlat() {
		times, err := h.timetables.ArrivalsFor(r.Context(), query)
		if err != nil {
			writeInternalError(w, r, "Failed to retrieve arrivals", err)
			return
		}
		writeJSON(w, http.StatusOK, times)
		return
	}

	grouped, err := h.timetables.GroupedArrivals(r.Context(), query)
	if err != nil {
		writeInternalError(w, r, "Failed to retrieve arrivals", err)
		return
	}
	if grouped == nil {
		writeJSON(w, http.StatusOK, models.ArrivalTimes{Times: []string{}, Count: 0})
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}
