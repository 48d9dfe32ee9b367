package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"bicycle-counts/internal/query"
	"bicycle-counts/internal/repository"
	"bicycle-counts/internal/services"
	"bicycle-counts/internal/validation"
	"bicycle-counts/pkg/logging"
	"bicycle-counts/pkg/metrics"
)

// CountHandler handles the bicycle count API endpoints
type CountHandler struct {
	service   *services.CountService
	validator *validation.Validator
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewCountHandler creates a new count handler
func NewCountHandler(
	service *services.CountService,
	validator *validation.Validator,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *CountHandler {
	return &CountHandler{
		service:   service,
		validator: validator,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetCount handles GET /counts/{record_num}
func (h *CountHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/counts/{record_num}").Observe(duration.Seconds())
	}()

	recordNum, ok := h.recordNumParam(w, r)
	if !ok {
		return
	}

	count, err := h.service.Get(ctx, recordNum)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.metrics.RecordAPIRequest("/counts/{record_num}", "GET", "200")
	h.sendJSON(w, count, http.StatusOK)
}

// UpdateCount handles PUT /counts/{record_num}
func (h *CountHandler) UpdateCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/counts/{record_num}").Observe(duration.Seconds())
	}()

	recordNum, ok := h.recordNumParam(w, r)
	if !ok {
		return
	}

	fields, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	if !h.validatePayload(w, r, fields, validation.Update) {
		return
	}

	count, err := h.service.Update(ctx, recordNum, fields)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/counts/%d", count.RecordNum))
	h.metrics.RecordAPIRequest("/counts/{record_num}", "PUT", "200")
	h.sendJSON(w, count, http.StatusOK)
}

// DeleteCount handles DELETE /counts/{record_num}
func (h *CountHandler) DeleteCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/counts/{record_num}").Observe(duration.Seconds())
	}()

	recordNum, ok := h.recordNumParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, recordNum); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.metrics.RecordAPIRequest("/counts/{record_num}", "DELETE", "200")
	h.sendJSON(w, map[string]interface{}{
		"status":     "deleted",
		"record_num": recordNum,
	}, http.StatusOK)
}

// ListCounts handles GET /counts
func (h *CountHandler) ListCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/counts").Observe(duration.Seconds())
	}()

	filters := query.ListingFilters{
		Facility:      r.URL.Query().Get("facility"),
		Precipitation: r.URL.Query().Get("precipitation"),
	}

	counts, err := h.service.List(ctx, filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.metrics.RecordAPIRequest("/counts", "GET", "200")
	h.sendJSON(w, counts, http.StatusOK)
}

// CreateCount handles POST /counts
func (h *CountHandler) CreateCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/counts").Observe(duration.Seconds())
	}()

	fields, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	if !h.validatePayload(w, r, fields, validation.Create) {
		return
	}

	count, err := h.service.Create(ctx, fields)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/counts/%d", count.RecordNum))
	h.metrics.RecordAPIRequest("/counts", "POST", "201")
	h.sendJSON(w, count, http.StatusCreated)
}

// ClosestCounts handles GET /counts/closest
func (h *CountHandler) ClosestCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/counts/closest").Observe(duration.Seconds())
	}()

	lon := r.URL.Query().Get("lon")
	lat := r.URL.Query().Get("lat")

	counts, err := h.service.Nearest(ctx, lon, lat)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.metrics.RecordAPIRequest("/counts/closest", "GET", "200")
	h.sendJSON(w, counts, http.StatusOK)
}

// ListFacilities handles GET /facilities
func (h *CountHandler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/facilities").Observe(duration.Seconds())
	}()

	facilities, err := h.service.Facilities(ctx)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.metrics.RecordAPIRequest("/facilities", "GET", "200")
	h.sendJSON(w, facilities, http.StatusOK)
}

// Index handles GET /
func (h *CountHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, map[string]string{
		"service":       "bicycle-counts",
		"description":   "REST API for the regional bicycle count program",
		"documentation": "/docs",
	}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *CountHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Storage unreachable", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{"status": "unhealthy"}, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// recordNumParam parses the path key; a non-integer id is a client error.
func (h *CountHandler) recordNumParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["record_num"]
	recordNum, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.sendError(w, r, fmt.Sprintf("record_num %q is not an integer", raw), http.StatusBadRequest)
		return 0, false
	}
	return recordNum, true
}

// decodeFields decodes a JSON body into a field map. UseNumber keeps
// numeric tokens intact so the validator can tell integers from floats.
func (h *CountHandler) decodeFields(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	var fields map[string]interface{}
	if err := decoder.Decode(&fields); err != nil {
		h.sendError(w, r, "request body must be a JSON object", http.StatusBadRequest)
		return nil, false
	}
	return fields, true
}

// validatePayload runs the field validator and rejects the request before
// any mutation if it fails. Unknown fields are reported first, then
// missing required fields, then per-field violations.
func (h *CountHandler) validatePayload(w http.ResponseWriter, r *http.Request, fields map[string]interface{}, mode validation.Mode) bool {
	result := h.validator.Validate(fields, mode)
	if result.OK() {
		return true
	}

	switch {
	case len(result.Unknown) > 0:
		h.metrics.RecordValidationFailure("unknown_field")
	case len(result.Missing) > 0:
		h.metrics.RecordValidationFailure("missing_field")
	default:
		h.metrics.RecordValidationFailure("bad_value")
	}

	h.sendError(w, r, result.Message(), http.StatusBadRequest)
	return false
}

// respondError maps repository and query-builder errors onto the HTTP
// error taxonomy: client input errors 400, zero matches 404, integrity
// conflicts and everything else 500.
func (h *CountHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidFilter *query.InvalidFilterError
		notFound      *repository.NotFoundError
		conflict      *repository.ConflictError
	)

	switch {
	case errors.As(err, &invalidFilter):
		h.sendError(w, r, invalidFilter.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		h.sendError(w, r, notFound.Error(), http.StatusNotFound)
	case errors.As(err, &conflict):
		h.logger.Error(r.Context(), "[API_INTEGRITY_CONFLICT] Duplicate record_num in storage", logging.Fields{
			"record_num": conflict.RecordNum,
			"matches":    conflict.Matches,
		}, err)
		h.metrics.RecordAPIError("integrity_conflict", r.URL.Path)
		h.sendError(w, r, conflict.Error(), http.StatusInternalServerError)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}, err)
		h.metrics.RecordAPIError("internal_error", r.URL.Path)
		h.sendError(w, r, "internal server error", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *CountHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *CountHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))
	h.sendJSON(w, ErrorResponse{Error: message}, statusCode)
}

// RegisterRoutes registers all count API routes. The closest route is
// registered ahead of the keyed route so the literal segment wins.
func (h *CountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/docs", h.Documentation).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/counts/closest", h.ClosestCounts).Methods("GET")
	router.HandleFunc("/counts/{record_num}", h.GetCount).Methods("GET")
	router.HandleFunc("/counts/{record_num}", h.UpdateCount).Methods("PUT")
	router.HandleFunc("/counts/{record_num}", h.DeleteCount).Methods("DELETE")
	router.HandleFunc("/counts", h.ListCounts).Methods("GET")
	router.HandleFunc("/counts", h.CreateCount).Methods("POST")
	router.HandleFunc("/facilities", h.ListFacilities).Methods("GET")
}
