package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/hostfolio/backend/src/logger"
	"github.com/username/hostfolio/backend/src/models"
	"github.com/username/hostfolio/backend/src/services"
	"github.com/username/hostfolio/backend/src/store"
	"github.com/username/hostfolio/backend/src/utils"
)

// PropertyHandler exposes the property lifecycle and reconciliation reads
// over HTTP. It owns no business rules; it decodes, delegates and maps
// service errors to status codes.
type PropertyHandler struct {
	propertyService services.PropertyService
}

func NewPropertyHandler(propertyService services.PropertyService) *PropertyHandler {
	return &PropertyHandler{propertyService: propertyService}
}

type createPropertyRequest struct {
	Name string `json:"name"`
}

type updateURLRequest struct {
	URL string `json:"url"`
}

// propertyWithAnomalies is the mutation response: the updated aggregate plus
// whatever the reconciler flagged while recomputing.
type propertyWithAnomalies struct {
	Property  *models.Property `json:"property"`
	Anomalies []models.Anomaly `json:"anomalies,omitempty"`
}

func (h *PropertyHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req createPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	property, err := h.propertyService.CreateProperty(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, r, err, "Failed to create property")
		return
	}
	utils.WriteJSON(w, property, http.StatusCreated)
}

func (h *PropertyHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.propertyService.ListProperties(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "Failed to list properties")
		return
	}
	if properties == nil {
		properties = []*models.Property{}
	}
	utils.WriteJSON(w, properties, http.StatusOK)
}

func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	property, err := h.propertyService.GetProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err, "Failed to fetch property")
		return
	}
	utils.WriteJSON(w, property, http.StatusOK)
}

func (h *PropertyHandler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := h.propertyService.DeleteProperty(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err, "Failed to delete property")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PropertyHandler) UpdateURL(w http.ResponseWriter, r *http.Request) {
	var req updateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	property, err := h.propertyService.UpdateURL(r.Context(), chi.URLParam(r, "id"), req.URL)
	if err != nil {
		handleServiceError(w, r, err, "Failed to update property URL")
		return
	}
	utils.WriteJSON(w, property, http.StatusOK)
}

// UpdateDataSource replaces the pdf or scraped source from a JSON payload.
// CSV arrives through the multipart upload endpoints instead.
func (h *PropertyHandler) UpdateDataSource(w http.ResponseWriter, r *http.Request) {
	sourceType := chi.URLParam(r, "type")
	if !models.ValidSourceType(sourceType) {
		utils.SendJSONError(w, "Unknown data source type", http.StatusBadRequest)
		return
	}
	if models.SourceType(sourceType) == models.SourceCsv {
		utils.SendJSONError(w, "CSV sources are ingested via the upload endpoint", http.StatusBadRequest)
		return
	}

	var payload json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	property, anomalies, err := h.propertyService.UpdateDataSource(r.Context(), chi.URLParam(r, "id"), models.SourceType(sourceType), payload)
	if err != nil {
		handleServiceError(w, r, err, "Failed to update data source")
		return
	}
	utils.WriteJSON(w, propertyWithAnomalies{Property: property, Anomalies: anomalies}, http.StatusOK)
}

func (h *PropertyHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(models.PeriodAllTime)
	}

	metrics, err := h.propertyService.MetricsForPeriod(r.Context(), chi.URLParam(r, "id"), models.Period(period))
	if err != nil {
		handleServiceError(w, r, err, "Failed to compute metrics")
		return
	}
	utils.WriteJSON(w, metrics, http.StatusOK)
}

func (h *PropertyHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.propertyService.Bookings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err, "Failed to fetch bookings")
		return
	}

	etag, err := utils.GenerateETag(breakdown)
	if err == nil {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	utils.WriteJSON(w, breakdown, http.StatusOK)
}

// handleServiceError maps service and store errors onto status codes.
// Validation and parsing failures echo their message; everything unexpected
// is logged and hidden behind a generic 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	log := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, store.ErrPropertyNotFound):
		utils.SendJSONError(w, "Property not found", http.StatusNotFound)
	case errors.Is(err, store.ErrVersionConflict):
		log.Warn(logMsg, "error", err)
		utils.SendJSONError(w, "Property was modified concurrently, please retry", http.StatusConflict)
	case errors.Is(err, services.ErrValidation):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrParsingFailed):
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Error(logMsg, "error", err)
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
