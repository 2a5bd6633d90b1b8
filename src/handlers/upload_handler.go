package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/hostfolio/backend/src/config"
	"github.com/username/hostfolio/backend/src/logger"
	"github.com/username/hostfolio/backend/src/security/validation"
	"github.com/username/hostfolio/backend/src/services"
	"github.com/username/hostfolio/backend/src/utils"
)

// UploadHandler ingests transaction-history CSV files, either scoped to one
// property or as a whole export split across properties by listing name.
type UploadHandler struct {
	propertyService services.PropertyService
}

func NewUploadHandler(propertyService services.PropertyService) *UploadHandler {
	return &UploadHandler{propertyService: propertyService}
}

// UploadCSVForProperty attaches a CSV export to one property:
// POST /api/properties/{id}/sources/csv (multipart field "file").
func (h *UploadHandler) UploadCSVForProperty(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.openUploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	property, anomalies, err := h.propertyService.ImportCSVForProperty(r.Context(), chi.URLParam(r, "id"), file, header.Filename)
	if err != nil {
		handleServiceError(w, r, err, "Failed to import CSV for property")
		return
	}
	utils.WriteJSON(w, propertyWithAnomalies{Property: property, Anomalies: anomalies}, http.StatusOK)
}

// UploadCSV ingests a whole export and routes rows per listing:
// POST /api/upload/csv (multipart field "file").
func (h *UploadHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.openUploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.propertyService.ImportCSVUpload(r.Context(), file, header.Filename)
	if err != nil {
		handleServiceError(w, r, err, "Failed to import CSV upload")
		return
	}
	utils.WriteJSON(w, result, http.StatusOK)
}

// openUploadedFile enforces the size limit, extracts the "file" part and
// validates both the declared and detected content type before handing the
// stream to the parser. On failure it has already written the response.
func (h *UploadHandler) openUploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	log := logger.FromContext(r.Context())
	maxSize := config.Cfg.MaxUploadSizeBytes

	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		log.Warn("Upload rejected during multipart parse", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Upload too large or malformed (limit %d bytes)", maxSize), http.StatusRequestEntityTooLarge)
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "Missing 'file' field in upload", http.StatusBadRequest)
		return nil, nil, false
	}

	if err := validation.ValidateClientContentType(header.Header.Get("Content-Type")); err != nil {
		file.Close()
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return nil, nil, false
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		file.Close()
		log.Warn("Upload rejected by content inspection", "fileName", header.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return nil, nil, false
	}

	log.Info("CSV upload accepted for parsing", "fileName", header.Filename, "size", header.Size)
	return file, header, true
}
