package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/model"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/pkg/logger"
)

// DataHandler handles archive-wide data endpoints: export, import,
// statistics, settings, and tags.
type DataHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(st *store.Store, log *logger.Logger) *DataHandler {
	return &DataHandler{
		store:  st,
		logger: log,
	}
}

// Export handles GET /api/v1/data/export.
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.store.ExportAllData(r.Context())
	if err != nil {
		h.logger.Error("failed to export data", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export data")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// Import handles POST /api/v1/data/import?strategy=skip|update.
func (h *DataHandler) Import(w http.ResponseWriter, r *http.Request) {
	strategy := model.MergeStrategy(r.URL.Query().Get("strategy"))
	switch strategy {
	case "", model.MergeSkip, model.MergeUpdate:
	default:
		writeError(w, http.StatusBadRequest, "unknown merge strategy")
		return
	}

	var bundle model.ExportBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		writeError(w, http.StatusBadRequest, "invalid import format")
		return
	}

	result, err := h.store.ImportData(r.Context(), bundle, strategy)
	if err != nil {
		if errors.Is(err, store.ErrInvalidFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to import data", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to import data")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stats handles GET /api/v1/stats.
func (h *DataHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStatistics(r.Context())
	if err != nil {
		h.logger.Error("failed to compute statistics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Tags handles GET /api/v1/tags.
func (h *DataHandler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tags": h.store.GetAllTags(r.Context()),
	})
}

// GetSettings handles GET /api/v1/settings.
func (h *DataHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.GetSettings(r.Context()))
}

// UpdateSettings handles PUT /api/v1/settings.
func (h *DataHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var partial model.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if partial.ExportFormat != nil {
		switch *partial.ExportFormat {
		case model.ExportFormatMarkdown, model.ExportFormatJSON:
		default:
			writeError(w, http.StatusBadRequest, "unknown export format")
			return
		}
	}

	settings, err := h.store.SaveSettings(r.Context(), partial)
	if err != nil {
		h.logger.Error("failed to save settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
