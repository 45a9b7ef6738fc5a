// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/extract"
	"github.com/chatvault/chatvault/internal/middleware"
	"github.com/chatvault/chatvault/internal/model"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/pkg/logger"
)

// ExtractHandler handles page-capture extraction endpoints.
type ExtractHandler struct {
	extractor *extract.Extractor
	store     *store.Store
	logger    *logger.Logger
}

// NewExtractHandler creates a new extract handler.
func NewExtractHandler(ex *extract.Extractor, st *store.Store, log *logger.Logger) *ExtractHandler {
	return &ExtractHandler{
		extractor: ex,
		store:     st,
		logger:    log,
	}
}

// Extract handles POST /api/v1/extract.
//
// The default response is the structured extraction result. With
// ?format=markdown or ?format=json the response is the rendered download
// file instead, named via Content-Disposition.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	capture, ok := h.decodeCapture(w, r)
	if !ok {
		return
	}

	res := h.extractor.Extract(capture)
	if res == nil {
		writeError(w, http.StatusUnprocessableEntity, "no conversation found on page")
		return
	}

	switch r.URL.Query().Get("format") {
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(res.Markdown))
	case "json":
		data, filename, err := extract.ExportJSON(res)
		if err != nil {
			h.logger.Error("failed to render JSON export", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to render export")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// ExtractSaveResponse is the response for extract-and-save.
type ExtractSaveResponse struct {
	Conversation model.Conversation `json:"conversation"`
	// DuplicateOf reports an already-stored record for the same platform
	// conversation id. The duplicate check is advisory: the save always
	// proceeds, and callers decide what to do with the hint.
	DuplicateOf string `json:"duplicateOf,omitempty"`
}

// ExtractAndSave handles POST /api/v1/extract/save.
func (h *ExtractHandler) ExtractAndSave(w http.ResponseWriter, r *http.Request) {
	capture, ok := h.decodeCapture(w, r)
	if !ok {
		return
	}

	res := h.extractor.Extract(capture)
	if res == nil {
		writeError(w, http.StatusUnprocessableEntity, "no conversation found on page")
		return
	}

	duplicate, err := h.store.FindDuplicate(r.Context(), res.ConversationID)
	if err != nil {
		h.logger.Error("duplicate lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save conversation")
		return
	}

	saved, err := h.store.SaveConversation(r.Context(), model.Conversation{
		Title:          res.Title,
		Provider:       res.Provider,
		Content:        res.Markdown,
		URL:            res.URL,
		ConversationID: res.ConversationID,
		Timestamp:      res.Timestamp,
		MessageCount:   res.MessageCount,
		Messages:       res.Messages,
	})
	if err != nil {
		h.logger.Error("failed to save extracted conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save conversation")
		return
	}

	resp := ExtractSaveResponse{Conversation: saved}
	if duplicate != nil {
		resp.DuplicateOf = duplicate.ID
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ExtractHandler) decodeCapture(w http.ResponseWriter, r *http.Request) (extract.Capture, bool) {
	var capture extract.Capture
	if err := json.NewDecoder(r.Body).Decode(&capture); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return extract.Capture{}, false
	}
	if err := middleware.ValidateCaptureHTML(capture.HTML); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return extract.Capture{}, false
	}
	return capture, true
}
