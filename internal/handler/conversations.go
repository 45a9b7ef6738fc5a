package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/middleware"
	"github.com/chatvault/chatvault/internal/model"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/pkg/logger"
)

// ConversationHandler handles conversation archive endpoints.
type ConversationHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(st *store.Store, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  st,
		logger: log,
	}
}

// List handles GET /api/v1/conversations. With no parameters it returns
// the full archive, most recent first; q and the filter parameters narrow
// the result.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	filters := model.SearchFilters{
		Provider: r.URL.Query().Get("provider"),
	}

	if v := r.URL.Query().Get("favorite"); v != "" {
		if fav, err := strconv.ParseBool(v); err == nil {
			filters.Favorite = &fav
		}
	}
	if v := r.URL.Query().Get("start"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.StartDate = ts
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.EndDate = ts
		}
	}
	if v := r.URL.Query().Get("tags"); v != "" {
		filters.Tags = strings.Split(v, ",")
	}

	conversations := h.store.SearchConversations(r.Context(), query, filters)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"total":         len(conversations),
	})
}

// Create handles POST /api/v1/conversations.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var data model.Conversation
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTitle(data.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateTags(data.Tags); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.store.SaveConversation(r.Context(), data)
	if err != nil {
		h.logger.Error("failed to save conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save conversation")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Get handles GET /api/v1/conversations/{id}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.GetConversation(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to get conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Update handles PUT /api/v1/conversations/{id}.
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var updates model.ConversationUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if updates.Title != nil {
		if err := middleware.ValidateTitle(*updates.Title); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if updates.Tags != nil {
		if err := middleware.ValidateTags(*updates.Tags); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	conv, err := h.store.UpdateConversation(r.Context(), id, updates)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to update conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/{id}.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteConversation(r.Context(), id); err != nil {
		h.logger.Error("failed to delete conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchDeleteRequest is the request to delete several conversations.
type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BatchDelete handles POST /api/v1/conversations/batch-delete.
func (h *ConversationHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids cannot be empty")
		return
	}

	if err := h.store.DeleteConversations(r.Context(), req.IDs); err != nil {
		h.logger.Error("failed to delete conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete conversations")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles POST /api/v1/conversations/clear.
func (h *ConversationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAllConversations(r.Context()); err != nil {
		h.logger.Error("failed to clear conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear conversations")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
