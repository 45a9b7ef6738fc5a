package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/chatvault/chatvault/internal/extract"
	"github.com/chatvault/chatvault/internal/model"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/pkg/logger"
)

const chatPage = `<html><head><title>Trip Planning - ChatGPT</title></head><body>
<div data-message-author-role="user"><div class="markdown">Hello</div></div>
<div data-message-author-role="assistant"><div class="markdown">Hi there</div></div>
</body></html>`

// newTestRouter wires the handlers the way the server does, minus auth
// and rate limiting.
func newTestRouter(t *testing.T) (*chi.Mux, *store.Store) {
	t.Helper()
	log := logger.NewNop()
	st := store.New(store.NewMemory(), 0, log)
	ex := extract.NewExtractor(log)

	extractH := NewExtractHandler(ex, st, log)
	convH := NewConversationHandler(st, log)
	dataH := NewDataHandler(st, log)
	healthH := NewHealthHandler(store.NewMemory())

	r := chi.NewRouter()
	r.Get("/health", healthH.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", extractH.Extract)
		r.Post("/extract/save", extractH.ExtractAndSave)
		r.Get("/conversations", convH.List)
		r.Post("/conversations", convH.Create)
		r.Post("/conversations/batch-delete", convH.BatchDelete)
		r.Post("/conversations/clear", convH.Clear)
		r.Get("/conversations/{id}", convH.Get)
		r.Put("/conversations/{id}", convH.Update)
		r.Delete("/conversations/{id}", convH.Delete)
		r.Get("/data/export", dataH.Export)
		r.Post("/data/import", dataH.Import)
		r.Get("/stats", dataH.Stats)
		r.Get("/tags", dataH.Tags)
		r.Get("/settings", dataH.GetSettings)
		r.Put("/settings", dataH.UpdateSettings)
	})
	return r, st
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestExtractEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/extract", extract.Capture{
		URL:  "https://chatgpt.com/c/abc-123",
		HTML: chatPage,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var res extract.Result
	decode(t, rec, &res)
	if res.Provider != "chatgpt" || res.MessageCount != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExtractEndpointMarkdownDownload(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/extract?format=markdown", extract.Capture{
		URL:  "https://chatgpt.com/c/abc-123",
		HTML: chatPage,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content-type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "trip_planning.md") {
		t.Errorf("content-disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "# Trip Planning") {
		t.Errorf("body is not the markdown document:\n%s", rec.Body)
	}
}

func TestExtractEndpointRejectsEmptyPage(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/extract", extract.Capture{
		URL:  "https://chatgpt.com/",
		HTML: "<html><body><nav>nothing here</nav></body></html>",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/extract", extract.Capture{URL: "https://chatgpt.com/"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty html status = %d, want 400", rec.Code)
	}
}

func TestExtractAndSaveFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	capture := extract.Capture{URL: "https://chatgpt.com/c/abc-123", HTML: chatPage}

	rec := doJSON(t, r, http.MethodPost, "/api/v1/extract/save", capture)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var first ExtractSaveResponse
	decode(t, rec, &first)
	if first.Conversation.ID == "" {
		t.Error("saved conversation has no id")
	}
	if first.DuplicateOf != "" {
		t.Errorf("first save flagged as duplicate of %q", first.DuplicateOf)
	}

	// Saving the same page again still succeeds but carries the hint.
	rec = doJSON(t, r, http.MethodPost, "/api/v1/extract/save", capture)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second save status = %d: %s", rec.Code, rec.Body)
	}
	var second ExtractSaveResponse
	decode(t, rec, &second)
	if second.DuplicateOf != first.Conversation.ID {
		t.Errorf("duplicateOf = %q, want %q", second.DuplicateOf, first.Conversation.ID)
	}

	// Both records are retrievable.
	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations", nil)
	var listing struct {
		Total int `json:"total"`
	}
	decode(t, rec, &listing)
	if listing.Total != 2 {
		t.Errorf("total = %d, want 2", listing.Total)
	}
}

func TestConversationCRUD(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations", model.Conversation{
		Title: "manual entry", Provider: "claude", Tags: []string{"notes"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created model.Conversation
	decode(t, rec, &created)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	title := "renamed"
	rec = doJSON(t, r, http.MethodPut, "/api/v1/conversations/"+created.ID, model.ConversationUpdate{Title: &title})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}
	var updated model.Conversation
	decode(t, rec, &updated)
	if updated.Title != "renamed" {
		t.Errorf("title = %q", updated.Title)
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/v1/conversations/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestConversationNotFoundMapsTo404(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/conversations/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", rec.Code)
	}

	title := "x"
	rec = doJSON(t, r, http.MethodPut, "/api/v1/conversations/nope", model.ConversationUpdate{Title: &title})
	if rec.Code != http.StatusNotFound {
		t.Errorf("update status = %d, want 404", rec.Code)
	}
}

func TestCreateValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations", model.Conversation{
		Title: strings.Repeat("x", 300),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized title status = %d, want 400", rec.Code)
	}
}

func TestImportEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	bundle := model.ExportBundle{
		Version: "1.0",
		Conversations: []model.Conversation{
			{Title: "a", ConversationID: "conv-a"},
			{Title: "b", ConversationID: "conv-b"},
		},
	}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/data/import", bundle)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	var result model.ImportResult
	decode(t, rec, &result)
	if result.Imported != 2 {
		t.Errorf("imported = %d, want 2", result.Imported)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/data/import?strategy=bogus", bundle)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus strategy status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/data/import", model.ExportBundle{Conversations: []model.Conversation{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing version status = %d, want 400", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	r, st := newTestRouter(t)

	st.SaveConversation(context.Background(), model.Conversation{Title: "kept", ConversationID: "c1"})

	rec := doJSON(t, r, http.MethodGet, "/api/v1/data/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	var bundle model.ExportBundle
	decode(t, rec, &bundle)
	if bundle.Version != "1.0" || len(bundle.Conversations) != 1 {
		t.Errorf("bundle = %+v", bundle)
	}
	if bundle.Settings == nil || bundle.Statistics == nil {
		t.Error("bundle missing settings or statistics")
	}
}

func TestSettingsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/settings", nil)
	var settings model.Settings
	decode(t, rec, &settings)
	if settings.MaxConversations != 100 {
		t.Errorf("defaults not served: %+v", settings)
	}

	auto := true
	rec = doJSON(t, r, http.MethodPut, "/api/v1/settings", model.SettingsUpdate{AutoSave: &auto})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}
	decode(t, rec, &settings)
	if !settings.AutoSave || settings.MaxConversations != 100 {
		t.Errorf("partial update wrong: %+v", settings)
	}

	bad := model.ExportFormat("xml")
	rec = doJSON(t, r, http.MethodPut, "/api/v1/settings", model.SettingsUpdate{ExportFormat: &bad})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}
