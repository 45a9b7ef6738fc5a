package extract

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/chatvault/chatvault/internal/model"
	"github.com/chatvault/chatvault/pkg/logger"
)

const chatFixture = `<html><head><title>Trip Planning - ChatGPT</title></head><body>
<div data-message-author-role="user"><div class="markdown">Hello</div></div>
<div data-message-author-role="assistant"><div class="markdown">Hi there</div></div>
<div data-message-author-role="user"><div class="markdown">How are you?</div></div>
<div data-message-author-role="assistant"><div class="markdown">Good, thanks</div></div>
</body></html>`

func testExtractor() *Extractor {
	return NewExtractor(logger.NewNop())
}

func TestExtractAlternatingConversation(t *testing.T) {
	res := testExtractor().Extract(Capture{
		URL:  "https://chatgpt.com/c/abc-123",
		HTML: chatFixture,
	})
	if res == nil {
		t.Fatal("extraction returned nil")
	}

	want := []model.Message{
		{Role: model.RoleUser, Content: "Hello"},
		{Role: model.RoleAssistant, Content: "Hi there"},
		{Role: model.RoleUser, Content: "How are you?"},
		{Role: model.RoleAssistant, Content: "Good, thanks"},
	}
	if !reflect.DeepEqual(res.Messages, want) {
		t.Errorf("messages = %+v, want %+v", res.Messages, want)
	}
	if res.MessageCount != 4 {
		t.Errorf("messageCount = %d, want 4", res.MessageCount)
	}
	if res.Provider != "chatgpt" {
		t.Errorf("provider = %q", res.Provider)
	}
	if res.ConversationID != "abc-123" {
		t.Errorf("conversationId = %q", res.ConversationID)
	}
	if res.Timestamp == 0 {
		t.Error("timestamp not stamped")
	}
}

func TestExtractTitleAndMarkdown(t *testing.T) {
	res := testExtractor().Extract(Capture{
		URL:  "https://chatgpt.com/c/abc-123",
		HTML: chatFixture,
	})
	if res == nil {
		t.Fatal("extraction returned nil")
	}

	if res.Title != "Trip Planning" {
		t.Errorf("title = %q, want platform suffix stripped", res.Title)
	}
	if res.Filename != "trip_planning.md" {
		t.Errorf("filename = %q", res.Filename)
	}
	if !strings.HasPrefix(res.Markdown, "# Trip Planning\n\n> Source: [chatgpt.com](https://chatgpt.com/c/abc-123)\n\n") {
		t.Errorf("markdown header wrong:\n%s", res.Markdown)
	}
	if !strings.Contains(res.Markdown, "### User\n\nHello") {
		t.Errorf("missing user section:\n%s", res.Markdown)
	}
	if got := strings.Count(res.Markdown, "\n---\n"); got != 3 {
		t.Errorf("got %d separators, want 3", got)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	res := testExtractor().Extract(Capture{
		URL:  "https://chatgpt.com/",
		HTML: `<html><body><nav>just navigation</nav></body></html>`,
	})
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

func TestExtractTruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("x", 80)
	res := testExtractor().Extract(Capture{
		URL:  "https://claude.ai/chat/id-1",
		HTML: `<html><head><title>` + long + `</title></head><body><div data-message-author-role="user"><div class="markdown">Hello</div></div></body></html>`,
	})
	if res == nil {
		t.Fatal("extraction returned nil")
	}
	if len(res.Title) != 50 {
		t.Errorf("title length = %d, want 50", len(res.Title))
	}
}

func TestExtractFallbackPairing(t *testing.T) {
	fixture := `<html><body><div>
<p>What is the capital of France?</p>
<div class="rendered-answer"><p>Paris, of course.</p></div>
</div></body></html>`

	res := testExtractor().Extract(Capture{URL: "https://example.com/x", HTML: fixture})
	if res == nil {
		t.Fatal("fallback extraction returned nil")
	}
	if len(res.Messages) != 2 {
		t.Fatalf("got %d messages, want 2: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[0].Role != model.RoleUser || !strings.Contains(res.Messages[0].Content, "capital of France") {
		t.Errorf("user pairing wrong: %+v", res.Messages[0])
	}
	if res.Messages[1].Role != model.RoleAssistant || !strings.Contains(res.Messages[1].Content, "Paris") {
		t.Errorf("assistant pairing wrong: %+v", res.Messages[1])
	}
	if res.Provider != "unknown" {
		t.Errorf("provider = %q, want unknown", res.Provider)
	}
}

func TestExtractFallbackSkipsShortSiblings(t *testing.T) {
	fixture := `<html><body><div>
<p>Tell me about Go generics in detail.</p>
<p>ok</p>
<div class="rendered-answer"><p>Generics arrived in Go 1.18.</p></div>
</div></body></html>`

	res := testExtractor().Extract(Capture{URL: "https://example.com/x", HTML: fixture})
	if res == nil {
		t.Fatal("fallback extraction returned nil")
	}
	if res.Messages[0].Role != model.RoleUser || !strings.Contains(res.Messages[0].Content, "generics") {
		t.Errorf("short sibling not skipped: %+v", res.Messages[0])
	}
}

func TestDedupeIdempotent(t *testing.T) {
	in := []model.Message{
		{Role: model.RoleUser, Content: "Hello"},
		{Role: model.RoleAssistant, Content: "Hi there"},
		{Role: model.RoleUser, Content: "Hello"},
	}
	once := dedupe(append([]model.Message(nil), in...))
	if len(once) != 2 {
		t.Fatalf("dedupe kept %d, want 2", len(once))
	}
	twice := dedupe(append([]model.Message(nil), once...))
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedupe not idempotent: %+v vs %+v", once, twice)
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	// Same opening characters but different roles are distinct turns.
	in := []model.Message{
		{Role: model.RoleUser, Content: "Same start"},
		{Role: model.RoleAssistant, Content: "Same start"},
	}
	out := dedupe(append([]model.Message(nil), in...))
	if len(out) != 2 {
		t.Errorf("role must be part of the dedup key, got %d", len(out))
	}
}

func TestExtractDeduplicatesOverlappingSelectors(t *testing.T) {
	// The wrapper and the inner turn both match the candidate predicate
	// and render the same content.
	fixture := `<html><body>
<div class="conversation-turn"><div data-message-author-role="user"><div class="markdown">Hello world</div></div></div>
</body></html>`

	res := testExtractor().Extract(Capture{URL: "https://chatgpt.com/c/z", HTML: fixture})
	if res == nil {
		t.Fatal("extraction returned nil")
	}
	if len(res.Messages) != 1 {
		t.Errorf("overlapping candidates not deduplicated: %+v", res.Messages)
	}
}

func TestExportJSONReusesResult(t *testing.T) {
	res := testExtractor().Extract(Capture{
		URL:  "https://chatgpt.com/c/abc-123",
		HTML: chatFixture,
	})
	if res == nil {
		t.Fatal("extraction returned nil")
	}

	data, filename, err := ExportJSON(res)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if filename != "trip_planning.json" {
		t.Errorf("filename = %q", filename)
	}

	var env JSONExport
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if env.Version != "1.0" {
		t.Errorf("version = %q", env.Version)
	}
	if env.ExportDate == "" {
		t.Error("exportDate missing")
	}
	if !reflect.DeepEqual(env.Messages, res.Messages) {
		t.Errorf("JSON export diverges from the extraction result")
	}
	if !strings.Contains(string(data), "\n  \"version\"") {
		t.Errorf("export not pretty-printed:\n%s", data)
	}
}
