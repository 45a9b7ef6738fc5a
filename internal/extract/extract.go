// Package extract turns a captured chat page into a structured
// conversation. Recognition is heuristic and best-effort: the host pages
// publish no schema, change markup without notice, and encapsulate parts
// of the transcript in shadow subtrees, so the extractor over-matches
// candidates and filters by content length and deduplication.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/chatvault/chatvault/internal/dom"
	"github.com/chatvault/chatvault/internal/markdown"
	"github.com/chatvault/chatvault/internal/model"
	"github.com/chatvault/chatvault/internal/provider"
	"github.com/chatvault/chatvault/pkg/logger"
	"github.com/chatvault/chatvault/pkg/metrics"
)

// Capture is a serialized page snapshot submitted for extraction. Shadow
// subtrees arrive as declarative <template shadowrootmode> elements.
// ViewportWidth is optional and enables the visual role heuristic.
type Capture struct {
	URL           string  `json:"url"`
	HTML          string  `json:"html"`
	ViewportWidth float64 `json:"viewport_width,omitempty"`
}

// Result is a successfully extracted conversation plus its Markdown
// rendering. A nil Result signals that no messages could be recovered,
// which is an expected outcome on unsupported or redesigned layouts.
type Result struct {
	Title          string          `json:"title"`
	Provider       string          `json:"provider"`
	URL            string          `json:"url"`
	ConversationID string          `json:"conversationId"`
	MessageCount   int             `json:"messageCount"`
	Messages       []model.Message `json:"messages"`
	Timestamp      int64           `json:"timestamp"`
	Markdown       string          `json:"markdown"`
	Filename       string          `json:"filename"`
}

// Extractor orchestrates provider detection, turn discovery, role
// classification, and Markdown rendering over a capture.
type Extractor struct {
	log *logger.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(log *logger.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract recovers the conversation from a capture. Returns nil when no
// messages could be found; extraction failure is signaled, never raised.
func (e *Extractor) Extract(capture Capture) *Result {
	prov := provider.Unknown
	host := ""
	if u, err := url.Parse(capture.URL); err == nil {
		host = u.Hostname()
		prov = provider.Detect(host)
	} else {
		e.log.Debug("capture URL did not parse", zap.Error(err))
	}
	convID := provider.ConversationID(capture.URL, prov)

	doc, err := dom.ParseString(capture.HTML)
	if err != nil {
		e.log.Warn("capture HTML did not parse", zap.Error(err))
		metrics.RecordExtraction(string(prov), "parse_error", 0)
		return nil
	}

	title := resolveTitle(doc)
	messages := e.collectMessages(doc, capture.ViewportWidth)
	if len(messages) == 0 {
		messages = e.fallbackPairs(doc)
	}
	messages = dedupe(messages)

	if len(messages) == 0 {
		e.log.Info("no messages recovered from capture",
			zap.String("provider", string(prov)),
			zap.String("url", capture.URL),
		)
		metrics.RecordExtraction(string(prov), "empty", 0)
		return nil
	}

	res := &Result{
		Title:          title,
		Provider:       string(prov),
		URL:            capture.URL,
		ConversationID: convID,
		MessageCount:   len(messages),
		Messages:       messages,
		Timestamp:      time.Now().UnixMilli(),
	}
	res.Markdown = renderDocument(res, host)
	res.Filename = slugify(title) + ".md"

	metrics.RecordExtraction(string(prov), "ok", len(messages))
	return res
}

// isTurnCandidate is the deliberately over-inclusive predicate for
// elements that might be a conversational turn on at least one supported
// platform. False positives are cheap; they fall to the length filter and
// the dedup pass.
func isTurnCandidate(n *html.Node) bool {
	if _, ok := structuralTags[n.Data]; ok {
		return true
	}
	if v, ok := dom.Attr(n, "data-testid"); ok && strings.HasPrefix(v, "conversation-turn") {
		return true
	}
	if _, ok := dom.Attr(n, "data-message-author-role"); ok {
		return true
	}
	if _, ok := dom.Attr(n, "data-message-id"); ok {
		return true
	}
	for _, cls := range []string{"chat-message", "message-bubble", "conversation-turn", "chat-turn"} {
		if dom.ClassContains(n, cls) {
			return true
		}
	}
	return false
}

// contentSelectors locate the most specific content sub-element within a
// candidate turn, most specific first.
var contentSelectors = []func(*html.Node) bool{
	dom.ByClassContains("markdown"),
	dom.ByClassContains("message-content"),
	dom.ByClassContains("prose"),
	dom.ByAttr("data-message-content"),
	dom.ByClassContains("whitespace-pre-wrap"),
}

func (e *Extractor) collectMessages(doc *html.Node, viewportWidth float64) []model.Message {
	classifier := NewRoleClassifier(viewportWidth)

	var messages []model.Message
	candidates := dom.FindAll(doc, isTurnCandidate)
	for i, el := range candidates {
		role := classifier.Detect(el, i)

		content := el
		for _, sel := range contentSelectors {
			if found := dom.FindFirst(el, sel); found != nil {
				content = found
				break
			}
		}

		text := strings.TrimSpace(markdown.Render(content))
		if len(text) <= 2 {
			continue
		}
		messages = append(messages, model.Message{Role: role, Content: text})
	}
	return messages
}

// Class fragments marking generic "rendered answer" containers used by
// the secondary scan.
var answerContainerClasses = []string{"rendered-answer", "model-response-text", "answer-content"}

// fallbackPairs is the secondary scan for layouts the candidate predicate
// misses entirely. Each answer container is paired with the nearest
// preceding sibling that carries non-trivial text, taken as the user turn.
func (e *Extractor) fallbackPairs(doc *html.Node) []model.Message {
	var containers []*html.Node
	for _, cls := range answerContainerClasses {
		containers = append(containers, dom.FindAll(doc, dom.ByClassContains(cls))...)
	}

	var messages []model.Message
	for _, container := range containers {
		answer := strings.TrimSpace(markdown.Render(container))
		if len(answer) <= 2 {
			continue
		}

		for _, sib := range dom.PrevSiblingElements(container) {
			if len(strings.TrimSpace(dom.Text(sib))) < 5 {
				continue
			}
			question := strings.TrimSpace(markdown.Render(sib))
			if question != "" {
				messages = append(messages, model.Message{Role: model.RoleUser, Content: question})
			}
			break
		}
		messages = append(messages, model.Message{Role: model.RoleAssistant, Content: answer})
	}
	return messages
}

// dedupe drops repeats of the same logical turn matched by overlapping
// candidate selectors. A turn is keyed by role plus its first 100 content
// characters; the first occurrence wins and order is preserved.
func dedupe(messages []model.Message) []model.Message {
	seen := make(map[string]struct{}, len(messages))
	out := messages[:0]
	for _, m := range messages {
		key := string(m.Role) + ":" + firstRunes(m.Content, 100)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// titleSelectors locate the conversation title, best source first: the
// sidebar's active item, then the document heading, then the page title.
var titleSelectors = []func(*html.Node) bool{
	dom.ByAttr("aria-current"),
	dom.ByClassContains("conversation-title"),
	dom.ByTag("h1"),
	dom.ByTag("title"),
}

var (
	illegalFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	platformSuffix       = regexp.MustCompile(`\s*[-|\x{2013}\x{2014}]\s*(ChatGPT|Claude|Gemini|DeepSeek)\s*$`)
)

func resolveTitle(doc *html.Node) string {
	raw := ""
	for _, sel := range titleSelectors {
		if el := dom.FindFirst(doc, sel); el != nil {
			if text := strings.TrimSpace(dom.Text(el)); text != "" {
				raw = text
				break
			}
		}
	}
	if raw == "" {
		return "Conversation"
	}

	raw = platformSuffix.ReplaceAllString(raw, "")
	raw = illegalFilenameChars.ReplaceAllString(raw, "")
	raw = strings.TrimSpace(raw)
	raw = firstRunes(raw, 50)
	if raw == "" {
		return "Conversation"
	}
	return raw
}

// renderDocument assembles the Markdown export: title header, source
// blockquote, then each turn as a role heading separated by rules.
func renderDocument(res *Result, host string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", res.Title)
	fmt.Fprintf(&b, "> Source: [%s](%s)\n\n", host, res.URL)

	sections := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		sections = append(sections, fmt.Sprintf("### %s\n\n%s", headingFor(m.Role), m.Content))
	}
	b.WriteString(strings.Join(sections, "\n\n---\n\n"))
	b.WriteString("\n")
	return b.String()
}

func headingFor(r model.Role) string {
	if r == model.RoleUser {
		return "User"
	}
	return "Assistant"
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func slugify(title string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "_")
}
