package extract

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/chatvault/chatvault/internal/dom"
	"github.com/chatvault/chatvault/internal/model"
)

// roleStrategy is one tier of the role cascade. Strategies are total:
// they either return a verdict or abstain, never fail.
type roleStrategy struct {
	name     string
	classify func(el *html.Node, index int) (model.Role, bool)
}

// RoleClassifier assigns an author role to a candidate turn element using
// an ordered strategy cascade. Structural and semantic signals outrank the
// visual heuristic, which outranks blind alternation: chat UIs vary wildly
// in markup, but turns still strictly alternate in the common case.
//
// Supporting a new platform means appending a strategy, not rewriting the
// cascade.
type RoleClassifier struct {
	viewportWidth float64
	strategies    []roleStrategy
}

// NewRoleClassifier builds the default cascade. viewportWidth enables the
// visual tier; pass 0 when the capture carries no geometry.
func NewRoleClassifier(viewportWidth float64) *RoleClassifier {
	c := &RoleClassifier{viewportWidth: viewportWidth}
	c.strategies = []roleStrategy{
		{name: "structural-tag", classify: byStructuralTag},
		{name: "role-attribute", classify: byRoleAttribute},
		{name: "keywords", classify: byKeywords},
		{name: "geometry", classify: c.byGeometry},
		{name: "alternation", classify: byAlternation},
	}
	return c
}

// Detect returns the role for a candidate element. index is the zero-based
// position of the candidate in document order; the final tier alternates
// on it, so Detect always yields a verdict.
func (c *RoleClassifier) Detect(el *html.Node, index int) model.Role {
	for _, s := range c.strategies {
		if role, ok := s.classify(el, index); ok {
			return role
		}
	}
	// Unreachable: the alternation tier never abstains.
	return model.RoleAssistant
}

// Platform-specific custom elements marking turn authorship.
var structuralTags = map[string]model.Role{
	"user-query":     model.RoleUser,
	"model-response": model.RoleAssistant,
}

func byStructuralTag(el *html.Node, _ int) (model.Role, bool) {
	match := dom.SelfOrAncestor(el, func(n *html.Node) bool {
		_, ok := structuralTags[n.Data]
		return ok
	})
	if match == nil {
		return "", false
	}
	return structuralTags[match.Data], true
}

func byRoleAttribute(el *html.Node, _ int) (model.Role, bool) {
	v, ok := dom.Attr(el, "data-message-author-role")
	if !ok {
		v, ok = dom.Attr(el, "role")
	}
	if !ok || v == "" {
		return "", false
	}
	if v == "user" {
		return model.RoleUser, true
	}
	return model.RoleAssistant, true
}

// Keyword sets cover English and Chinese labels seen across supported
// platforms. User terms are checked before assistant terms.
var (
	userKeywords      = []string{"you", "user", "你", "您", "用户"}
	assistantKeywords = []string{"assistant", "chatgpt", "claude", "gemini", "deepseek", "model", "bot", "ai", "助手", "模型", "回答"}
)

func byKeywords(el *html.Node, _ int) (model.Role, bool) {
	label := strings.ToLower(dom.AttrOr(el, "aria-label", ""))
	text := strings.ToLower(firstRunes(strings.TrimSpace(dom.Text(el)), 50))

	for _, probe := range []string{label, text} {
		if probe == "" {
			continue
		}
		for _, kw := range userKeywords {
			if strings.Contains(probe, kw) {
				return model.RoleUser, true
			}
		}
		for _, kw := range assistantKeywords {
			if strings.Contains(probe, kw) {
				return model.RoleAssistant, true
			}
		}
	}
	return "", false
}

// byGeometry classifies right-aligned bubbles as the user, the common
// layout in left-to-right chat UIs. Geometry comes from a data-cv-left
// annotation stamped by the capture client; anything missing or malformed
// makes this tier abstain rather than fail.
func (c *RoleClassifier) byGeometry(el *html.Node, _ int) (model.Role, bool) {
	if c.viewportWidth <= 0 {
		return "", false
	}
	raw, ok := dom.Attr(el, "data-cv-left")
	if !ok {
		return "", false
	}
	left, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	if left > c.viewportWidth/2 {
		return model.RoleUser, true
	}
	return "", false
}

func byAlternation(_ *html.Node, index int) (model.Role, bool) {
	if index%2 == 0 {
		return model.RoleUser, true
	}
	return model.RoleAssistant, true
}

// firstRunes returns at most n runes of s.
func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
