// Package markdown renders HTML subtrees to Markdown text.
//
// The renderer is one-way and best-effort: it recovers the structure a chat
// UI rendered from model output (code fences, emphasis, links, lists) well
// enough for an archive, without promising round-trip fidelity.
package markdown

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/chatvault/chatvault/internal/dom"
)

// Tags that never contribute conversational content.
var prunedTags = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"header": true,
	"footer": true,
	"button": true,
}

// Class fragments that mark screen-reader-only helper text.
var srOnlyClasses = []string{"sr-only", "screen-reader", "visually-hidden"}

// Render converts a node subtree to Markdown.
func Render(n *html.Node) string {
	if n == nil {
		return ""
	}

	switch n.Type {
	case html.TextNode:
		return n.Data
	case html.DocumentNode:
		return renderChildren(n)
	case html.ElementNode:
		// handled below
	default:
		return ""
	}

	if pruned(n) {
		return ""
	}

	switch n.Data {
	case "pre":
		return renderCodeBlock(n)
	case "code":
		// Inline code; block code is handled by the pre branch above.
		return " `" + dom.Text(n) + "` "
	case "strong", "b":
		return "**" + renderChildren(n) + "**"
	case "em", "i":
		return "*" + renderChildren(n) + "*"
	case "a":
		return fmt.Sprintf("[%s](%s)", renderChildren(n), dom.AttrOr(n, "href", ""))
	case "ol":
		return renderList(n, true)
	case "ul":
		return renderList(n, false)
	case "p":
		return strings.TrimSpace(renderChildren(n)) + "\n\n"
	case "br":
		return "\n"
	default:
		return renderChildren(n)
	}
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(Render(c))
	}
	return b.String()
}

// pruned reports whether the element is structurally or semantically
// non-content and must render to nothing.
func pruned(n *html.Node) bool {
	if prunedTags[n.Data] {
		return true
	}
	if v, ok := dom.Attr(n, "aria-hidden"); ok && v == "true" {
		return true
	}
	for _, cls := range srOnlyClasses {
		if dom.ClassContains(n, cls) {
			return true
		}
	}
	return false
}

// renderCodeBlock emits a fenced code block. The language tag comes from a
// language-XXX class on the inner code element when present. Content is
// taken verbatim; nothing inside a fence is interpreted as markup.
func renderCodeBlock(pre *html.Node) string {
	code := dom.FindFirst(pre, func(n *html.Node) bool {
		return n != pre && n.Data == "code"
	})

	lang := ""
	src := pre
	if code != nil {
		src = code
		for _, c := range dom.Classes(code) {
			if strings.HasPrefix(c, "language-") {
				lang = strings.TrimPrefix(c, "language-")
				break
			}
		}
	}

	content := strings.TrimRight(dom.Text(src), "\n")
	return "\n```" + lang + "\n" + content + "\n```\n\n"
}

// renderList emits each direct li child as one item, 1-based numbered for
// ordered lists, dash-prefixed otherwise, with blank lines around the list.
func renderList(list *html.Node, ordered bool) string {
	var b strings.Builder
	b.WriteString("\n")
	index := 0
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if !dom.IsElement(c) || c.Data != "li" {
			continue
		}
		index++
		item := strings.TrimSpace(renderChildren(c))
		if ordered {
			fmt.Fprintf(&b, "%d. %s\n", index, item)
		} else {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	b.WriteString("\n")
	return b.String()
}
