// Package dom provides element traversal and inspection over parsed HTML
// node trees, including subtrees encapsulated in declarative shadow roots.
package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parse reads an HTML document into a node tree. Shadow subtrees arrive
// serialized as declarative <template shadowrootmode> elements, which the
// parser keeps as ordinary template children.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseString parses an HTML document held in memory.
func ParseString(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// IsShadowRoot reports whether n is a declarative shadow root container,
// the serialized form of an encapsulated shadow subtree.
func IsShadowRoot(n *html.Node) bool {
	if !IsElement(n) || n.Data != "template" {
		return false
	}
	_, ok := Attr(n, "shadowrootmode")
	if !ok {
		// Pre-standard serialization used the shadowroot attribute.
		_, ok = Attr(n, "shadowroot")
	}
	return ok
}

// Walk returns every element under root in depth-first order, descending
// into nested shadow subtrees with no depth limit. A host element always
// precedes the elements of its shadow root. No element appears twice.
func Walk(root *html.Node) []*html.Node {
	var out []*html.Node
	seen := make(map[*html.Node]struct{})

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n == nil {
			return
		}
		if _, dup := seen[n]; dup {
			return
		}
		seen[n] = struct{}{}

		if IsElement(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return out
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or a default when absent.
func AttrOr(n *html.Node, name, def string) string {
	if v, ok := Attr(n, name); ok {
		return v
	}
	return def
}

// Classes returns the element's class list.
func Classes(n *html.Node) []string {
	v, ok := Attr(n, "class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// HasClass reports whether the element carries the exact class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// ClassContains reports whether any class on the element contains the
// given substring. Chat UIs hash or suffix their class names, so substring
// matching is the only stable signal.
func ClassContains(n *html.Node, substr string) bool {
	for _, c := range Classes(n) {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of the subtree, shadow
// subtrees included, with script and style contents omitted.
func Text(n *html.Node) string {
	var b strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if IsElement(n) && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

// SelfOrAncestor returns the nearest node, starting at n and walking up,
// for which pred holds. Returns nil when none matches.
func SelfOrAncestor(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if IsElement(cur) && pred(cur) {
			return cur
		}
	}
	return nil
}

// FindFirst returns the first element under root (root included) matching
// pred, in the same deep depth-first order as Walk.
func FindFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	for _, el := range Walk(root) {
		if pred(el) {
			return el
		}
	}
	return nil
}

// FindAll returns every element under root matching pred.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for _, el := range Walk(root) {
		if pred(el) {
			out = append(out, el)
		}
	}
	return out
}

// PrevSiblingElements returns the element siblings preceding n, nearest
// first.
func PrevSiblingElements(n *html.Node) []*html.Node {
	var out []*html.Node
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if IsElement(s) {
			out = append(out, s)
		}
	}
	return out
}

// ByTag matches elements with the given tag name.
func ByTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

// ByAttr matches elements carrying the named attribute, any value.
func ByAttr(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		_, ok := Attr(n, name)
		return ok
	}
}

// ByClassContains matches elements whose class list contains the substring.
func ByClassContains(substr string) func(*html.Node) bool {
	return func(n *html.Node) bool { return ClassContains(n, substr) }
}
