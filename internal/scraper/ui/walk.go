package ui

import (
	"strings"
)

// NormalizeText lower-cases s and collapses runs of whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Ancestors returns up to depth ancestors of n, nearest first. A negative
// depth walks to the root.
func Ancestors(n Node, depth int) []Node {
	var out []Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		if depth >= 0 && len(out) >= depth {
			break
		}
		out = append(out, p)
	}
	return out
}

// Descendants returns every descendant of n in document order.
func Descendants(n Node) []Node {
	var out []Node
	var walk func(Node)
	walk = func(cur Node) {
		for _, child := range cur.Children() {
			out = append(out, child)
			walk(child)
		}
	}
	walk(n)
	return out
}

// ClosestClickable returns n or its nearest clickable ancestor within depth
// levels, or nil.
func ClosestClickable(n Node, depth int) Node {
	if n.Clickable() {
		return n
	}
	for _, a := range Ancestors(n, depth) {
		if a.Clickable() {
			return a
		}
	}
	return nil
}

// IsLink reports whether n is an anchor element.
func IsLink(n Node) bool {
	return n != nil && n.Tag() == "a"
}

// VisibleShort keeps the visible nodes whose normalized text is non-empty and
// at most maxLen characters long.
func VisibleShort(nodes []Node, maxLen int) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.Visible() {
			continue
		}
		text := NormalizeText(n.Text())
		if text == "" || len([]rune(text)) > maxLen {
			continue
		}
		out = append(out, n)
	}
	return out
}

// HasClass reports whether the class attribute of n contains any of the
// given markers as a substring of one of its class tokens.
func HasClass(n Node, markers ...string) bool {
	for _, cls := range strings.Fields(strings.ToLower(n.Attr("class"))) {
		for _, m := range markers {
			if m != "" && strings.Contains(cls, strings.ToLower(m)) {
				return true
			}
		}
	}
	return false
}
