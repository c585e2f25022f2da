package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultStaticWidth  = 120
	defaultStaticHeight = 24
)

// ClickHandler mutates the document in response to a click, standing in for
// the page's own scripts.
type ClickHandler func(doc *goquery.Document)

type clickBinding struct {
	selector string
	fn       ClickHandler
}

// HTMLTree is a Tree over a parsed HTML document. Visibility follows the
// markup: an element is hidden when it or an ancestor carries the hidden
// attribute, display:none, visibility:hidden, or a zero data-width /
// data-height. Clicks bubble from the target to the root and run every
// handler whose selector matches along the way. Clicking a node that a
// handler has since removed from the document fails with ErrStaleNode.
type HTMLTree struct {
	mu       sync.Mutex
	doc      *goquery.Document
	bindings []clickBinding
	clicks   []*goquery.Selection
	scrolls  int
	detached bool
}

// NewHTMLTree parses html into a tree.
func NewHTMLTree(html string) (*HTMLTree, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLTree{doc: doc}, nil
}

// OnClick registers fn for clicks landing on, or bubbling through, an
// element matching selector.
func (t *HTMLTree) OnClick(selector string, fn ClickHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindings = append(t.bindings, clickBinding{selector: selector, fn: fn})
}

// Detach makes every later Snapshot fail, like a page whose root is gone.
func (t *HTMLTree) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detached = true
}

// Clicked counts clicks whose target matched selector.
func (t *HTMLTree) Clicked(selector string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, sel := range t.clicks {
		if sel.Is(selector) {
			n++
		}
	}
	return n
}

// ClickedTexts returns the text of every click target in click order.
func (t *HTMLTree) ClickedTexts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.clicks))
	for _, sel := range t.clicks {
		out = append(out, collapse(sel.Text()))
	}
	return out
}

// ScrollCount returns how many times ScrollToBottom ran.
func (t *HTMLTree) ScrollCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scrolls
}

// HTML renders the current document, including mutations made by handlers.
func (t *HTMLTree) HTML() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doc.Html()
}

func (t *HTMLTree) Snapshot(ctx context.Context) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.detached {
		return nil, fmt.Errorf("%w: document detached", ErrTreeUnavailable)
	}

	body := t.doc.Find("body")
	if body.Length() == 0 {
		return nil, fmt.Errorf("%w: no body element", ErrTreeUnavailable)
	}

	all := body.Find("*")
	nodes := make([]Node, 0, all.Length())
	all.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &htmlNode{tree: t, sel: s})
	})
	return nodes, nil
}

func (t *HTMLTree) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrolls++
	return nil
}

// WaitStable returns immediately; a static document is always settled.
func (t *HTMLTree) WaitStable(ctx context.Context) error {
	return ctx.Err()
}

func (t *HTMLTree) click(target *goquery.Selection) {
	t.mu.Lock()
	t.clicks = append(t.clicks, target)

	var fire []ClickHandler
	for cur := target; cur.Length() > 0 && goquery.NodeName(cur) != "#document"; cur = cur.Parent() {
		for _, b := range t.bindings {
			if cur.Is(b.selector) {
				fire = append(fire, b.fn)
			}
		}
	}
	doc := t.doc
	t.mu.Unlock()

	for _, fn := range fire {
		fn(doc)
	}
}

type htmlNode struct {
	tree *HTMLTree
	sel  *goquery.Selection
}

func (n *htmlNode) Text() string {
	return collapse(n.sel.Text())
}

func (n *htmlNode) OwnText() string {
	var parts []string
	n.sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if txt := collapse(c.Text()); txt != "" {
				parts = append(parts, txt)
			}
		}
	})
	return strings.Join(parts, " ")
}

func (n *htmlNode) Tag() string {
	return goquery.NodeName(n.sel)
}

func (n *htmlNode) Attr(name string) string {
	return n.sel.AttrOr(name, "")
}

func (n *htmlNode) Visible() bool {
	for cur := n.sel; cur.Length() > 0; cur = cur.Parent() {
		name := goquery.NodeName(cur)
		if name == "html" || name == "#document" {
			return true
		}
		if hiddenElement(cur) {
			return false
		}
	}
	return true
}

func hiddenElement(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return true
	}
	return s.AttrOr("data-width", "") == "0" || s.AttrOr("data-height", "") == "0"
}

func (n *htmlNode) Clickable() bool {
	switch n.Tag() {
	case "a", "button":
		return true
	}
	if _, ok := n.sel.Attr("onclick"); ok {
		return true
	}
	if _, ok := n.sel.Attr("href"); ok {
		return true
	}
	if n.sel.AttrOr("role", "") == "button" {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(n.sel.AttrOr("style", "")), " ", "")
	return strings.Contains(style, "cursor:pointer")
}

func (n *htmlNode) Size() (float64, float64) {
	if !n.Visible() {
		return 0, 0
	}
	return dimension(n.sel, "data-width", defaultStaticWidth), dimension(n.sel, "data-height", defaultStaticHeight)
}

func dimension(s *goquery.Selection, attr string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s.AttrOr(attr, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func (n *htmlNode) ChildCount() int {
	return n.sel.Children().Length()
}

func (n *htmlNode) Parent() Node {
	p := n.sel.Parent()
	if p.Length() == 0 {
		return nil
	}
	switch goquery.NodeName(p) {
	case "html", "#document":
		return nil
	}
	return &htmlNode{tree: n.tree, sel: p}
}

func (n *htmlNode) Children() []Node {
	kids := n.sel.Children()
	out := make([]Node, 0, kids.Length())
	kids.Each(func(_ int, c *goquery.Selection) {
		out = append(out, &htmlNode{tree: n.tree, sel: c})
	})
	return out
}

func (n *htmlNode) NextSibling() Node {
	next := n.sel.Next()
	if next.Length() == 0 {
		return nil
	}
	return &htmlNode{tree: n.tree, sel: next}
}

func (n *htmlNode) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !n.attached() {
		return fmt.Errorf("%w: <%s> %q", ErrStaleNode, n.Tag(), n.Text())
	}
	if !n.Visible() {
		return fmt.Errorf("%w: <%s> %q", ErrNotInteractable, n.Tag(), n.Text())
	}
	n.tree.click(n.sel)
	return nil
}

// attached reports whether the node is still part of the document, which a
// handler that rebuilds markup may have changed since the snapshot.
func (n *htmlNode) attached() bool {
	if n.sel.Length() == 0 || n.tree.doc.Length() == 0 {
		return false
	}
	root := n.tree.doc.Nodes[0]
	for cur := n.sel.Nodes[0]; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

func (n *htmlNode) ScrollIntoView(ctx context.Context) error {
	return ctx.Err()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
