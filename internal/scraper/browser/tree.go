package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
)

// snapshotJS enumerates every element under body in document order and keeps
// the element list on window so later clicks can resolve a node by index.
const snapshotJS = `(gen, maxText) => {
	if (!document.body) return null;
	const els = Array.from(document.body.querySelectorAll('*'));
	window.__locatorNodes = { gen: gen, els: els };
	const index = new Map();
	els.forEach((el, i) => index.set(el, i));

	const out = els.map((el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const visible = rect.width > 0 && rect.height > 0 &&
			style.display !== 'none' && style.visibility !== 'hidden' &&
			(el.offsetParent !== null || style.position === 'fixed');

		let own = '';
		for (const child of el.childNodes) {
			if (child.nodeType === Node.TEXT_NODE) own += ' ' + child.textContent;
		}
		const text = (el.innerText !== undefined ? el.innerText : el.textContent) || '';
		const tag = el.tagName.toLowerCase();
		const clickable = tag === 'a' || tag === 'button' ||
			el.hasAttribute('onclick') || typeof el.onclick === 'function' ||
			el.getAttribute('role') === 'button' || style.cursor === 'pointer';

		const attrs = {};
		for (const a of el.attributes) attrs[a.name] = a.value.slice(0, 200);

		return {
			tag: tag,
			text: text.slice(0, maxText),
			own: own.slice(0, maxText),
			visible: visible,
			clickable: clickable,
			w: rect.width,
			h: rect.height,
			parent: index.has(el.parentElement) ? index.get(el.parentElement) : -1,
			attrs: attrs,
		};
	});
	return JSON.stringify(out);
}`

const resolveJS = `(gen, i) => {
	const s = window.__locatorNodes;
	if (!s || s.gen !== gen) return null;
	const el = s.els[i];
	return el && el.isConnected ? el : null;
}`

const scrollBottomJS = `() => {
	window.scrollTo(0, document.body ? document.body.scrollHeight : 0);
	return true;
}`

type nodeRecord struct {
	Tag       string            `json:"tag"`
	Text      string            `json:"text"`
	Own       string            `json:"own"`
	Visible   bool              `json:"visible"`
	Clickable bool              `json:"clickable"`
	Width     float64           `json:"w"`
	Height    float64           `json:"h"`
	Parent    int               `json:"parent"`
	Attrs     map[string]string `json:"attrs"`
}

// TreeOption configures a RodTree.
type TreeOption func(*RodTree)

// WithStableWindow sets how long the DOM must stay unchanged before
// WaitStable returns, and the upper bound on the whole wait.
func WithStableWindow(window, timeout time.Duration) TreeOption {
	return func(t *RodTree) {
		t.stableWindow = window
		t.stableTimeout = timeout
	}
}

// WithMaxText caps the text captured per node.
func WithMaxText(n int) TreeOption {
	return func(t *RodTree) {
		t.maxText = n
	}
}

// RodTree is a ui.Tree over a live page or frame.
type RodTree struct {
	page *rod.Page

	mu  sync.Mutex
	gen int

	stableWindow  time.Duration
	stableTimeout time.Duration
	maxText       int
}

// NewRodTree wraps page. Pass the frame returned by TargetFrame when the
// sportsbook renders inside an iframe.
func NewRodTree(page *rod.Page, opts ...TreeOption) *RodTree {
	t := &RodTree{
		page:          page,
		stableWindow:  300 * time.Millisecond,
		stableTimeout: 3 * time.Second,
		maxText:       2000,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Snapshot enumerates the page. Nodes from an earlier snapshot become stale.
func (t *RodTree) Snapshot(ctx context.Context) ([]ui.Node, error) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	res, err := t.page.Context(ctx).Eval(snapshotJS, gen, t.maxText)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ui.ErrTreeUnavailable, err)
	}
	if res.Value.Nil() {
		return nil, fmt.Errorf("%w: document has no body", ui.ErrTreeUnavailable)
	}

	var records []nodeRecord
	if err := json.Unmarshal([]byte(res.Value.Str()), &records); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", ui.ErrTreeUnavailable, err)
	}
	return t.build(gen, records), nil
}

func (t *RodTree) build(gen int, records []nodeRecord) []ui.Node {
	nodes := make([]*RodNode, len(records))
	for i := range records {
		nodes[i] = &RodNode{tree: t, gen: gen, index: i, rec: records[i]}
	}

	var roots []*RodNode
	for i, n := range nodes {
		p := records[i].Parent
		if p < 0 || p >= len(nodes) {
			roots = append(roots, n)
			continue
		}
		n.parent = nodes[p]
		nodes[p].children = append(nodes[p].children, n)
	}
	linkSiblings(roots)
	for _, n := range nodes {
		linkSiblings(n.children)
	}

	out := make([]ui.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

func linkSiblings(group []*RodNode) {
	for i := 0; i+1 < len(group); i++ {
		group[i].next = group[i+1]
	}
}

// ScrollToBottom scrolls the window to the end of the document.
func (t *RodTree) ScrollToBottom(ctx context.Context) error {
	if _, err := t.page.Context(ctx).Eval(scrollBottomJS); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: scroll: %v", ui.ErrTreeUnavailable, err)
	}
	return nil
}

// WaitStable waits for the DOM to stop changing. A page that keeps mutating
// past the stable timeout is treated as settled.
func (t *RodTree) WaitStable(ctx context.Context) error {
	err := t.page.Context(ctx).Timeout(t.stableTimeout).WaitDOMStable(t.stableWindow, 0)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return fmt.Errorf("%w: wait stable: %v", ui.ErrTreeUnavailable, err)
}

func (t *RodTree) current(gen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen
}

// element resolves n back to a live element.
func (t *RodTree) element(ctx context.Context, n *RodNode) (*rod.Element, error) {
	if !t.current(n.gen) {
		return nil, ui.ErrStaleNode
	}
	page := t.page.Context(ctx)
	obj, err := page.Evaluate(rod.Eval(resolveJS, n.gen, n.index).ByObject())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: resolve node: %v", ui.ErrTreeUnavailable, err)
	}
	if obj.ObjectID == "" || obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull {
		return nil, ui.ErrStaleNode
	}
	return page.ElementFromObject(obj)
}

// RodNode is one element of a RodTree snapshot.
type RodNode struct {
	tree  *RodTree
	gen   int
	index int
	rec   nodeRecord

	parent   *RodNode
	children []*RodNode
	next     *RodNode
}

func (n *RodNode) Text() string    { return collapse(n.rec.Text) }
func (n *RodNode) OwnText() string { return collapse(n.rec.Own) }
func (n *RodNode) Tag() string     { return n.rec.Tag }
func (n *RodNode) Visible() bool   { return n.rec.Visible }
func (n *RodNode) Clickable() bool { return n.rec.Clickable }
func (n *RodNode) ChildCount() int { return len(n.children) }

func (n *RodNode) Attr(name string) string {
	return n.rec.Attrs[name]
}

func (n *RodNode) Size() (float64, float64) {
	return n.rec.Width, n.rec.Height
}

func (n *RodNode) Parent() ui.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *RodNode) Children() []ui.Node {
	out := make([]ui.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *RodNode) NextSibling() ui.Node {
	if n.next == nil {
		return nil
	}
	return n.next
}

// Click dispatches a DOM click on the element. Hidden elements are refused.
func (n *RodNode) Click(ctx context.Context) error {
	if !n.rec.Visible {
		return ui.ErrNotInteractable
	}
	el, err := n.tree.element(ctx, n)
	if err != nil {
		return err
	}
	if _, err := el.Eval(`() => this.click()`); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("click %s: %w", n.rec.Tag, err)
	}
	return nil
}

func (n *RodNode) ScrollIntoView(ctx context.Context) error {
	el, err := n.tree.element(ctx, n)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("scroll %s into view: %w", n.rec.Tag, err)
	}
	return nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
