package crown

import (
	"context"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/locate/testutil"
	"github.com/grez-lucas/event-locator/internal/scraper/poll"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"go.uber.org/zap/zaptest"
)

type stubLookup struct {
	date string
}

func (s stubLookup) MapSport(name string) string {
	if name == "" {
		return "Other Sports"
	}
	return name
}

func (s stubLookup) ToTargetDateToken(string) (string, bool) {
	return s.date, s.date != ""
}

// recorder collects every reported event.
type recorder struct {
	mu     sync.Mutex
	events []locate.Event
}

func (r *recorder) Report(_ context.Context, ev locate.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) ofType(t locate.EventType) []locate.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []locate.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) terminal() []locate.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []locate.Event
	for _, ev := range r.events {
		if ev.Type.IsTerminal() {
			out = append(out, ev)
		}
	}
	return out
}

func newTestSurface(t *testing.T, tree ui.Tree, clock poll.Clock) surface {
	t.Helper()
	return surface{
		tree:  tree,
		clock: clock,
		log:   zaptest.NewLogger(t),
		kw:    DefaultKeywords(),
		tm:    DefaultTimings(),
	}
}

func parseTree(t *testing.T, html string) *ui.HTMLTree {
	t.Helper()
	tree, err := ui.NewHTMLTree(html)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return tree
}

// openSportsbook loads a sportsbook fixture and wires the click behaviour
// of its navigation: a category tab reveals the sport menu, a sport icon
// reveals the event list of the active category.
func openSportsbook(t *testing.T, name string) *ui.HTMLTree {
	t.Helper()
	tree := testutil.LoadTree(t, "crown", name)

	active := ""
	selectCategory := func(key string) ui.ClickHandler {
		return func(doc *goquery.Document) {
			active = key
			doc.Find(".event-list").SetAttr("hidden", "")
			doc.Find("#sports").RemoveAttr("hidden")
		}
	}
	tree.OnClick("#nav-inplay", selectCategory("inplay"))
	tree.OnClick("#nav-today", selectCategory("today"))
	tree.OnClick("#nav-early", selectCategory("early"))
	tree.OnClick("#sport-soccer", func(doc *goquery.Document) {
		if active != "" {
			doc.Find("#" + active + "-list").RemoveAttr("hidden")
		}
	})
	return tree
}

func snapshot(t *testing.T, tree ui.Tree) []ui.Node {
	t.Helper()
	nodes, err := tree.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return nodes
}

func byID(t *testing.T, nodes []ui.Node, id string) ui.Node {
	t.Helper()
	for _, n := range nodes {
		if n.Attr("id") == id {
			return n
		}
	}
	t.Fatalf("no node with id %q", id)
	return nil
}
