package ui

import (
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const navPage = `<html><body>
<nav id="nav">
	<a id="today" href="#today"><span>Today</span></a>
	<div id="early" style="cursor: pointer">Early</div>
	<span id="ghost" hidden>Soon</span>
</nav>
<section id="list" style="display:none">
	<div class="row">Brentford FC vs Wolverhampton Wanderers FC <b>16:00</b></div>
</section>
<div id="collapsed" data-height="0">Premier League</div>
</body></html>`

func findByID(t *testing.T, nodes []Node, id string) Node {
	t.Helper()
	for _, n := range nodes {
		if n.Attr("id") == id {
			return n
		}
	}
	t.Fatalf("node #%s not found", id)
	return nil
}

func TestHTMLTree_SnapshotDocumentOrder(t *testing.T) {
	tree, err := NewHTMLTree(navPage)
	require.NoError(t, err)

	nodes, err := tree.Snapshot(context.Background())
	require.NoError(t, err)

	var tags []string
	for _, n := range nodes[:4] {
		tags = append(tags, n.Tag())
	}
	assert.Equal(t, []string{"nav", "a", "span", "div"}, tags)
}

func TestHTMLTree_Visibility(t *testing.T) {
	tree, err := NewHTMLTree(navPage)
	require.NoError(t, err)
	nodes, err := tree.Snapshot(context.Background())
	require.NoError(t, err)

	tests := []struct {
		id      string
		visible bool
	}{
		{"today", true},
		{"early", true},
		{"ghost", false},
		{"list", false},
		{"collapsed", false},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			n := findByID(t, nodes, tc.id)
			assert.Equal(t, tc.visible, n.Visible())
			w, h := n.Size()
			if tc.visible {
				assert.Positive(t, w)
				assert.Positive(t, h)
			} else {
				assert.Zero(t, w)
			}
		})
	}

	row := findByID(t, nodes, "list").Children()[0]
	assert.False(t, row.Visible(), "descendants of a hidden container are hidden")
}

func TestHTMLTree_NodeFacts(t *testing.T) {
	tree, err := NewHTMLTree(navPage)
	require.NoError(t, err)
	nodes, err := tree.Snapshot(context.Background())
	require.NoError(t, err)

	today := findByID(t, nodes, "today")
	assert.Equal(t, "Today", today.Text())
	assert.Empty(t, today.OwnText())
	assert.True(t, today.Clickable())
	assert.Equal(t, 1, today.ChildCount())
	assert.Equal(t, "nav", today.Parent().Tag())

	early := findByID(t, nodes, "early")
	assert.True(t, early.Clickable(), "cursor:pointer marks clickability")
	assert.Equal(t, "Early", early.OwnText())

	span := today.Children()[0]
	assert.False(t, span.Clickable())
	assert.True(t, IsLink(span.Parent()))
	assert.Same(t, today.(*htmlNode).sel.Nodes[0], ClosestClickable(span, 3).(*htmlNode).sel.Nodes[0])

	row := findByID(t, nodes, "list").Children()[0]
	assert.Equal(t, "Brentford FC vs Wolverhampton Wanderers FC 16:00", row.Text())
}

func TestHTMLTree_ClickBubblesToHandlers(t *testing.T) {
	tree, err := NewHTMLTree(navPage)
	require.NoError(t, err)

	tree.OnClick("#today", func(doc *goquery.Document) {
		doc.Find("#list").RemoveAttr("style")
	})

	nodes, err := tree.Snapshot(context.Background())
	require.NoError(t, err)
	span := findByID(t, nodes, "today").Children()[0]

	require.NoError(t, span.Click(context.Background()))

	nodes, err = tree.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, findByID(t, nodes, "list").Visible())
	assert.Equal(t, 1, tree.Clicked("span"))
	assert.Equal(t, 0, tree.Clicked("#today"), "the target is the span, not the link")
	assert.Equal(t, []string{"Today"}, tree.ClickedTexts())
}

func TestHTMLTree_ClickHiddenNode(t *testing.T) {
	tree, err := NewHTMLTree(navPage)
	require.NoError(t, err)
	nodes, err := tree.Snapshot(context.Background())
	require.NoError(t, err)

	err = findByID(t, nodes, "ghost").Click(context.Background())
	assert.ErrorIs(t, err, ErrNotInteractable)
	assert.Empty(t, tree.ClickedTexts())
}

func TestHTMLTree_ClickRemovedNode(t *testing.T) {
	tree, err := NewHTMLTree(navPage)
	require.NoError(t, err)
	tree.OnClick("#today", func(doc *goquery.Document) {
		doc.Find("#ghost").Remove()
	})
	nodes, err := tree.Snapshot(context.Background())
	require.NoError(t, err)
	ghost := findByID(t, nodes, "ghost")

	require.NoError(t, findByID(t, nodes, "today").Click(context.Background()))

	err = ghost.Click(context.Background())
	assert.ErrorIs(t, err, ErrStaleNode)
	assert.Equal(t, []string{"Today"}, tree.ClickedTexts())
}

func TestHTMLTree_Detached(t *testing.T) {
	tree, err := NewHTMLTree(navPage)
	require.NoError(t, err)
	tree.Detach()

	_, err = tree.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrTreeUnavailable)
}

func TestHTMLTree_ScrollToBottom(t *testing.T) {
	tree, err := NewHTMLTree(navPage)
	require.NoError(t, err)

	require.NoError(t, tree.ScrollToBottom(context.Background()))
	require.NoError(t, tree.ScrollToBottom(context.Background()))
	assert.Equal(t, 2, tree.ScrollCount())
}
