package ui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "in-play", NormalizeText("  In-Play \n"))
	assert.Equal(t, "sun 30 nov", NormalizeText("SUN\t30   NOV"))
	assert.Empty(t, NormalizeText("   "))
}

func TestWalkHelpers(t *testing.T) {
	tree, err := NewHTMLTree(`<html><body>
		<div id="a" class="league-header is-Expanded"><div id="b"><div id="c"><div id="d"><span id="e">x</span></div></div></div></div>
		<p id="long">this text is far too long to count as a short label</p>
	</body></html>`)
	require.NoError(t, err)
	nodes, err := tree.Snapshot(context.Background())
	require.NoError(t, err)

	e := findByID(t, nodes, "e")
	assert.Len(t, Ancestors(e, 3), 3)
	assert.Len(t, Ancestors(e, -1), 5, "walks up to body")
	assert.Nil(t, ClosestClickable(e, 3))

	a := findByID(t, nodes, "a")
	assert.Len(t, Descendants(a), 4)
	assert.True(t, HasClass(a, "expanded"))
	assert.False(t, HasClass(a, "collapsed"))

	short := VisibleShort(nodes, 20)
	for _, n := range short {
		assert.NotEqual(t, "long", n.Attr("id"))
	}
}
