package crown

import (
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/poll"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suffixes = DefaultKeywords().ClubSuffixes

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"suffix", "Brentford FC", "brentford"},
		{"no suffix", "Brentford", "brentford"},
		{"multi word", "Wolverhampton Wanderers FC", "wolverhampton wanderers"},
		{"stacked suffixes", "Leeds United FC", "leeds"},
		{"whitespace", "  Manchester   City  ", "manchester city"},
		{"suffix only in the middle", "FC Porto", "fc porto"},
		{"suffix glued to a word", "Hertha BSC", "hertha bsc"},
		{"name equal to a suffix", "United", "united"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in, suffixes)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got, suffixes), "normalize must be idempotent")
		})
	}

	assert.Equal(t, Normalize("Brentford", suffixes), Normalize("Brentford FC", suffixes))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"wolverhampton", "wanderers"}, Tokens("Wolverhampton Wanderers FC", suffixes))
	assert.Equal(t, []string{"real"}, Tokens("Real Real", suffixes))
	assert.Empty(t, Tokens(locate.Unknown, suffixes))
	assert.Empty(t, Tokens("unknown", suffixes))
	assert.Empty(t, Tokens("   ", suffixes))
}

func TestScore(t *testing.T) {
	team1 := Tokens("Brentford FC", suffixes)
	team2 := Tokens("Wolverhampton Wanderers FC", suffixes)

	tests := []struct {
		name      string
		text      string
		wantScore int
		wantOK    bool
	}{
		{"full row", "Brentford FC vs Wolverhampton Wanderers FC 16:00", 3, true},
		{"short names", "Brentford v Wolverhampton", 2, true},
		{"only team1", "Brentford FC vs Arsenal", 1, false},
		{"only team2", "Wolverhampton Wanderers", 2, false},
		{"neither", "Fulham vs Everton", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := Score(tt.text, team1, team2)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantOK, ok)
		})
	}

	t.Run("unknown team never qualifies", func(t *testing.T) {
		_, ok := Score("Unknown vs Brentford", Tokens(locate.Unknown, suffixes), team1)
		assert.False(t, ok)
	})
}

func TestScore_AddingTeamTokenNeverLowersScore(t *testing.T) {
	team1 := Tokens("Brentford FC", suffixes)
	team2 := Tokens("Wolverhampton Wanderers FC", suffixes)

	texts := []string{
		"Brentford vs Wolverhampton",
		"Brentford",
		"",
		"Brentford vs Wanderers 16:00",
	}
	for _, text := range texts {
		before, _ := Score(text, team1, team2)
		for _, tok := range team2 {
			after, _ := Score(text+" "+tok, team1, team2)
			assert.GreaterOrEqual(t, after, before, "text %q + %q", text, tok)
		}
	}
}

func TestMatcher_RankTieKeepsDocumentOrder(t *testing.T) {
	tree := parseTree(t, `<html><body>
		<div id="a">Brentford vs Wolverhampton 16:00</div>
		<div id="b">Brentford vs Wolverhampton 19:00</div>
		<div id="c">Brentford vs Wolverhampton Wanderers 21:00</div>
		<div id="d">Brentford vs Wolverhampton 22:00</div>
	</body></html>`)
	m := &Matcher{surface: newTestSurface(t, tree, &poll.FakeClock{})}
	team1 := Tokens("Brentford", suffixes)
	team2 := Tokens("Wolverhampton Wanderers", suffixes)

	for i := 0; i < 5; i++ {
		ranked := m.Rank(snapshot(t, tree), team1, team2)
		require.Len(t, ranked, 4)
		assert.Equal(t, "c", ranked[0].Node.Attr("id"))
		assert.Equal(t, 3, ranked[0].Score)
		assert.Equal(t, []string{"a", "b", "d"}, []string{
			ranked[1].Node.Attr("id"), ranked[2].Node.Attr("id"), ranked[3].Node.Attr("id"),
		})
	}
}

func TestMatcher_RankSkipsHiddenAndContainers(t *testing.T) {
	tree := parseTree(t, `<html><body>
		<div id="hidden" hidden>Brentford vs Wolverhampton 16:00</div>
		<ul id="big">
			<li>Brentford</li><li>x</li><li>x</li><li>x</li><li>x</li><li>x</li>
			<li>x</li><li>x</li><li>x</li><li>x</li><li>Wolverhampton</li>
		</ul>
	</body></html>`)
	m := &Matcher{surface: newTestSurface(t, tree, &poll.FakeClock{})}

	ranked := m.Rank(snapshot(t, tree), Tokens("Brentford", suffixes), Tokens("Wolverhampton", suffixes))
	assert.Empty(t, ranked)
}

func TestMatcher_Find(t *testing.T) {
	q := locate.Query{Team1: "Brentford FC", Team2: "Wolverhampton Wanderers FC"}

	t.Run("found on first scan", func(t *testing.T) {
		tree := parseTree(t, `<html><body><div id="row">Brentford FC vs Wolverhampton Wanderers FC 16:00</div></body></html>`)
		clock := &poll.FakeClock{}
		m := newMatcher(t, tree, clock)

		best, err := m.Find(context.Background(), q)
		require.NoError(t, err)
		require.NotNil(t, best)
		assert.Equal(t, "row", best.Node.Attr("id"))
		assert.Equal(t, 0, tree.ScrollCount())
		assert.Empty(t, clock.Sleeps())
	})

	t.Run("found after expanding collapsed leagues", func(t *testing.T) {
		tree := parseTree(t, `<html><body>
			<div id="header" onclick="toggle()">England - Premier League</div>
			<div id="body" hidden><div>Brentford FC vs Wolverhampton Wanderers FC 16:00</div></div>
		</body></html>`)
		tree.OnClick("#header", func(doc *goquery.Document) {
			doc.Find("#body").RemoveAttr("hidden")
		})
		clock := &poll.FakeClock{}
		m := newMatcher(t, tree, clock)

		best, err := m.Find(context.Background(), q)
		require.NoError(t, err)
		require.NotNil(t, best)
		assert.Equal(t, 1, tree.ScrollCount())
		assert.Equal(t, 1, tree.Clicked("#header"))
		assert.Equal(t, 2, clock.Count(DefaultTimings().BulkExpandSettle), "one settle per header and one before the rescan")
	})

	t.Run("nothing to find", func(t *testing.T) {
		tree := parseTree(t, `<html><body><div>Fulham vs Everton 18:30</div></body></html>`)
		m := newMatcher(t, tree, &poll.FakeClock{})

		best, err := m.Find(context.Background(), q)
		require.NoError(t, err)
		assert.Nil(t, best)
		assert.Equal(t, 1, tree.ScrollCount(), "the fallback runs exactly once")
	})

	t.Run("unknown team never matches", func(t *testing.T) {
		tree := parseTree(t, `<html><body><div>Unknown vs Wolverhampton Wanderers FC 16:00</div></body></html>`)
		m := newMatcher(t, tree, &poll.FakeClock{})

		best, err := m.Find(context.Background(), locate.Query{Team1: locate.Unknown, Team2: q.Team2})
		require.NoError(t, err)
		assert.Nil(t, best)
		assert.Equal(t, 0, tree.ScrollCount())
	})

	t.Run("blank team never matches", func(t *testing.T) {
		tree := parseTree(t, `<html><body><div>Brentford FC vs Wolverhampton Wanderers FC 16:00</div></body></html>`)
		m := newMatcher(t, tree, &poll.FakeClock{})

		best, err := m.Find(context.Background(), locate.Query{Team1: q.Team1, Team2: "  "})
		require.NoError(t, err)
		assert.Nil(t, best)
		assert.Equal(t, 0, tree.ScrollCount())
	})
}

func TestMatcher_Enter(t *testing.T) {
	q := locate.Query{Team1: "Brentford FC", Team2: "Wolverhampton Wanderers FC"}

	t.Run("prefers the team link", func(t *testing.T) {
		tree := parseTree(t, `<html><body>
			<div id="row"><a id="t1" href="#m">Brentford FC</a> vs <a id="t2" href="#m">Wolverhampton Wanderers FC</a> 16:00</div>
		</body></html>`)
		clock := &poll.FakeClock{}
		m := newMatcher(t, tree, clock)
		row := byID(t, snapshot(t, tree), "row")

		entered, err := m.Enter(context.Background(), locate.Candidate{Node: row, Score: 3}, q)
		require.NoError(t, err)
		assert.Equal(t, "t1", entered.Attr("id"))
		assert.Equal(t, 1, tree.Clicked("#t1"))
		assert.Equal(t, 0, tree.Clicked("#row"))
		assert.Equal(t, 1, clock.Count(DefaultTimings().EnterSettle))
	})

	t.Run("falls back to the row", func(t *testing.T) {
		tree := parseTree(t, `<html><body>
			<div id="row"><span>Brentford FC</span> vs <span>Wolverhampton Wanderers FC</span> 16:00</div>
		</body></html>`)
		clock := &poll.FakeClock{}
		m := newMatcher(t, tree, clock)
		row := byID(t, snapshot(t, tree), "row")

		entered, err := m.Enter(context.Background(), locate.Candidate{Node: row, Score: 3}, q)
		require.NoError(t, err)
		assert.Equal(t, "row", entered.Attr("id"))
		assert.Equal(t, 1, tree.Clicked("#row"))
		assert.Equal(t, 1, clock.Count(DefaultTimings().EnterSettle))
	})
}

func TestMatcher_EnterSharedTokenRows(t *testing.T) {
	tree := parseTree(t, `<html><body>
		<section id="list">
			<div class="league-header">England - Premier League</div>
			<div id="leicester-row"><a id="leicester" href="#m-1">Leicester City</a> vs <a href="#m-1">Chelsea</a> 15:00</div>
			<div id="mancity-row"><a id="mancity" href="#m-2">Manchester City</a> vs <a id="arsenal" href="#m-2">Arsenal</a> 17:30</div>
		</section>
	</body></html>`)
	m := newMatcher(t, tree, &poll.FakeClock{})
	q := locate.Query{Team1: "Manchester City", Team2: "Arsenal"}

	best, err := m.Find(context.Background(), q)
	require.NoError(t, err)
	require.NotNil(t, best)

	entered, err := m.Enter(context.Background(), *best, q)
	require.NoError(t, err)
	assert.Equal(t, "mancity", entered.Attr("id"))
	assert.Equal(t, 1, tree.Clicked("#mancity"))
	assert.Equal(t, 0, tree.Clicked("#leicester"), "a shared token must not pull in another row")

	t.Run("wrapper candidate resolves to its row", func(t *testing.T) {
		tree := parseTree(t, `<html><body>
			<section id="list">
				<div id="leicester-row"><span>Leicester City</span> vs <span>Chelsea</span> 15:00</div>
				<div id="mancity-row"><span>Manchester City</span> vs <span>Arsenal</span> 17:30</div>
			</section>
		</body></html>`)
		m := newMatcher(t, tree, &poll.FakeClock{})
		list := byID(t, snapshot(t, tree), "list")
		score, ok := Score(list.Text(), Tokens(q.Team1, suffixes), Tokens(q.Team2, suffixes))
		require.True(t, ok)

		entered, err := m.Enter(context.Background(), locate.Candidate{Node: list, Score: score}, q)
		require.NoError(t, err)
		assert.Equal(t, "mancity-row", entered.Attr("id"))
		assert.Equal(t, 1, tree.Clicked("#mancity-row"))
		assert.Equal(t, 0, tree.Clicked("#list"))
	})
}

func newMatcher(t *testing.T, tree *ui.HTMLTree, clock *poll.FakeClock) *Matcher {
	t.Helper()
	s := newTestSurface(t, tree, clock)
	return &Matcher{surface: s, leagues: &LeagueExpander{surface: s}}
}
