package crown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/poll"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var brentfordQuery = locate.Query{
	Sport:         "Soccer",
	Team1:         "Brentford FC",
	Team2:         "Wolverhampton Wanderers FC",
	League:        "Premier League",
	MatchTimeHint: "Mon, Dec 1 at 4:00 AM",
}

func newTestLocator(t *testing.T, tree ui.Tree, clock poll.Clock, opts ...Option) *Locator {
	t.Helper()
	base := []Option{WithClock(clock), WithLogger(zaptest.NewLogger(t))}
	return NewLocator(tree, stubLookup{date: "MON 1 DEC"}, append(base, opts...)...)
}

func TestLocator_FoundInToday(t *testing.T) {
	tree := openSportsbook(t, "sportsbook")
	rec := &recorder{}
	loc := newTestLocator(t, tree, &poll.FakeClock{})

	outcome, err := loc.Locate(context.Background(), brentfordQuery, rec)
	require.NoError(t, err)

	require.True(t, outcome.Found)
	assert.Equal(t, locate.CategoryToday, outcome.Category)
	assert.Equal(t, []locate.Category{locate.CategoryEarly, locate.CategoryToday}, outcome.Attempted)
	assert.Equal(t, 1, tree.Clicked("#brentford-link"), "the team link inside the row is entered")
	assert.Equal(t, "Brentford FC", outcome.Node.Text())

	row := byID(t, snapshot(t, tree), "brentford-row")
	assert.Equal(t, "Brentford FC vs Wolverhampton Wanderers FC 16:00", row.Text())

	found := rec.ofType(locate.EventMatchFound)
	require.Len(t, found, 1)
	assert.Equal(t, locate.CategoryToday, found[0].Category)
	assert.Equal(t, "Brentford FC", found[0].Team1)
	assert.Len(t, rec.terminal(), 1)

	var categories []locate.Category
	for _, ev := range rec.ofType(locate.EventCategoryClickSuccess) {
		categories = append(categories, ev.Category)
	}
	assert.Equal(t, []locate.Category{locate.CategoryEarly, locate.CategoryToday}, categories)
	assert.Len(t, rec.ofType(locate.EventSportClickSuccess), 2)
}

func TestLocator_NotFound(t *testing.T) {
	tree := openSportsbook(t, "sportsbook-no-match")
	rec := &recorder{}
	loc := newTestLocator(t, tree, &poll.FakeClock{})

	outcome, err := loc.Locate(context.Background(), brentfordQuery, rec)
	require.NoError(t, err)

	assert.False(t, outcome.Found)
	assert.Equal(t, []locate.Category{locate.CategoryEarly, locate.CategoryToday}, outcome.Attempted)
	assert.Len(t, rec.ofType(locate.EventMatchNotFound), 1)
	assert.Empty(t, rec.ofType(locate.EventMatchFound))
	assert.Len(t, rec.terminal(), 1)
	assert.Equal(t, 2, tree.ScrollCount(), "each category gets one scroll-and-expand fallback")
}

func TestLocator_MissingCategoryMovesOn(t *testing.T) {
	tree := openSportsbook(t, "sportsbook-no-early")
	rec := &recorder{}
	clock := &poll.FakeClock{}
	loc := newTestLocator(t, tree, clock)

	outcome, err := loc.Locate(context.Background(), brentfordQuery, rec)
	require.NoError(t, err)

	sleeps := clock.Sleeps()
	require.GreaterOrEqual(t, len(sleeps), 3)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, sleeps[:3], "three retries one second apart")
	assert.Equal(t, DefaultTimings().ActivationDelay, sleeps[3], "then the Today tab is activated")

	failed := rec.ofType(locate.EventCategoryClickFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, locate.CategoryEarly, failed[0].Category)

	require.True(t, outcome.Found)
	assert.Equal(t, locate.CategoryToday, outcome.Category)
	assert.Len(t, rec.terminal(), 1)
}

func TestLocator_UnknownTeamNeverMatches(t *testing.T) {
	tree := openSportsbook(t, "sportsbook")
	rec := &recorder{}
	loc := newTestLocator(t, tree, &poll.FakeClock{})

	q := brentfordQuery
	q.Team1 = locate.Unknown

	outcome, err := loc.Locate(context.Background(), q, rec)
	require.NoError(t, err)

	assert.False(t, outcome.Found)
	assert.Empty(t, rec.ofType(locate.EventMatchFound))
	assert.Len(t, rec.ofType(locate.EventMatchNotFound), 1)
	assert.Equal(t, 0, tree.Clicked(".team"))
}

func TestLocator_TreeUnavailableAborts(t *testing.T) {
	tree := openSportsbook(t, "sportsbook")
	tree.Detach()
	rec := &recorder{}
	loc := newTestLocator(t, tree, &poll.FakeClock{})

	outcome, err := loc.Locate(context.Background(), brentfordQuery, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ui.ErrTreeUnavailable)

	var locErr *locate.LocateError
	require.True(t, errors.As(err, &locErr))
	assert.Equal(t, StepSelectCategory, locErr.Step)
	assert.Equal(t, locate.CategoryEarly, locErr.Category)

	assert.False(t, outcome.Found)
	assert.Equal(t, []locate.Category{locate.CategoryEarly}, outcome.Attempted, "no further category is tried")

	terminal := rec.terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, locate.EventMatchNotFound, terminal[0].Type)
	assert.NotEmpty(t, terminal[0].Reason)
}

func TestLocator_ContextCanceled(t *testing.T) {
	tree := openSportsbook(t, "sportsbook")
	rec := &recorder{}
	loc := newTestLocator(t, tree, &poll.FakeClock{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loc.Locate(ctx, brentfordQuery, rec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.terminal(), 1, "the terminal event is still reported")
	assert.Empty(t, tree.ClickedTexts())
}

func TestLocator_RejectsConcurrentRun(t *testing.T) {
	tree := openSportsbook(t, "sportsbook")
	loc := newTestLocator(t, tree, &poll.FakeClock{})

	var nestedErr error
	calls := 0
	rep := locate.ReporterFunc(func(ctx context.Context, ev locate.Event) error {
		calls++
		if calls == 1 {
			_, nestedErr = loc.Locate(ctx, brentfordQuery, nil)
		}
		return nil
	})

	outcome, err := loc.Locate(context.Background(), brentfordQuery, rep)
	require.NoError(t, err)
	assert.True(t, outcome.Found)
	assert.ErrorIs(t, nestedErr, locate.ErrBusy)

	// The lock is released once the run ends.
	_, err = loc.Locate(context.Background(), brentfordQuery, nil)
	assert.NoError(t, err)
}

func TestLocator_CategoryOrder(t *testing.T) {
	tree := openSportsbook(t, "sportsbook")

	loc := newTestLocator(t, tree, &poll.FakeClock{},
		WithCategoryOrder([]locate.Category{locate.CategoryToday, locate.CategoryToday, "Tomorrow"}))
	assert.Equal(t, []locate.Category{locate.CategoryToday}, loc.CategoryOrder())

	rec := &recorder{}
	outcome, err := loc.Locate(context.Background(), brentfordQuery, rec)
	require.NoError(t, err)
	assert.True(t, outcome.Found)
	assert.Equal(t, 0, tree.Clicked("#nav-early"))

	empty := newTestLocator(t, tree, &poll.FakeClock{}, WithCategoryOrder(nil))
	assert.Equal(t, DefaultCategoryOrder(), empty.CategoryOrder())
}

func TestLocator_NilReporter(t *testing.T) {
	tree := openSportsbook(t, "sportsbook")
	loc := newTestLocator(t, tree, &poll.FakeClock{})

	outcome, err := loc.Locate(context.Background(), brentfordQuery, nil)
	require.NoError(t, err)
	assert.True(t, outcome.Found)
}
