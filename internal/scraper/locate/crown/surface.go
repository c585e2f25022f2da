// Package crown locates a single event on the Crown sportsbook, whose
// navigation is time bucket -> sport -> date -> league -> event.
package crown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grez-lucas/event-locator/internal/scraper/poll"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"go.uber.org/zap"
)

// Timings holds every delay and polling budget of a locate run.
type Timings struct {
	// ActivationDelay separates scrollIntoView from the click on category
	// and sport controls.
	ActivationDelay  time.Duration
	CategoryRetry    poll.Budget
	CategorySettle   time.Duration
	SportPoll        poll.Budget
	SportSettle      time.Duration
	DateSettle       time.Duration
	ListLoad         poll.Budget
	LeagueSettle     time.Duration
	BulkExpandSettle time.Duration
	EnterSettle      time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		ActivationDelay:  300 * time.Millisecond,
		CategoryRetry:    poll.Budget{Interval: time.Second, MaxAttempts: 4},
		CategorySettle:   800 * time.Millisecond,
		SportPoll:        poll.Budget{Interval: 300 * time.Millisecond, MaxAttempts: 10},
		SportSettle:      800 * time.Millisecond,
		DateSettle:       1500 * time.Millisecond,
		ListLoad:         poll.Budget{Interval: time.Second, MaxAttempts: 10},
		LeagueSettle:     800 * time.Millisecond,
		BulkExpandSettle: 300 * time.Millisecond,
		EnterSettle:      time.Second,
	}
}

// surface bundles what every step needs to read and mutate the page.
type surface struct {
	tree  ui.Tree
	clock poll.Clock
	log   *zap.Logger
	kw    *Keywords
	tm    Timings
}

func (s *surface) snapshot(ctx context.Context) ([]ui.Node, error) {
	nodes, err := s.tree.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, ui.ErrTreeUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ui.ErrTreeUnavailable, err)
	}
	return nodes, nil
}

// settle waits the fixed delay, then for the tree's own stability signal.
func (s *surface) settle(ctx context.Context, d time.Duration) error {
	if err := s.clock.Sleep(ctx, d); err != nil {
		return err
	}
	return s.tree.WaitStable(ctx)
}

// activate scrolls n into view, lets layout stabilise, then clicks.
func (s *surface) activate(ctx context.Context, n ui.Node) error {
	if err := n.ScrollIntoView(ctx); err != nil && isFatal(ctx, err) {
		return err
	}
	if err := s.clock.Sleep(ctx, s.tm.ActivationDelay); err != nil {
		return err
	}
	return n.Click(ctx)
}

// press scrolls n into view and clicks it right away.
func (s *surface) press(ctx context.Context, n ui.Node) error {
	if err := n.ScrollIntoView(ctx); err != nil && isFatal(ctx, err) {
		return err
	}
	return n.Click(ctx)
}

// isFatal separates faults that end the run from step failures that only
// mean "try the next fallback".
func isFatal(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil || errors.Is(err, ui.ErrTreeUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
