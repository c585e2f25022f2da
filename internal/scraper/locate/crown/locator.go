package crown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grez-lucas/event-locator/internal/metrics"
	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/poll"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"go.uber.org/zap"
)

// Step names used in logs, metrics and LocateError.
const (
	StepSelectCategory = "select_category"
	StepSelectSport    = "select_sport"
	StepResolveDate    = "resolve_date"
	StepAwaitListLoad  = "await_list_load"
	StepExpandLeague   = "expand_league"
	StepMatchSearch    = "match_search"
	StepEnter          = "enter"
)

// DefaultCategoryOrder holds the two buckets that cover nearly every event.
func DefaultCategoryOrder() []locate.Category {
	return []locate.Category{locate.CategoryEarly, locate.CategoryToday}
}

// Locator walks the configured categories until the event is entered or
// every category has been tried. It holds the tree exclusively: a second
// Locate call while one runs fails with locate.ErrBusy.
type Locator struct {
	tree   ui.Tree
	lookup locate.Lookup
	clock  poll.Clock
	logger *zap.Logger
	kw     *Keywords
	tm     Timings
	order  []locate.Category

	mu sync.Mutex
}

var _ locate.Locator = (*Locator)(nil)

type Option func(*Locator)

func WithClock(c poll.Clock) Option {
	return func(l *Locator) { l.clock = c }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Locator) { l.logger = log }
}

func WithTimings(t Timings) Option {
	return func(l *Locator) { l.tm = t }
}

func WithKeywords(kw *Keywords) Option {
	return func(l *Locator) { l.kw = kw }
}

// WithCategoryOrder replaces the search order. Invalid and repeated
// categories are dropped; an empty result keeps the default.
func WithCategoryOrder(order []locate.Category) Option {
	return func(l *Locator) {
		var out []locate.Category
		seen := make(map[locate.Category]bool)
		for _, c := range order {
			if c.IsValid() && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
		if len(out) > 0 {
			l.order = out
		}
	}
}

func NewLocator(tree ui.Tree, lookup locate.Lookup, opts ...Option) *Locator {
	l := &Locator{
		tree:   tree,
		lookup: lookup,
		clock:  poll.RealClock{},
		logger: zap.NewNop(),
		tm:     DefaultTimings(),
		order:  DefaultCategoryOrder(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.kw == nil {
		l.kw = DefaultKeywords()
	}
	return l
}

// CategoryOrder returns the categories a run visits, in order.
func (l *Locator) CategoryOrder() []locate.Category {
	return append([]locate.Category(nil), l.order...)
}

// run carries the per-query state of one locate run.
type run struct {
	q   locate.Query
	rep locate.Reporter
	log *zap.Logger

	nav     *Navigator
	dates   *DateResolver
	leagues *LeagueExpander
	matcher *Matcher
}

func (l *Locator) Locate(ctx context.Context, q locate.Query, rep locate.Reporter) (*locate.Outcome, error) {
	if !l.mu.TryLock() {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, locate.ErrBusy
	}
	defer l.mu.Unlock()

	metrics.RunsInFlight.Set(1)
	defer metrics.RunsInFlight.Set(0)
	start := time.Now()
	defer func() { metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	q.Sport = l.lookup.MapSport(q.Sport)
	r := l.newRun(q, rep)
	r.log.Info("locate run started", zap.Stringers("order", l.order))

	outcome := &locate.Outcome{}
	for _, c := range l.order {
		outcome.Attempted = append(outcome.Attempted, c)

		node, err := r.searchCategory(ctx, c)
		if err != nil {
			metrics.RunsTotal.WithLabelValues(metrics.OutcomeFault).Inc()
			r.log.Error("locate run aborted", zap.String("category", c.String()), zap.Error(err))
			r.emit(ctx, locate.Event{
				Type:   locate.EventMatchNotFound,
				Team1:  q.Team1,
				Team2:  q.Team2,
				Reason: err.Error(),
			})
			return outcome, err
		}
		if node != nil {
			outcome.Found = true
			outcome.Category = c
			outcome.Node = node
			metrics.RunsTotal.WithLabelValues(metrics.OutcomeFound).Inc()
			r.log.Info("event located", zap.String("category", c.String()))
			r.emit(ctx, locate.Event{
				Type:     locate.EventMatchFound,
				Category: c,
				Team1:    q.Team1,
				Team2:    q.Team2,
			})
			return outcome, nil
		}
	}

	metrics.RunsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
	r.log.Info("event not found in any category", zap.Int("attempted", len(outcome.Attempted)))
	r.emit(ctx, locate.Event{
		Type:   locate.EventMatchNotFound,
		Team1:  q.Team1,
		Team2:  q.Team2,
		Reason: fmt.Sprintf("searched %d categories", len(outcome.Attempted)),
	})
	return outcome, nil
}

func (l *Locator) newRun(q locate.Query, rep locate.Reporter) *run {
	if rep == nil {
		rep = locate.ReporterFunc(func(context.Context, locate.Event) error { return nil })
	}
	log := l.logger.With(
		zap.String("sport", q.Sport),
		zap.String("team1", q.Team1),
		zap.String("team2", q.Team2),
		zap.String("league", q.League),
	)
	s := surface{tree: l.tree, clock: l.clock, log: log, kw: l.kw, tm: l.tm}
	leagues := &LeagueExpander{surface: s}
	return &run{
		q:       q,
		rep:     rep,
		log:     log,
		nav:     &Navigator{surface: s},
		dates:   &DateResolver{surface: s, lookup: l.lookup},
		leagues: leagues,
		matcher: &Matcher{surface: s, leagues: leagues},
	}
}

// searchCategory runs every state for one category. A nil node with a nil
// error sends the caller to the next category.
func (r *run) searchCategory(ctx context.Context, c locate.Category) (ui.Node, error) {
	log := r.log.With(zap.String("category", c.String()))

	// SelectCategory
	ok, err := r.nav.SelectCategory(ctx, c)
	if err != nil {
		return nil, r.fault(StepSelectCategory, c, err)
	}
	if !ok {
		r.stepFailed(ctx, StepSelectCategory, locate.Event{
			Type: locate.EventCategoryClickFailed, Category: c, Reason: "category control not found",
		})
		return nil, nil
	}
	r.emit(ctx, locate.Event{Type: locate.EventCategoryClickSuccess, Category: c})

	// SelectSport
	ok, err = r.nav.SelectSport(ctx, r.q.Sport)
	if err != nil {
		return nil, r.fault(StepSelectSport, c, err)
	}
	if !ok {
		r.stepFailed(ctx, StepSelectSport, locate.Event{
			Type: locate.EventSportClickFailed, Category: c, Sport: r.q.Sport, Reason: "sport control not found",
		})
		return nil, nil
	}
	r.emit(ctx, locate.Event{Type: locate.EventSportClickSuccess, Category: c, Sport: r.q.Sport})

	// ResolveDate
	res, err := r.dates.Resolve(ctx, r.q.MatchTimeHint)
	if err != nil {
		return nil, r.fault(StepResolveDate, c, err)
	}
	if res == DateUnresolved {
		metrics.StepFailuresTotal.WithLabelValues(StepResolveDate).Inc()
	}
	log.Debug("date step done", zap.Stringer("resolution", res))

	// AwaitListLoad
	loaded, err := r.awaitListLoad(ctx)
	if err != nil {
		return nil, r.fault(StepAwaitListLoad, c, err)
	}
	if !loaded {
		metrics.StepFailuresTotal.WithLabelValues(StepAwaitListLoad).Inc()
		log.Warn("event list did not populate; searching anyway")
	}

	// ExpandLeague
	if r.q.HasLeague() {
		if _, err := r.leagues.Expand(ctx, r.q.League); err != nil {
			return nil, r.fault(StepExpandLeague, c, err)
		}
	}

	// MatchSearch
	best, err := r.matcher.Find(ctx, r.q)
	if err != nil {
		return nil, r.fault(StepMatchSearch, c, err)
	}
	if best == nil {
		metrics.StepFailuresTotal.WithLabelValues(StepMatchSearch).Inc()
		log.Info("no candidate in category")
		return nil, nil
	}

	// Enter
	node, err := r.matcher.Enter(ctx, *best, r.q)
	if err != nil {
		if isFatal(ctx, err) {
			return nil, r.fault(StepEnter, c, err)
		}
		metrics.StepFailuresTotal.WithLabelValues(StepEnter).Inc()
		log.Warn("could not enter candidate", zap.Error(err))
		return nil, nil
	}
	return node, nil
}

func (r *run) awaitListLoad(ctx context.Context) (bool, error) {
	b := r.nav.tm.ListLoad
	_, found, err := poll.UntilPresent(ctx, r.nav.clock, b, func(ctx context.Context) (struct{}, bool, error) {
		nodes, err := r.nav.snapshot(ctx)
		if err != nil {
			return struct{}{}, false, err
		}
		for _, n := range nodes {
			if r.nav.kw.IsEventLike(n) {
				return struct{}{}, true, nil
			}
		}
		return struct{}{}, false, nil
	})
	return found, err
}

func (r *run) stepFailed(ctx context.Context, step string, ev locate.Event) {
	metrics.StepFailuresTotal.WithLabelValues(step).Inc()
	r.log.Warn("step failed", zap.String("step", step), zap.String("category", ev.Category.String()), zap.String("reason", ev.Reason))
	r.emit(ctx, ev)
}

func (r *run) fault(step string, c locate.Category, err error) error {
	return &locate.LocateError{Step: step, Category: c, Cause: err, Details: "run aborted"}
}

// emit hands ev to the reporter. Reporting failures are logged and never
// change the course of the run.
func (r *run) emit(ctx context.Context, ev locate.Event) {
	if err := r.rep.Report(ctx, ev); err != nil {
		if ctx.Err() != nil && ev.Type.IsTerminal() {
			// The terminal event is delivered even after cancellation.
			err = r.rep.Report(context.WithoutCancel(ctx), ev)
		}
		if err != nil {
			r.log.Warn("report failed", zap.String("event", string(ev.Type)), zap.Error(err))
		}
	}
}
