package crown

import (
	"context"
	"strings"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"go.uber.org/zap"
)

// DateResolution tells how the date-selection view was handled.
type DateResolution int

const (
	// DateNotApplicable means no date-selection view was shown.
	DateNotApplicable DateResolution = iota
	DateExact
	DateAllMatches
	DateFirst
	// DateUnresolved means a date view was shown but nothing could be pressed.
	DateUnresolved
)

func (r DateResolution) String() string {
	switch r {
	case DateNotApplicable:
		return "not_applicable"
	case DateExact:
		return "exact"
	case DateAllMatches:
		return "all_matches"
	case DateFirst:
		return "first"
	default:
		return "unresolved"
	}
}

// DateResolver handles the intermediate date-selection view some
// sport/category combinations show before the event list.
type DateResolver struct {
	surface
	lookup locate.Lookup
}

// Resolve presses the best date button for timeHint. Failing to find the
// exact date never stops the search: "all matches" is preferred next, then
// the first date button on the page.
func (d *DateResolver) Resolve(ctx context.Context, timeHint string) (DateResolution, error) {
	nodes, err := d.snapshot(ctx)
	if err != nil {
		return DateUnresolved, err
	}

	short := ui.VisibleShort(nodes, d.kw.Limits.ShortText)
	var dateButtons []ui.Node
	present := false
	for _, n := range short {
		text := n.Text()
		if d.kw.IsAllDates(text) {
			present = true
			continue
		}
		if d.kw.IsDateLabel(text) {
			present = true
			dateButtons = append(dateButtons, n)
		}
	}
	if !present {
		return DateNotApplicable, nil
	}

	log := d.log.With(zap.String("time_hint", timeHint))

	if token, ok := d.lookup.ToTargetDateToken(timeHint); ok {
		target := ui.NormalizeText(token)
		for _, n := range dateButtons {
			if strings.Contains(ui.NormalizeText(n.Text()), target) {
				if d.pressDate(ctx, log, n) {
					return DateExact, d.settle(ctx, d.tm.DateSettle)
				}
				if ctx.Err() != nil {
					return DateUnresolved, ctx.Err()
				}
			}
		}
		log.Debug("exact date button not found", zap.String("token", token))
	} else {
		log.Debug("time hint has no date token")
	}

	for _, n := range short {
		if !d.kw.IsAllMatches(n.Text()) {
			continue
		}
		if d.pressDate(ctx, log, n) {
			return DateAllMatches, d.settle(ctx, d.tm.DateSettle)
		}
	}

	for _, n := range dateButtons {
		if d.pressDate(ctx, log, n) {
			return DateFirst, d.settle(ctx, d.tm.DateSettle)
		}
	}

	if ctx.Err() != nil {
		return DateUnresolved, ctx.Err()
	}
	log.Warn("date view present but no button could be pressed")
	return DateUnresolved, nil
}

func (d *DateResolver) pressDate(ctx context.Context, log *zap.Logger, n ui.Node) bool {
	target := ui.ClosestClickable(n, d.kw.Limits.AncestorDepth)
	if target == nil {
		return false
	}
	if err := d.press(ctx, target); err != nil {
		log.Debug("date button click failed", zap.String("text", n.Text()), zap.Error(err))
		return false
	}
	log.Info("pressed date button", zap.String("text", n.Text()))
	return true
}
