package crown

import (
	"context"
	"strings"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"go.uber.org/zap"
)

// LeagueExpander makes sure the event group of one league is open.
type LeagueExpander struct {
	surface
}

// Expand clicks the league header when its group is collapsed. It returns
// true only when a click was issued. A league that is unknown or not
// rendered is not an error.
func (l *LeagueExpander) Expand(ctx context.Context, league string) (bool, error) {
	name := ui.NormalizeText(league)
	if name == "" || strings.EqualFold(name, locate.Unknown) {
		return false, nil
	}

	nodes, err := l.snapshot(ctx)
	if err != nil {
		return false, err
	}

	header := l.findHeader(nodes, name)
	log := l.log.With(zap.String("league", league))
	if header == nil {
		log.Debug("league header not found")
		return false, nil
	}
	if l.isOpen(header) {
		log.Debug("league already expanded")
		return false, nil
	}

	target := ui.ClosestClickable(header, l.kw.Limits.AncestorDepth)
	if target == nil {
		log.Debug("league header is not clickable")
		return false, nil
	}
	if err := l.press(ctx, target); err != nil {
		if isFatal(ctx, err) {
			return false, err
		}
		log.Warn("league header click failed", zap.Error(err))
		return false, nil
	}
	log.Info("expanded league")

	return true, l.settle(ctx, l.tm.LeagueSettle)
}

// findHeader returns the first visible node short enough to be a group
// header whose text names the league.
func (l *LeagueExpander) findHeader(nodes []ui.Node, name string) ui.Node {
	for _, n := range ui.VisibleShort(nodes, l.kw.Limits.LeagueText) {
		if strings.Contains(ui.NormalizeText(n.Text()), name) {
			return n
		}
	}
	return nil
}

// isOpen reports whether the group under header already shows, either by
// an expanded marker or by event rows rendered next to or below it.
func (l *LeagueExpander) isOpen(header ui.Node) bool {
	if l.kw.IsExpanded(header) {
		return true
	}
	return l.hasEventRows(header)
}

func (l *LeagueExpander) hasEventRows(header ui.Node) bool {
	for _, d := range ui.Descendants(header) {
		if l.kw.IsEventLike(d) {
			return true
		}
	}

	// The group body is usually the sibling of the header or of one of its
	// wrappers.
	levels := append([]ui.Node{header}, ui.Ancestors(header, 2)...)
	for _, lvl := range levels {
		sib := lvl.NextSibling()
		if sib == nil {
			continue
		}
		if l.kw.IsEventLike(sib) {
			return true
		}
		for _, d := range ui.Descendants(sib) {
			if l.kw.IsEventLike(d) {
				return true
			}
		}
		return false
	}
	return false
}

// maxBulkExpand bounds how many headers one expandAll pass may click.
const maxBulkExpand = 50

// expandAll opens every collapsed league-like header in view. It is the
// matcher's last resort when no candidate was found. A click may re-render
// the list or reveal nested headers, so the tree is snapshotted again after
// every click. Each header text is clicked at most once.
func (l *LeagueExpander) expandAll(ctx context.Context) (int, error) {
	clicked := 0
	seen := make(map[string]bool)
	for clicked < maxBulkExpand {
		nodes, err := l.snapshot(ctx)
		if err != nil {
			return clicked, err
		}

		text, target := l.nextCollapsed(nodes, seen)
		if target == nil {
			return clicked, nil
		}
		seen[text] = true

		if err := l.press(ctx, target); err != nil {
			if isFatal(ctx, err) {
				return clicked, err
			}
			l.log.Debug("bulk expand click failed", zap.String("text", text), zap.Error(err))
			continue
		}
		clicked++
		if err := l.settle(ctx, l.tm.BulkExpandSettle); err != nil {
			return clicked, err
		}
	}
	l.log.Warn("bulk expand stopped at the click limit", zap.Int("clicked", clicked))
	return clicked, nil
}

// nextCollapsed returns the first clickable, collapsed league header whose
// text is not in seen.
func (l *LeagueExpander) nextCollapsed(nodes []ui.Node, seen map[string]bool) (string, ui.Node) {
	for _, n := range ui.VisibleShort(nodes, l.kw.Limits.LeagueText) {
		text := ui.NormalizeText(n.Text())
		if seen[text] || !l.kw.IsLeagueHeader(text) || l.isOpen(n) {
			continue
		}
		if target := ui.ClosestClickable(n, l.kw.Limits.AncestorDepth); target != nil {
			return text, target
		}
	}
	return "", nil
}
