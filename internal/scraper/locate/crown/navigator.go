package crown

import (
	"context"
	"strings"
	"time"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/poll"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"go.uber.org/zap"
)

// Navigator activates the time-bucket and sport controls of the current view.
type Navigator struct {
	surface
}

// SelectCategory finds and clicks the control for c, retrying while the
// navigation renders. It returns false when the control never showed up or
// could not be clicked.
func (n *Navigator) SelectCategory(ctx context.Context, c locate.Category) (bool, error) {
	aliases := n.kw.CategoryAliases(c)
	log := n.log.With(zap.String("category", c.String()))

	control, found, err := poll.UntilPresent(ctx, n.clock, n.tm.CategoryRetry, func(ctx context.Context) (ui.Node, bool, error) {
		nodes, err := n.snapshot(ctx)
		if err != nil {
			return nil, false, err
		}
		control := n.findLabeledControl(nodes, aliases, n.kw.Limits.CategoryContainsText)
		if control == nil {
			control = n.findInNavigationBar(nodes, aliases)
		}
		if control == nil {
			log.Debug("category control not rendered yet")
		}
		return control, control != nil, nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		log.Warn("category control not found",
			zap.Int("attempts", n.tm.CategoryRetry.MaxAttempts),
			zap.Duration("interval", n.tm.CategoryRetry.Interval))
		return false, nil
	}

	return n.click(ctx, log, control, n.tm.CategorySettle)
}

// SelectSport finds and clicks the control for a target-vocabulary sport
// name inside the active category.
func (n *Navigator) SelectSport(ctx context.Context, sport string) (bool, error) {
	aliases := n.kw.SportAliases(sport)
	log := n.log.With(zap.String("sport", sport))

	control, found, err := poll.UntilPresent(ctx, n.clock, n.tm.SportPoll, func(ctx context.Context) (ui.Node, bool, error) {
		nodes, err := n.snapshot(ctx)
		if err != nil {
			return nil, false, err
		}
		control := n.findLabeledControl(nodes, aliases, n.kw.Limits.SportContainsText)
		return control, control != nil, nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		log.Warn("sport control not found", zap.Duration("budget", n.tm.SportPoll.Total()))
		return false, nil
	}

	return n.click(ctx, log, control, n.tm.SportSettle)
}

func (n *Navigator) click(ctx context.Context, log *zap.Logger, control ui.Node, settle time.Duration) (bool, error) {
	if err := n.activate(ctx, control); err != nil {
		if isFatal(ctx, err) {
			return false, err
		}
		log.Warn("click failed", zap.String("text", control.Text()), zap.Error(err))
		return false, nil
	}
	log.Info("clicked control", zap.String("text", control.Text()))

	if err := n.settle(ctx, settle); err != nil {
		return false, err
	}
	return true, nil
}

type labelCandidate struct {
	node  ui.Node
	exact bool
}

// findLabeledControl scans short visible texts for an alias. A hit must be
// clickable itself or sit directly inside a link, in which case the link is
// returned. Exact matches win over substring matches.
func (n *Navigator) findLabeledControl(nodes []ui.Node, aliases []string, containsLimit int) ui.Node {
	var candidates []labelCandidate

	for _, node := range ui.VisibleShort(nodes, n.kw.Limits.ShortText) {
		full := ui.NormalizeText(node.Text())
		own := ui.NormalizeText(node.OwnText())
		size := len([]rune(full))

		for _, alias := range aliases {
			exact := full == alias || own == alias
			if !exact && !(size < containsLimit && strings.Contains(full, alias)) {
				continue
			}

			target := node
			if parent := node.Parent(); ui.IsLink(parent) {
				target = parent
			} else if !node.Clickable() {
				break
			}
			candidates = append(candidates, labelCandidate{node: target, exact: full == alias})
			break
		}
	}

	if len(candidates) == 0 {
		return nil
	}
	for _, c := range candidates {
		if c.exact {
			return c.node
		}
	}
	return candidates[0].node
}

// findInNavigationBar looks for the container holding several category
// keywords at once and searches its descendants.
func (n *Navigator) findInNavigationBar(nodes []ui.Node, aliases []string) ui.Node {
	limits := n.kw.Limits

	for _, container := range nodes {
		if !container.Visible() {
			continue
		}
		text := ui.NormalizeText(container.Text())
		if len([]rune(text)) >= limits.NavContainerText {
			continue
		}
		hits := 0
		for _, k := range n.kw.NavigationKeywords {
			if strings.Contains(text, k) {
				hits++
			}
		}
		if hits < limits.NavMinKeywords {
			continue
		}

		for _, child := range ui.Descendants(container) {
			childText := ui.NormalizeText(child.Text())
			if childText == "" || len([]rune(childText)) >= limits.NavChildText {
				continue
			}
			for _, alias := range aliases {
				if childText != alias && !strings.Contains(childText, alias) {
					continue
				}
				if ui.IsLink(child) {
					return child
				}
				if target := ui.ClosestClickable(child, -1); target != nil {
					return target
				}
			}
		}
	}
	return nil
}
