package crown

import (
	"context"
	"sort"
	"strings"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/poll"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"go.uber.org/zap"
)

// Normalize lower-cases a team name, collapses whitespace and strips club
// suffixes from the end until none is left.
func Normalize(name string, suffixes []string) string {
	s := ui.NormalizeText(name)
	for {
		stripped := false
		for _, suf := range suffixes {
			suf = ui.NormalizeText(suf)
			if suf == "" {
				continue
			}
			if strings.HasSuffix(s, " "+suf) {
				s = strings.TrimSpace(strings.TrimSuffix(s, suf))
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}

// Tokens returns the distinct tokens of a normalized team name. The Unknown
// sentinel and empty names have no tokens.
func Tokens(name string, suffixes []string) []string {
	if strings.EqualFold(strings.TrimSpace(name), locate.Unknown) {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.Fields(Normalize(name, suffixes)) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// Score counts the team tokens found in text. ok is false unless both teams
// are represented by at least one token.
func Score(text string, team1, team2 []string) (score int, ok bool) {
	if len(team1) == 0 || len(team2) == 0 {
		return 0, false
	}
	text = strings.ToLower(text)
	m1 := countIn(text, team1)
	m2 := countIn(text, team2)
	return m1 + m2, m1 >= 1 && m2 >= 1
}

func countIn(text string, tokens []string) int {
	n := 0
	for _, t := range tokens {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}

// Matcher finds the event row for a team pair and enters it.
type Matcher struct {
	surface
	leagues *LeagueExpander
}

// Rank scores every visible, non-container node. Ties keep document order.
func (m *Matcher) Rank(nodes []ui.Node, team1, team2 []string) []locate.Candidate {
	var out []locate.Candidate
	for _, n := range nodes {
		if !n.Visible() || n.ChildCount() > m.kw.Limits.MaxChildren {
			continue
		}
		score, ok := Score(n.Text(), team1, team2)
		if !ok {
			continue
		}
		out = append(out, locate.Candidate{Node: n, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Find returns the best candidate for the query teams, or nil. When the first
// scan is empty it scrolls to the bottom, opens every league-like header and
// scans once more.
func (m *Matcher) Find(ctx context.Context, q locate.Query) (*locate.Candidate, error) {
	suffixes := m.kw.ClubSuffixes
	team1 := Tokens(q.Team1, suffixes)
	team2 := Tokens(q.Team2, suffixes)
	if !q.HasTeams() || len(team1) == 0 || len(team2) == 0 {
		m.log.Info("query lacks a team token set; nothing can match",
			zap.String("team1", q.Team1), zap.String("team2", q.Team2))
		return nil, nil
	}

	best, err := m.scan(ctx, team1, team2)
	if err != nil || best != nil {
		return best, err
	}

	m.log.Debug("no candidate on first scan; scrolling and expanding leagues")
	if err := m.tree.ScrollToBottom(ctx); err != nil && isFatal(ctx, err) {
		return nil, err
	}
	if _, err := m.leagues.expandAll(ctx); err != nil {
		return nil, err
	}
	best, _, err = poll.SettleThenProbe(ctx, m.clock, m.tm.BulkExpandSettle, func(ctx context.Context) (*locate.Candidate, bool, error) {
		if err := m.tree.WaitStable(ctx); err != nil {
			return nil, false, err
		}
		c, err := m.scan(ctx, team1, team2)
		return c, c != nil, err
	})
	return best, err
}

func (m *Matcher) scan(ctx context.Context, team1, team2 []string) (*locate.Candidate, error) {
	nodes, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ranked := m.Rank(nodes, team1, team2)
	if len(ranked) == 0 {
		return nil, nil
	}
	top := ranked[0]
	m.log.Debug("ranked candidates",
		zap.Int("count", len(ranked)),
		zap.Int("top_score", top.Score),
		zap.String("top_text", top.Node.Text()))
	return &top, nil
}

// Enter opens the event behind a candidate row, preferring a team-name link
// inside it over the row itself. Either path counts as success unless the
// click itself fails. A candidate that wraps several rows is first narrowed
// to the row that carries the match.
func (m *Matcher) Enter(ctx context.Context, c locate.Candidate, q locate.Query) (ui.Node, error) {
	suffixes := m.kw.ClubSuffixes
	team1 := Tokens(q.Team1, suffixes)
	team2 := Tokens(q.Team2, suffixes)
	row := narrow(c.Node, team1, team2, c.Score)

	target := m.teamLink(row, team1)
	if target == nil {
		target = m.teamLink(row, team2)
	}
	if target != nil {
		if err := m.press(ctx, target); err == nil {
			m.log.Info("entered event via team name", zap.String("text", target.Text()))
			return target, m.settle(ctx, m.tm.EnterSettle)
		} else if isFatal(ctx, err) {
			return nil, err
		}
	}

	if err := m.press(ctx, row); err != nil {
		return nil, err
	}
	m.log.Info("entered event via row", zap.String("text", row.Text()))
	return row, m.settle(ctx, m.tm.EnterSettle)
}

// narrow descends from n while a visible child still qualifies for both
// teams with the same score, so a wrapper around several rows resolves to
// the row that carries the match.
func narrow(n ui.Node, team1, team2 []string, score int) ui.Node {
	for {
		var next ui.Node
		for _, child := range n.Children() {
			if !child.Visible() {
				continue
			}
			if s, ok := Score(child.Text(), team1, team2); ok && s == score {
				next = child
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

func (m *Matcher) teamLink(row ui.Node, tokens []string) ui.Node {
	if len(tokens) == 0 {
		return nil
	}
	for _, sub := range ui.Descendants(row) {
		if !sub.Visible() {
			continue
		}
		if countIn(strings.ToLower(sub.Text()), tokens) == 0 {
			continue
		}
		if target := ui.ClosestClickable(sub, 1); target != nil && target != row {
			return target
		}
	}
	return nil
}
