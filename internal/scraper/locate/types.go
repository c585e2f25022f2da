package locate

import (
	"strings"

	"github.com/grez-lucas/event-locator/internal/scraper/ui"
)

// Unknown is the sentinel the signal extractor uses for a missing attribute.
const Unknown = "Unknown"

// Query is the attribute tuple of the event to locate. It is never modified
// once a run starts.
type Query struct {
	Sport         string
	Team1         string
	Team2         string
	League        string
	MatchTimeHint string
}

// HasTeams reports whether both team names carry a real value.
func (q Query) HasTeams() bool {
	return isKnown(q.Team1) && isKnown(q.Team2)
}

// HasLeague reports whether the league name carries a real value.
func (q Query) HasLeague() bool {
	return isKnown(q.League)
}

func isKnown(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.EqualFold(s, Unknown)
}

// Candidate is a node provisionally matching both teams.
type Candidate struct {
	Node  ui.Node
	Score int
}

// Outcome is the terminal result of one locate run: either Found with the
// category and node, or not found with the categories that were tried.
type Outcome struct {
	Found     bool
	Category  Category
	Node      ui.Node
	Attempted []Category
}

type EventType string

const (
	EventCategoryClickSuccess EventType = "CATEGORY_CLICK_SUCCESS"
	EventCategoryClickFailed  EventType = "CATEGORY_CLICK_FAILED"
	EventSportClickSuccess    EventType = "SPORT_CLICK_SUCCESS"
	EventSportClickFailed     EventType = "SPORT_CLICK_FAILED"
	EventMatchFound           EventType = "MATCH_FOUND"
	EventMatchNotFound        EventType = "MATCH_NOT_FOUND"
)

// IsTerminal reports whether the event closes a locate run.
func (t EventType) IsTerminal() bool {
	return t == EventMatchFound || t == EventMatchNotFound
}

// Event is one message of the outcome contract.
type Event struct {
	Type     EventType `json:"type"`
	Category Category  `json:"category,omitempty"`
	Sport    string    `json:"sport,omitempty"`
	Team1    string    `json:"team1,omitempty"`
	Team2    string    `json:"team2,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}
