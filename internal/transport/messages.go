// Package transport carries locate requests to the locator and its events
// back to whoever asked.
package transport

import (
	"time"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
)

// EventLocateAck acknowledges a request before any run event is sent.
const EventLocateAck locate.EventType = "LOCATE_ACK"

// Ack statuses.
const (
	AckAccepted = "accepted"
	AckRejected = "rejected"
	AckInvalid  = "invalid"
)

// LocateRequest is the LOCATE_REQUEST payload.
type LocateRequest struct {
	ID            string `json:"id,omitempty"`
	Sport         string `json:"sport"`
	Team1         string `json:"team1"`
	Team2         string `json:"team2"`
	League        string `json:"league,omitempty"`
	MatchTimeHint string `json:"matchTimeHint,omitempty"`
}

// Query converts the request into a locate query. Missing teams and league
// become the Unknown sentinel.
func (r LocateRequest) Query() locate.Query {
	return locate.Query{
		Sport:         r.Sport,
		Team1:         orUnknown(r.Team1),
		Team2:         orUnknown(r.Team2),
		League:        orUnknown(r.League),
		MatchTimeHint: r.MatchTimeHint,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return locate.Unknown
	}
	return s
}

// Message is one entry on the outcome channel: a run event or an ack,
// tagged with the request it belongs to.
type Message struct {
	RequestID string `json:"request_id"`
	locate.Event
	Status string `json:"status,omitempty"`
	// ExpectedCategory is the bucket the time hint suggests. It is
	// informational; the search order does not depend on it.
	ExpectedCategory locate.Category `json:"expected_category,omitempty"`
	SentAt           time.Time       `json:"sent_at"`
}
