package lookup

import (
	"time"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
)

// inPlayWindow is how long after kick-off an event is still assumed live.
const inPlayWindow = 3 * time.Hour

// Classify guesses the time bucket an event sits in from its hint:
// In-Play when it started less than three hours ago, Today when it starts
// later today, Soon when it starts within 24 hours, Early otherwise. A
// date-only hint counts from midnight of that date and an unparsable hint is
// Early.
func Classify(timeHint string, now time.Time) locate.Category {
	at, ok := ParseTimeHint(timeHint, now)
	if !ok {
		return locate.CategoryEarly
	}

	diff := at.Sub(now)
	switch {
	case diff < 0 && diff > -inPlayWindow:
		return locate.CategoryInPlay
	case diff >= 0 && sameDay(at, now):
		return locate.CategoryToday
	case diff >= 0 && diff <= 24*time.Hour:
		return locate.CategorySoon
	default:
		return locate.CategoryEarly
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
