// Package lookup translates the source site's vocabulary (sport names, time
// hints) into what the target sportsbook shows.
package lookup

import (
	"strings"
	"time"
)

// Target sport names as the sportsbook labels them.
const (
	SportSoccer      = "Soccer"
	SportBasketball  = "Basketball"
	SportTennis      = "Tennis"
	SportVolleyball  = "Volleyball"
	SportSnooker     = "Snooker"
	SportESports     = "eSports"
	SportOtherSports = "Other Sports"
)

// sourceSports maps lower-cased source names to target names. Anything not
// listed lands in Other Sports.
var sourceSports = map[string]string{
	"soccer":     SportSoccer,
	"football":   SportSoccer,
	"basketball": SportBasketball,
	"tennis":     SportTennis,
	"volleyball": SportVolleyball,
	"snooker":    SportSnooker,
	"esports":    SportESports,
	"e-sports":   SportESports,

	"american football": SportOtherSports,
	"nfl":               SportOtherSports,
	"baseball":          SportOtherSports,
	"hockey":            SportOtherSports,
	"ice hockey":        SportOtherSports,
	"mma":               SportOtherSports,
	"boxing":            SportOtherSports,
	"cricket":           SportOtherSports,
	"rugby":             SportOtherSports,
	"golf":              SportOtherSports,
	"darts":             SportOtherSports,
	"handball":          SportOtherSports,
	"table tennis":      SportOtherSports,
	"badminton":         SportOtherSports,
	"beach volleyball":  SportOtherSports,
	"water polo":        SportOtherSports,
}

// SupportedSports lists every target sport the sportsbook exposes.
func SupportedSports() []string {
	return []string{
		SportSoccer,
		SportBasketball,
		SportESports,
		SportTennis,
		SportVolleyball,
		SportSnooker,
		SportOtherSports,
	}
}

// Tables is the default locate.Lookup. Now defaults to time.Now and only
// matters for relative hints such as "Today at 8:00 PM".
type Tables struct {
	Now func() time.Time
}

func New() *Tables {
	return &Tables{Now: time.Now}
}

// MapSport returns the target name for a source sport, "Other Sports" when
// the name is empty or unknown.
func (t *Tables) MapSport(name string) string {
	key := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if mapped, ok := sourceSports[key]; ok {
		return mapped
	}
	return SportOtherSports
}

func (t *Tables) now() time.Time {
	if t == nil || t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
