// Package locate defines the common types used to find a single event inside
// a sportsbook's category navigation.
package locate

import (
	"context"
	"strings"
)

type Locator interface {
	// Locate drives one locate run to completion and reports exactly one
	// terminal event through rep.
	Locate(ctx context.Context, q Query, rep Reporter) (*Outcome, error)
}

// Reporter receives the step and outcome events of a locate run.
type Reporter interface {
	Report(ctx context.Context, ev Event) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, ev Event) error

func (f ReporterFunc) Report(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Lookup translates source-site vocabulary into the target site's.
type Lookup interface {
	// MapSport returns the target sport name, "Other Sports" when unknown.
	MapSport(name string) string
	// ToTargetDateToken converts a time hint such as "Sun, Nov 30 at 8:00 PM"
	// into the target date label "SUN 30 NOV".
	ToTargetDateToken(timeHint string) (string, bool)
}

type Category string

const (
	CategoryEarly  Category = "Early"
	CategoryToday  Category = "Today"
	CategorySoon   Category = "Soon"
	CategoryInPlay Category = "In-Play"
)

// Key is the lower-case identifier used by keyword tables and config.
func (c Category) Key() string {
	return strings.ToLower(string(c))
}

func (c Category) String() string {
	return string(c)
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryEarly, CategoryToday, CategorySoon, CategoryInPlay:
		return true
	default:
		return false
	}
}

// AllCategories returns every category in the order the navigation shows them.
func AllCategories() []Category {
	return []Category{CategoryInPlay, CategoryToday, CategorySoon, CategoryEarly}
}

// ParseCategory accepts any spelling of a category key ("in-play", "Today", "EARLY").
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllCategories() {
		if c.Key() == key {
			return c, true
		}
	}
	if key == "inplay" || key == "live" {
		return CategoryInPlay, true
	}
	return "", false
}
