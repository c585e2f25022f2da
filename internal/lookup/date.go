package lookup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// "Sun, Nov 30 at 8:00 PM"; the time part is optional.
	absoluteHint = regexp.MustCompile(`(?i)^\s*([a-z]{3})[a-z]*\.?,?\s+([a-z]{3})[a-z]*\.?\s+(\d{1,2})(?:\s+at\s+(\d{1,2}):(\d{2})\s*([ap]\.?m\.?))?`)
	// "Today at 8:00 PM", "Tomorrow"
	relativeHint = regexp.MustCompile(`(?i)^\s*(today|tomorrow)(?:\s+at\s+(\d{1,2}):(\d{2})\s*([ap]\.?m\.?))?`)
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ToTargetDateToken converts a source time hint into the sportsbook's date
// label: "Sun, Nov 30 at 8:00 PM" becomes "SUN 30 NOV".
func (t *Tables) ToTargetDateToken(timeHint string) (string, bool) {
	if m := absoluteHint.FindStringSubmatch(timeHint); m != nil {
		wd, okW := weekdays[strings.ToLower(m[1])]
		mon, okM := months[strings.ToLower(m[2])]
		day, err := strconv.Atoi(m[3])
		if !okW || !okM || err != nil || day < 1 || day > 31 {
			return "", false
		}
		return formatToken(wd, day, mon), true
	}

	if m := relativeHint.FindStringSubmatch(timeHint); m != nil {
		d := t.now()
		if strings.EqualFold(m[1], "tomorrow") {
			d = d.AddDate(0, 0, 1)
		}
		return formatToken(d.Weekday(), d.Day(), d.Month()), true
	}

	return "", false
}

func formatToken(wd time.Weekday, day int, mon time.Month) string {
	return fmt.Sprintf("%s %d %s",
		strings.ToUpper(wd.String()[:3]), day, strings.ToUpper(mon.String()[:3]))
}

// ParseTimeHint resolves a hint to an instant in now's location. A calendar
// date without a clock time resolves to midnight of that date. The year is
// not part of the hint: a date earlier in the year than now's month is taken
// to be next year. Relative hints need a clock time.
func ParseTimeHint(timeHint string, now time.Time) (time.Time, bool) {
	if m := absoluteHint.FindStringSubmatch(timeHint); m != nil {
		mon, ok := months[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[3])
		if day < 1 || day > 31 {
			return time.Time{}, false
		}
		hour, minute := 0, 0
		if m[4] != "" {
			if hour, minute, ok = clock(m[4], m[5], m[6]); !ok {
				return time.Time{}, false
			}
		}

		at := time.Date(now.Year(), mon, day, hour, minute, 0, 0, now.Location())
		if at.Before(now) && at.Month() < now.Month() {
			at = at.AddDate(1, 0, 0)
		}
		return at, true
	}

	if m := relativeHint.FindStringSubmatch(timeHint); m != nil && m[2] != "" {
		hour, minute, ok := clock(m[2], m[3], m[4])
		if !ok {
			return time.Time{}, false
		}
		d := now
		if strings.EqualFold(m[1], "tomorrow") {
			d = d.AddDate(0, 0, 1)
		}
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, now.Location()), true
	}

	return time.Time{}, false
}

// clock converts a 12-hour clock reading to 24-hour values.
func clock(h, m, meridiem string) (int, int, bool) {
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute > 59 {
		return 0, 0, false
	}
	pm := strings.HasPrefix(strings.ToLower(meridiem), "p")
	switch {
	case pm && hour != 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}
	return hour, minute, true
}
