package crown

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"gopkg.in/yaml.v3"
)

// KeywordsVersion is the only keyword file version this build understands.
const KeywordsVersion = 1

//go:embed keywords.yaml
var defaultKeywords []byte

type Limits struct {
	ShortText            int `yaml:"short_text"`
	CategoryContainsText int `yaml:"category_contains_text"`
	SportContainsText    int `yaml:"sport_contains_text"`
	NavContainerText     int `yaml:"nav_container_text"`
	NavChildText         int `yaml:"nav_child_text"`
	NavMinKeywords       int `yaml:"nav_min_keywords"`
	LeagueText           int `yaml:"league_text"`
	EventMinText         int `yaml:"event_min_text"`
	EventMaxText         int `yaml:"event_max_text"`
	MaxChildren          int `yaml:"max_children"`
	AncestorDepth        int `yaml:"ancestor_depth"`
}

// Keywords is the versioned vocabulary of the target site.
type Keywords struct {
	Version            int                 `yaml:"version"`
	Categories         map[string][]string `yaml:"categories"`
	NavigationKeywords []string            `yaml:"navigation_keywords"`
	Sports             map[string][]string `yaml:"sports"`
	LeagueKeywords     []string            `yaml:"league_keywords"`
	ClubSuffixes       []string            `yaml:"club_suffixes"`
	AllDatesLabels     []string            `yaml:"all_dates_labels"`
	AllMatchesLabels   []string            `yaml:"all_matches_labels"`
	DateLabelPattern   string              `yaml:"date_label_pattern"`
	ExpandedMarkers    []string            `yaml:"expanded_markers"`
	EventRowPattern    string              `yaml:"event_row_pattern"`
	Limits             Limits              `yaml:"limits"`

	dateLabel *regexp.Regexp
	eventRow  *regexp.Regexp
}

// DefaultKeywords returns the vocabulary bundled with the binary.
func DefaultKeywords() *Keywords {
	kw, err := ParseKeywords(defaultKeywords)
	if err != nil {
		panic(fmt.Sprintf("bundled keywords are invalid: %v", err))
	}
	return kw
}

// LoadKeywords reads a keyword file. An empty path yields the bundled set.
func LoadKeywords(path string) (*Keywords, error) {
	if path == "" {
		return DefaultKeywords(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	return ParseKeywords(data)
}

func ParseKeywords(data []byte) (*Keywords, error) {
	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	if kw.Version != KeywordsVersion {
		return nil, fmt.Errorf("unsupported keywords version %d (want %d)", kw.Version, KeywordsVersion)
	}
	if len(kw.Categories) == 0 {
		return nil, fmt.Errorf("keywords: no categories defined")
	}

	var err error
	if kw.dateLabel, err = regexp.Compile(kw.DateLabelPattern); err != nil {
		return nil, fmt.Errorf("keywords: date_label_pattern: %w", err)
	}
	if kw.eventRow, err = regexp.Compile(kw.EventRowPattern); err != nil {
		return nil, fmt.Errorf("keywords: event_row_pattern: %w", err)
	}

	kw.applyLimitDefaults()
	return &kw, nil
}

func (kw *Keywords) applyLimitDefaults() {
	l := &kw.Limits
	setDefault(&l.ShortText, 30)
	setDefault(&l.CategoryContainsText, 15)
	setDefault(&l.SportContainsText, 20)
	setDefault(&l.NavContainerText, 300)
	setDefault(&l.NavChildText, 20)
	setDefault(&l.NavMinKeywords, 3)
	setDefault(&l.LeagueText, 60)
	setDefault(&l.EventMinText, 12)
	setDefault(&l.EventMaxText, 200)
	setDefault(&l.MaxChildren, 10)
	setDefault(&l.AncestorDepth, 3)
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// CategoryAliases lists every accepted spelling of c, lower-cased.
func (kw *Keywords) CategoryAliases(c locate.Category) []string {
	return withKey(c.Key(), kw.Categories[c.Key()])
}

// SportAliases lists every accepted spelling of a target sport name.
func (kw *Keywords) SportAliases(sport string) []string {
	key := ui.NormalizeText(sport)
	return withKey(key, kw.Sports[key])
}

func withKey(key string, aliases []string) []string {
	out := []string{key}
	for _, a := range aliases {
		a = ui.NormalizeText(a)
		if a != "" && a != key {
			out = append(out, a)
		}
	}
	return out
}

// IsDateLabel reports whether text looks like "SUN 30 NOV".
func (kw *Keywords) IsDateLabel(text string) bool {
	return kw.dateLabel.MatchString(text)
}

// IsAllDates reports whether text is an "all dates" marker.
func (kw *Keywords) IsAllDates(text string) bool {
	return equalsAny(text, kw.AllDatesLabels)
}

// IsAllMatches reports whether text is an "all matches" button label.
func (kw *Keywords) IsAllMatches(text string) bool {
	return equalsAny(text, kw.AllMatchesLabels)
}

// IsLeagueHeader reports whether text contains a known league or competition keyword.
func (kw *Keywords) IsLeagueHeader(text string) bool {
	text = ui.NormalizeText(text)
	for _, k := range kw.LeagueKeywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// IsEventLike reports whether n looks like a rendered event row,
// independent of which teams it shows.
func (kw *Keywords) IsEventLike(n ui.Node) bool {
	if !n.Visible() || n.ChildCount() > kw.Limits.MaxChildren {
		return false
	}
	text := ui.NormalizeText(n.Text())
	size := len([]rune(text))
	if size < kw.Limits.EventMinText || size > kw.Limits.EventMaxText {
		return false
	}
	return kw.eventRow.MatchString(text)
}

// IsExpanded reports whether n or one of its close ancestors carries an
// expanded or active style marker.
func (kw *Keywords) IsExpanded(n ui.Node) bool {
	check := append([]ui.Node{n}, ui.Ancestors(n, kw.Limits.AncestorDepth)...)
	for _, cur := range check {
		if strings.EqualFold(cur.Attr("aria-expanded"), "true") {
			return true
		}
		if ui.HasClass(cur, kw.ExpandedMarkers...) {
			return true
		}
	}
	return false
}

func equalsAny(text string, labels []string) bool {
	text = ui.NormalizeText(text)
	for _, l := range labels {
		if text == ui.NormalizeText(l) {
			return true
		}
	}
	return false
}
