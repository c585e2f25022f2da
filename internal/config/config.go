// Package config loads the locator service configuration.
package config

import (
	"time"

	"github.com/grez-lucas/event-locator/internal/scraper/browser"
	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/grez-lucas/event-locator/internal/scraper/locate/crown"
	"github.com/grez-lucas/event-locator/internal/scraper/poll"
)

type Config struct {
	Environment string        `mapstructure:"environment"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Browser     BrowserConfig `mapstructure:"browser"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Locator     LocatorConfig `mapstructure:"locator"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BrowserConfig struct {
	Bin        string   `mapstructure:"bin"`
	Headless   bool     `mapstructure:"headless"`
	Stealth    bool     `mapstructure:"stealth"`
	ControlURL string   `mapstructure:"control_url"`
	TargetURLs []string `mapstructure:"target_urls"`
	ReplayHAR  string   `mapstructure:"replay_har"`
	Timeout    int      `mapstructure:"timeout"` // milliseconds
}

type RedisConfig struct {
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	RequestKey  string `mapstructure:"request_key"`
	EventStream string `mapstructure:"event_stream"`
}

type LocatorConfig struct {
	CategoryOrder []string      `mapstructure:"category_order"`
	KeywordsFile  string        `mapstructure:"keywords_file"`
	Timings       TimingsConfig `mapstructure:"timings"`
}

// TimingsConfig holds every delay in milliseconds.
type TimingsConfig struct {
	ActivationDelay       int `mapstructure:"activation_delay"`
	CategoryRetryInterval int `mapstructure:"category_retry_interval"`
	CategoryRetryAttempts int `mapstructure:"category_retry_attempts"`
	CategorySettle        int `mapstructure:"category_settle"`
	SportPollInterval     int `mapstructure:"sport_poll_interval"`
	SportPollAttempts     int `mapstructure:"sport_poll_attempts"`
	SportSettle           int `mapstructure:"sport_settle"`
	DateSettle            int `mapstructure:"date_settle"`
	ListLoadInterval      int `mapstructure:"list_load_interval"`
	ListLoadAttempts      int `mapstructure:"list_load_attempts"`
	LeagueSettle          int `mapstructure:"league_settle"`
	BulkExpandSettle      int `mapstructure:"bulk_expand_settle"`
	EnterSettle           int `mapstructure:"enter_settle"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Categories returns the configured search order. Entries were checked by
// validateConfig.
func (c LocatorConfig) Categories() []locate.Category {
	out := make([]locate.Category, 0, len(c.CategoryOrder))
	for _, s := range c.CategoryOrder {
		if cat, ok := locate.ParseCategory(s); ok {
			out = append(out, cat)
		}
	}
	return out
}

func (b BrowserConfig) Options() browser.Options {
	return browser.Options{
		ControlURL: b.ControlURL,
		Bin:        b.Bin,
		Headless:   b.Headless,
		Stealth:    b.Stealth,
		TargetURLs: b.TargetURLs,
		Timeout:    GetDuration(b.Timeout),
	}
}

func (t TimingsConfig) Crown() crown.Timings {
	return crown.Timings{
		ActivationDelay:  GetDuration(t.ActivationDelay),
		CategoryRetry:    poll.Budget{Interval: GetDuration(t.CategoryRetryInterval), MaxAttempts: t.CategoryRetryAttempts},
		CategorySettle:   GetDuration(t.CategorySettle),
		SportPoll:        poll.Budget{Interval: GetDuration(t.SportPollInterval), MaxAttempts: t.SportPollAttempts},
		SportSettle:      GetDuration(t.SportSettle),
		DateSettle:       GetDuration(t.DateSettle),
		ListLoad:         poll.Budget{Interval: GetDuration(t.ListLoadInterval), MaxAttempts: t.ListLoadAttempts},
		LeagueSettle:     GetDuration(t.LeagueSettle),
		BulkExpandSettle: GetDuration(t.BulkExpandSettle),
		EnterSettle:      GetDuration(t.EnterSettle),
	}
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
