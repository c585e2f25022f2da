package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// ErrNoTarget is returned when no target URL is configured.
var ErrNoTarget = errors.New("no sportsbook url configured")

// Options controls how Connect reaches a browser and how OpenTarget picks
// the sportsbook tab.
type Options struct {
	// ControlURL attaches to a running browser; empty launches a new one.
	ControlURL string
	Bin        string
	Headless   bool
	// Stealth opens new tabs with anti-detection patches applied.
	Stealth    bool
	TargetURLs []string
	Timeout    time.Duration
}

// Connect attaches to the browser at opts.ControlURL, or launches one.
func Connect(ctx context.Context, opts Options, log *zap.Logger) (*rod.Browser, error) {
	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		} else if path, ok := launcher.LookPath(); ok {
			l = l.Bin(path)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		log.Info("launched browser", zap.Bool("headless", opts.Headless))
	}

	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return b, nil
}

// OpenTarget returns an open tab whose host matches one of the target URLs.
// When none is open, it opens the first target URL in a new tab.
func OpenTarget(ctx context.Context, b *rod.Browser, opts Options, log *zap.Logger) (*rod.Page, error) {
	if len(opts.TargetURLs) == 0 {
		return nil, ErrNoTarget
	}

	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if MatchesTarget(info.URL, opts.TargetURLs) {
			log.Info("attached to open sportsbook tab", zap.String("url", info.URL))
			if _, err := p.Activate(); err != nil {
				log.Warn("activate tab failed", zap.Error(err))
			}
			return p, nil
		}
	}

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}

	p := page.Context(ctx)
	if opts.Timeout > 0 {
		p = p.Timeout(opts.Timeout)
	}
	target := opts.TargetURLs[0]
	if err := p.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", target, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", target, err)
	}
	log.Info("opened sportsbook tab", zap.String("url", target))
	return page, nil
}

// MatchesTarget reports whether pageURL is on the host of any target.
func MatchesTarget(pageURL string, targets []string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, t := range targets {
		tu, err := url.Parse(t)
		if err != nil || tu.Host == "" {
			continue
		}
		want := strings.TrimPrefix(strings.ToLower(tu.Hostname()), "www.")
		if host == want || strings.HasSuffix(host, "."+want) {
			return true
		}
	}
	return false
}
