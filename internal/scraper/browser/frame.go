// Package browser drives the sportsbook page through Rod: it launches or
// attaches to Chrome, finds the sportsbook tab, descends into the frame that
// renders the book and exposes it as a ui.Tree.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

// maxFrameDepth bounds how far TargetFrame descends into nested iframes.
const maxFrameDepth = 5

// TargetFrame returns the innermost visible frame of page, or page itself
// when no visible iframe is present. Sportsbooks commonly host the book in
// an iframe under a wrapper site.
func TargetFrame(ctx context.Context, page *rod.Page) (*rod.Page, error) {
	return descend(ctx, page, 0)
}

func descend(ctx context.Context, page *rod.Page, depth int) (*rod.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if depth >= maxFrameDepth {
		return page, nil
	}

	p := page.Context(ctx)
	// A busy page is still usable; the frame list is re-read below.
	_ = p.Timeout(3*time.Second).WaitDOMStable(300*time.Millisecond, 0)

	iframes, err := p.Elements("iframe")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return page, nil
	}

	for _, iframe := range iframes {
		if visible, _ := iframe.Visible(); !visible {
			continue
		}
		frame, err := iframe.Frame()
		if err != nil {
			continue
		}
		return descend(ctx, frame, depth+1)
	}
	return page, nil
}

// FrameBySelector returns the frame behind the iframe matching selector.
func FrameBySelector(ctx context.Context, page *rod.Page, selector string) (*rod.Page, error) {
	el, err := page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("iframe %q not found: %w", selector, err)
	}
	frame, err := el.Frame()
	if err != nil {
		return nil, fmt.Errorf("open frame %q: %w", selector, err)
	}
	return frame, nil
}
