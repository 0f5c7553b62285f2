// Package consent drives a real browser through a publisher's cookie
// consent dialog and captures the granted session cookies, which the APIs
// require on subsequent requests.
package consent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

const (
	DefaultURL = "https://www.derstandard.at/consent/tcf/"
	// acceptLabel is the title attribute of the accept button inside the
	// consent message frame.
	acceptLabel = "Einverstanden"
)

// Browser accepts the consent dialog with a headless Chrome and returns
// the resulting cookie jar. It satisfies derstandard.ConsentSource.
type Browser struct {
	// URL of the consent page. Defaults to DefaultURL when empty.
	URL string
	// Timeout bounds the whole browser run. Zero waits forever, which
	// leaves a stuck dialog hanging until the caller gives up.
	Timeout time.Duration
}

func (b Browser) Cookies(ctx context.Context) (map[string]string, error) {
	url := b.URL
	if url == "" {
		url = DefaultURL
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		browserCtx, cancel = context.WithTimeout(browserCtx, b.Timeout)
		defer cancel()
	}

	if err := chromedp.Run(browserCtx, chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("failed to open consent page: %w", err)
	}
	if err := b.acceptConditions(browserCtx); err != nil {
		return nil, err
	}

	var cookies map[string]string
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		all, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies = cookieMap(all)
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie jar: %w", err)
	}
	slog.DebugContext(ctx, "accepted consent dialog", "cookies", len(cookies))
	return cookies, nil
}

// acceptConditions polls once a second until the accept button has been
// clicked. The dialog takes a moment to render after navigation.
func (b Browser) acceptConditions(ctx context.Context) error {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		clicked, err := b.clickAccept(ctx)
		if err != nil {
			return err
		}
		if clicked {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("consent dialog never appeared: %w", ctx.Err())
		case <-tick.C:
		}
	}
}

// clickAccept looks for the accept button in every iframe currently on the
// page. The consent message renders in a sourcepoint iframe whose title
// attribute is not visible on the target list, so each frame is probed for
// the button instead.
func (b Browser) clickAccept(ctx context.Context) (bool, error) {
	targets, err := chromedp.Targets(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list frames: %w", err)
	}
	for _, t := range targets {
		if t.Type != "iframe" {
			continue
		}
		frameCtx, cancelFrame := chromedp.NewContext(ctx, chromedp.WithTargetID(t.TargetID))
		probeCtx, cancelProbe := context.WithTimeout(frameCtx, 2*time.Second)
		err := chromedp.Run(probeCtx, chromedp.Click(
			fmt.Sprintf(`button[title=%q]`, acceptLabel),
			chromedp.ByQuery,
			chromedp.NodeVisible,
		))
		cancelProbe()
		cancelFrame()
		if err == nil {
			return true, nil
		}
	}
	return false, nil
}

func cookieMap(cookies []*network.Cookie) map[string]string {
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out
}
