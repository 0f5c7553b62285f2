package derstandard

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RefreshConsentCookies runs the configured consent source and replaces the
// stored cookie set with its result. The source drives a real browser and
// can take a long time, so it runs on its own goroutine while the caller
// waits here; concurrent fetch operations keep going in the meantime.
//
// The wait is bounded by ClientOptions.ConsentTimeout, checked at
// one-second granularity: zero waits forever. Cancelling ctx abandons the
// wait but does not interrupt the browser mid-click; cancellation is
// best-effort only and the browser run is left to finish on its own.
func (c *Client) RefreshConsentCookies(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:RefreshConsentCookies")
	defer span.End()

	if c.consent == nil {
		span.SetStatus(codes.Error, "no consent source configured")
		return fmt.Errorf("no consent source configured")
	}

	type outcome struct {
		cookies map[string]string
		err     error
	}
	results := make(chan outcome, 1)
	go func() {
		cookies, err := c.consent.Cookies(context.WithoutCancel(ctx))
		results <- outcome{cookies: cookies, err: err}
	}()

	var deadline time.Time
	if c.consentTimeout > 0 {
		deadline = time.Now().Add(c.consentTimeout)
	}
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case out := <-results:
			if out.err != nil {
				span.SetStatus(codes.Error, "consent source failed")
				return out.err
			}
			c.mu.Lock()
			c.cookies = out.cookies
			c.mu.Unlock()
			span.SetAttributes(attribute.Int("custom.cookie_count", len(out.cookies)))
			return nil
		case <-ctx.Done():
			span.SetStatus(codes.Error, "cancelled while waiting for consent")
			return ctx.Err()
		case <-tick.C:
			if !deadline.IsZero() && !time.Now().Before(deadline) {
				span.SetStatus(codes.Error, ErrConsentTimeout.Error())
				return fmt.Errorf("%w after %s", ErrConsentTimeout, c.consentTimeout)
			}
		}
	}
}
