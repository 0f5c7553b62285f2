package derstandard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"dstclient/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("platforms/derstandard")

const (
	DefaultTickerBaseURL = "https://www.derstandard.at/jetzt/api"
	DefaultForumBaseURL  = "https://capi.ds.at/forum-serve-graphql/v1"
	DefaultStoryBaseURL  = "https://www.derstandard.at/story"
)

const defaultReplyDepth = 18

// ConsentSource obtains a consent cookie set, usually by driving a real
// browser through the cookie dialog. Implementations may block for a long
// time; the client runs them on a separate goroutine.
type ConsentSource interface {
	Cookies(ctx context.Context) (map[string]string, error)
}

type ClientOptions struct {
	// Base URLs default to the production hosts when empty.
	TickerBaseURL string
	ForumBaseURL  string
	StoryBaseURL  string

	// Session is reused for every request when set. The client never
	// closes a caller-supplied session. When nil, each operation builds
	// its own session and releases it before returning.
	Session *resty.Client

	Consent ConsentSource
	// ConsentTimeout bounds RefreshConsentCookies, checked at one-second
	// granularity. Zero waits forever.
	ConsentTimeout time.Duration

	// ReplyDepth is the maximum forum reply nesting requested per query.
	// Defaults to 18 levels.
	ReplyDepth int
}

// Client is the unified client for the ticker and forum APIs. The only
// mutable state is the consent cookie set, which RefreshConsentCookies
// replaces atomically; all fetch operations may run concurrently.
type Client struct {
	tickerBase     string
	forumBase      string
	storyBase      string
	replyDepth     int
	consent        ConsentSource
	consentTimeout time.Duration
	caller         *resty.Client

	mu      sync.RWMutex
	cookies map[string]string
}

func NewClient(opts ClientOptions) *Client {
	c := &Client{
		tickerBase:     opts.TickerBaseURL,
		forumBase:      opts.ForumBaseURL,
		storyBase:      opts.StoryBaseURL,
		replyDepth:     opts.ReplyDepth,
		consent:        opts.Consent,
		consentTimeout: opts.ConsentTimeout,
		caller:         opts.Session,
	}
	if c.tickerBase == "" {
		c.tickerBase = DefaultTickerBaseURL
	}
	if c.forumBase == "" {
		c.forumBase = DefaultForumBaseURL
	}
	if c.storyBase == "" {
		c.storyBase = DefaultStoryBaseURL
	}
	if c.replyDepth <= 0 {
		c.replyDepth = defaultReplyDepth
	}
	return c
}

// Cookies returns a copy of the stored consent cookie set.
func (c *Client) Cookies() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cookies := make(map[string]string, len(c.cookies))
	for name, value := range c.cookies {
		cookies[name] = value
	}
	return cookies
}

// session returns the resty client to use for one operation and a release
// func. Caller-supplied sessions are handed back untouched; owned sessions
// drop their idle connections on release so nothing outlives the call.
func (c *Client) session() (*resty.Client, func()) {
	if c.caller != nil {
		return c.caller, func() {}
	}
	rc := resty.New()
	telemetry.InstrumentResty(rc, "platforms/derstandard/http")
	return rc, func() { rc.GetClient().CloseIdleConnections() }
}

// request builds a request carrying the json content type and the stored
// consent cookies. Cookies go on the request rather than the session so a
// caller-supplied session is never mutated.
func (c *Client) request(ctx context.Context, rc *resty.Client) *resty.Request {
	req := rc.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json")
	c.mu.RLock()
	for name, value := range c.cookies {
		req.SetCookie(&http.Cookie{Name: name, Value: value})
	}
	c.mu.RUnlock()
	return req
}
