package derstandard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type fakeConsent struct {
	cookies map[string]string
	err     error
	delay   time.Duration
}

func (f fakeConsent) Cookies(ctx context.Context) (map[string]string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.cookies, f.err
}

func TestRefreshConsentCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("content-type"))
		cookie, err := r.Cookie("gdpr")
		require.NoError(t, err)
		require.Equal(t, "accepted", cookie.Value)
		fmt.Fprint(w, `{"rcs": []}`)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{
		TickerBaseURL: srv.URL,
		Consent:       fakeConsent{cookies: map[string]string{"gdpr": "accepted"}},
	})
	require.NoError(t, client.RefreshConsentCookies(context.Background()))
	require.Equal(t, map[string]string{"gdpr": "accepted"}, client.Cookies())

	// subsequent requests carry the refreshed cookies
	_, err := client.TickerThreads(context.Background(), 1)
	require.NoError(t, err)
}

func TestRefreshConsentCookiesTimeout(t *testing.T) {
	client := NewClient(ClientOptions{
		Consent:        fakeConsent{delay: 5 * time.Second},
		ConsentTimeout: time.Second,
	})
	err := client.RefreshConsentCookies(context.Background())
	require.ErrorIs(t, err, ErrConsentTimeout)
	require.Empty(t, client.Cookies(), "cookies stay unset on failure")
}

func TestRefreshConsentCookiesNoSource(t *testing.T) {
	client := NewClient(ClientOptions{})
	require.Error(t, client.RefreshConsentCookies(context.Background()))
}

type countingTransport struct {
	requests int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.requests++
	return http.DefaultTransport.RoundTrip(req)
}

func TestCallerSuppliedSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rcs": []}`)
	}))
	defer srv.Close()

	transport := &countingTransport{}
	session := resty.New()
	session.GetClient().Transport = transport

	client := NewClient(ClientOptions{
		TickerBaseURL: srv.URL,
		Session:       session,
	})

	_, err := client.TickerThreads(context.Background(), 1)
	require.NoError(t, err)
	_, err = client.TickerThreads(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, transport.requests, "every request goes through the supplied session")
}
