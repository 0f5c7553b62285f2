package derstandard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dstclient/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestParseTickerTime(t *testing.T) {
	ts, err := parseTickerTime("2022-01-01T12:00:00+01:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2022, 1, 1, 11, 0, 0, 0, time.UTC), ts)

	_, err = parseTickerTime("not a timestamp")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTickerThreads(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:platforms/derstandard")
	defer cleanup()

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/redcontent", r.URL.Path)
		require.Equal(t, "1336696633613", r.URL.Query().Get("id"))
		require.Equal(t, "1000000", r.URL.Query().Get("ps"))
		fmt.Fprint(w, `{"rcs": [
			{"id": 1, "ctd": "2022-01-01T12:00:00+01:00", "hl": "Kickoff", "cm": "", "cid": 7, "cn": "alice", "vp": 3, "vn": 1},
			{"id": 2, "ctd": "2022-01-01T13:30:00+01:00", "cm": "second half", "cid": 8, "cn": "bob", "vp": 0, "vn": 0}
		]}`)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{TickerBaseURL: srv.URL})
	threads, err := client.TickerThreads(context.Background(), 1336696633613)
	require.NoError(t, err)
	require.Equal(t, 1, requests)
	require.Len(t, threads, 2)

	first := threads[0]
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(1336696633613), first.TickerID)
	require.Equal(t, time.Date(2022, 1, 1, 11, 0, 0, 0, time.UTC), first.Published)
	require.Equal(t, User{ID: "7", Name: "alice"}, first.User)
	require.Equal(t, "Kickoff", *first.Title)
	require.Nil(t, first.Message)
	require.Equal(t, int64(3), first.Upvotes)
	require.Equal(t, int64(1), first.Downvotes)

	second := threads[1]
	require.Nil(t, second.Title)
	require.Equal(t, "second half", *second.Message)
}

func TestTickerThreadsMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"missing rcs":      `{}`,
		"not json":         `<html>`,
		"incomplete entry": `{"rcs": [{"id": 1, "ctd": "2022-01-01T12:00:00+01:00"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			client := NewClient(ClientOptions{TickerBaseURL: srv.URL})
			_, err := client.TickerThreads(context.Background(), 1)
			require.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestTickerThreadsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(ClientOptions{TickerBaseURL: srv.URL})
	_, err := client.TickerThreads(context.Background(), 1)
	require.ErrorIs(t, err, ErrNetwork)
}

func postingRecord(pid int, parent string) string {
	return fmt.Sprintf(
		`{"pid": %d, %s"cid": 7, "cn": "alice", "cd": "2022-01-01T12:00:00+01:00", "tx": "text %d", "vp": 1, "vn": 0}`,
		pid, parent, pid,
	)
}

func TestThreadPostingsPagination(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:platforms/derstandard")
	defer cleanup()

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/postings", r.URL.Path)
		require.Equal(t, "100", r.URL.Query().Get("objectId"))
		require.Equal(t, "200", r.URL.Query().Get("redContentId"))

		// page two overlaps page one on posting 2
		switch r.URL.Query().Get("skipToPostingId") {
		case "":
			fmt.Fprintf(w, `{"p": [%s, %s]}`, postingRecord(1, ""), postingRecord(2, `"ppid": 1, `))
		case "2":
			fmt.Fprintf(w, `{"p": [%s, %s]}`, postingRecord(2, `"ppid": 1, `), postingRecord(3, ""))
		case "3":
			fmt.Fprint(w, `{"p": []}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("skipToPostingId"))
		}
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{TickerBaseURL: srv.URL})
	postings, err := client.ThreadPostings(context.Background(), 100, 200)
	require.NoError(t, err)
	require.Equal(t, 3, requests)
	require.Len(t, postings, 3)

	seen := map[string]bool{}
	for _, p := range postings {
		require.False(t, seen[p.ID], "duplicate posting id %s", p.ID)
		seen[p.ID] = true
		require.NotNil(t, p.ThreadID)
		require.Equal(t, int64(200), *p.ThreadID)
		require.Equal(t, time.Date(2022, 1, 1, 11, 0, 0, 0, time.UTC), p.Published)
	}
	require.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, seen)

	require.Nil(t, postings[0].ParentID)
	require.Equal(t, "1", *postings[1].ParentID)
}

func TestThreadPostingsEmptyThread(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"p": []}`)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{TickerBaseURL: srv.URL})
	postings, err := client.ThreadPostings(context.Background(), 100, 200)
	require.NoError(t, err)
	require.Equal(t, 1, requests)
	require.Empty(t, postings)
}

func TestThreadPostingsFailureDiscardsPages(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			fmt.Fprintf(w, `{"p": [%s]}`, postingRecord(1, ""))
			return
		}
		fmt.Fprint(w, `{"nope": true}`)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{TickerBaseURL: srv.URL})
	postings, err := client.ThreadPostings(context.Background(), 100, 200)
	require.True(t, errors.Is(err, ErrMalformedResponse))
	require.Nil(t, postings)
}
