package derstandard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type tickerThreadsPayload struct {
	Threads *[]tickerThreadRecord `json:"rcs"`
}

type tickerThreadRecord struct {
	ID         *int64       `json:"id"`
	Created    *string      `json:"ctd"`
	Headline   string       `json:"hl"`
	Message    string       `json:"cm"`
	AuthorID   *json.Number `json:"cid"`
	AuthorName *string      `json:"cn"`
	Upvotes    *int64       `json:"vp"`
	Downvotes  *int64       `json:"vn"`
}

func (r tickerThreadRecord) validate() error {
	if r.ID == nil || r.Created == nil || r.AuthorID == nil || r.AuthorName == nil || r.Upvotes == nil || r.Downvotes == nil {
		return fmt.Errorf("%w: incomplete ticker thread record", ErrMalformedResponse)
	}
	return nil
}

type tickerPostingsPayload struct {
	Postings *[]tickerPostingRecord `json:"p"`
}

type tickerPostingRecord struct {
	ID         *int64       `json:"pid"`
	ParentID   *int64       `json:"ppid"`
	AuthorID   *json.Number `json:"cid"`
	AuthorName *string      `json:"cn"`
	Created    *string      `json:"cd"`
	Headline   string       `json:"hl"`
	Text       string       `json:"tx"`
	Upvotes    *int64       `json:"vp"`
	Downvotes  *int64       `json:"vn"`
}

func (r tickerPostingRecord) validate() error {
	// ppid is legitimately null on root postings.
	if r.ID == nil || r.Created == nil || r.AuthorID == nil || r.AuthorName == nil || r.Upvotes == nil || r.Downvotes == nil {
		return fmt.Errorf("%w: incomplete ticker posting record", ErrMalformedResponse)
	}
	return nil
}

// parseTickerTime parses a ticker timestamp and converts it to UTC.
// Timestamps without an offset are taken as local time, matching how the
// backend's web client treats them.
func parseTickerTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02T15:04:05", value, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedResponse, value)
		}
	}
	return t.UTC(), nil
}

// TickerThreads returns every discussion thread of a live ticker. A huge
// page size forces the backend to answer with a single page.
func (c *Client) TickerThreads(ctx context.Context, tickerID int64) ([]Thread, error) {
	ctx, span := tracer.Start(ctx, "client:TickerThreads")
	defer span.End()
	span.SetAttributes(attribute.Int64("custom.ticker_id", tickerID))

	rc, release := c.session()
	defer release()

	res, err := c.request(ctx, rc).
		SetQueryParam("id", strconv.FormatInt(tickerID, 10)).
		SetQueryParam("ps", "1000000").
		Get(c.tickerBase + "/redcontent")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var payload tickerThreadsPayload
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		span.SetStatus(codes.Error, "failed to parse json response")
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Threads == nil {
		span.SetStatus(codes.Error, "missing rcs field")
		return nil, fmt.Errorf("%w: missing rcs field", ErrMalformedResponse)
	}

	threads := make([]Thread, 0, len(*payload.Threads))
	for _, rec := range *payload.Threads {
		if err := rec.validate(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		published, err := parseTickerTime(*rec.Created)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		threads = append(threads, Thread{
			ID:        *rec.ID,
			TickerID:  tickerID,
			Published: published,
			Title:     optString(rec.Headline),
			Message:   optString(rec.Message),
			User:      User{ID: rec.AuthorID.String(), Name: *rec.AuthorName},
			Upvotes:   *rec.Upvotes,
			Downvotes: *rec.Downvotes,
		})
	}
	return threads, nil
}

// ThreadPostings returns the complete, deduplicated set of postings in one
// ticker thread. The backend only hands out bounded pages, so the fetch
// walks a cursor (the id of the last posting on the previous page) until a
// page comes back empty.
func (c *Client) ThreadPostings(ctx context.Context, tickerID, threadID int64) ([]Posting, error) {
	ctx, span := tracer.Start(ctx, "client:ThreadPostings")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("custom.ticker_id", tickerID),
		attribute.Int64("custom.thread_id", threadID),
	)

	rc, release := c.session()
	defer release()

	var records []tickerPostingRecord
	var cursor int64
	for {
		page, err := c.threadPostingsPage(ctx, rc, tickerID, threadID, cursor)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		records = append(records, page...)
		cursor = *page[len(page)-1].ID
	}

	// Pages fetched with a cursor can overlap. Collapse duplicate ids,
	// keeping the first position and the last-seen content.
	index := make(map[int64]int, len(records))
	deduped := make([]tickerPostingRecord, 0, len(records))
	for _, rec := range records {
		if at, seen := index[*rec.ID]; seen {
			deduped[at] = rec
			continue
		}
		index[*rec.ID] = len(deduped)
		deduped = append(deduped, rec)
	}

	postings := make([]Posting, 0, len(deduped))
	for _, rec := range deduped {
		published, err := parseTickerTime(*rec.Created)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		var parentID *string
		if rec.ParentID != nil {
			parentID = optString(strconv.FormatInt(*rec.ParentID, 10))
		}
		tid := threadID
		postings = append(postings, Posting{
			ID:        strconv.FormatInt(*rec.ID, 10),
			ParentID:  parentID,
			User:      User{ID: rec.AuthorID.String(), Name: *rec.AuthorName},
			ThreadID:  &tid,
			Published: published,
			Title:     optString(rec.Headline),
			Message:   optString(rec.Text),
			Upvotes:   *rec.Upvotes,
			Downvotes: *rec.Downvotes,
		})
	}
	return postings, nil
}

// threadPostingsPage fetches one page of postings. Records are validated
// here so pagination can rely on the id of the last record.
func (c *Client) threadPostingsPage(ctx context.Context, rc *resty.Client, tickerID, threadID, skipTo int64) ([]tickerPostingRecord, error) {
	req := c.request(ctx, rc).
		SetQueryParam("objectId", strconv.FormatInt(tickerID, 10)).
		SetQueryParam("redContentId", strconv.FormatInt(threadID, 10))
	if skipTo != 0 {
		req.SetQueryParam("skipToPostingId", strconv.FormatInt(skipTo, 10))
	}

	res, err := req.Get(c.tickerBase + "/postings")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var payload tickerPostingsPayload
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Postings == nil {
		return nil, fmt.Errorf("%w: missing p field", ErrMalformedResponse)
	}
	for _, rec := range *payload.Postings {
		if err := rec.validate(); err != nil {
			return nil, err
		}
	}
	return *payload.Postings, nil
}
