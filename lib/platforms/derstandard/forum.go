package derstandard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const lifecyclePublished = "Published"

const forumInfoQuery = `query GetForumInfo($contextUri: String!) {
  getForumByContextUri(contextUri: $contextUri) {
    id
    totalPostingCount
  }
}`

const forumRootsQueryFormat = `query ThreadsByForumQuery($id: String!, $first: Int) {
  getForumRootPostings(getForumRootPostingsParams: {forumId: $id, first: $first}) {
    edges {
      node {
        %s
      }
    }
  }
}`

// replyQuery builds the selection for one posting node, nesting itself
// depth times under replies. At depth zero only the id is requested, which
// terminates the recursion without extra payload.
func replyQuery(depth int) string {
	if depth <= 0 {
		return "id"
	}
	return fmt.Sprintf(`id
lifecycleStatus
author { id name }
title
text
reactions { aggregated { name value } }
history { created }
rootPostingId
replies { %s }`, replyQuery(depth-1))
}

type forumInfoData struct {
	Forum *struct {
		ID                *string `json:"id"`
		TotalPostingCount int64   `json:"totalPostingCount"`
	} `json:"getForumByContextUri"`
}

type forumRootsData struct {
	Roots *struct {
		Edges []struct {
			Node forumNode `json:"node"`
		} `json:"edges"`
	} `json:"getForumRootPostings"`
}

type forumNode struct {
	ID              string `json:"id"`
	LifecycleStatus string `json:"lifecycleStatus"`
	Author          *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"author"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Reactions struct {
		Aggregated []struct {
			Name  string `json:"name"`
			Value int64  `json:"value"`
		} `json:"aggregated"`
	} `json:"reactions"`
	History *struct {
		Created string `json:"created"`
	} `json:"history"`
	RootPostingID string      `json:"rootPostingId"`
	Replies       []forumNode `json:"replies"`
}

// parseForumTime parses a forum timestamp as sent, without converting the
// zone. The backend is expected to deliver already normalized timestamps;
// a value without an offset is taken as UTC.
func parseForumTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02T15:04:05.999999999", value, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedResponse, value)
		}
	}
	return t, nil
}

func (n forumNode) toPosting() (Posting, error) {
	if n.Author == nil || n.History == nil {
		return Posting{}, fmt.Errorf("%w: incomplete forum posting node", ErrMalformedResponse)
	}
	// The backend sends aggregated reactions in a fixed order, upvotes
	// first, downvotes second. There is no named lookup to harden this
	// against reordering.
	if len(n.Reactions.Aggregated) < 2 {
		return Posting{}, fmt.Errorf("%w: expected two aggregated reactions", ErrMalformedResponse)
	}
	published, err := parseForumTime(n.History.Created)
	if err != nil {
		return Posting{}, err
	}
	var parentID *string
	if n.ID != n.RootPostingID {
		parentID = optString(n.RootPostingID)
	}
	return Posting{
		ID:        n.ID,
		ParentID:  parentID,
		User:      User{ID: n.Author.ID, Name: n.Author.Name},
		Published: published,
		Title:     optString(n.Title),
		Message:   optString(n.Text),
		Upvotes:   n.Reactions.Aggregated[0].Value,
		Downvotes: n.Reactions.Aggregated[1].Value,
	}, nil
}

// flattenReplies linearizes a reply tree. Siblings keep the order the
// backend returned them in, each node precedes all of its descendants.
func flattenReplies(nodes []forumNode) []forumNode {
	flat := make([]forumNode, 0, len(nodes))
	flat = append(flat, nodes...)
	for _, n := range nodes {
		flat = append(flat, flattenReplies(n.Replies)...)
	}
	return flat
}

// ForumInfo resolves the forum attached to an article by its canonical
// story URL.
func (c *Client) ForumInfo(ctx context.Context, articleID int64) (ForumInfo, error) {
	ctx, span := tracer.Start(ctx, "client:ForumInfo")
	defer span.End()

	rc, release := c.session()
	defer release()

	info, err := c.forumInfo(ctx, rc, articleID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return info, err
}

func (c *Client) forumInfo(ctx context.Context, rc *resty.Client, articleID int64) (ForumInfo, error) {
	variables := struct {
		ContextURI string `json:"contextUri"`
	}{fmt.Sprintf("%s/%d", c.storyBase, articleID)}

	data, err := graphqlQuery[any, forumInfoData](
		ctx, c.request(ctx, rc), c.forumBase, "GetForumInfo", forumInfoQuery, variables,
	)
	if err != nil {
		return ForumInfo{}, err
	}
	if data.Forum == nil || data.Forum.ID == nil {
		return ForumInfo{}, fmt.Errorf("%w: missing forum info", ErrMalformedResponse)
	}
	return ForumInfo{
		ID:                *data.Forum.ID,
		TotalPostingCount: data.Forum.TotalPostingCount,
	}, nil
}

// ForumPostings returns every published posting in an article's forum. The
// whole reply tree is fetched in one request and flattened; postings that
// are not published are dropped, including from being parents, so callers
// must tolerate ParentID references to postings absent from the result.
//
// TODO: allow 32 reply levels like the web client.
func (c *Client) ForumPostings(ctx context.Context, articleID int64) ([]Posting, error) {
	ctx, span := tracer.Start(ctx, "client:ForumPostings")
	defer span.End()
	span.SetAttributes(attribute.Int64("custom.article_id", articleID))

	rc, release := c.session()
	defer release()

	info, err := c.forumInfo(ctx, rc, articleID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	variables := struct {
		ID    string `json:"id"`
		First int64  `json:"first"`
	}{info.ID, 100_000}
	query := fmt.Sprintf(forumRootsQueryFormat, replyQuery(c.replyDepth))

	data, err := graphqlQuery[any, forumRootsData](
		ctx, c.request(ctx, rc), c.forumBase, "ThreadsByForumQuery", query, variables,
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if data.Roots == nil {
		span.SetStatus(codes.Error, "missing root postings")
		return nil, fmt.Errorf("%w: missing root postings", ErrMalformedResponse)
	}

	roots := make([]forumNode, 0, len(data.Roots.Edges))
	for _, edge := range data.Roots.Edges {
		roots = append(roots, edge.Node)
	}

	var postings []Posting
	for _, node := range flattenReplies(roots) {
		// Depth-limited leaves only carry an id and no lifecycle
		// status, so they fall out here together with deleted and
		// hidden postings.
		if node.LifecycleStatus != lifecyclePublished {
			continue
		}
		p, err := node.toPosting()
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, nil
}
