package derstandard

import "time"

// User identifies the author of a thread or posting. A fresh value is
// constructed for every record, identical authors are not shared.
type User struct {
	ID   string
	Name string
}

// Thread is one live-ticker entry that opens its own comment section.
type Thread struct {
	ID        int64
	TickerID  int64
	Published time.Time
	Title     *string
	Message   *string
	User      User
	Upvotes   int64
	Downvotes int64
}

// Posting is a single comment, sourced from either a ticker thread or an
// article forum.
//
// ParentID is nil iff the posting is a top-level entry. For forum postings
// every non-root ParentID references the thread's root posting rather than
// the immediate parent (the reply tree is collapsed one level during
// flattening), and it may reference a posting that was dropped for not
// being published.
//
// ThreadID is nil for forum postings, the forum backend has no ticker
// thread to tag.
type Posting struct {
	ID        string
	ParentID  *string
	User      User
	ThreadID  *int64
	Published time.Time
	Title     *string
	Message   *string
	Upvotes   int64
	Downvotes int64
}

// ForumInfo describes the forum attached to an article.
type ForumInfo struct {
	ID                string
	TotalPostingCount int64
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
