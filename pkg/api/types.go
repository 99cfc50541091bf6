package api

import (
	"time"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/realtime"
	"github.com/rubiojr/textboard/pkg/search"
	"github.com/rubiojr/textboard/pkg/storage"
	"github.com/rubiojr/textboard/pkg/validate"
)

type ErrorResponse struct {
	Success     bool                 `json:"success"`
	Error       string               `json:"error"`
	FieldErrors validate.FieldErrors `json:"field_errors,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ThreadSummary is a board listing entry: the thread with a preview of its
// first replies and counts of what the preview leaves out.
type ThreadSummary struct {
	core.Thread
	Omitted core.Omitted `json:"omitted"`
}

type ThreadListResponse struct {
	Success     bool            `json:"success"`
	Threads     []ThreadSummary `json:"threads"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
	TotalCount  int             `json:"totalCount"`
}

type ThreadResponse struct {
	Success bool         `json:"success"`
	Thread  *core.Thread `json:"thread"`
}

type ReplyResponse struct {
	Success bool        `json:"success"`
	Reply   *core.Reply `json:"reply"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// SearchResult adds the escaped HTML rendering of the snippet.
type SearchResult struct {
	search.Result
	SnippetHTML string `json:"snippet_html"`
	Link        string `json:"link"`
}

type SearchResponse struct {
	Success     bool           `json:"success"`
	Results     []SearchResult `json:"results"`
	TotalCount  int            `json:"totalCount"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	Query       string         `json:"query"`
	Degraded    bool           `json:"degraded,omitempty"`
}

type StatsResponse struct {
	Success bool `json:"success"`
	*storage.Stats
}

type AdminThreadsResponse struct {
	Success bool `json:"success"`
	*storage.ThreadPage
}

type AdminRepliesResponse struct {
	Success bool `json:"success"`
	*storage.ReplyPage
}

// LiveMessage is a frame sent over /api/live.
type LiveMessage struct {
	Type      string              `json:"type"`
	Listeners int                 `json:"listeners,omitempty"`
	Post      *realtime.PostEvent `json:"post,omitempty"`
}
