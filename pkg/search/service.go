package search

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/log"
	"github.com/rubiojr/textboard/pkg/pagination"
	"github.com/rubiojr/textboard/pkg/snippet"
	"github.com/rubiojr/textboard/pkg/storage"
)

var logger = log.ForService("search")

const (
	TypeThread = "thread"
	TypeReply  = "reply"
)

// Engine snippet sizes, in tokens.
const (
	contentSnippetTokens = 50
	subjectSnippetTokens = 20
)

// Result is one matching thread or reply.
type Result struct {
	Type           string                `json:"type"`
	ID             int64                 `json:"id"`
	Content        string                `json:"content"`
	Subject        string                `json:"subject,omitempty"`
	ThreadID       int64                 `json:"threadId,omitempty"`
	ThreadSubject  string                `json:"threadSubject,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	Image          *core.ImageAttachment `json:"image,omitempty"`
	RelevanceScore float64               `json:"relevanceScore"`
	Snippet        snippet.Snippet       `json:"snippet"`
}

// Link is the board path of the result, anchored to the reply for replies.
func (r Result) Link() string {
	if r.Type == TypeReply {
		return fmt.Sprintf("/thread/%d#reply-%d", r.ThreadID, r.ID)
	}
	return fmt.Sprintf("/thread/%d", r.ID)
}

// Results is one page of search results.
type Results struct {
	Results     []Result `json:"results"`
	TotalCount  int      `json:"totalCount"`
	CurrentPage int      `json:"currentPage"`
	TotalPages  int      `json:"totalPages"`
	Query       string   `json:"query"`
	// Degraded is set when the full-text path failed and results come from
	// substring matching.
	Degraded bool `json:"degraded,omitempty"`
}

// Service searches threads and replies in one board database.
type Service struct {
	db     *sql.DB
	window snippet.Window
}

// NewService returns a Service reading from db.
func NewService(db *sql.DB) *Service {
	return &Service{db: db, window: snippet.DefaultWindow}
}

// Search runs query against threads and replies and returns the requested
// page. It never fails: a full-text failure degrades to substring matching
// and a failure of that yields an empty page.
func (s *Service) Search(ctx context.Context, query string, page, perPage int) *Results {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	query = strings.TrimSpace(query)

	empty := &Results{Results: []Result{}, CurrentPage: page, Query: query}
	if query == "" {
		return empty
	}

	expr, terms := Sanitize(query)
	if expr != "" {
		all, err := s.fullText(ctx, expr, terms)
		if err == nil {
			return paginate(all, query, page, perPage)
		}
		logger.Warnf("full-text search for %q failed, falling back to substring match: %v", query, err)
	}

	all, err := s.substring(ctx, query)
	if err != nil {
		logger.Errorf("substring search for %q failed: %v", query, err)
		empty.Degraded = true
		return empty
	}
	res := paginate(all, query, page, perPage)
	res.Degraded = true
	return res
}

func paginate(all []Result, query string, page, perPage int) *Results {
	w := pagination.Compute(page, len(all), perPage)
	start, end := w.Bounds(len(all))
	return &Results{
		Results:     append([]Result{}, all[start:end]...),
		TotalCount:  len(all),
		CurrentPage: page,
		TotalPages:  w.TotalPages,
		Query:       query,
	}
}

// fullText queries both FTS indexes concurrently and merges the rows by rank
// magnitude, lowest first.
func (s *Service) fullText(ctx context.Context, expr string, terms []string) ([]Result, error) {
	var threads, replies []Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		threads, err = s.matchThreads(gctx, expr, terms)
		return err
	})
	g.Go(func() error {
		var err error
		replies, err = s.matchReplies(gctx, expr, terms)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := append(threads, replies...)
	slices.SortStableFunc(all, func(a, b Result) int {
		return cmp.Compare(a.RelevanceScore, b.RelevanceScore)
	})
	return all, nil
}

func (s *Service) matchThreads(ctx context.Context, expr string, terms []string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.subject, t.content,
			t.image_url, t.image_name, t.image_size, t.image_dimensions,
			t.created_at, threads_fts.rank,
			snippet(threads_fts, 1, ?, ?, ?, ?),
			snippet(threads_fts, 0, ?, ?, ?, ?)
		FROM threads_fts
		JOIN threads t ON t.id = threads_fts.rowid
		WHERE threads_fts MATCH ?`,
		snippet.MarkOpen, snippet.MarkClose, snippet.Ellipsis, contentSnippetTokens,
		snippet.MarkOpen, snippet.MarkClose, snippet.Ellipsis, subjectSnippetTokens,
		expr)
	if err != nil {
		return nil, fmt.Errorf("matching threads: %w", err)
	}
	defer closeRows(rows)

	var out []Result
	for rows.Next() {
		r := Result{Type: TypeThread}
		var img storage.ImageColumns
		var contentSnip, subjectSnip sql.NullString
		if err := rows.Scan(&r.ID, &r.Subject, &r.Content,
			&img.URL, &img.Name, &img.Size, &img.Dimensions,
			&r.CreatedAt, &r.RelevanceScore, &contentSnip, &subjectSnip); err != nil {
			return nil, fmt.Errorf("scanning thread match: %w", err)
		}
		r.RelevanceScore = math.Abs(r.RelevanceScore)
		r.Image = img.Attachment()
		r.Snippet = s.pickSnippet(r.Content, terms, contentSnip.String, subjectSnip.String)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("matching threads: %w", err)
	}
	return out, nil
}

func (s *Service) matchReplies(ctx context.Context, expr string, terms []string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.thread_id, r.content,
			r.image_url, r.image_name, r.image_size, r.image_dimensions,
			r.created_at, t.subject, replies_fts.rank,
			snippet(replies_fts, 0, ?, ?, ?, ?)
		FROM replies_fts
		JOIN replies r ON r.id = replies_fts.rowid
		JOIN threads t ON t.id = r.thread_id
		WHERE replies_fts MATCH ?`,
		snippet.MarkOpen, snippet.MarkClose, snippet.Ellipsis, contentSnippetTokens,
		expr)
	if err != nil {
		return nil, fmt.Errorf("matching replies: %w", err)
	}
	defer closeRows(rows)

	var out []Result
	for rows.Next() {
		r := Result{Type: TypeReply}
		var img storage.ImageColumns
		var contentSnip sql.NullString
		if err := rows.Scan(&r.ID, &r.ThreadID, &r.Content,
			&img.URL, &img.Name, &img.Size, &img.Dimensions,
			&r.CreatedAt, &r.ThreadSubject, &r.RelevanceScore, &contentSnip); err != nil {
			return nil, fmt.Errorf("scanning reply match: %w", err)
		}
		r.RelevanceScore = math.Abs(r.RelevanceScore)
		r.Image = img.Attachment()
		r.Snippet = s.pickSnippet(r.Content, terms, contentSnip.String)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("matching replies: %w", err)
	}
	return out, nil
}

// pickSnippet prefers the first engine snippet that highlights something,
// then the first non-blank one, and extracts from text when all are blank.
func (s *Service) pickSnippet(text string, terms []string, engine ...string) snippet.Snippet {
	parsed := make([]snippet.Snippet, 0, len(engine))
	for _, e := range engine {
		parsed = append(parsed, snippet.ParseMarked(e, snippet.MarkOpen, snippet.MarkClose))
	}
	for _, p := range parsed {
		if p.HasHighlights() {
			return p
		}
	}
	for _, p := range parsed {
		if !p.Empty() {
			return p
		}
	}
	return snippet.Extract(text, terms, s.window)
}

// substring matches the literal query against the raw text columns. Every
// row scores 1; threads come first, each group newest first.
func (s *Service) substring(ctx context.Context, query string) ([]Result, error) {
	like := "%" + escapeLike(query) + "%"
	terms := strings.Fields(query)

	var out []Result

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, content,
			image_url, image_name, image_size, image_dimensions, created_at
		FROM threads
		WHERE subject LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC`, like, like)
	if err != nil {
		return nil, fmt.Errorf("substring matching threads: %w", err)
	}
	for rows.Next() {
		r := Result{Type: TypeThread, RelevanceScore: 1}
		var img storage.ImageColumns
		if err := rows.Scan(&r.ID, &r.Subject, &r.Content,
			&img.URL, &img.Name, &img.Size, &img.Dimensions, &r.CreatedAt); err != nil {
			closeRows(rows)
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		r.Image = img.Attachment()
		text := r.Content
		if text == "" {
			text = r.Subject
		}
		r.Snippet = snippet.Extract(text, terms, s.window)
		out = append(out, r)
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("substring matching threads: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT r.id, r.thread_id, r.content,
			r.image_url, r.image_name, r.image_size, r.image_dimensions,
			r.created_at, t.subject
		FROM replies r
		JOIN threads t ON t.id = r.thread_id
		WHERE r.content LIKE ? ESCAPE '\'
		ORDER BY r.created_at DESC, r.id DESC`, like)
	if err != nil {
		return nil, fmt.Errorf("substring matching replies: %w", err)
	}
	defer closeRows(rows)
	for rows.Next() {
		r := Result{Type: TypeReply, RelevanceScore: 1}
		var img storage.ImageColumns
		if err := rows.Scan(&r.ID, &r.ThreadID, &r.Content,
			&img.URL, &img.Name, &img.Size, &img.Dimensions,
			&r.CreatedAt, &r.ThreadSubject); err != nil {
			return nil, fmt.Errorf("scanning reply: %w", err)
		}
		r.Image = img.Attachment()
		r.Snippet = snippet.Extract(r.Content, terms, s.window)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("substring matching replies: %w", err)
	}

	return out, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.Warnf("failed to close rows: %v", err)
	}
}
