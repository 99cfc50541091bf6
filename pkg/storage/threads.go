package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/pagination"
)

// ThreadPage is one page of the board, newest threads first.
type ThreadPage struct {
	Threads     []core.Thread `json:"threads"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	TotalCount  int           `json:"totalCount"`
}

// ListThreads returns page (1-based) of threads, newest first, each with all
// its replies oldest first. Pages below 1 are treated as the first page.
func (s *Store) ListThreads(ctx context.Context, page, perPage int) (*ThreadPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return nil, fmt.Errorf("listing threads: per page must be positive, got %d", perPage)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM threads").Scan(&total); err != nil {
		return nil, persistErr("counting threads", err)
	}

	w := pagination.Compute(page, total, perPage)
	result := &ThreadPage{
		Threads:     []core.Thread{},
		CurrentPage: page,
		TotalPages:  w.TotalPages,
		TotalCount:  total,
	}
	if total == 0 || w.Offset >= total {
		return result, nil
	}

	// The CTE picks exactly the page's thread ids so threads with many
	// replies cannot push others off the page.
	query := `
		WITH page AS (
			SELECT id FROM threads
			ORDER BY created_at DESC, id DESC
			LIMIT ? OFFSET ?
		)
		SELECT ` + threadJoinColumns + `
		FROM page p
		JOIN threads t ON t.id = p.id
		LEFT JOIN replies r ON r.thread_id = t.id
		ORDER BY t.created_at DESC, t.id DESC, r.created_at ASC, r.id ASC`

	rows, err := s.db.QueryContext(ctx, query, w.Limit, w.Offset)
	if err != nil {
		return nil, persistErr("listing threads", err)
	}
	defer closeRows(rows)

	flat, err := scanThreadRows(rows)
	if err != nil {
		return nil, persistErr("listing threads", err)
	}

	threads := GroupThreadRows(flat)
	if len(threads) > perPage {
		threads = threads[:perPage]
	}
	result.Threads = threads
	return result, nil
}

// GetThreadWithReplies returns the thread with all its replies, oldest
// first, or nil when no thread has that id.
func (s *Store) GetThreadWithReplies(ctx context.Context, id int64) (*core.Thread, error) {
	query := `
		SELECT ` + threadJoinColumns + `
		FROM threads t
		LEFT JOIN replies r ON r.thread_id = t.id
		WHERE t.id = ?
		ORDER BY r.created_at ASC, r.id ASC`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("getting thread %d", id), err)
	}
	defer closeRows(rows)

	flat, err := scanThreadRows(rows)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("getting thread %d", id), err)
	}

	threads := GroupThreadRows(flat)
	if len(threads) == 0 {
		return nil, nil
	}
	return &threads[0], nil
}

// CreateThread stores a thread and returns it with its new id. CreatedAt is
// the process clock at insert time; the row is not read back.
func (s *Store) CreateThread(ctx context.Context, in core.NewThread) (*core.Thread, error) {
	now, ts := s.timestamp()
	img := core.NormalizeImage(in.Image)

	args := []any{in.Subject, in.Content}
	args = append(args, imageArgs(img)...)
	args = append(args, nullIfEmpty(in.UserHash), ts, ts)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (subject, content, image_url, image_name, image_size, image_dimensions, user_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return nil, persistErr("inserting thread", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("reading thread id", err)
	}

	logger.Debugf("created thread %d", id)
	return &core.Thread{
		ID:        id,
		Subject:   in.Subject,
		Content:   in.Content,
		Image:     img,
		UserHash:  in.UserHash,
		CreatedAt: now,
		UpdatedAt: now,
		Replies:   []core.Reply{},
	}, nil
}

// CreateReply stores a reply under in.ThreadID. A missing thread fails the
// foreign key and is reported as ErrPersistence.
func (s *Store) CreateReply(ctx context.Context, in core.NewReply) (*core.Reply, error) {
	now, ts := s.timestamp()
	img := core.NormalizeImage(in.Image)

	args := []any{in.ThreadID, in.Content}
	args = append(args, imageArgs(img)...)
	args = append(args, nullIfEmpty(in.UserHash), ts, ts)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO replies (thread_id, content, image_url, image_name, image_size, image_dimensions, user_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("inserting reply to thread %d", in.ThreadID), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("reading reply id", err)
	}

	logger.Debugf("created reply %d in thread %d", id, in.ThreadID)
	return &core.Reply{
		ID:        id,
		ThreadID:  in.ThreadID,
		Content:   in.Content,
		Image:     img,
		UserHash:  in.UserHash,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ThreadSubject returns the subject of thread id and whether it exists.
func (s *Store) ThreadSubject(ctx context.Context, id int64) (string, bool, error) {
	var subject string
	err := s.db.QueryRowContext(ctx, "SELECT subject FROM threads WHERE id = ?", id).Scan(&subject)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, persistErr(fmt.Sprintf("checking thread %d", id), err)
	}
	return subject, true, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
