package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/pagination"
)

// Admin operations. Updates are last-write-wins.

// ReplyPage is one page of replies across all threads, newest first.
type ReplyPage struct {
	Replies     []core.Reply `json:"replies"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
	TotalCount  int          `json:"totalCount"`
}

// UpdateThread applies upd to a thread and returns the updated thread.
func (s *Store) UpdateThread(ctx context.Context, id int64, upd core.ThreadUpdate) (*core.Thread, error) {
	var sets []string
	var args []any
	if upd.Subject != nil {
		sets = append(sets, "subject = ?")
		args = append(args, *upd.Subject)
	}
	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *upd.Content)
	}
	if upd.Image != nil {
		sets, args = appendImageSets(sets, args, upd.Image)
	}

	if err := s.update(ctx, "threads", id, sets, args); err != nil {
		return nil, err
	}

	thread, err := s.GetThreadWithReplies(ctx, id)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, fmt.Errorf("thread %d: %w", id, ErrNotFound)
	}
	return thread, nil
}

// DeleteThread removes a thread and its replies in one transaction.
func (s *Store) DeleteThread(ctx context.Context, id int64) error {
	op := fmt.Sprintf("deleting thread %d", id)
	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM replies WHERE thread_id = ?", id); err != nil {
			return persistErr(op, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM threads WHERE id = ?", id)
		if err != nil {
			return persistErr(op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return persistErr(op, err)
		}
		if n == 0 {
			return fmt.Errorf("thread %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// GetReply returns a single reply or ErrNotFound.
func (s *Store) GetReply(ctx context.Context, id int64) (*core.Reply, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+replyColumns+` FROM replies WHERE id = ?`, id)
	r, err := scanReply(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reply %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, persistErr(fmt.Sprintf("getting reply %d", id), err)
	}
	return r, nil
}

// ListReplies pages through every reply, newest first.
func (s *Store) ListReplies(ctx context.Context, page, perPage int) (*ReplyPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return nil, fmt.Errorf("listing replies: per page must be positive, got %d", perPage)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM replies").Scan(&total); err != nil {
		return nil, persistErr("counting replies", err)
	}

	w := pagination.Compute(page, total, perPage)
	result := &ReplyPage{
		Replies:     []core.Reply{},
		CurrentPage: page,
		TotalPages:  w.TotalPages,
		TotalCount:  total,
	}
	if w.Offset >= total {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+replyColumns+` FROM replies
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, w.Limit, w.Offset)
	if err != nil {
		return nil, persistErr("listing replies", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, persistErr("scanning reply", err)
		}
		result.Replies = append(result.Replies, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("listing replies", err)
	}
	return result, nil
}

// UpdateReply applies upd to a reply and returns the updated reply.
func (s *Store) UpdateReply(ctx context.Context, id int64, upd core.ReplyUpdate) (*core.Reply, error) {
	var sets []string
	var args []any
	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *upd.Content)
	}
	if upd.Image != nil {
		sets, args = appendImageSets(sets, args, upd.Image)
	}

	if err := s.update(ctx, "replies", id, sets, args); err != nil {
		return nil, err
	}
	return s.GetReply(ctx, id)
}

// DeleteReply removes a single reply.
func (s *Store) DeleteReply(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM replies WHERE id = ?", id)
	if err != nil {
		return persistErr(fmt.Sprintf("deleting reply %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(fmt.Sprintf("deleting reply %d", id), err)
	}
	if n == 0 {
		return fmt.Errorf("reply %d: %w", id, ErrNotFound)
	}
	return nil
}

// update runs UPDATE table SET sets..., updated_at WHERE id. table is one of
// our own constants, never user input.
func (s *Store) update(ctx context.Context, table string, id int64, sets []string, args []any) error {
	if len(sets) == 0 {
		return fmt.Errorf("updating %s %d: nothing to update", table, id)
	}
	_, ts := s.timestamp()
	sets = append(sets, "updated_at = ?")
	args = append(args, ts, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistErr(fmt.Sprintf("updating %s %d", table, id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(fmt.Sprintf("updating %s %d", table, id), err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

// appendImageSets sets or clears the attachment columns. An image without a
// URL clears them.
func appendImageSets(sets []string, args []any, img *core.ImageAttachment) ([]string, []any) {
	sets = append(sets, "image_url = ?", "image_name = ?", "image_size = ?", "image_dimensions = ?")
	return sets, append(args, imageArgs(img)...)
}

const replyColumns = `id, thread_id, content, image_url, image_name, image_size, image_dimensions, user_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReply(sc rowScanner) (*core.Reply, error) {
	var r core.Reply
	var img ImageColumns
	var userHash sql.NullString
	err := sc.Scan(&r.ID, &r.ThreadID, &r.Content,
		&img.URL, &img.Name, &img.Size, &img.Dimensions,
		&userHash, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Image = img.Attachment()
	r.UserHash = userHash.String
	return &r, nil
}
