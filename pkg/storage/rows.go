package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rubiojr/textboard/pkg/core"
)

// ImageColumns are the nullable attachment columns of a post row.
type ImageColumns struct {
	URL        sql.NullString
	Name       sql.NullString
	Size       sql.NullInt64
	Dimensions sql.NullString
}

// Attachment converts the columns into an attachment, nil when there is no
// URL.
func (c ImageColumns) Attachment() *core.ImageAttachment {
	return core.NormalizeImage(&core.ImageAttachment{
		URL:        c.URL.String,
		Filename:   c.Name.String,
		Size:       c.Size.Int64,
		Dimensions: c.Dimensions.String,
	})
}

func imageArgs(img *core.ImageAttachment) []any {
	img = core.NormalizeImage(img)
	if img == nil {
		return []any{nil, nil, nil, nil}
	}
	return []any{img.URL, img.Filename, img.Size, img.Dimensions}
}

// ThreadRow is one row of the threads LEFT JOIN replies query: the thread
// columns plus, when the thread has replies, one reply's columns.
type ThreadRow struct {
	ID        int64
	Subject   string
	Content   string
	Image     ImageColumns
	UserHash  sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time

	ReplyID        sql.NullInt64
	ReplyContent   sql.NullString
	ReplyImage     ImageColumns
	ReplyUserHash  sql.NullString
	ReplyCreatedAt sql.NullTime
	ReplyUpdatedAt sql.NullTime
}

// threadJoinColumns matches the scan order of scanThreadRows.
const threadJoinColumns = `
	t.id, t.subject, t.content,
	t.image_url, t.image_name, t.image_size, t.image_dimensions,
	t.user_hash, t.created_at, t.updated_at,
	r.id, r.content,
	r.image_url, r.image_name, r.image_size, r.image_dimensions,
	r.user_hash, r.created_at, r.updated_at`

func scanThreadRows(rows *sql.Rows) ([]ThreadRow, error) {
	var out []ThreadRow
	for rows.Next() {
		var row ThreadRow
		err := rows.Scan(
			&row.ID, &row.Subject, &row.Content,
			&row.Image.URL, &row.Image.Name, &row.Image.Size, &row.Image.Dimensions,
			&row.UserHash, &row.CreatedAt, &row.UpdatedAt,
			&row.ReplyID, &row.ReplyContent,
			&row.ReplyImage.URL, &row.ReplyImage.Name, &row.ReplyImage.Size, &row.ReplyImage.Dimensions,
			&row.ReplyUserHash, &row.ReplyCreatedAt, &row.ReplyUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning thread row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GroupThreadRows folds joined rows into threads with their replies. Threads
// keep the order they first appear in; replies keep row order. A row without
// a reply yields a thread with an empty, non-nil reply list.
func GroupThreadRows(rows []ThreadRow) []core.Thread {
	threads := make([]core.Thread, 0)
	index := make(map[int64]int)

	for _, row := range rows {
		i, seen := index[row.ID]
		if !seen {
			threads = append(threads, core.Thread{
				ID:        row.ID,
				Subject:   row.Subject,
				Content:   row.Content,
				Image:     row.Image.Attachment(),
				UserHash:  row.UserHash.String,
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
				Replies:   []core.Reply{},
			})
			i = len(threads) - 1
			index[row.ID] = i
		}

		if !row.ReplyID.Valid {
			continue
		}
		threads[i].Replies = append(threads[i].Replies, core.Reply{
			ID:        row.ReplyID.Int64,
			ThreadID:  row.ID,
			Content:   row.ReplyContent.String,
			Image:     row.ReplyImage.Attachment(),
			UserHash:  row.ReplyUserHash.String,
			CreatedAt: row.ReplyCreatedAt.Time,
			UpdatedAt: row.ReplyUpdatedAt.Time,
		})
	}

	return threads
}
