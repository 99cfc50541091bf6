package storage

import (
	"context"
	"database/sql"
	"time"
)

// Stats summarizes the board's contents.
type Stats struct {
	Users      int        `json:"users"`
	Threads    int        `json:"threads"`
	Replies    int        `json:"replies"`
	Images     int        `json:"images"`
	LatestPost *time.Time `json:"latestPost,omitempty"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM threads),
			(SELECT COUNT(*) FROM replies),
			(SELECT COUNT(*) FROM threads WHERE image_url IS NOT NULL AND image_url != '') +
			(SELECT COUNT(*) FROM replies WHERE image_url IS NOT NULL AND image_url != '')`).
		Scan(&st.Users, &st.Threads, &st.Replies, &st.Images)
	if err != nil {
		return nil, persistErr("counting board contents", err)
	}

	// Plain column reads keep the DATETIME type, aggregates would not.
	latest, err := s.latest(ctx, "SELECT created_at FROM threads ORDER BY created_at DESC LIMIT 1")
	if err != nil {
		return nil, err
	}
	latestReply, err := s.latest(ctx, "SELECT created_at FROM replies ORDER BY created_at DESC LIMIT 1")
	if err != nil {
		return nil, err
	}
	if latestReply != nil && (latest == nil || latestReply.After(*latest)) {
		latest = latestReply
	}
	st.LatestPost = latest

	return &st, nil
}

func (s *Store) latest(ctx context.Context, query string) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx, query).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("reading latest post time", err)
	}
	return &t, nil
}

// SitemapEntry is a thread URL candidate for the sitemap.
type SitemapEntry struct {
	ThreadID     int64
	LastModified time.Time
}

// SitemapEntries lists every thread, most recently updated first.
func (s *Store) SitemapEntries(ctx context.Context) ([]SitemapEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, updated_at FROM threads ORDER BY updated_at DESC, id DESC")
	if err != nil {
		return nil, persistErr("listing sitemap entries", err)
	}
	defer closeRows(rows)

	entries := []SitemapEntry{}
	for rows.Next() {
		var e SitemapEntry
		if err := rows.Scan(&e.ThreadID, &e.LastModified); err != nil {
			return nil, persistErr("scanning sitemap entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("listing sitemap entries", err)
	}
	return entries, nil
}
