package integration_tests

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/db"
	"github.com/rubiojr/textboard/pkg/storage"
)

// SeedPost is a thread with replies written by seedBoard.
type SeedPost struct {
	Subject string
	Content string
	Replies []string
}

// StandardPosts covers content an attacker might target through search.
func StandardPosts() []SeedPost {
	return []SeedPost{
		{Subject: "Sensitive", Content: "sensitive user data", Replies: []string{"password: secret123"}},
		{Subject: "Admin", Content: "admin configuration", Replies: []string{"DROP TABLE users"}},
		{Subject: "Chat", Content: "normal content", Replies: []string{"just a normal reply", "another one"}},
	}
}

// newBoard opens a migrated board database in a temporary directory.
func newBoard(t *testing.T) (*sql.DB, *storage.Store) {
	t.Helper()
	conn, err := db.OpenAndMigrate(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("failed to open board database: %v", err)
	}
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Logf("warning: closing db: %v", err)
		}
	})
	return conn, storage.New(conn)
}

// seedBoard writes posts and returns the number of threads and replies
// created.
func seedBoard(t *testing.T, store *storage.Store, posts []SeedPost) (threads, replies int) {
	t.Helper()
	ctx := context.Background()
	for _, p := range posts {
		th, err := store.CreateThread(ctx, core.NewThread{Subject: p.Subject, Content: p.Content})
		if err != nil {
			t.Fatalf("failed to create thread %q: %v", p.Subject, err)
		}
		threads++
		for _, r := range p.Replies {
			if _, err := store.CreateReply(ctx, core.NewReply{ThreadID: th.ID, Content: r}); err != nil {
				t.Fatalf("failed to create reply %q: %v", r, err)
			}
			replies++
		}
	}
	return threads, replies
}

// writeConfig writes a board config using dbPath and returns its location.
func writeConfig(t *testing.T, dir, dbPath string) string {
	t.Helper()
	configPath := filepath.Join(dir, "config.toml")
	content := "database_path = '" + filepath.ToSlash(dbPath) + "'\n\n[board]\nthreads_per_page = 5\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}
