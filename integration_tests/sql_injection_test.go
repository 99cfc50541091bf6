package integration_tests

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rubiojr/textboard/pkg/search"
)

func TestSQLInjectionProtectionIntegration(t *testing.T) {
	conn, store := newBoard(t)
	wantThreads, wantReplies := seedBoard(t, store, StandardPosts())
	searchService := search.NewService(conn)
	ctx := context.Background()

	sqlInjectionAttempts := []struct {
		name        string
		searchQuery string
	}{
		{"basic_sql_injection", "'; DROP TABLE threads; --"},
		{"union_select_attack", "' UNION SELECT * FROM sqlite_master; --"},
		{"table_discovery", "' UNION SELECT sql FROM sqlite_master WHERE type='table'; --"},
		{"data_extraction", "' UNION SELECT password FROM users; --"},
		{"boolean_injection", "' OR 1=1 --"},
		{"database_manipulation", "'; DELETE FROM replies WHERE 1=1; --"},
		{"pragma_injection", "'; PRAGMA table_info(threads); --"},
		{"file_system_access", "'; ATTACH DATABASE '/etc/passwd' AS pwn; --"},
		{"load_extension_attack", "' UNION SELECT load_extension('evil.so'); --"},
		{"fts_column_filter", "subject:admin OR content:*"},
		{"fts_near_operator", "NEAR(password secret123, 1)"},
		{"like_wildcards", "%_%"},
		{"quoted_sql_injection", "\"'; DROP TABLE threads; --\""},
		{"valid_sql_keywords_as_terms", "DROP TABLE users"},
	}

	for _, attempt := range sqlInjectionAttempts {
		t.Run(attempt.name, func(t *testing.T) {
			results := searchService.Search(ctx, attempt.searchQuery, 1, 10)
			if results == nil {
				t.Fatalf("results should never be nil for query %q", attempt.searchQuery)
			}
			if results.Query != attempt.searchQuery {
				t.Errorf("query in results was modified: got %q, want %q", results.Query, attempt.searchQuery)
			}

			legit := searchService.Search(ctx, "normal", 1, 10)
			if legit.TotalCount == 0 {
				t.Error("legitimate content should still be searchable after injection attempt")
			}
		})
	}

	t.Run("keywords_match_as_terms", func(t *testing.T) {
		results := searchService.Search(ctx, "DROP TABLE users", 1, 10)
		if results.TotalCount != 1 || results.Results[0].Type != search.TypeReply {
			t.Errorf("expected the reply containing the keywords, got %+v", results.Results)
		}
	})

	t.Run("database_integrity_check", func(t *testing.T) {
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("failed to read stats: %v", err)
		}
		if stats.Threads != wantThreads || stats.Replies != wantReplies {
			t.Errorf("expected %d threads and %d replies, got %d and %d",
				wantThreads, wantReplies, stats.Threads, stats.Replies)
		}

		for _, table := range []string{"users", "threads", "replies", "threads_fts", "replies_fts"} {
			if !tableExists(t, conn, table) {
				t.Errorf("table %s is missing after injection attempts", table)
			}
		}

		for _, term := range []string{"sensitive", "password", "admin", "normal"} {
			if res := searchService.Search(ctx, term, 1, 10); res.TotalCount == 0 {
				t.Errorf("expected to find results for %q", term)
			}
		}
	})
}

func tableExists(t *testing.T, conn *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n > 0
}
