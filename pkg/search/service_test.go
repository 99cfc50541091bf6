package search

import (
	"database/sql"
	"math"
	"net/url"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/db"
	"github.com/rubiojr/textboard/pkg/snippet"
	"github.com/rubiojr/textboard/pkg/storage"
)

func setupBoard(t *testing.T) (*sql.DB, *storage.Store) {
	t.Helper()
	conn, err := db.OpenAndMigrate(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("OpenAndMigrate failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, storage.New(conn)
}

func createThread(t *testing.T, s *storage.Store, subject, content string) *core.Thread {
	t.Helper()
	th, err := s.CreateThread(t.Context(), core.NewThread{Subject: subject, Content: content})
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	return th
}

func createReply(t *testing.T, s *storage.Store, threadID int64, content string) *core.Reply {
	t.Helper()
	r, err := s.CreateReply(t.Context(), core.NewReply{ThreadID: threadID, Content: content})
	if err != nil {
		t.Fatalf("CreateReply failed: %v", err)
	}
	return r
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantExpr  string
		wantTerms []string
	}{
		{"single term", "cat", "cat*", []string{"cat"}},
		{"multiple terms", "cat  food", "cat* AND food*", []string{"cat", "food"}},
		{"quotes removed", `"tortilla" 'recipe'`, "tortilla* AND recipe*", []string{"tortilla", "recipe"}},
		{"existing wildcard kept", "cas*", "cas*", []string{"cas"}},
		{"only quotes", `"" ''`, "", nil},
		{"blank", "   ", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, terms := Sanitize(tt.input)
			if expr != tt.wantExpr {
				t.Errorf("expr = %q, want %q", expr, tt.wantExpr)
			}
			if !reflect.DeepEqual(terms, tt.wantTerms) {
				t.Errorf("terms = %q, want %q", terms, tt.wantTerms)
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, Limit: DefaultPerPage}},
		{"all set", "q=+cats+&page=3&limit=5", Params{Query: "cats", Page: 3, Limit: 5}},
		{"invalid numbers", "q=x&page=abc&limit=-1", Params{Query: "x", Page: 1, Limit: DefaultPerPage}},
		{"limit capped", "limit=5000", Params{Page: 1, Limit: MaxPerPage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if got := ParseParams(values); got != tt.want {
				t.Errorf("ParseParams(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike = %q", got)
	}
}

func highlighted(r Result) []string {
	var out []string
	for _, h := range r.Snippet.Highlights {
		out = append(out, r.Snippet.Text[h.Start:h.End])
	}
	return out
}

func TestSearchThreadsAndReplies(t *testing.T) {
	conn, store := setupBoard(t)
	th := createThread(t, store, "Cats", "I love cats and their tortilla recipes")
	reply := createReply(t, store, th.ID, "Cats are great")
	createThread(t, store, "Dogs", "Nothing feline here")

	res := NewService(conn).Search(t.Context(), "cat", 1, 20)
	if res.Degraded {
		t.Fatal("search should not degrade")
	}
	if res.TotalCount != 2 || len(res.Results) != 2 {
		t.Fatalf("expected 2 results, got %d (%+v)", res.TotalCount, res.Results)
	}
	if res.TotalPages != 1 || res.CurrentPage != 1 || res.Query != "cat" {
		t.Errorf("unexpected metadata: %+v", res)
	}

	var sawThread, sawReply bool
	for _, r := range res.Results {
		switch r.Type {
		case TypeThread:
			sawThread = r.ID == th.ID && r.Subject == "Cats"
		case TypeReply:
			sawReply = r.ID == reply.ID && r.ThreadID == th.ID && r.ThreadSubject == "Cats"
		}
		marks := highlighted(r)
		if len(marks) == 0 {
			t.Errorf("%s %d: snippet %q has no highlights", r.Type, r.ID, r.Snippet.Text)
		}
		for _, m := range marks {
			if !strings.HasPrefix(strings.ToLower(m), "cat") {
				t.Errorf("%s %d: unexpected highlight %q", r.Type, r.ID, m)
			}
		}
		if strings.Contains(r.Snippet.Text, snippet.MarkOpen) || strings.Contains(r.Snippet.Text, snippet.MarkClose) {
			t.Errorf("snippet leaks sentinels: %q", r.Snippet.Text)
		}
	}
	if !sawThread || !sawReply {
		t.Errorf("missing thread or reply result: %+v", res.Results)
	}
}

func TestSearchPrefixMatchingAndRankOrder(t *testing.T) {
	conn, store := setupBoard(t)
	exact := createThread(t, store, "Visit", "the castle on the hill")
	variant := createThread(t, store, "Trip", "we toured three castles in one castles castles week")

	res := NewService(conn).Search(t.Context(), "castle", 1, 20)
	if len(res.Results) != 2 {
		t.Fatalf("expected both threads, got %+v", res.Results)
	}
	ids := map[int64]bool{}
	for i, r := range res.Results {
		ids[r.ID] = true
		if r.RelevanceScore < 0 {
			t.Errorf("result %d has negative relevance %v", r.ID, r.RelevanceScore)
		}
		if i > 0 && res.Results[i-1].RelevanceScore > r.RelevanceScore {
			t.Errorf("relevance not ascending: %v then %v",
				res.Results[i-1].RelevanceScore, r.RelevanceScore)
		}
	}
	if !ids[exact.ID] || !ids[variant.ID] {
		t.Errorf("expected threads %d and %d, got %+v", exact.ID, variant.ID, ids)
	}
}

func TestSearchRequiresAllTerms(t *testing.T) {
	conn, store := setupBoard(t)
	both := createThread(t, store, "Dinner", "tortilla with cheese")
	createThread(t, store, "Lunch", "tortilla only")

	res := NewService(conn).Search(t.Context(), "tort chee", 1, 20)
	if len(res.Results) != 1 || res.Results[0].ID != both.ID {
		t.Errorf("expected only thread %d, got %+v", both.ID, res.Results)
	}
}

func TestSearchPagination(t *testing.T) {
	conn, store := setupBoard(t)
	for i := 0; i < 5; i++ {
		createThread(t, store, "castle", "a castle")
	}
	svc := NewService(conn)

	tests := []struct {
		page    int
		perPage int
		want    int
	}{
		{1, 2, 2},
		{3, 2, 1},
		{4, 2, 0},
		{0, 2, 2},
		{1, 0, 5},
	}
	for _, tt := range tests {
		res := svc.Search(t.Context(), "castle", tt.page, tt.perPage)
		if len(res.Results) != tt.want {
			t.Errorf("page %d perPage %d: got %d results, want %d", tt.page, tt.perPage, len(res.Results), tt.want)
		}
		if res.TotalCount != 5 {
			t.Errorf("TotalCount = %d, want 5", res.TotalCount)
		}
		if res.Results == nil {
			t.Error("Results must not be nil")
		}
	}

	res := svc.Search(t.Context(), "castle", 1, 2)
	if res.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", res.TotalPages)
	}
}

func TestSearchHugePages(t *testing.T) {
	conn, store := setupBoard(t)
	th := createThread(t, store, "cat", "a cat")
	createReply(t, store, th.ID, "another cat")
	svc := NewService(conn)

	tests := []struct {
		name          string
		page, perPage int
		wantPages     int
	}{
		{"max page", math.MaxInt, 20, 1},
		{"max page small limit", math.MaxInt, 2, 1},
		{"max limit", 1, math.MaxInt, 1},
		{"both max", math.MaxInt, math.MaxInt, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.Search(t.Context(), "cat", tt.page, tt.perPage)
			if res.TotalCount != 2 || res.TotalPages != tt.wantPages {
				t.Errorf("TotalCount=%d TotalPages=%d, want 2 and %d", res.TotalCount, res.TotalPages, tt.wantPages)
			}
			if tt.page > 1 && len(res.Results) != 0 {
				t.Errorf("page %d returned %d results", tt.page, len(res.Results))
			}
		})
	}

	// The fallback path pages through the same helper.
	if _, err := conn.Exec(`DROP TABLE replies_fts`); err != nil {
		t.Fatal(err)
	}
	res := svc.Search(t.Context(), "cat", math.MaxInt, 20)
	if !res.Degraded || len(res.Results) != 0 || res.TotalCount != 2 {
		t.Errorf("fallback on huge page: %+v", res)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	conn, store := setupBoard(t)
	createThread(t, store, "anything", "at all")

	for _, q := range []string{"", "   ", "\t\n"} {
		res := NewService(conn).Search(t.Context(), q, 1, 20)
		if res.TotalCount != 0 || res.TotalPages != 0 || len(res.Results) != 0 {
			t.Errorf("Search(%q) = %+v, want empty", q, res)
		}
	}
}

func TestSearchFallsBackWithoutIndex(t *testing.T) {
	conn, store := setupBoard(t)
	th := createThread(t, store, "Old keep", "the Castle walls are tall")
	createThread(t, store, "castle subject", "no match in body")
	createReply(t, store, th.ID, "a sandcastle too")

	if _, err := conn.Exec("DROP TABLE threads_fts; DROP TABLE replies_fts"); err != nil {
		t.Fatalf("dropping indexes: %v", err)
	}

	res := NewService(conn).Search(t.Context(), "castle", 1, 20)
	if !res.Degraded {
		t.Error("expected degraded results")
	}
	if len(res.Results) != 3 {
		t.Fatalf("expected 3 substring matches, got %+v", res.Results)
	}
	for _, r := range res.Results {
		if r.RelevanceScore != 1 {
			t.Errorf("%s %d: relevance %v, want 1", r.Type, r.ID, r.RelevanceScore)
		}
	}
	if res.Results[0].Type != TypeThread || res.Results[1].Type != TypeThread || res.Results[2].Type != TypeReply {
		t.Errorf("threads must precede replies: %+v", res.Results)
	}
	if res.Results[0].Subject != "castle subject" {
		t.Errorf("threads must be newest first, got %q first", res.Results[0].Subject)
	}
	if got := highlighted(res.Results[1]); len(got) != 1 || got[0] != "Castle" {
		t.Errorf("fallback highlight = %q, want [Castle]", got)
	}
	if res.Results[2].ThreadSubject != "Old keep" {
		t.Errorf("reply thread subject = %q", res.Results[2].ThreadSubject)
	}
}

func TestSearchFallbackEscapesWildcards(t *testing.T) {
	conn, store := setupBoard(t)
	createThread(t, store, "sale", "everything 50% off")
	createThread(t, store, "other", "nothing to see")

	if _, err := conn.Exec("DROP TABLE threads_fts; DROP TABLE replies_fts"); err != nil {
		t.Fatal(err)
	}

	res := NewService(conn).Search(t.Context(), "%", 1, 20)
	if len(res.Results) != 1 || res.Results[0].Subject != "sale" {
		t.Errorf("expected literal %% match only, got %+v", res.Results)
	}
}

func TestSearchClosedDatabase(t *testing.T) {
	conn, _ := setupBoard(t)
	conn.Close()

	res := NewService(conn).Search(t.Context(), "anything", 1, 20)
	if res == nil {
		t.Fatal("Search must never return nil")
	}
	if len(res.Results) != 0 || res.TotalCount != 0 || res.Results == nil {
		t.Errorf("expected empty results, got %+v", res)
	}
}

func TestResultLink(t *testing.T) {
	thread := Result{Type: TypeThread, ID: 4}
	reply := Result{Type: TypeReply, ID: 9, ThreadID: 4}
	if got := thread.Link(); got != "/thread/4" {
		t.Errorf("thread link = %s", got)
	}
	if got := reply.Link(); got != "/thread/4#reply-9" {
		t.Errorf("reply link = %s", got)
	}
}
