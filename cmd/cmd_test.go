package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/textboard/pkg/api"
	"github.com/rubiojr/textboard/pkg/config"
	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/search"
	"github.com/rubiojr/textboard/pkg/snippet"
	"github.com/rubiojr/textboard/pkg/storage"
)

// writeConfig writes a config pointing at a temporary database and returns
// its path.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	t.Setenv(config.AdminTokenEnv, "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "board.db")
	path := filepath.Join(dir, "config.toml")
	content := "database_path = \"" + filepath.ToSlash(dbPath) + "\"\n" + extra
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path, dbPath
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{2500000, "2.5M"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.n); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"one minute", now.Add(-time.Minute), "1 minute ago"},
		{"minutes", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"hours", now.Add(-3 * time.Hour), "3 hours ago"},
		{"days", now.Add(-2 * 24 * time.Hour), "2 days ago"},
		{"same year", time.Date(2025, 1, 2, 15, 4, 0, 0, time.UTC), "Jan 2, 15:04"},
		{"older", time.Date(2023, 1, 2, 15, 4, 0, 0, time.UTC), "Jan 2, 2023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTime(tt.t, now); got != tt.want {
				t.Errorf("formatTime = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSnippetPlain(t *testing.T) {
	s := snippet.Snippet{Text: "cats and dogs", Highlights: []snippet.Span{{Start: 0, End: 4}}}
	if got := renderSnippet(s, false); got != "*cats* and dogs" {
		t.Errorf("renderSnippet = %q", got)
	}
	if got := renderSnippet(s, true); !strings.Contains(got, "cats") || !strings.HasSuffix(got, " and dogs") {
		t.Errorf("styled renderSnippet lost text: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short\ntext", 20); got != "short text" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ñandú ñandú", 5); got != "ñandú"+snippet.Ellipsis {
		t.Errorf("truncate = %q", got)
	}
}

func TestFormatSearchResults(t *testing.T) {
	now := time.Now()
	res := &search.Results{
		Query:       "cats",
		TotalCount:  2,
		CurrentPage: 1,
		TotalPages:  1,
		Results: []search.Result{
			{Type: search.TypeThread, ID: 1, Subject: "Cats", CreatedAt: now,
				Snippet: snippet.Snippet{Text: "I love cats"}},
			{Type: search.TypeReply, ID: 2, ThreadID: 1, ThreadSubject: "Cats", CreatedAt: now,
				Snippet: snippet.Snippet{Text: "cats rule"}},
		},
	}

	out := formatSearchResults(res, now, false)
	for _, want := range []string{"Search: cats", "Threads (1)", "Replies (1)", "Re: Cats", "/thread/1#reply-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	empty := formatSearchResults(&search.Results{Query: "zzz"}, now, false)
	if !strings.Contains(empty, "No results found.") {
		t.Errorf("empty output: %s", empty)
	}

	res.Degraded = true
	if out := formatSearchResults(res, now, false); !strings.Contains(out, "substring match") {
		t.Errorf("degraded search not flagged:\n%s", out)
	}
}

func TestFormatThreadPage(t *testing.T) {
	now := time.Now()
	page := &storage.ThreadPage{
		CurrentPage: 1,
		TotalPages:  1,
		TotalCount:  1,
		Threads: []core.Thread{{
			ID:        7,
			Subject:   "Hello",
			Content:   "first",
			CreatedAt: now,
			Replies:   []core.Reply{{ID: 1, Content: "hi", CreatedAt: now}},
		}},
	}
	out := formatThreadPage(page, now)
	for _, want := range []string{"#7 Hello", "1 reply", "last reply"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	empty := formatThreadPage(&storage.ThreadPage{CurrentPage: 1}, now)
	if !strings.Contains(empty, "No threads found.") || !strings.Contains(empty, "page 1 of 1") {
		t.Errorf("empty page output: %s", empty)
	}
}

func TestReplyCount(t *testing.T) {
	for n, want := range map[int]string{0: "0 replies", 1: "1 reply", 5: "5 replies"} {
		if got := replyCount(n); got != want {
			t.Errorf("replyCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatStats(t *testing.T) {
	now := time.Now()
	latest := now.Add(-2 * time.Hour)
	out := formatStats("/tmp/board.db", &storage.Stats{Users: 3, Threads: 2, Replies: 4, Images: 1, LatestPost: &latest}, now)
	for _, want := range []string{"Users:", "Threads:", "2.0", "2 hours ago", "/tmp/board.db"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.AdminToken = "tok"
	cfg.Server.BaseURL = "https://board.example.com"
	cfg.Board = config.BoardConfig{ThreadsPerPage: 5, SearchPerPage: 7, MaxPerPage: 50}

	want := api.Settings{AdminToken: "tok", ThreadsPerPage: 5, SearchPerPage: 7, MaxPerPage: 50, BaseURL: "https://board.example.com"}
	if got := settingsFromConfig(cfg); got != want {
		t.Errorf("settingsFromConfig = %+v, want %+v", got, want)
	}
}

func TestRestartRequired(t *testing.T) {
	old := &config.Config{DatabasePath: "a.db"}
	next := &config.Config{DatabasePath: "b.db"}
	next.Live.Buffer = 64
	next.MDNS.Enabled = true

	got := restartRequired(old, next)
	want := []string{"database_path", "live.buffer", "mdns"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("restartRequired = %v, want %v", got, want)
	}
	if got := restartRequired(old, old); len(got) != 0 {
		t.Errorf("unchanged config reported %v", got)
	}
}

func TestReloadConfiguration(t *testing.T) {
	path, _ := writeConfig(t, "[server]\nport = 9999\nadmin_token = \"new\"\n")
	current := &config.Config{}
	current.Server.Host = "127.0.0.1"
	current.Server.Port = 8081

	srv := api.NewServer(nil, nil, api.Settings{})
	next, err := reloadConfiguration(path, srv, current)
	if err != nil {
		t.Fatalf("reloadConfiguration failed: %v", err)
	}
	if next.Server.AdminToken != "new" {
		t.Errorf("admin token not reloaded: %q", next.Server.AdminToken)
	}
	if next.Server.Port != 8081 || next.Server.Host != "127.0.0.1" {
		t.Errorf("listener settings should be kept, got %s", next.Server.Addr())
	}

	if _, err := reloadConfiguration(filepath.Join(t.TempDir(), "broken.toml"), srv, current); err != nil {
		t.Errorf("missing config should fall back to defaults, got %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("port = ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := reloadConfiguration(bad, srv, current); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestMDNSTXT(t *testing.T) {
	cfg := &config.Config{}
	txt := mdnsTXT(cfg)
	if len(txt) != 2 || !strings.HasPrefix(txt[0], "version=") {
		t.Errorf("unexpected txt records: %v", txt)
	}

	cfg.Server.BaseURL = "https://board.example.com"
	if txt := mdnsTXT(cfg); txt[len(txt)-1] != "url=https://board.example.com" {
		t.Errorf("missing url record: %v", txt)
	}

	cfg.Server.BaseURL = "https://evil\r\nx=y"
	if txt := mdnsTXT(cfg); len(txt) != 2 {
		t.Errorf("multi-line base url should be skipped: %v", txt)
	}
}

func TestAdvertiseDisabled(t *testing.T) {
	stop, err := advertise(&config.Config{})
	if err != nil {
		t.Fatalf("advertise failed: %v", err)
	}
	stop()
}

func TestInitConfig(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "textboard", "config.toml")

	if err := initConfig(path, false); err != nil {
		t.Fatalf("initConfig failed: %v", err)
	}
	if err := initConfig(path, false); err == nil {
		t.Error("expected error when config exists")
	}
	if err := initConfig(path, true); err != nil {
		t.Errorf("forced initConfig failed: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("loading generated config: %v", err)
	}
	if cfg.Server.Port != config.DefaultPort {
		t.Errorf("unexpected port %d", cfg.Server.Port)
	}
}

func TestRunMigrations(t *testing.T) {
	path, dbPath := writeConfig(t, "")

	if err := RunMigrations(path, true); err != nil {
		t.Fatalf("status on missing database failed: %v", err)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("status check should not create the database")
	}

	if err := RunMigrations(path, false); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if err := RunMigrations(path, false); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}
	if err := RunMigrations(path, true); err != nil {
		t.Fatalf("status failed: %v", err)
	}
}

func TestThreadsSince(t *testing.T) {
	path, _ := writeConfig(t, "")
	_, conn, store, err := openStore(path)
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer closeDB(conn)

	ctx := t.Context()
	for _, subject := range []string{"one", "two", "three"} {
		if _, err := store.CreateThread(ctx, core.NewThread{Subject: subject, Content: "body"}); err != nil {
			t.Fatalf("CreateThread failed: %v", err)
		}
	}

	threads, err := threadsSince(ctx, store, time.Now().Add(-time.Hour), 0)
	if err != nil {
		t.Fatalf("threadsSince failed: %v", err)
	}
	if len(threads) != 3 || threads[0].Subject != "three" {
		t.Errorf("unexpected threads: %+v", threads)
	}

	limited, err := threadsSince(ctx, store, time.Now().Add(-time.Hour), 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("limit not applied: %d, %v", len(limited), err)
	}

	none, err := threadsSince(ctx, store, time.Now().Add(time.Hour), 0)
	if err != nil || len(none) != 0 {
		t.Errorf("expected no future threads, got %d, %v", len(none), err)
	}

	out := formatToday(threads, time.Now(), time.Now())
	if !strings.Contains(out, "3 threads") {
		t.Errorf("today output missing summary:\n%s", out)
	}
}
