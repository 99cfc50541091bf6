package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/textboard/pkg/storage"
	"github.com/urfave/cli/v3"
)

// ListCommand creates the list command
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List threads, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page to show",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Threads per page (defaults to board.threads_per_page)",
			},
			&cli.BoolFlag{
				Name:  "no-pager",
				Usage: "Disable pager and output directly to terminal",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return listThreads(ctx, c.String("config"), c.Int("page"), c.Int("limit"), !c.Bool("no-pager"))
		},
	}
}

// listThreads prints one page of the board
func listThreads(ctx context.Context, configPath string, page, limit int, usePager bool) error {
	cfg, conn, store, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB(conn)

	if limit <= 0 {
		limit = cfg.Board.ThreadsPerPage
	}
	limit = min(limit, cfg.Board.MaxPerPage)

	result, err := store.ListThreads(ctx, page, limit)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}

	return display(formatThreadPage(result, time.Now()), usePager)
}

// formatThreadPage renders a board page with reply counts
func formatThreadPage(p *storage.ThreadPage, now time.Time) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render(fmt.Sprintf("Board - page %d of %d", p.CurrentPage, max(p.TotalPages, 1))))
	out.WriteString("\n")

	if len(p.Threads) == 0 {
		out.WriteString(noDataStyle.Render("No threads found."))
		out.WriteString("\n")
		return out.String()
	}

	out.WriteString(summaryStyle.Render(fmt.Sprintf("%s threads", formatNumber(p.TotalCount))))
	out.WriteString("\n")

	for _, t := range p.Threads {
		var b strings.Builder
		b.WriteString(subjectStyle.Render(fmt.Sprintf("#%d %s", t.ID, t.Subject)))
		b.WriteString("\n")
		b.WriteString(truncate(t.Content, 160))
		b.WriteString("\n")

		meta := fmt.Sprintf("%s · %s", formatTime(t.CreatedAt, now), replyCount(len(t.Replies)))
		if t.Image != nil {
			meta += " · image " + t.Image.Filename
		}
		if n := len(t.Replies); n > 0 {
			meta += " · last reply " + formatTime(t.Replies[n-1].CreatedAt, now)
		}
		b.WriteString(metaStyle.Render(meta))

		out.WriteString(postStyle.Render(b.String()))
		out.WriteString("\n")
	}

	return out.String()
}

func replyCount(n int) string {
	if n == 1 {
		return "1 reply"
	}
	return fmt.Sprintf("%d replies", n)
}
