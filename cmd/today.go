package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/storage"
	"github.com/urfave/cli/v3"
)

const todayPageSize = 50

// TodayCommand creates the today command
func TodayCommand() *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "Show threads started today with their replies",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of threads to show (0 for no limit)",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "no-pager",
				Usage: "Disable pager and output directly to terminal",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return showToday(ctx, c.String("config"), c.Int("limit"), !c.Bool("no-pager"))
		},
	}
}

// showToday prints the threads created since local midnight
func showToday(ctx context.Context, configPath string, limit int, usePager bool) error {
	_, conn, store, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB(conn)

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	threads, err := threadsSince(ctx, store, startOfDay, limit)
	if err != nil {
		return err
	}

	return display(formatToday(threads, startOfDay, now), usePager)
}

// threadsSince walks the board newest first and stops at the first thread
// created before since.
func threadsSince(ctx context.Context, store *storage.Store, since time.Time, limit int) ([]core.Thread, error) {
	var threads []core.Thread
	for page := 1; ; page++ {
		result, err := store.ListThreads(ctx, page, todayPageSize)
		if err != nil {
			return nil, fmt.Errorf("listing threads: %w", err)
		}
		for _, t := range result.Threads {
			if t.CreatedAt.Before(since) {
				return threads, nil
			}
			threads = append(threads, t)
			if limit > 0 && len(threads) >= limit {
				return threads, nil
			}
		}
		if page >= result.TotalPages {
			return threads, nil
		}
	}
}

// formatToday renders today's threads and their replies
func formatToday(threads []core.Thread, startOfDay, now time.Time) string {
	var output strings.Builder

	output.WriteString(titleStyle.Render("Today on the board - " + startOfDay.Format("Monday, January 2, 2006")))
	output.WriteString("\n")

	if len(threads) == 0 {
		output.WriteString(noDataStyle.Render("No threads started today."))
		output.WriteString("\n")
		return output.String()
	}

	var replies int
	for _, t := range threads {
		replies += len(t.Replies)
	}
	output.WriteString(summaryStyle.Render(fmt.Sprintf("Summary: %d threads, %s", len(threads), replyCount(replies))))
	output.WriteString("\n")

	for _, t := range threads {
		var b strings.Builder
		b.WriteString(subjectStyle.Render(fmt.Sprintf("#%d %s", t.ID, t.Subject)))
		b.WriteString("\n")
		b.WriteString(t.Content)
		b.WriteString("\n")
		b.WriteString(metaStyle.Render(fmt.Sprintf("%s · %s", formatTime(t.CreatedAt, now), replyCount(len(t.Replies)))))
		for _, r := range t.PreviewReplies(3) {
			b.WriteString("\n  > ")
			b.WriteString(truncate(r.Content, 100))
		}
		if o := t.OmittedReplies(3); o.Replies > 0 {
			b.WriteString("\n")
			b.WriteString(metaStyle.Render(fmt.Sprintf("  %s omitted", replyCount(o.Replies))))
		}
		output.WriteString(postStyle.Render(b.String()))
		output.WriteString("\n")
	}

	return output.String()
}
