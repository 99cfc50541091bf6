package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/textboard/pkg/storage"
	"github.com/urfave/cli/v3"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show board statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(ctx, c.String("config"))
		},
	}
}

// showStats displays board statistics
func showStats(ctx context.Context, configPath string) error {
	cfg, conn, store, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB(conn)

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	fmt.Print(formatStats(cfg.DatabasePath, stats, time.Now()))
	return nil
}

// formatStats formats board statistics for display
func formatStats(dbPath string, stats *storage.Stats, now time.Time) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render("Board Statistics"))
	out.WriteString("\n")

	rows := []struct {
		label string
		value int
	}{
		{"Users", stats.Users},
		{"Threads", stats.Threads},
		{"Replies", stats.Replies},
		{"Images", stats.Images},
	}
	for _, r := range rows {
		fmt.Fprintf(&out, "%-16s %s\n", r.label+":", formatNumber(r.value))
	}

	if stats.Threads > 0 {
		fmt.Fprintf(&out, "%-16s %.1f\n", "Replies/thread:", float64(stats.Replies)/float64(stats.Threads))
	}
	if stats.LatestPost != nil {
		fmt.Fprintf(&out, "%-16s %s\n", "Latest:", formatTime(*stats.LatestPost, now))
	}

	out.WriteString(metaStyle.Render("Database: " + dbPath))
	out.WriteString("\n")
	return out.String()
}
