package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/textboard/pkg/search"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search threads and replies",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Results page",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Results per page",
				Value: search.DefaultPerPage,
			},
			&cli.BoolFlag{
				Name:  "no-pager",
				Usage: "Disable pager and output directly to terminal",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.String("query")
			if query == "" {
				query = strings.Join(c.Args().Slice(), " ")
			}
			return searchBoard(ctx, c.String("config"), query, c.Int("page"), c.Int("limit"), !c.Bool("no-pager"))
		},
	}
}

// searchBoard runs a search and prints the results
func searchBoard(ctx context.Context, configPath, query string, page, limit int, usePager bool) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("a search query is required")
	}

	_, conn, _, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB(conn)

	limit = min(limit, search.MaxPerPage)
	results := search.NewService(conn).Search(ctx, query, page, limit)
	return display(formatSearchResults(results, time.Now(), isTerminal()), usePager)
}

// formatSearchResults renders a results page grouped by post type
func formatSearchResults(res *search.Results, now time.Time, styled bool) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render(fmt.Sprintf("Search: %s", res.Query)))
	out.WriteString("\n")

	if len(res.Results) == 0 {
		out.WriteString(noDataStyle.Render("No results found."))
		out.WriteString("\n")
		return out.String()
	}

	summary := fmt.Sprintf("%s results, page %d of %d", formatNumber(res.TotalCount), res.CurrentPage, res.TotalPages)
	if res.Degraded {
		summary += " (substring match)"
	}
	out.WriteString(summaryStyle.Render(summary))
	out.WriteString("\n")

	groups := []struct{ kind, label string }{
		{search.TypeThread, "threads"},
		{search.TypeReply, "replies"},
	}
	title := cases.Title(language.English)
	for _, g := range groups {
		var group []search.Result
		for _, r := range res.Results {
			if r.Type == g.kind {
				group = append(group, r)
			}
		}
		if len(group) == 0 {
			continue
		}

		out.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", title.String(g.label), len(group))))
		out.WriteString("\n")
		for _, r := range group {
			out.WriteString(postStyle.Render(formatResult(r, now, styled)))
			out.WriteString("\n")
		}
	}

	return out.String()
}

func formatResult(r search.Result, now time.Time, styled bool) string {
	var b strings.Builder

	heading := r.Subject
	if r.Type == search.TypeReply {
		heading = "Re: " + r.ThreadSubject
	}
	b.WriteString(subjectStyle.Render(heading))
	b.WriteString("\n")
	b.WriteString(renderSnippet(r.Snippet, styled))
	b.WriteString("\n")

	meta := fmt.Sprintf("%s · score %.2f", formatTime(r.CreatedAt, now), r.RelevanceScore)
	if r.Image != nil {
		meta += " · image " + r.Image.Filename
	}
	b.WriteString(metaStyle.Render(meta))
	b.WriteString("\n")
	b.WriteString(linkStyle.Render(r.Link()))
	return b.String()
}
