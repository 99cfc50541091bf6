// Package search finds threads and replies matching free text.
//
// Queries go through the SQLite FTS5 indexes maintained by the migrations in
// pkg/db. Every whitespace separated term is matched as a prefix and all
// terms are required, so "cat food" matches "Cats love food". Threads and
// replies are queried concurrently, merged by rank and paged in memory with
// pkg/pagination.
//
// When the full-text query fails, for example because the index is missing
// or the sanitized expression is not valid FTS5 syntax, the service falls
// back to a case-insensitive substring match on the raw text. Those results
// all score 1 and are flagged with Results.Degraded. Search never returns an
// error; the worst outcome is an empty page.
//
// Usage:
//
//	svc := search.NewService(db)
//	res := svc.Search(ctx, "tortilla", 1, 20)
//	for _, r := range res.Results {
//		fmt.Println(r.Link(), r.Snippet.Marked("[", "]"))
//	}
package search
