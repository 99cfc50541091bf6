package search

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Sanitize turns free text into an FTS5 match expression. Quotes are
// removed, every whitespace separated term becomes a prefix query and all
// terms are required:
//
//	cat "tortilla recipe"  =>  cat* AND tortilla* AND recipe*
//
// terms holds the bare words, without the prefix marker, for snippet
// extraction. An input with no terms yields an empty expression.
func Sanitize(query string) (expr string, terms []string) {
	query = strings.NewReplacer(`"`, "", `'`, "").Replace(query)

	fields := strings.Fields(query)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		bare := strings.TrimRight(f, "*")
		if bare != "" {
			terms = append(terms, bare)
		}
		if !strings.HasSuffix(f, "*") {
			f += "*"
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, " AND "), terms
}

// Params are the search parameters accepted over HTTP.
type Params struct {
	Query string
	Page  int
	Limit int
}

// ParseParams reads q, page and limit. Missing or invalid numbers fall back
// to page 1 and DefaultPerPage; limit is capped at MaxPerPage.
func ParseParams(values url.Values) Params {
	p := Params{
		Query: strings.TrimSpace(values.Get("q")),
		Page:  1,
		Limit: DefaultPerPage,
	}

	if v := values.Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Page = parsed
		}
	}

	if v := values.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Limit = min(parsed, MaxPerPage)
		}
	}

	return p
}

// escapeLike escapes LIKE wildcards so s matches literally with ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
