// Package snippet builds short highlighted excerpts of post text.
//
// A Snippet is plain text plus the byte ranges to highlight. Nothing in it is
// markup, so callers pick how to render highlights: HTML() escapes the text
// and wraps spans in <mark>, Marked() uses arbitrary delimiters for terminals.
//
// Extract is the single windowing algorithm used by every search path.
// ParseMarked converts the output of the FTS5 snippet() function, produced
// with the MarkOpen/MarkClose sentinels, into the same structure.
package snippet

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks text cut from either end of an excerpt.
const Ellipsis = "..."

// Sentinels passed to snippet() as highlight delimiters. They are private-use
// code points that Strip removes from user input, so stored text can never
// carry a forged highlight.
const (
	MarkOpen  = "\ue000"
	MarkClose = "\ue001"
)

// Span is a highlighted byte range [Start, End) of Snippet.Text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Snippet is an excerpt with highlight ranges.
type Snippet struct {
	Text       string `json:"text"`
	Highlights []Span `json:"highlights"`
}

// Window sizes are in runes.
type Window struct {
	// Before is the context kept ahead of the first match.
	Before int
	// After is the context kept from the match start onwards.
	After int
	// Fallback is the prefix length used when no term matches.
	Fallback int
}

// DefaultWindow is the excerpt window used by search results.
var DefaultWindow = Window{Before: 50, After: 150, Fallback: 200}

// Empty reports whether the snippet has no visible text.
func (s Snippet) Empty() bool {
	return strings.TrimSpace(s.Text) == ""
}

// HasHighlights reports whether any span is highlighted.
func (s Snippet) HasHighlights() bool {
	return len(s.Highlights) > 0
}

// Marked renders the snippet with left and right around each highlight.
// The text is not escaped.
func (s Snippet) Marked(left, right string) string {
	return s.render(left, right, func(v string) string { return v })
}

// HTML renders the snippet as escaped HTML with <mark> highlights.
func (s Snippet) HTML() string {
	return s.render("<mark>", "</mark>", html.EscapeString)
}

func (s Snippet) render(left, right string, esc func(string) string) string {
	var b strings.Builder
	pos := 0
	for _, sp := range s.Highlights {
		if sp.Start < pos || sp.End > len(s.Text) || sp.Start >= sp.End {
			continue
		}
		b.WriteString(esc(s.Text[pos:sp.Start]))
		b.WriteString(left)
		b.WriteString(esc(s.Text[sp.Start:sp.End]))
		b.WriteString(right)
		pos = sp.End
	}
	b.WriteString(esc(s.Text[pos:]))
	return b.String()
}

// Extract returns an excerpt of text around the first case-insensitive
// occurrence of any term. Terms are tried in order and the first one found
// anchors the window. Every term occurrence inside the excerpt is
// highlighted, original casing is kept.
//
// When no term occurs, the excerpt is the first w.Fallback runes of text,
// followed by Ellipsis if truncated.
func Extract(text string, terms []string, w Window) Snippet {
	runes := []rune(text)
	needles := foldTerms(terms)

	hit := -1
	for _, n := range needles {
		if i := indexFold(runes, n, 0); i >= 0 {
			hit = i
			break
		}
	}

	if hit < 0 {
		if len(runes) <= w.Fallback {
			return Snippet{Text: text}
		}
		return Snippet{Text: string(runes[:max(w.Fallback, 0)]) + Ellipsis}
	}

	start := max(hit-w.Before, 0)
	end := min(hit+w.After, len(runes))

	var b strings.Builder
	var spans []Span
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	for i := start; i < end; {
		n := longestMatch(runes, needles, i)
		if n == 0 {
			b.WriteRune(runes[i])
			i++
			continue
		}
		stop := min(i+n, end)
		sp := Span{Start: b.Len()}
		b.WriteString(string(runes[i:stop]))
		sp.End = b.Len()
		spans = append(spans, sp)
		i = stop
	}
	if end < len(runes) {
		b.WriteString(Ellipsis)
	}

	return Snippet{Text: b.String(), Highlights: spans}
}

// ParseMarked converts s, delimited with left and right, into a Snippet.
// An unterminated highlight runs to the end of the text; empty highlights
// are dropped.
func ParseMarked(s, left, right string) Snippet {
	if left == "" || right == "" {
		return Snippet{Text: s}
	}

	var b strings.Builder
	var spans []Span
	start := -1
	for len(s) > 0 {
		switch {
		case strings.HasPrefix(s, left) && start < 0:
			start = b.Len()
			s = s[len(left):]
		case strings.HasPrefix(s, right) && start >= 0:
			if b.Len() > start {
				spans = append(spans, Span{Start: start, End: b.Len()})
			}
			start = -1
			s = s[len(right):]
		case strings.HasPrefix(s, left):
			// nested opening marker
			s = s[len(left):]
		case strings.HasPrefix(s, right):
			// closing marker without an opening one
			s = s[len(right):]
		default:
			_, size := utf8.DecodeRuneInString(s)
			b.WriteString(s[:size])
			s = s[size:]
		}
	}
	if start >= 0 && b.Len() > start {
		spans = append(spans, Span{Start: start, End: b.Len()})
	}

	return Snippet{Text: b.String(), Highlights: spans}
}

// Strip removes the highlight sentinels from s.
func Strip(s string) string {
	if !strings.Contains(s, MarkOpen) && !strings.Contains(s, MarkClose) {
		return s
	}
	return strings.NewReplacer(MarkOpen, "", MarkClose, "").Replace(s)
}

func foldTerms(terms []string) [][]rune {
	out := make([][]rune, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		folded := []rune(t)
		for i, r := range folded {
			folded[i] = unicode.ToLower(r)
		}
		out = append(out, folded)
	}
	return out
}

// indexFold finds needle (already lowercased) in haystack from position from.
func indexFold(haystack, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(haystack); i++ {
		if matchAt(haystack, needle, i) {
			return i
		}
	}
	return -1
}

func matchAt(haystack, needle []rune, i int) bool {
	if i+len(needle) > len(haystack) {
		return false
	}
	for j, r := range needle {
		if unicode.ToLower(haystack[i+j]) != r {
			return false
		}
	}
	return true
}

func longestMatch(haystack []rune, needles [][]rune, i int) int {
	best := 0
	for _, n := range needles {
		if len(n) > best && matchAt(haystack, n, i) {
			best = len(n)
		}
	}
	return best
}
