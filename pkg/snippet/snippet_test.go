package snippet

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func highlighted(s Snippet) []string {
	var out []string
	for _, sp := range s.Highlights {
		out = append(out, s.Text[sp.Start:sp.End])
	}
	return out
}

func TestExtract(t *testing.T) {
	long := strings.Repeat("x", 100) + "Castle" + strings.Repeat("y", 300)

	tests := []struct {
		name          string
		text          string
		terms         []string
		wantText      string
		wantHighlight []string
	}{
		{
			name:          "match near start keeps whole short text",
			text:          "I love cats and their tortilla recipes",
			terms:         []string{"cat"},
			wantText:      "I love cats and their tortilla recipes",
			wantHighlight: []string{"cat"},
		},
		{
			name:          "window with both ellipses",
			text:          long,
			terms:         []string{"castle"},
			wantText:      "..." + strings.Repeat("x", 50) + "Castle" + strings.Repeat("y", 144) + "...",
			wantHighlight: []string{"Castle"},
		},
		{
			name:          "first term in order anchors, all terms highlighted",
			text:          "dog and zebra",
			terms:         []string{"zebra", "dog"},
			wantText:      "dog and zebra",
			wantHighlight: []string{"dog", "zebra"},
		},
		{
			name:          "case preserved",
			text:          "CATS rule",
			terms:         []string{"cats"},
			wantText:      "CATS rule",
			wantHighlight: []string{"CATS"},
		},
		{
			name:          "multibyte text",
			text:          "héllo wörld",
			terms:         []string{"WÖRLD"},
			wantText:      "héllo wörld",
			wantHighlight: []string{"wörld"},
		},
		{
			name:     "no match short text",
			text:     "nothing here",
			terms:    []string{"castle"},
			wantText: "nothing here",
		},
		{
			name:     "no terms",
			text:     "nothing here",
			terms:    []string{"", "  "},
			wantText: "nothing here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text, tt.terms, DefaultWindow)
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			hl := highlighted(got)
			if strings.Join(hl, "|") != strings.Join(tt.wantHighlight, "|") {
				t.Errorf("highlights = %q, want %q", hl, tt.wantHighlight)
			}
		})
	}
}

func TestExtractFallbackTruncates(t *testing.T) {
	text := strings.Repeat("é", 250)
	got := Extract(text, []string{"castle"}, DefaultWindow)

	if !strings.HasSuffix(got.Text, Ellipsis) {
		t.Fatalf("expected ellipsis suffix, got %q", got.Text)
	}
	body := strings.TrimSuffix(got.Text, Ellipsis)
	if n := utf8.RuneCountInString(body); n != 200 {
		t.Errorf("expected 200 runes, got %d", n)
	}
	if got.HasHighlights() {
		t.Error("fallback excerpt must not carry highlights")
	}
}

func TestExtractWindowBounds(t *testing.T) {
	text := strings.Repeat("a", 30) + "needle" + strings.Repeat("b", 30)
	got := Extract(text, []string{"needle"}, Window{Before: 10, After: 8, Fallback: 20})

	want := "..." + strings.Repeat("a", 10) + "needle" + "bb" + "..."
	if got.Text != want {
		t.Errorf("Text = %q, want %q", got.Text, want)
	}
	if hl := highlighted(got); len(hl) != 1 || hl[0] != "needle" {
		t.Errorf("highlights = %q", hl)
	}
}

func TestParseMarked(t *testing.T) {
	tests := []struct {
		name          string
		in            string
		wantText      string
		wantHighlight []string
	}{
		{"single", "I love " + MarkOpen + "cats" + MarkClose + " and", "I love cats and", []string{"cats"}},
		{"several", MarkOpen + "a" + MarkClose + " b " + MarkOpen + "c" + MarkClose, "a b c", []string{"a", "c"}},
		{"unterminated", "a " + MarkOpen + "b", "a b", []string{"b"}},
		{"stray close", "a" + MarkClose + "b", "ab", nil},
		{"empty highlight", "a" + MarkOpen + MarkClose + "b", "ab", nil},
		{"plain", "no marks", "no marks", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMarked(tt.in, MarkOpen, MarkClose)
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			hl := highlighted(got)
			if strings.Join(hl, "|") != strings.Join(tt.wantHighlight, "|") {
				t.Errorf("highlights = %q, want %q", hl, tt.wantHighlight)
			}
		})
	}
}

func TestHTMLEscapesText(t *testing.T) {
	s := Snippet{Text: "<b>x</b>", Highlights: []Span{{Start: 3, End: 4}}}
	want := "&lt;b&gt;<mark>x</mark>&lt;/b&gt;"
	if got := s.HTML(); got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if got := s.Marked("[", "]"); got != "<b>[x]</b>" {
		t.Errorf("Marked() = %q", got)
	}
}

func TestStrip(t *testing.T) {
	in := "forged " + MarkOpen + "highlight" + MarkClose
	if got := Strip(in); got != "forged highlight" {
		t.Errorf("Strip = %q", got)
	}
	if got := Strip("plain"); got != "plain" {
		t.Errorf("Strip changed plain text: %q", got)
	}
}

func TestEmpty(t *testing.T) {
	if !(Snippet{Text: "  "}).Empty() {
		t.Error("whitespace snippet should be empty")
	}
	if (Snippet{Text: "x"}).Empty() {
		t.Error("non-blank snippet should not be empty")
	}
}
