package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNormalizeImage(t *testing.T) {
	tests := []struct {
		name string
		in   *ImageAttachment
		want bool
	}{
		{"nil", nil, false},
		{"empty url", &ImageAttachment{Filename: "a.png"}, false},
		{"with url", &ImageAttachment{URL: "https://cdn.example.com/a.png", Filename: "a.png"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeImage(tt.in)
			if (got != nil) != tt.want {
				t.Errorf("NormalizeImage(%+v) = %+v, want present=%v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOmittedReplies(t *testing.T) {
	img := &ImageAttachment{URL: "https://cdn.example.com/x.png"}
	thread := &Thread{Replies: []Reply{
		{ID: 1}, {ID: 2, Image: img}, {ID: 3}, {ID: 4}, {ID: 5},
		{ID: 6, Image: img}, {ID: 7}, {ID: 8, Image: img},
	}}

	got := thread.OmittedReplies(5)
	if got.Replies != 3 || got.Images != 2 {
		t.Errorf("expected 3 replies and 2 images omitted, got %+v", got)
	}

	if got := thread.OmittedReplies(10); got != (Omitted{}) {
		t.Errorf("expected nothing omitted, got %+v", got)
	}

	preview := thread.PreviewReplies(5)
	if len(preview) != 5 || preview[0].ID != 1 || preview[4].ID != 5 {
		t.Errorf("unexpected preview: %+v", preview)
	}
	if len(thread.PreviewReplies(0)) != 0 {
		t.Error("expected empty preview for zero shown")
	}
}

func TestThreadJSONOmitsAbsentImage(t *testing.T) {
	thread := Thread{ID: 1, Subject: "A", Content: "B", Replies: []Reply{}, UserHash: "secret"}
	data, err := json.Marshal(thread)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, `"image"`) {
		t.Errorf("expected no image key, got %s", s)
	}
	if strings.Contains(s, "secret") {
		t.Errorf("user hash leaked into JSON: %s", s)
	}
	if !strings.Contains(s, `"replies":[]`) {
		t.Errorf("expected empty replies array, got %s", s)
	}
}
