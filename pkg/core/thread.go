package core

import "time"

// NoTextPlaceholder replaces blank content on posts that carry an image.
// Display code assumes content is never empty.
const NoTextPlaceholder = "no text"

// ImageAttachment is an already-uploaded image owned by a single post.
type ImageAttachment struct {
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	Dimensions string `json:"dimensions"`
}

// NormalizeImage returns nil for attachments without a URL. Writers and
// readers both go through it so an empty URL never reaches a renderer.
func NormalizeImage(img *ImageAttachment) *ImageAttachment {
	if img == nil || img.URL == "" {
		return nil
	}
	return img
}

// Thread is the root post of a conversation.
type Thread struct {
	ID        int64            `json:"id"`
	Subject   string           `json:"subject"`
	Content   string           `json:"content"`
	Image     *ImageAttachment `json:"image,omitempty"`
	UserHash  string           `json:"-"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Replies   []Reply          `json:"replies"`
}

// Reply belongs to exactly one thread.
type Reply struct {
	ID        int64            `json:"id"`
	ThreadID  int64            `json:"threadId"`
	Content   string           `json:"content"`
	Image     *ImageAttachment `json:"image,omitempty"`
	UserHash  string           `json:"-"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// NewThread is the validated input for creating a thread.
type NewThread struct {
	Subject  string
	Content  string
	Image    *ImageAttachment
	UserHash string
}

// NewReply is the validated input for creating a reply.
type NewReply struct {
	ThreadID int64
	Content  string
	Image    *ImageAttachment
	UserHash string
}

// ThreadUpdate is an admin patch. Nil fields are left untouched; a non-nil
// Image with an empty URL removes the attachment.
type ThreadUpdate struct {
	Subject *string
	Content *string
	Image   *ImageAttachment
}

// ReplyUpdate is an admin patch for a reply.
type ReplyUpdate struct {
	Content *string
	Image   *ImageAttachment
}

// Omitted counts what a thread preview hides.
type Omitted struct {
	Replies int `json:"replies"`
	Images  int `json:"images"`
}

// OmittedReplies reports how many replies and reply images are hidden when a
// preview shows only the first shown replies.
func (t *Thread) OmittedReplies(shown int) Omitted {
	if shown < 0 {
		shown = 0
	}
	if len(t.Replies) <= shown {
		return Omitted{}
	}
	o := Omitted{Replies: len(t.Replies) - shown}
	for _, r := range t.Replies[shown:] {
		if r.Image != nil {
			o.Images++
		}
	}
	return o
}

// PreviewReplies returns the first shown replies, oldest first.
func (t *Thread) PreviewReplies(shown int) []Reply {
	if shown <= 0 {
		return []Reply{}
	}
	if len(t.Replies) <= shown {
		return t.Replies
	}
	return t.Replies[:shown]
}

// User is an anonymous poster, keyed by a hash of their browser fingerprint.
type User struct {
	Hash      string    `json:"hash"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	DeviceID  string    `json:"deviceId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
