// Package validate checks posted thread and reply forms and turns them into
// storage inputs. Failures are reported per field and never reach storage.
package validate

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/snippet"
)

const (
	MaxSubjectLength = 200
	MaxContentLength = 10000
)

// Messages shared with API clients.
const (
	MsgSubjectRequired   = "Subject is required"
	MsgSubjectTooLong    = "Subject too long"
	MsgContentTooLong    = "Content too long"
	MsgContentOrImage    = "Either content or an image is required"
	MsgInvalidURL        = "Invalid url"
	MsgInvalidSize       = "Image size must be a non-negative integer"
	MsgInvalidThreadID   = "Thread id must be a positive integer"
	MsgNothingToUpdate   = "No fields to update"
	MsgImageNameRequired = "Image name is required"
)

// FieldErrors maps form fields to their validation messages.
type FieldErrors map[string][]string

// Add records msg against field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Error joins every message as "field: msg, msg; field: msg", fields sorted.
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(fe[f], ", ")))
	}
	return strings.Join(parts, "; ")
}

func (fe FieldErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// ImageFields are the attachment fields posted with a thread or reply. The
// image is already uploaded; only its metadata travels with the form.
type ImageFields struct {
	ImageURL        string `json:"image_url"`
	ImageName       string `json:"image_name"`
	ImageSize       string `json:"image_size"`
	ImageDimensions string `json:"image_dimensions"`
}

// ThreadForm is a posted new thread.
type ThreadForm struct {
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	DeviceID string `json:"device_id"`
	ImageFields
}

// ReplyForm is a posted reply. ThreadID comes from the URL path.
type ReplyForm struct {
	ThreadID string `json:"thread_id"`
	Content  string `json:"content"`
	DeviceID string `json:"device_id"`
	ImageFields
}

// Validate checks the form and returns the thread to store together with the
// posted device id, empty when none was sent. UserHash is left for the caller.
func (f ThreadForm) Validate() (core.NewThread, string, error) {
	errs := FieldErrors{}

	subject := strings.TrimSpace(snippet.Strip(f.Subject))
	switch {
	case subject == "":
		errs.Add("subject", MsgSubjectRequired)
	case utf8.RuneCountInString(subject) > MaxSubjectLength:
		errs.Add("subject", MsgSubjectTooLong)
	}

	content := checkContent(errs, f.Content)
	image := f.ImageFields.attachment(errs)
	if content == "" && image == nil {
		errs.Add("content", MsgContentOrImage)
	}

	if err := errs.orNil(); err != nil {
		return core.NewThread{}, "", err
	}
	if content == "" {
		content = core.NoTextPlaceholder
	}

	return core.NewThread{
		Subject: subject,
		Content: content,
		Image:   image,
	}, strings.TrimSpace(f.DeviceID), nil
}

// Validate checks the form and returns the reply to store and the posted
// device id.
func (f ReplyForm) Validate() (core.NewReply, string, error) {
	errs := FieldErrors{}

	threadID, err := strconv.ParseInt(strings.TrimSpace(f.ThreadID), 10, 64)
	if err != nil || threadID <= 0 {
		errs.Add("thread_id", MsgInvalidThreadID)
	}

	content := checkContent(errs, f.Content)
	image := f.ImageFields.attachment(errs)
	if content == "" && image == nil {
		errs.Add("content", MsgContentOrImage)
	}

	if err := errs.orNil(); err != nil {
		return core.NewReply{}, "", err
	}
	if content == "" {
		content = core.NoTextPlaceholder
	}

	return core.NewReply{
		ThreadID: threadID,
		Content:  content,
		Image:    image,
	}, strings.TrimSpace(f.DeviceID), nil
}

// ThreadPatch is an admin edit. Absent fields are left untouched.
type ThreadPatch struct {
	Subject *string `json:"subject"`
	Content *string `json:"content"`
	*ImageFields
}

// ReplyPatch is an admin edit of a reply.
type ReplyPatch struct {
	Content *string `json:"content"`
	*ImageFields
}

// Validate checks the patch. Sending image fields with an empty image_url
// removes the attachment.
func (p ThreadPatch) Validate() (core.ThreadUpdate, error) {
	errs := FieldErrors{}
	var upd core.ThreadUpdate

	if p.Subject != nil {
		subject := strings.TrimSpace(snippet.Strip(*p.Subject))
		switch {
		case subject == "":
			errs.Add("subject", MsgSubjectRequired)
		case utf8.RuneCountInString(subject) > MaxSubjectLength:
			errs.Add("subject", MsgSubjectTooLong)
		}
		upd.Subject = &subject
	}
	if p.Content != nil {
		content := checkContent(errs, *p.Content)
		if content == "" {
			content = core.NoTextPlaceholder
		}
		upd.Content = &content
	}
	if p.ImageFields != nil {
		upd.Image = p.ImageFields.patch(errs)
	}
	if p.Subject == nil && p.Content == nil && p.ImageFields == nil {
		errs.Add("body", MsgNothingToUpdate)
	}

	return upd, errs.orNil()
}

// Validate checks the patch.
func (p ReplyPatch) Validate() (core.ReplyUpdate, error) {
	errs := FieldErrors{}
	var upd core.ReplyUpdate

	if p.Content != nil {
		content := checkContent(errs, *p.Content)
		if content == "" {
			content = core.NoTextPlaceholder
		}
		upd.Content = &content
	}
	if p.ImageFields != nil {
		upd.Image = p.ImageFields.patch(errs)
	}
	if p.Content == nil && p.ImageFields == nil {
		errs.Add("body", MsgNothingToUpdate)
	}

	return upd, errs.orNil()
}

func checkContent(errs FieldErrors, raw string) string {
	content := strings.TrimSpace(snippet.Strip(raw))
	if utf8.RuneCountInString(content) > MaxContentLength {
		errs.Add("content", MsgContentTooLong)
	}
	return content
}

// attachment returns the image when both url and name are present.
func (f ImageFields) attachment(errs FieldErrors) *core.ImageAttachment {
	rawURL := strings.TrimSpace(f.ImageURL)
	name := strings.TrimSpace(f.ImageName)

	if rawURL != "" && !validURL(rawURL) {
		errs.Add("image_url", MsgInvalidURL)
	}
	size := parseSize(errs, f.ImageSize)

	if rawURL == "" || name == "" {
		return nil
	}
	return &core.ImageAttachment{
		URL:        rawURL,
		Filename:   name,
		Size:       size,
		Dimensions: strings.TrimSpace(f.ImageDimensions),
	}
}

// patch is attachment for admin edits: an empty URL clears the image, a URL
// without a name is an error.
func (f ImageFields) patch(errs FieldErrors) *core.ImageAttachment {
	if strings.TrimSpace(f.ImageURL) == "" {
		return &core.ImageAttachment{}
	}
	img := f.attachment(errs)
	if img == nil {
		errs.Add("image_name", MsgImageNameRequired)
		return &core.ImageAttachment{}
	}
	return img
}

func parseSize(errs FieldErrors, raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		errs.Add("image_size", MsgInvalidSize)
		return 0
	}
	return n
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
