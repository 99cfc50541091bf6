package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/validate"
)

// maxBodyBytes bounds posted bodies. Images are uploaded elsewhere, so
// posts are text plus attachment metadata.
const maxBodyBytes = 64 << 10

var errBadBody = errors.New("invalid request body")

// postBody is a thread or reply as posted, either as JSON or as a form.
type postBody struct {
	Subject         string    `json:"subject"`
	Content         string    `json:"content"`
	DeviceID        string    `json:"device_id"`
	ImageURL        string    `json:"image_url"`
	ImageName       string    `json:"image_name"`
	ImageSize       sizeField `json:"image_size"`
	ImageDimensions string    `json:"image_dimensions"`
}

func (b postBody) imageFields() validate.ImageFields {
	return validate.ImageFields{
		ImageURL:        b.ImageURL,
		ImageName:       b.ImageName,
		ImageSize:       string(b.ImageSize),
		ImageDimensions: b.ImageDimensions,
	}
}

func (b postBody) threadForm() validate.ThreadForm {
	return validate.ThreadForm{
		Subject:     b.Subject,
		Content:     b.Content,
		DeviceID:    b.DeviceID,
		ImageFields: b.imageFields(),
	}
}

func (b postBody) replyForm(threadID string) validate.ReplyForm {
	return validate.ReplyForm{
		ThreadID:    threadID,
		Content:     b.Content,
		DeviceID:    b.DeviceID,
		ImageFields: b.imageFields(),
	}
}

// sizeField accepts image_size as a JSON number or string.
type sizeField string

func (s *sizeField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = sizeField(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = sizeField(n.String())
	return nil
}

// decodePost reads a JSON, urlencoded or multipart body.
func decodePost(w http.ResponseWriter, r *http.Request) (postBody, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var b postBody
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := parseForm(r, mediaType); err != nil {
			return b, fmt.Errorf("%w: %v", errBadBody, err)
		}
		b = postBody{
			Subject:         r.PostFormValue("subject"),
			Content:         r.PostFormValue("content"),
			DeviceID:        r.PostFormValue("device_id"),
			ImageURL:        r.PostFormValue("image_url"),
			ImageName:       r.PostFormValue("image_name"),
			ImageSize:       sizeField(r.PostFormValue("image_size")),
			ImageDimensions: r.PostFormValue("image_dimensions"),
		}
		return b, nil
	default:
		if err := decodeJSON(r.Body, &b); err != nil {
			return b, err
		}
		return b, nil
	}
}

func parseForm(r *http.Request, mediaType string) error {
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// adminPost is the admin create body. The image travels as an attachment
// object and user_hash defaults to "admin".
type adminPost struct {
	ThreadID int64                 `json:"thread_id"`
	Subject  string                `json:"subject"`
	Content  string                `json:"content"`
	Image    *core.ImageAttachment `json:"image"`
	UserHash string                `json:"user_hash"`
}

const adminUserHash = "admin"

func (p adminPost) imageFields() validate.ImageFields {
	if p.Image == nil {
		return validate.ImageFields{}
	}
	return validate.ImageFields{
		ImageURL:        p.Image.URL,
		ImageName:       p.Image.Filename,
		ImageSize:       strconv.FormatInt(p.Image.Size, 10),
		ImageDimensions: p.Image.Dimensions,
	}
}

func (p adminPost) userHash() string {
	if p.UserHash == "" {
		return adminUserHash
	}
	return p.UserHash
}
