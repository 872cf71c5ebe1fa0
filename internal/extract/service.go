// Package extract talks to the generative extraction service that reads
// business cards and documents, summarizes memos and proposes column mappings.
package extract

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"strings"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
)

// Service is the extraction collaborator. Every method is one request/response
// call with no retry; failures come back as EXTERNAL_SERVICE_FAILURE.
type Service interface {
	// ExtractContact reads one or two card images (front, back) into a partial contact.
	ExtractContact(ctx context.Context, images []Image) (*record.Contact, error)
	// ExtractPolicy reads document images into an ordered field list.
	ExtractPolicy(ctx context.Context, images []Image) ([]record.PolicyField, error)
	// Summarize returns a short markdown summary of text.
	Summarize(ctx context.Context, text string) (string, error)
	// ProposeMapping guesses which internal field each external header holds.
	ProposeMapping(ctx context.Context, external, internal []string) (map[string]string, error)
}

// Image is one uploaded picture.
type Image struct {
	MIMEType string
	Data     []byte
}

// Ext returns a file extension for the image type, without the dot.
func (img Image) Ext() string {
	switch img.MIMEType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	case "image/gif":
		return "gif"
	}
	return "jpg"
}

// ParseDataURL decodes a browser data URL ("data:image/jpeg;base64,...").
func ParseDataURL(s string) (Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return Image{}, errors.NewInvalidRequest("image must be a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, errors.NewInvalidRequest("malformed data URL")
	}
	mime, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return Image{}, errors.NewInvalidRequest("data URL must be base64 encoded")
	}
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, errors.NewInvalidRequest("unsupported image type: " + mime)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, errors.NewInvalidRequest("invalid base64 image data")
	}
	if len(data) == 0 {
		return Image{}, errors.NewInvalidRequest("empty image")
	}
	return Image{MIMEType: mime, Data: data}, nil
}

// ParseDataURLs decodes each URL in order.
func ParseDataURLs(urls []string) ([]Image, error) {
	images := make([]Image, 0, len(urls))
	for _, u := range urls {
		img, err := ParseDataURL(u)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// Unconfigured is the Service used when no API key is set. Every call fails.
type Unconfigured struct{}

var errUnconfigured = errors.NewExternalServiceFailure("extraction", stderrors.New("service not configured (set GEMINI_API_KEY)"))

func (Unconfigured) ExtractContact(context.Context, []Image) (*record.Contact, error) {
	return nil, errUnconfigured
}

func (Unconfigured) ExtractPolicy(context.Context, []Image) ([]record.PolicyField, error) {
	return nil, errUnconfigured
}

func (Unconfigured) Summarize(context.Context, string) (string, error) {
	return "", errUnconfigured
}

func (Unconfigured) ProposeMapping(context.Context, []string, []string) (map[string]string, error) {
	return nil, errUnconfigured
}
