package upstream

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Image is an encoded image travelling to or from a service.
type Image struct {
	Data     []byte
	MimeType string
}

// GenerateRequest asks the generative model for an image.
type GenerateRequest struct {
	// Prompt is the description of the image, or the edit instruction when
	// Source is set.
	Prompt string
	// Source, when set, is the image to edit.
	Source *Image

	Temperature *float32
	TopP        *float32
	TopK        *float32
}

// Hosted is the result of uploading an image to the hosting service.
type Hosted struct {
	URL        string
	DisplayURL string
	ViewerURL  string
}

// Generator produces images from prompts, optionally conditioned on a
// source image.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Image, error)
}

// BackgroundRemover returns a copy of an image with its background removed.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, img Image) (*Image, error)
}

// Host uploads images and returns their public URL.
type Host interface {
	Upload(ctx context.Context, img Image) (*Hosted, error)
}

// Fetcher downloads images from arbitrary URLs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

const userAgent = "PromptShopMCP/1.0"

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func defaultClient(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{}
	}
	return c
}

// readLimited reads at most limit bytes and reports whether the body was
// longer than that.
func readLimited(r io.Reader, limit int) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, false, err
	}
	if len(data) > limit {
		return nil, true, nil
	}
	return data, false, nil
}
