package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ironsheep/promptshop-mcp/internal/imaging"
)

// HTTPFetcher downloads source images from caller-supplied URLs.
type HTTPFetcher struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int
}

// Fetch downloads rawURL and verifies the body is an image within the size
// limit. The server must answer 200 with an image/* Content-Type.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if !WellFormedURL(rawURL) {
		return nil, fmt.Errorf("invalid image URL %q", rawURL)
	}
	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxBytes
	}

	ctx, cancel := withTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL %q: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := defaultClient(f.Client).Do(req)
	if err != nil {
		return nil, transportError(ctx, ServiceDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: ServiceDownload, Kind: KindStatus, Status: resp.StatusCode, Message: "failed to download image"}
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, responseError(ServiceDownload, "not an image: Content-Type is %q", ct)
	}

	data, tooLarge, err := readLimited(resp.Body, maxBytes)
	if err != nil {
		return nil, transportError(ctx, ServiceDownload, err)
	}
	if tooLarge {
		return nil, responseError(ServiceDownload, "image exceeds %d bytes", maxBytes)
	}

	info, err := imaging.Inspect(data, maxBytes)
	if err != nil {
		return nil, responseError(ServiceDownload, "image failed safety checks: %v", err)
	}
	return &Image{Data: data, MimeType: info.MimeType}, nil
}
