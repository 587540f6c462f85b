package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFreeImageBaseURL is the public freeimage.host API root.
const DefaultFreeImageBaseURL = "https://freeimage.host/api/1"

// FreeImageConfig configures the freeimage.host client.
type FreeImageConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// FreeImage uploads images to freeimage.host.
type FreeImage struct {
	cfg    FreeImageConfig
	client *http.Client
}

// NewFreeImage returns a client, filling in defaults for empty fields.
func NewFreeImage(cfg FreeImageConfig) *FreeImage {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFreeImageBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &FreeImage{cfg: cfg, client: defaultClient(cfg.Client)}
}

type freeImageResponse struct {
	StatusCode int    `json:"status_code"`
	StatusTxt  string `json:"status_txt"`
	Image      *struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
		URLViewer  string `json:"url_viewer"`
	} `json:"image"`
	Error *struct {
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// Upload posts img as base64 and returns the hosted URLs.
func (f *FreeImage) Upload(ctx context.Context, img Image) (*Hosted, error) {
	ctx, cancel := withTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	form := url.Values{}
	form.Set("key", f.cfg.APIKey)
	form.Set("action", "upload")
	form.Set("format", "json")
	form.Set("source", base64.StdEncoding.EncodeToString(img.Data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.BaseURL+"/upload", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("freeimage: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, ServiceFreeImage, err)
	}
	defer resp.Body.Close()

	data, _, err := readLimited(resp.Body, 1<<20)
	if err != nil {
		return nil, transportError(ctx, ServiceFreeImage, err)
	}

	var body freeImageResponse
	decodeErr := json.Unmarshal(data, &body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || (decodeErr == nil && body.StatusCode != 0 && body.StatusCode != http.StatusOK) {
		uerr := &UpstreamError{Service: ServiceFreeImage, Kind: KindStatus, Status: resp.StatusCode}
		if decodeErr == nil {
			if body.StatusCode != 0 {
				uerr.Status = body.StatusCode
			}
			if body.Error != nil {
				uerr.Message = body.Error.Message
				uerr.Code = strings.Trim(string(body.Error.Code), `"`)
			}
			if uerr.Message == "" {
				uerr.Message = body.StatusTxt
			}
		}
		return nil, uerr
	}
	if decodeErr != nil {
		return nil, responseError(ServiceFreeImage, "malformed response: %v", decodeErr)
	}
	if body.Image == nil || !WellFormedURL(body.Image.URL) {
		return nil, responseError(ServiceFreeImage, "response has no usable image URL")
	}

	return &Hosted{
		URL:        body.Image.URL,
		DisplayURL: body.Image.DisplayURL,
		ViewerURL:  body.Image.URLViewer,
	}, nil
}

// WellFormedURL reports whether s is an absolute http or https URL with a
// host.
func WellFormedURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
