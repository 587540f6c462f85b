package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ironsheep/promptshop-mcp/internal/imaging"
)

// DefaultRemoveBGBaseURL is the public remove.bg API root.
const DefaultRemoveBGBaseURL = "https://api.remove.bg/v1.0"

// RemoveBGConfig configures the remove.bg client.
type RemoveBGConfig struct {
	APIKey  string
	BaseURL string
	// Size is the remove.bg output size ("auto", "preview", "full", ...).
	Size     string
	Timeout  time.Duration
	MaxBytes int
	Client   *http.Client
}

// RemoveBG removes image backgrounds through the remove.bg API.
type RemoveBG struct {
	cfg    RemoveBGConfig
	client *http.Client
}

// NewRemoveBG returns a client, filling in defaults for empty fields.
func NewRemoveBG(cfg RemoveBGConfig) *RemoveBG {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRemoveBGBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Size == "" {
		cfg.Size = "auto"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = imaging.DefaultMaxBytes
	}
	return &RemoveBG{cfg: cfg, client: defaultClient(cfg.Client)}
}

type removeBGErrors struct {
	Errors []struct {
		Title  string `json:"title"`
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// RemoveBackground uploads img and returns the PNG cut-out.
func (r *RemoveBG) RemoveBackground(ctx context.Context, img Image) (*Image, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	body, contentType, err := removeBGForm(img, r.cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("removebg: failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/removebg", body)
	if err != nil {
		return nil, fmt.Errorf("removebg: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Api-Key", r.cfg.APIKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, ServiceRemoveBG, err)
	}
	defer resp.Body.Close()

	data, tooLarge, err := readLimited(resp.Body, r.cfg.MaxBytes)
	if err != nil {
		return nil, transportError(ctx, ServiceRemoveBG, err)
	}

	if resp.StatusCode != http.StatusOK {
		uerr := &UpstreamError{Service: ServiceRemoveBG, Kind: KindStatus, Status: resp.StatusCode}
		var apiErrs removeBGErrors
		if !tooLarge && json.Unmarshal(data, &apiErrs) == nil && len(apiErrs.Errors) > 0 {
			uerr.Code = apiErrs.Errors[0].Code
			uerr.Message = apiErrs.Errors[0].Title
		}
		return nil, uerr
	}
	if tooLarge {
		return nil, responseError(ServiceRemoveBG, "result exceeds %d bytes", r.cfg.MaxBytes)
	}

	info, err := imaging.Inspect(data, r.cfg.MaxBytes)
	if err != nil {
		return nil, responseError(ServiceRemoveBG, "returned image rejected: %v", err)
	}
	return &Image{Data: data, MimeType: info.MimeType}, nil
}

func removeBGForm(img Image, size string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image_file"; filename="image`+imaging.Extension(img.MimeType)+`"`)
	h.Set("Content-Type", img.MimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("size", size); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("format", "png"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
