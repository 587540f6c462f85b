package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ironsheep/promptshop-mcp/internal/imaging"
)

// GeminiConfig configures the Gemini image client.
type GeminiConfig struct {
	APIKey string
	// GenerateModel serves text-only requests; EditModel serves requests
	// with a source image.
	GenerateModel string
	EditModel     string
	// BaseURL overrides the API endpoint.
	BaseURL  string
	Timeout  time.Duration
	MaxBytes int
}

// Gemini generates and edits images through the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGemini creates a client. It makes no network calls.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

// Generate sends one GenerateContent request and returns the first inline
// image in the response.
func (g *Gemini) Generate(ctx context.Context, req GenerateRequest) (*Image, error) {
	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	model := g.cfg.GenerateModel
	var parts []*genai.Part
	if req.Source != nil {
		model = g.cfg.EditModel
		parts = append(parts, genai.NewPartFromBytes(req.Source.Data, req.Source.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		Temperature:        req.Temperature,
		TopP:               req.TopP,
		TopK:               req.TopK,
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, geminiError(ctx, err)
	}
	return extractImage(resp, g.cfg.MaxBytes)
}

// extractImage returns the first inline image part of resp, verified as a
// decodable image. Any text the model returned instead is folded into the
// error message.
func extractImage(resp *genai.GenerateContentResponse, maxBytes int) (*Image, error) {
	if resp == nil {
		return nil, responseError(ServiceGemini, "empty response")
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				info, err := imaging.Inspect(part.InlineData.Data, maxBytes)
				if err != nil {
					return nil, responseError(ServiceGemini, "returned image rejected: %v", err)
				}
				return &Image{Data: part.InlineData.Data, MimeType: info.MimeType}, nil
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}

	msg := "no image data returned"
	if s := strings.TrimSpace(text.String()); s != "" {
		msg += "; model said: " + s
	}
	return nil, responseError(ServiceGemini, "%s", msg)
}

func geminiError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Service: ServiceGemini, Kind: KindStatus, Status: apiErr.Code, Code: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &UpstreamError{Service: ServiceGemini, Kind: KindStatus, Status: apiErrPtr.Code, Code: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	return transportError(ctx, ServiceGemini, err)
}
