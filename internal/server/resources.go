package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ironsheep/promptshop-mcp/internal/imaging"
	"github.com/ironsheep/promptshop-mcp/internal/resource"
	"github.com/ironsheep/promptshop-mcp/internal/tools"
)

// Resource URI schemes.
const (
	schemeImage = "generated-image://"
	schemeInfo  = "image-info://"
	schemeList  = "list-images://"
)

// codeResourceNotFound is the MCP error code for unknown resource URIs.
const codeResourceNotFound = -32002

// ResourceReadParams represents the parameters for a resources/read request.
type ResourceReadParams struct {
	URI string `json:"uri"`
}

// handleResourcesList lists every live image as a generated-image:// resource.
func (s *Server) handleResourcesList(req *MCPRequest) *MCPResponse {
	list := []map[string]interface{}{}
	for res := range s.registry.List() {
		list = append(list, map[string]interface{}{
			"uri":         res.URI(),
			"name":        fmt.Sprintf("%s image %s", res.Origin, res.ID),
			"description": describe(res),
			"mimeType":    res.MimeType,
		})
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"resources": list,
		},
	}
}

// handleResourceTemplatesList advertises the parameterized resource URIs.
func (s *Server) handleResourceTemplatesList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"resourceTemplates": []map[string]interface{}{
				{
					"uriTemplate": schemeImage + "{id}",
					"name":        "Image bytes",
					"description": "The encoded bytes of an image returned by a tool",
				},
				{
					"uriTemplate": schemeInfo + "{id}",
					"name":        "Image info",
					"description": "Dimensions, format, average colour and lineage of an image",
					"mimeType":    "text/plain",
				},
				{
					"uriTemplate": schemeList + "{?origin}",
					"name":        "Image list",
					"description": "All images, oldest first, optionally filtered by origin (generated, edited, background_removed, hosted)",
					"mimeType":    "text/plain",
				},
			},
		},
	}
}

// handleResourcesRead serves the three resource schemes.
func (s *Server) handleResourcesRead(req *MCPRequest) *MCPResponse {
	var params ResourceReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	var (
		content map[string]interface{}
		err     error
	)
	switch {
	case strings.HasPrefix(params.URI, schemeImage):
		content, err = s.readImage(params.URI, strings.TrimPrefix(params.URI, schemeImage))
	case strings.HasPrefix(params.URI, schemeInfo):
		content, err = s.readInfo(params.URI, strings.TrimPrefix(params.URI, schemeInfo))
	case strings.HasPrefix(params.URI, schemeList):
		content, err = s.readList(params.URI, strings.TrimPrefix(params.URI, schemeList))
	default:
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", fmt.Sprintf("unsupported resource URI %q", params.URI))
	}
	if err != nil {
		f := tools.Describe(err)
		code := codeToolFailure
		switch f.Kind {
		case tools.KindNotFound:
			code = codeResourceNotFound
		case tools.KindInvalidArguments:
			code = codeInvalidParams
		}
		return s.errorResponse(req.ID, code, "Resource read failed", f)
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"contents": []map[string]interface{}{content},
		},
	}
}

func (s *Server) readImage(uri, id string) (map[string]interface{}, error) {
	res, err := s.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	if len(res.Location.Data) == 0 {
		return map[string]interface{}{
			"uri":      uri,
			"mimeType": "text/plain",
			"text":     res.Location.URL,
		}, nil
	}
	return map[string]interface{}{
		"uri":      uri,
		"mimeType": res.MimeType,
		"blob":     base64.StdEncoding.EncodeToString(res.Location.Data),
	}, nil
}

func (s *Server) readInfo(uri, id string) (map[string]interface{}, error) {
	res, err := s.registry.Lookup(id)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Image %s\n", res.ID)
	fmt.Fprintf(&b, "Origin: %s\n", res.Origin)
	fmt.Fprintf(&b, "MIME type: %s\n", res.MimeType)
	fmt.Fprintf(&b, "Created: %s\n", res.CreatedAt.UTC().Format(time.RFC3339Nano))
	if len(res.Location.Data) > 0 {
		info, err := imaging.Inspect(res.Location.Data, s.maxBytes)
		if err != nil {
			fmt.Fprintf(&b, "Size: %d bytes (not decodable: %v)\n", len(res.Location.Data), err)
		} else {
			fmt.Fprintf(&b, "Size: %d bytes\n", info.SizeBytes)
			fmt.Fprintf(&b, "Dimensions: %dx%d\n", info.Width, info.Height)
			fmt.Fprintf(&b, "Format: %s\n", info.Format)
			fmt.Fprintf(&b, "Transparency: %t\n", info.HasAlpha)
			fmt.Fprintf(&b, "Average colour: %s\n", info.AverageColor)
		}
	}
	writeOptional(&b, "Parent", res.ParentID)
	writeOptional(&b, "Prompt", res.Prompt)
	writeOptional(&b, "Source URL", res.SourceURL)
	writeOptional(&b, "Local path", res.Location.Path)
	writeOptional(&b, "URL", res.Location.URL)

	return map[string]interface{}{
		"uri":      uri,
		"mimeType": "text/plain",
		"text":     b.String(),
	}, nil
}

func (s *Server) readList(uri, rest string) (map[string]interface{}, error) {
	var origins []resource.Origin
	if q, ok := strings.CutPrefix(rest, "?"); ok {
		values, err := url.ParseQuery(q)
		if err != nil {
			return nil, &tools.ArgumentError{Fields: []string{"origin"}, Reason: err.Error()}
		}
		for _, v := range values["origin"] {
			o, err := resource.ParseOrigin(v)
			if err != nil {
				return nil, &tools.ArgumentError{Fields: []string{"origin"}, Reason: err.Error()}
			}
			origins = append(origins, o)
		}
	} else if rest != "" {
		return nil, &tools.ArgumentError{Fields: []string{"uri"}, Reason: "list-images takes no path"}
	}

	var (
		b strings.Builder
		n int
	)
	for res := range s.registry.List(origins...) {
		n++
		fmt.Fprintf(&b, "- %s %s\n", res.ID, describe(res))
	}
	if n == 0 {
		b.WriteString("No images.\n")
	}

	return map[string]interface{}{
		"uri":      uri,
		"mimeType": "text/plain",
		"text":     fmt.Sprintf("%d image(s)\n%s", n, b.String()),
	}, nil
}

// describe is the one-line summary of a resource used in listings.
func describe(res resource.Resource) string {
	parts := []string{string(res.Origin), res.MimeType, res.CreatedAt.UTC().Format(time.RFC3339)}
	if res.ParentID != "" {
		parts = append(parts, "parent="+res.ParentID)
	}
	if res.Location.URL != "" {
		parts = append(parts, res.Location.URL)
	}
	return strings.Join(parts, " ")
}

func writeOptional(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}
