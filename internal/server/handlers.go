package server

import (
	"context"
	"encoding/json"

	"github.com/ironsheep/promptshop-mcp/internal/imaging"
	"github.com/ironsheep/promptshop-mcp/internal/tools"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "generate", "host").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [
//	    {"type": "text", "text": "<JSON result>"},
//	    {"type": "image", "data": "<base64 PNG>", "mimeType": "image/png"}
//	  ]
//	}
//
// The image entry is a thumbnail preview and is omitted when previews are
// disabled or the result cannot be decoded. Tool execution errors return a
// JSON-RPC error response with code -32000 whose data is a tools.Failure.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if params.Name == "" {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", "tool name is required")
	}

	result, err := s.dispatcher.Dispatch(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailure, "Tool execution failed", tools.Describe(err))
	}

	content := []map[string]interface{}{
		{
			"type": "text",
			"text": mustMarshalJSON(result),
		},
	}
	if preview := s.preview(result); preview != nil {
		content = append(content, map[string]interface{}{
			"type":     "image",
			"data":     preview.ImageBase64,
			"mimeType": preview.MimeType,
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": content,
		},
	}
}

func (s *Server) preview(result *tools.ToolResult) *imaging.PreviewResult {
	if s.previewSize < 0 || len(result.Resource.Location.Data) == 0 {
		return nil
	}
	p, err := imaging.Preview(result.Resource.Location.Data, s.previewSize)
	if err != nil {
		s.log.Debug().Err(err).Str("resource", result.ResourceID).Msg("no preview for tool result")
		return nil
	}
	return p
}
