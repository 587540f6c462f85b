package server

import "github.com/ironsheep/promptshop-mcp/internal/tools"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// samplingProperties are the optional generation knobs accepted by
// generate and edit.
func samplingProperties() map[string]interface{} {
	return map[string]interface{}{
		"temperature": map[string]interface{}{
			"type":        "number",
			"minimum":     0,
			"maximum":     2,
			"description": "Optional sampling temperature. Higher values give more varied images",
		},
		"topP": map[string]interface{}{
			"type":        "number",
			"minimum":     0,
			"maximum":     1,
			"description": "Optional nucleus sampling threshold",
		},
		"topK": map[string]interface{}{
			"type":        "number",
			"minimum":     1,
			"maximum":     100,
			"description": "Optional top-k sampling limit",
		},
	}
}

func withSampling(props map[string]interface{}) map[string]interface{} {
	for k, v := range samplingProperties() {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        tools.ToolGenerate,
			Description: "Generate a new image from a text prompt. Returns a resourceId that other tools accept as sourceId.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSampling(map[string]interface{}{
					"prompt": map[string]interface{}{
						"type":        "string",
						"description": "Description of the image to generate",
					},
				}),
				"required":             []string{"prompt"},
				"additionalProperties": false,
			},
		},
		{
			Name:        tools.ToolEdit,
			Description: "Edit an image by instruction. The source is either a previously returned resourceId (sourceId) or a public image URL (imageUrl).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSampling(map[string]interface{}{
					"sourceId": map[string]interface{}{
						"type":        "string",
						"description": "Resource id of the image to edit",
					},
					"imageUrl": map[string]interface{}{
						"type":        "string",
						"description": "http(s) URL of an image to download and edit, instead of sourceId",
					},
					"instruction": map[string]interface{}{
						"type":        "string",
						"description": "What to change, e.g. \"add a hat\"",
					},
				}),
				"required":             []string{"instruction"},
				"additionalProperties": false,
			},
		},
		{
			Name:        tools.ToolRemoveBackground,
			Description: "Remove the background of a previously returned image. The result is a PNG with transparency.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sourceId": map[string]interface{}{
						"type":        "string",
						"description": "Resource id of the image",
					},
				},
				"required":             []string{"sourceId"},
				"additionalProperties": false,
			},
		},
		{
			Name:        tools.ToolHost,
			Description: "Upload a previously returned image to the image host and return its public URL.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sourceId": map[string]interface{}{
						"type":        "string",
						"description": "Resource id of the image",
					},
				},
				"required":             []string{"sourceId"},
				"additionalProperties": false,
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
