// Package server implements the MCP (Model Context Protocol) server for the
// PromptShop image tools.
//
// This package provides a JSON-RPC 2.0 server that exposes image generation,
// editing, background removal and hosting through the MCP protocol. Tool
// calls are routed to a tools.Dispatcher; the images it records are also
// readable as MCP resources.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - resources/list: Enumerate recorded images
//   - resources/templates/list: Enumerate resource URI templates
//   - resources/read: Read an image, its info, or the image list
//   - ping: Health check
//
// tools/call requests run concurrently up to Options.MaxConcurrentCalls;
// their responses may therefore arrive out of request order and are matched
// by id. Every other method is answered in order.
//
// # Available Tools
//
//   - generate: Text prompt to new image
//   - edit: Instruction plus sourceId or imageUrl to edited image
//   - remove_background: sourceId to transparent PNG
//   - host: sourceId to public URL
//
// Each successful call returns the new resource as JSON text plus a PNG
// thumbnail as image content.
//
// # Resources
//
//   - generated-image://{id}: The image bytes (blob)
//   - image-info://{id}: Plain-text summary with dimensions and lineage
//   - list-images://: Plain-text list, optionally ?origin=edited etc.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: a tools.Failure with kind, message and service/status,
//     variable or fields when they apply
//
// # Usage
//
//	d := tools.NewDispatcher(reg, services, tools.Options{Logger: logger})
//	srv := server.New(d, server.Options{Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal().Err(err).Msg("server stopped")
//	}
package server
