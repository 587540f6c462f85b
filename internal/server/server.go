package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/promptshop-mcp/internal/imaging"
	"github.com/ironsheep/promptshop-mcp/internal/resource"
	"github.com/ironsheep/promptshop-mcp/internal/tools"
)

const (
	protocolVersion = "2024-11-05"

	// maxRequestBytes bounds a single JSON-RPC line.
	maxRequestBytes = 4 * 1024 * 1024
)

// Server handles MCP protocol communication
type Server struct {
	dispatcher *tools.Dispatcher
	registry   *resource.Registry

	name        string
	version     string
	previewSize int
	maxBytes    int
	maxCalls    int
	log         zerolog.Logger
}

// Options configures a Server.
type Options struct {
	// Name and Version are reported in the initialize response.
	Name    string
	Version string

	// PreviewSize is the longest edge of the thumbnail attached to tool
	// results. Zero uses imaging.DefaultPreviewSize; negative disables
	// previews.
	PreviewSize int

	// MaxImageBytes bounds images decoded for resources/read.
	MaxImageBytes int

	// MaxConcurrentCalls bounds how many tools/call requests run at once.
	// Zero or less means one at a time.
	MaxConcurrentCalls int

	Logger zerolog.Logger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailure    = -32000
)

// New creates a server that exposes the dispatcher's tools and the
// dispatcher's registry as MCP resources.
func New(d *tools.Dispatcher, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "promptshop-mcp"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.PreviewSize == 0 {
		opts.PreviewSize = imaging.DefaultPreviewSize
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = imaging.DefaultMaxBytes
	}
	if opts.MaxConcurrentCalls <= 0 {
		opts.MaxConcurrentCalls = 1
	}
	return &Server{
		dispatcher:  d,
		registry:    d.Registry(),
		name:        opts.Name,
		version:     opts.Version,
		previewSize: opts.PreviewSize,
		maxBytes:    opts.MaxImageBytes,
		maxCalls:    opts.MaxConcurrentCalls,
		log:         opts.Logger,
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// responses to w until r is exhausted or ctx is cancelled.
//
// Protocol methods are answered in order. tools/call requests run
// concurrently, up to the configured limit, and their responses are
// written as they complete. Requests without an id are notifications and
// never get a response. Serve waits for in-flight calls before returning.
//
// When ctx is cancelled Serve stops reading, closes r if it is an
// io.Closer, and returns ctx.Err() once in-flight calls have finished.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	out := &responseWriter{enc: json.NewEncoder(w), log: s.log}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxCalls)

	lines, scanErr := readLines(ctx, r)

loop:
	for {
		select {
		case <-ctx.Done():
			if c, ok := r.(io.Closer); ok {
				c.Close()
			}
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			s.handleLine(gctx, g, out, line)
		}
	}

	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case err := <-scanErr:
		if err != nil {
			return fmt.Errorf("scanner error: %w", err)
		}
	default:
	}
	return waitErr
}

// readLines scans r in its own goroutine so that a blocked read never
// delays shutdown. The lines channel is closed when r is exhausted; the
// scanner's error is then available on the second channel.
func readLines(ctx context.Context, r io.Reader) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, maxRequestBytes)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	return lines, scanErr
}

// handleLine parses one request and answers it, inline or on g for
// tools/call.
func (s *Server) handleLine(ctx context.Context, g *errgroup.Group, out *responseWriter, line []byte) {
	if len(strings.TrimSpace(string(line))) == 0 {
		return
	}

	var req MCPRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse request")
		out.write(s.errorResponse(nil, codeParseError, "Parse error", err.Error()))
		return
	}

	respond := func() {
		resp := s.handleRequest(ctx, &req)
		if req.ID == nil {
			if resp != nil && resp.Error != nil {
				s.log.Warn().Str("method", req.Method).Str("error", resp.Error.Message).Msg("notification failed")
			}
			return
		}
		out.write(resp)
	}

	if req.Method == "tools/call" {
		g.Go(func() error {
			respond()
			return nil
		})
		return
	}
	respond()
}

// responseWriter serializes concurrent writes of responses.
type responseWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	log zerolog.Logger
}

func (o *responseWriter) write(resp *MCPResponse) {
	if resp == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(resp); err != nil {
		o.log.Error().Err(err).Msg("failed to encode response")
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized", "notifications/cancelled":
		// Client notifications, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return s.handleResourcesList(req)
	case "resources/templates/list":
		return s.handleResourceTemplatesList(req)
	case "resources/read":
		return s.handleResourcesRead(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		if req.ID == nil {
			// Unknown notifications are ignored.
			return nil
		}
		return s.errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools":     map[string]interface{}{},
				"resources": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    s.name,
				"version": s.version,
			},
		},
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
