package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/promptshop-mcp/internal/imaging"
	"github.com/ironsheep/promptshop-mcp/internal/resource"
	"github.com/ironsheep/promptshop-mcp/internal/upstream"
)

// Tool names.
const (
	ToolGenerate         = "generate"
	ToolEdit             = "edit"
	ToolRemoveBackground = "remove_background"
	ToolHost             = "host"
)

// Services are the external collaborators used by the handlers. A nil
// service means its credential was not configured; tools that need it fail
// with a ConfigurationError.
type Services struct {
	Generator         upstream.Generator
	BackgroundRemover upstream.BackgroundRemover
	Host              upstream.Host
	Fetcher           upstream.Fetcher
}

// Options tunes a Dispatcher.
type Options struct {
	// Store, if set, receives a disk copy of every image produced.
	Store *imaging.DiskStore
	// MaxImageBytes bounds images read from the registry or disk. Zero
	// uses imaging.DefaultMaxBytes.
	MaxImageBytes int
	Logger        zerolog.Logger
}

// ToolResult is the normalized outcome of a successful tool call.
type ToolResult struct {
	ResourceID string          `json:"resourceId"`
	Location   string          `json:"location"`
	MimeType   string          `json:"mimeType"`
	Origin     resource.Origin `json:"origin"`
	ParentID   string          `json:"parentId,omitempty"`
	LocalPath  string          `json:"localPath,omitempty"`
	URL        string          `json:"url,omitempty"`

	// Resource is the registered resource itself.
	Resource resource.Resource `json:"-"`
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (resource.Resource, error)

// Dispatcher validates tool calls and routes them to their handlers.
//
// Validation (tool name, argument shape, credentials, referenced
// resources) always completes before any external service is called, and
// a failed call never registers anything. Each call makes at most one
// attempt against its service.
type Dispatcher struct {
	registry *resource.Registry
	svc      Services
	store    *imaging.DiskStore
	maxBytes int
	log      zerolog.Logger
	handlers map[string]handlerFunc
}

// NewDispatcher wires a dispatcher to a registry and its services.
func NewDispatcher(reg *resource.Registry, svc Services, opts Options) *Dispatcher {
	maxBytes := opts.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxBytes
	}
	d := &Dispatcher{
		registry: reg,
		svc:      svc,
		store:    opts.Store,
		maxBytes: maxBytes,
		log:      opts.Logger,
	}
	d.handlers = map[string]handlerFunc{
		ToolGenerate:         d.handleGenerate,
		ToolEdit:             d.handleEdit,
		ToolRemoveBackground: d.handleRemoveBackground,
		ToolHost:             d.handleHost,
	}
	return d
}

// Registry returns the registry the dispatcher records resources in.
func (d *Dispatcher) Registry() *resource.Registry {
	return d.registry
}

// Dispatch runs the named tool with the given JSON arguments.
//
// # Errors
//
// Errors can be classified with Kind:
//   - UnknownTool: name is not one of the Tool* constants
//   - InvalidArguments: arguments are malformed; *ArgumentError names fields
//   - ConfigurationError: the service the tool needs has no credential
//   - NotFound: a referenced sourceId is not in the registry
//   - UpstreamFailure: the external service call failed
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error) {
	start := time.Now()

	handler, ok := d.handlers[name]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTool, name)
		d.logFailure(name, start, err)
		return nil, err
	}

	res, err := handler(ctx, args)
	if err != nil {
		d.logFailure(name, start, err)
		return nil, err
	}

	d.log.Info().
		Str("tool", name).
		Str("resource", res.ID).
		Str("origin", string(res.Origin)).
		Str("parent", res.ParentID).
		Dur("duration", time.Since(start)).
		Msg("tool call succeeded")

	return &ToolResult{
		ResourceID: res.ID,
		Location:   res.Reference(),
		MimeType:   res.MimeType,
		Origin:     res.Origin,
		ParentID:   res.ParentID,
		LocalPath:  res.Location.Path,
		URL:        res.Location.URL,
		Resource:   res,
	}, nil
}

func (d *Dispatcher) logFailure(name string, start time.Time, err error) {
	f := Describe(err)
	ev := d.log.Warn()
	if f.Kind == KindInternal || f.Kind == KindInvalidResource {
		ev = d.log.Error()
	}
	ev.Err(err).
		Str("tool", name).
		Str("kind", f.Kind).
		Str("service", f.Service).
		Int("status", f.Status).
		Dur("duration", time.Since(start)).
		Msg("tool call failed")
}
