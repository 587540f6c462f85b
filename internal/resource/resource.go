package resource

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidResource is returned when a resource cannot be registered
	// because it is missing required fields or references an unknown parent.
	ErrInvalidResource = errors.New("invalid resource")

	// ErrNotFound is returned when no resource with the requested id exists.
	ErrNotFound = errors.New("resource not found")
)

// Origin identifies which operation produced a resource.
type Origin string

const (
	OriginGenerated         Origin = "generated"
	OriginEdited            Origin = "edited"
	OriginBackgroundRemoved Origin = "background_removed"
	OriginHosted            Origin = "hosted"
)

// Valid reports whether o is one of the known origins.
func (o Origin) Valid() bool {
	switch o {
	case OriginGenerated, OriginEdited, OriginBackgroundRemoved, OriginHosted:
		return true
	}
	return false
}

// ParseOrigin converts a user-supplied string into an Origin.
// Matching is case-insensitive and accepts "-" in place of "_".
func ParseOrigin(s string) (Origin, error) {
	o := Origin(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !o.Valid() {
		return "", fmt.Errorf("unknown origin %q", s)
	}
	return o, nil
}

// Location describes where the bytes of an image live.
//
// At least one of Data or URL must be set. Path is an optional on-disk copy
// of Data.
type Location struct {
	// Data holds the encoded image bytes. Callers must not modify it.
	Data []byte `json:"-"`

	// Path is the local file the bytes were written to, if any.
	Path string `json:"path,omitempty"`

	// URL is a remote, publicly reachable address for the image.
	URL string `json:"url,omitempty"`
}

// Empty reports whether the location has neither bytes nor a remote URL.
func (l Location) Empty() bool {
	return len(l.Data) == 0 && l.URL == ""
}

// Resource is an immutable record of an image produced by a tool.
type Resource struct {
	ID        string    `json:"id"`
	Origin    Origin    `json:"origin"`
	Location  Location  `json:"location"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`

	// ParentID is the resource this one was derived from, or "" for roots.
	ParentID string `json:"parent_id,omitempty"`

	// Prompt is the generation prompt or edit instruction, when there is one.
	Prompt string `json:"prompt,omitempty"`

	// SourceURL records an external image the resource was derived from.
	SourceURL string `json:"source_url,omitempty"`
}

// URI returns the resource URI under which the image bytes are served.
func (r Resource) URI() string {
	return "generated-image://" + r.ID
}

// Reference returns the most useful location string for a caller: the
// remote URL if there is one, else the local file path, else the resource
// URI.
func (r Resource) Reference() string {
	switch {
	case r.Location.URL != "":
		return r.Location.URL
	case r.Location.Path != "":
		return r.Location.Path
	default:
		return r.URI()
	}
}

func (r Resource) validate() error {
	if r.Location.Empty() {
		return fmt.Errorf("%w: location is empty", ErrInvalidResource)
	}
	if strings.TrimSpace(r.MimeType) == "" {
		return fmt.Errorf("%w: mime type is missing", ErrInvalidResource)
	}
	if !r.Origin.Valid() {
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidResource, r.Origin)
	}
	return nil
}
