package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultMaxBytes is the largest encoded image accepted from any source.
const DefaultMaxBytes = 10 * 1024 * 1024

var (
	// ErrEmpty is returned for zero-length image data.
	ErrEmpty = errors.New("image data is empty")

	// ErrTooLarge is returned when encoded image data exceeds the size limit.
	ErrTooLarge = errors.New("image exceeds size limit")

	// ErrNotImage is returned when data cannot be decoded as a supported image.
	ErrNotImage = errors.New("data is not a supported image")
)

// ImageInfo contains metadata about an encoded image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder name: "png", "jpeg", "gif" or "webp".
	// Detection is based on file contents, not on any declared type.
	Format string `json:"format"`

	// MimeType is the MIME type matching Format.
	MimeType string `json:"mime_type"`

	// HasAlpha reports whether any pixel is not fully opaque. An RGBA image
	// whose pixels are all opaque reports false.
	HasAlpha bool `json:"has_alpha"`

	// AverageColor is the mean color as "#rrggbb", or "" for a fully
	// transparent image.
	AverageColor string `json:"average_color,omitempty"`

	// SizeBytes is the length of the encoded data.
	SizeBytes int `json:"size_bytes"`
}

// Inspect verifies that data is a decodable image no larger than maxBytes
// and returns its metadata.
//
// Parameters:
//   - data: Encoded image bytes (PNG, JPEG, GIF or WebP).
//   - maxBytes: Size limit in bytes. Values <= 0 use DefaultMaxBytes.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: ErrEmpty, ErrTooLarge, or ErrNotImage (wrapped with details).
//
// The whole image is decoded, not just its header, so truncated or corrupt
// files are rejected.
func Inspect(data []byte, maxBytes int) (*ImageInfo, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), maxBytes)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	bounds := img.Bounds()

	hasAlpha := false
	if o, ok := img.(interface{ Opaque() bool }); ok {
		hasAlpha = !o.Opaque()
	}

	return &ImageInfo{
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		Format:       format,
		MimeType:     MimeType(format),
		HasAlpha:     hasAlpha,
		AverageColor: averageColor(img),
		SizeBytes:    len(data),
	}, nil
}

// averageColor shrinks img to a single pixel with a box filter, which
// averages every source pixel.
func averageColor(img image.Image) string {
	if img.Bounds().Empty() {
		return ""
	}
	px := imaging.Resize(img, 1, 1, imaging.Box).At(0, 0)
	c, ok := colorful.MakeColor(px)
	if !ok {
		return ""
	}
	return c.Hex()
}

// MimeType maps a decoder format name to its MIME type.
// Unknown formats map to "application/octet-stream".
func MimeType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension (with dot) for a MIME type.
func Extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
