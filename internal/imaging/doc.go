// Package imaging inspects and stores the encoded images that flow through
// the server.
//
// Pixel work is delegated to the external image services; this package
// only looks at the bytes those services return or accept:
//   - Inspect: full decode verification, size limit, format and MIME type,
//     dimensions, alpha channel, average color
//   - Preview: PNG thumbnails for tool results
//   - DiskStore: content-addressed copies of images on disk
//
// # Supported Formats
//
// PNG, JPEG, GIF and WebP decoders are registered by this package.
// Format detection always uses the file contents; declared Content-Type
// headers and file extensions are never trusted.
//
// # Size Limit
//
// Encoded images larger than DefaultMaxBytes (10 MiB) are rejected unless
// the caller passes a different limit.
package imaging
