// Package upstream holds the clients for the external image services.
//
// Three services do all pixel work:
//   - Gemini (google.golang.org/genai): text-to-image and
//     instruction-based edits
//   - remove.bg: background removal
//   - freeimage.host: public image hosting
//
// HTTPFetcher additionally downloads source images that callers reference
// by URL.
//
// Every client makes exactly one attempt per call; nothing here retries.
// Failures are returned as *UpstreamError carrying the service name, the
// HTTP status (if any), the service's own error code and a Kind that
// separates timeouts from other failures.
package upstream
