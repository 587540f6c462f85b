package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Service names reported in UpstreamError.
const (
	ServiceGemini    = "gemini"
	ServiceRemoveBG  = "removebg"
	ServiceFreeImage = "freeimage"
	ServiceDownload  = "download"
)

// Kind classifies how an upstream call failed.
type Kind string

const (
	// KindStatus means the service answered with a non-success status.
	KindStatus Kind = "status"
	// KindTimeout means the per-call deadline expired.
	KindTimeout Kind = "timeout"
	// KindTransport means the request never got a response.
	KindTransport Kind = "transport"
	// KindResponse means the service answered successfully but the payload
	// held no usable image or URL.
	KindResponse Kind = "response"
)

// UpstreamError describes a failed call to an external image service.
type UpstreamError struct {
	Service string
	Kind    Kind
	// Status is the HTTP status code, or 0 when there was no response.
	Status int
	// Code is the service's own error code, when it reports one.
	Code    string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString(e.Service)
	b.WriteString(": ")
	switch e.Kind {
	case KindStatus:
		fmt.Fprintf(&b, "status %d", e.Status)
		if e.Code != "" {
			fmt.Fprintf(&b, " (%s)", e.Code)
		}
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// transportError wraps a failure that produced no response, classifying
// deadline expiry as KindTimeout.
func transportError(ctx context.Context, service string, err error) *UpstreamError {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &UpstreamError{Service: service, Kind: kind, Err: err}
}

func responseError(service, format string, args ...interface{}) *UpstreamError {
	return &UpstreamError{Service: service, Kind: KindResponse, Message: fmt.Sprintf(format, args...)}
}
