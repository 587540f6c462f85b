package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/promptshop-mcp/internal/config"
	"github.com/ironsheep/promptshop-mcp/internal/resource"
	"github.com/ironsheep/promptshop-mcp/internal/upstream"
)

var (
	// ErrUnknownTool is returned by Dispatch for names outside the
	// capability set.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is matched by every *ArgumentError.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Error kinds, as reported to callers.
const (
	KindInvalidResource    = "InvalidResource"
	KindNotFound           = "NotFound"
	KindUnknownTool        = "UnknownTool"
	KindInvalidArguments   = "InvalidArguments"
	KindUpstreamFailure    = "UpstreamFailure"
	KindConfigurationError = "ConfigurationError"
	KindInternal           = "Internal"
)

// ArgumentError lists the argument fields that are missing or malformed.
type ArgumentError struct {
	Fields []string
	Reason string
}

func (e *ArgumentError) Error() string {
	msg := "invalid arguments"
	if len(e.Fields) > 0 {
		msg += " [" + strings.Join(e.Fields, ", ") + "]"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArguments
}

func argError(reason string, fields ...string) *ArgumentError {
	return &ArgumentError{Fields: fields, Reason: reason}
}

// Failure is the structured form of a dispatch error.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`

	// Upstream failures.
	Service      string `json:"service,omitempty"`
	Status       int    `json:"status,omitempty"`
	Code         string `json:"code,omitempty"`
	UpstreamKind string `json:"upstreamKind,omitempty"`

	// Configuration errors.
	Variable string `json:"variable,omitempty"`

	// Argument errors.
	Fields []string `json:"fields,omitempty"`
}

// Kind classifies err into one of the Kind* constants.
func Kind(err error) string {
	var (
		cfgErr *config.ConfigurationError
		upErr  *upstream.UpstreamError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return KindConfigurationError
	case errors.As(err, &upErr):
		return KindUpstreamFailure
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, ErrInvalidArguments):
		return KindInvalidArguments
	case errors.Is(err, resource.ErrNotFound):
		return KindNotFound
	case errors.Is(err, resource.ErrInvalidResource):
		return KindInvalidResource
	default:
		return KindInternal
	}
}

// Describe converts err into a Failure carrying every detail a caller
// needs to act on it.
func Describe(err error) Failure {
	f := Failure{Kind: Kind(err), Message: err.Error()}

	var upErr *upstream.UpstreamError
	if errors.As(err, &upErr) {
		f.Service = upErr.Service
		f.Status = upErr.Status
		f.Code = upErr.Code
		f.UpstreamKind = string(upErr.Kind)
	}
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		f.Variable = cfgErr.Variable
	}
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		f.Fields = argErr.Fields
	}
	return f
}

// upstreamFailure makes sure a service error is reported as an
// UpstreamError naming the service.
func upstreamFailure(service string, err error) error {
	var upErr *upstream.UpstreamError
	if errors.As(err, &upErr) {
		return err
	}
	return &upstream.UpstreamError{Service: service, Kind: upstream.KindTransport, Err: err}
}

func notConfigured(variable string) error {
	return fmt.Errorf("tool unavailable: %w", &config.ConfigurationError{Variable: variable})
}
