package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/ironsheep/promptshop-mcp/internal/upstream"
)

// samplingArgs are the optional generation knobs shared by generate and
// edit.
type samplingArgs struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"topP,omitempty"`
	TopK        *float32 `json:"topK,omitempty"`
}

func (a samplingArgs) validate() []string {
	var bad []string
	if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
		bad = append(bad, "temperature")
	}
	if a.TopP != nil && (*a.TopP < 0 || *a.TopP > 1) {
		bad = append(bad, "topP")
	}
	if a.TopK != nil && (*a.TopK < 1 || *a.TopK > 100) {
		bad = append(bad, "topK")
	}
	return bad
}

type generateArgs struct {
	Prompt string `json:"prompt"`
	samplingArgs
}

func (a *generateArgs) validate() error {
	if strings.TrimSpace(a.Prompt) == "" {
		return argError("prompt must be a non-empty string", "prompt")
	}
	if bad := a.samplingArgs.validate(); len(bad) > 0 {
		return argError("value out of range", bad...)
	}
	return nil
}

type editArgs struct {
	SourceID    string `json:"sourceId"`
	ImageURL    string `json:"imageUrl"`
	Instruction string `json:"instruction"`
	samplingArgs
}

func (a *editArgs) validate() error {
	var missing []string
	if strings.TrimSpace(a.Instruction) == "" {
		missing = append(missing, "instruction")
	}
	switch {
	case a.SourceID == "" && a.ImageURL == "":
		missing = append(missing, "sourceId")
	case a.SourceID != "" && a.ImageURL != "":
		return argError("give either sourceId or imageUrl, not both", "sourceId", "imageUrl")
	case a.ImageURL != "" && !upstream.WellFormedURL(a.ImageURL):
		missing = append(missing, "imageUrl")
	}
	if len(missing) > 0 {
		return argError("missing or malformed", missing...)
	}
	if bad := a.samplingArgs.validate(); len(bad) > 0 {
		return argError("value out of range", bad...)
	}
	return nil
}

// sourceArgs is the argument shape of remove_background and host.
type sourceArgs struct {
	SourceID string `json:"sourceId"`
}

func (a *sourceArgs) validate() error {
	if strings.TrimSpace(a.SourceID) == "" {
		return argError("sourceId must be a non-empty string", "sourceId")
	}
	return nil
}

// decodeArgs strictly decodes raw into v: unknown fields and wrong types
// are argument errors naming the offending field. Absent or null
// arguments decode as an empty object.
func decodeArgs(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return argumentDecodeError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return argError("trailing data after arguments object")
	}
	return nil
}

func argumentDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return argError("arguments must be an object")
		}
		return argError("expected "+typeErr.Type.String()+", got "+typeErr.Value, typeErr.Field)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return argError("malformed JSON: " + syntaxErr.Error())
	}
	// encoding/json reports unknown fields only as text.
	if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field ") {
		field := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		return argError("unknown field", field)
	}
	return argError(err.Error())
}
