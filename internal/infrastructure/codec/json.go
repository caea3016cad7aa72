// Package codec parses update request payloads.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// JSONCodec is the JSON payload codec. Numbers decode as json.Number so large
// integers survive a round trip.
type JSONCodec struct{}

// NewJSONCodec creates a JSON payload codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Parse decodes a single JSON value
func (c *JSONCodec) Parse(text string) (interface{}, error) {
	if strings.TrimSpace(text) == "" {
		return nil, workflow.NewError(workflow.KindInvalidPayload, "%s: empty payload", workflow.ErrInvalidPayload.Message)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, workflow.Wrap(workflow.KindInvalidPayload, workflow.ErrInvalidPayload.Message, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, workflow.NewError(workflow.KindInvalidPayload, "%s: trailing data after value", workflow.ErrInvalidPayload.Message)
	}
	return v, nil
}

// Render encodes v as compact JSON
func (c *JSONCodec) Render(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Verify interface compliance
var _ port.PayloadCodec = (*JSONCodec)(nil)
