package oracle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TransportError reports that the oracle call itself failed.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("oracle transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a reply that did not carry the expected JSON object.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed oracle response: " + e.Reason
}

// Response is the outcome of parsing a reply: *ParsedResponse or *MalformedResponse.
type Response interface {
	Raw() string
	response()
}

// ParsedResponse holds the top-level fields of a decoded JSON object.
type ParsedResponse struct {
	Fields map[string]json.RawMessage
	raw    string
}

// Raw returns the reply text as received.
func (p *ParsedResponse) Raw() string { return p.raw }

func (*ParsedResponse) response() {}

// Has reports whether key is present with a non-null value.
func (p *ParsedResponse) Has(key string) bool {
	v, ok := p.Fields[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// MalformedResponse is a reply with no usable JSON object.
type MalformedResponse struct {
	raw    string
	Reason string
}

// Raw returns the reply text as received.
func (m *MalformedResponse) Raw() string { return m.raw }

func (*MalformedResponse) response() {}

// Parse finds the first JSON object in raw, inside a code fence when there is
// one, and decodes it. Text after the object is ignored.
func Parse(raw string) Response {
	body, ok := cleanMarkdownWrapper(raw)
	if !ok {
		return &MalformedResponse{raw: raw, Reason: "no JSON object in reply"}
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&fields); err != nil {
		return &MalformedResponse{raw: raw, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if fields == nil {
		return &MalformedResponse{raw: raw, Reason: "reply is not a JSON object"}
	}

	return &ParsedResponse{raw: raw, Fields: fields}
}

// cleanMarkdownWrapper returns the reply from its first '{', looking inside
// the first ``` fence when the reply has one.
func cleanMarkdownWrapper(content string) (string, bool) {
	if open := strings.Index(content, "```"); open >= 0 {
		fenced := content[open+3:]
		// drop the language tag line, e.g. ```json
		if nl := strings.IndexByte(fenced, '\n'); nl >= 0 && !strings.Contains(fenced[:nl], "{") {
			fenced = fenced[nl+1:]
		}
		if end := strings.Index(fenced, "```"); end >= 0 {
			fenced = fenced[:end]
		}
		if strings.Contains(fenced, "{") {
			content = fenced
		}
	}

	start := strings.Index(content, "{")
	if start < 0 {
		return "", false
	}
	return content[start:], true
}

var validate = validator.New()

// Bind checks that the required keys are present and non-null, decodes the
// object into dst and validates dst's struct tags. Every failure is a
// *MalformedResponseError.
func Bind(resp Response, dst any, required ...string) error {
	var parsed *ParsedResponse
	switch r := resp.(type) {
	case *ParsedResponse:
		parsed = r
	case *MalformedResponse:
		return &MalformedResponseError{Raw: r.raw, Reason: r.Reason}
	default:
		return &MalformedResponseError{Reason: "no response"}
	}

	for _, key := range required {
		if !parsed.Has(key) {
			return &MalformedResponseError{Raw: parsed.raw, Reason: fmt.Sprintf("missing required key %q", key)}
		}
	}

	encoded, err := json.Marshal(parsed.Fields)
	if err != nil {
		return &MalformedResponseError{Raw: parsed.raw, Reason: err.Error()}
	}
	if err := json.Unmarshal(encoded, dst); err != nil {
		return &MalformedResponseError{Raw: parsed.raw, Reason: fmt.Sprintf("unexpected value type: %v", err)}
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &MalformedResponseError{
				Raw:    parsed.raw,
				Reason: fmt.Sprintf("field %s failed %q check", fe.Field(), fe.Tag()),
			}
		}
		return &MalformedResponseError{Raw: parsed.raw, Reason: err.Error()}
	}

	return nil
}
