package verification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// Vendor adapts a Message to one HTTP email API.
// Payload shapes differ across vendors, so each one gets its own adapter
// behind the same dispatch contract.
type Vendor interface {
	// Name identifies the vendor in errors, logs and metrics.
	Name() string

	// DefaultEndpoint is used when Config.Endpoint is empty.
	DefaultEndpoint() string

	// Encode serializes the message into the vendor's JSON body.
	Encode(msg *Message) ([]byte, error)

	// Authorize sets the credential header(s) on the outbound request.
	Authorize(h http.Header, apiKey string)

	// ParseError extracts error messages from a non-2xx response body.
	// Returns nil when the body is not in a recognized format.
	ParseError(body []byte) []string
}

// EncodeJSON marshals v without HTML escaping so that links inside the
// message stay byte-for-byte identical to the caller's input.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// BearerAuth sets "Authorization: Bearer <key>".
func BearerAuth(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

// ParseErrorList understands the error bodies used by common email APIs:
//
//	{"errors":["msg", ...]}
//	{"errors":[{"message":"msg","field":"from"}, ...]}
//	{"message":"msg"} / {"Message":"msg"} / {"error":"msg"}
//
// Anything else, including non-JSON bodies, yields nil.
func ParseErrorList(body []byte) []string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}

	var envelope struct {
		Message   string            `json:"message"`
		PascalMsg string            `json:"Message"`
		Error     json.RawMessage   `json:"error"`
		Errors    []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	var details []string
	for _, raw := range envelope.Errors {
		if d := errorEntry(raw); d != "" {
			details = append(details, d)
		}
	}
	if len(details) > 0 {
		return details
	}

	switch {
	case envelope.Message != "":
		return []string{envelope.Message}
	case envelope.PascalMsg != "":
		return []string{envelope.PascalMsg}
	}
	if d := errorEntry(envelope.Error); d != "" {
		return []string{d}
	}
	return nil
}

func errorEntry(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Message == "" {
		return ""
	}
	if obj.Field != "" && !strings.Contains(obj.Message, obj.Field) {
		return obj.Field + ": " + obj.Message
	}
	return obj.Message
}
