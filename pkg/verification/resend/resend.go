// Package resend adapts verification messages to the Resend HTTP API.
package resend

import (
	"net/http"

	"github.com/dmitrymomot/magiclink/pkg/verification"
)

const (
	// Name identifies the vendor.
	Name = "resend"

	// DefaultEndpoint is the Resend send-email endpoint.
	DefaultEndpoint = "https://api.resend.com/emails"
)

type tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type payload struct {
	Headers map[string]string `json:"headers,omitempty"`
	From    string            `json:"from"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	To      []string          `json:"to"`
	Tags    []tag             `json:"tags,omitempty"`
}

// Vendor implements verification.Vendor for Resend.
type Vendor struct {
	tags []tag
}

// Option configures the Resend adapter.
type Option func(*Vendor)

// WithTag attaches a name/value tag to every message.
func WithTag(name, value string) Option {
	return func(v *Vendor) {
		v.tags = append(v.tags, tag{Name: name, Value: value})
	}
}

// New creates a Resend adapter.
func New(opts ...Option) *Vendor {
	v := &Vendor{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewDispatcher creates a dispatcher that sends through Resend.
func NewDispatcher(cfg verification.Config, opts ...verification.Option) *verification.HTTPDispatcher {
	return verification.New(New(), cfg, opts...)
}

// Name implements verification.Vendor.
func (v *Vendor) Name() string { return Name }

// DefaultEndpoint implements verification.Vendor.
func (v *Vendor) DefaultEndpoint() string { return DefaultEndpoint }

// Encode implements verification.Vendor.
func (v *Vendor) Encode(msg *verification.Message) ([]byte, error) {
	return verification.EncodeJSON(payload{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		Headers: msg.Headers,
		Tags:    v.tags,
	})
}

// Authorize implements verification.Vendor.
func (v *Vendor) Authorize(h http.Header, apiKey string) {
	verification.BearerAuth(h, apiKey)
}

// ParseError implements verification.Vendor.
// Resend answers with {"statusCode":422,"name":"...","message":"..."}.
func (v *Vendor) ParseError(body []byte) []string {
	return verification.ParseErrorList(body)
}
