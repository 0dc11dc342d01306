// Package postmark adapts verification messages to the Postmark Email API.
package postmark

import (
	"maps"
	"net/http"
	"slices"

	"github.com/dmitrymomot/magiclink/pkg/verification"
)

const (
	// Name identifies the vendor.
	Name = "postmark"

	// DefaultEndpoint is the single-email endpoint.
	DefaultEndpoint = "https://api.postmarkapp.com/email"

	// DefaultMessageStream is Postmark's transactional stream.
	DefaultMessageStream = "outbound"

	tokenHeader = "X-Postmark-Server-Token"
)

type header struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type payload struct {
	From          string   `json:"From"`
	To            string   `json:"To"`
	Subject       string   `json:"Subject"`
	HTMLBody      string   `json:"HtmlBody,omitempty"`
	TextBody      string   `json:"TextBody,omitempty"`
	MessageStream string   `json:"MessageStream"`
	Tag           string   `json:"Tag,omitempty"`
	Headers       []header `json:"Headers,omitempty"`
}

// Vendor implements verification.Vendor for Postmark.
type Vendor struct {
	stream string
	tag    string
}

// Option configures the Postmark adapter.
type Option func(*Vendor)

// WithMessageStream selects the Postmark message stream. Default: "outbound".
func WithMessageStream(stream string) Option {
	return func(v *Vendor) {
		if stream != "" {
			v.stream = stream
		}
	}
}

// WithTag sets the Postmark tag on every message.
func WithTag(tag string) Option {
	return func(v *Vendor) {
		v.tag = tag
	}
}

// New creates a Postmark adapter.
func New(opts ...Option) *Vendor {
	v := &Vendor{stream: DefaultMessageStream}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewDispatcher creates a dispatcher that sends through Postmark.
func NewDispatcher(cfg verification.Config, opts ...verification.Option) *verification.HTTPDispatcher {
	return verification.New(New(), cfg, opts...)
}

// Name implements verification.Vendor.
func (v *Vendor) Name() string { return Name }

// DefaultEndpoint implements verification.Vendor.
func (v *Vendor) DefaultEndpoint() string { return DefaultEndpoint }

// Encode implements verification.Vendor.
func (v *Vendor) Encode(msg *verification.Message) ([]byte, error) {
	p := payload{
		From:          msg.From,
		To:            msg.To,
		Subject:       msg.Subject,
		HTMLBody:      msg.HTML,
		TextBody:      msg.Text,
		MessageStream: v.stream,
		Tag:           v.tag,
	}
	for _, name := range slices.Sorted(maps.Keys(msg.Headers)) {
		p.Headers = append(p.Headers, header{Name: name, Value: msg.Headers[name]})
	}
	return verification.EncodeJSON(p)
}

// Authorize implements verification.Vendor.
// Postmark authenticates with a server token header instead of a bearer token.
func (v *Vendor) Authorize(h http.Header, apiKey string) {
	h.Set(tokenHeader, apiKey)
}

// ParseError implements verification.Vendor.
// Postmark answers with {"ErrorCode":300,"Message":"..."}.
func (v *Vendor) ParseError(body []byte) []string {
	return verification.ParseErrorList(body)
}
