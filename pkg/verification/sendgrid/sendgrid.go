// Package sendgrid adapts verification messages to the SendGrid v3 Mail Send API.
package sendgrid

import (
	"net/http"

	"github.com/dmitrymomot/magiclink/pkg/verification"
)

const (
	// Name identifies the vendor.
	Name = "sendgrid"

	// DefaultEndpoint is the v3 Mail Send endpoint.
	DefaultEndpoint = "https://api.sendgrid.com/v3/mail/send"
)

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type payload struct {
	Headers          map[string]string `json:"headers,omitempty"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Personalizations []personalization `json:"personalizations"`
	Content          []content         `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
}

// Vendor implements verification.Vendor for SendGrid.
type Vendor struct {
	categories []string
}

// Option configures the SendGrid adapter.
type Option func(*Vendor)

// WithCategories tags every message with SendGrid categories.
func WithCategories(categories ...string) Option {
	return func(v *Vendor) {
		v.categories = append(v.categories, categories...)
	}
}

// New creates a SendGrid adapter.
func New(opts ...Option) *Vendor {
	v := &Vendor{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewDispatcher creates a dispatcher that sends through SendGrid.
func NewDispatcher(cfg verification.Config, opts ...verification.Option) *verification.HTTPDispatcher {
	return verification.New(New(), cfg, opts...)
}

// Name implements verification.Vendor.
func (v *Vendor) Name() string { return Name }

// DefaultEndpoint implements verification.Vendor.
func (v *Vendor) DefaultEndpoint() string { return DefaultEndpoint }

// Encode implements verification.Vendor.
// Plain text goes first: SendGrid requires text/plain before text/html.
func (v *Vendor) Encode(msg *verification.Message) ([]byte, error) {
	fromName, fromEmail := verification.SplitAddress(msg.From)

	p := payload{
		Personalizations: []personalization{{To: []address{{Email: msg.To}}}},
		From:             address{Email: fromEmail, Name: fromName},
		Subject:          msg.Subject,
		Headers:          msg.Headers,
		Categories:       v.categories,
	}
	if msg.Text != "" {
		p.Content = append(p.Content, content{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		p.Content = append(p.Content, content{Type: "text/html", Value: msg.HTML})
	}

	return verification.EncodeJSON(p)
}

// Authorize implements verification.Vendor.
func (v *Vendor) Authorize(h http.Header, apiKey string) {
	verification.BearerAuth(h, apiKey)
}

// ParseError implements verification.Vendor.
// SendGrid answers with {"errors":[{"message":"...","field":"..."}]}.
func (v *Vendor) ParseError(body []byte) []string {
	return verification.ParseErrorList(body)
}
