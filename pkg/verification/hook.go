package verification

import (
	"context"
	"time"
)

// DefaultMaxAge is how long a magic link stays valid when the host does not say.
const DefaultMaxAge = 24 * time.Hour

// SendFunc is the signature of the host's "send verification request" override.
type SendFunc func(ctx context.Context, req *Request) error

// SendFuncOf exposes a Dispatcher as a SendFunc.
func SendFuncOf(d Dispatcher) SendFunc {
	return d.Dispatch
}

// Provider mirrors the host authentication framework's email sign-in provider.
// The host calls Send once per sign-in attempt and waits for it to return.
type Provider struct {
	// SendVerificationRequest replaces the host's built-in SMTP step.
	SendVerificationRequest SendFunc

	now    func() time.Time
	ID     string
	Name   string
	MaxAge time.Duration
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderID sets the provider ID. Default: "email".
func WithProviderID(id string) ProviderOption {
	return func(p *Provider) {
		if id != "" {
			p.ID = id
		}
	}
}

// WithProviderName sets the display name. Default: "Email".
func WithProviderName(name string) ProviderOption {
	return func(p *Provider) {
		if name != "" {
			p.Name = name
		}
	}
}

// WithMaxAge sets the link lifetime used to fill Request.Expires.
// Default: DefaultMaxAge.
func WithMaxAge(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.MaxAge = d
		}
	}
}

// NewProvider creates an email provider whose send step is send.
func NewProvider(send SendFunc, opts ...ProviderOption) *Provider {
	p := &Provider{
		SendVerificationRequest: send,
		now:                     time.Now,
		ID:                      "email",
		Name:                    "Email",
		MaxAge:                  DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send delivers the verification request through the registered override.
// A zero Expires is filled from MaxAge on a copy; req itself is not modified.
func (p *Provider) Send(ctx context.Context, req *Request) error {
	if p.SendVerificationRequest == nil {
		return ErrNoSender
	}
	if req == nil {
		return p.SendVerificationRequest(ctx, nil)
	}

	r := *req
	if r.Expires.IsZero() {
		now := time.Now
		if p.now != nil {
			now = p.now
		}
		maxAge := p.MaxAge
		if maxAge <= 0 {
			maxAge = DefaultMaxAge
		}
		r.Expires = now().Add(maxAge)
	}
	return p.SendVerificationRequest(ctx, &r)
}
