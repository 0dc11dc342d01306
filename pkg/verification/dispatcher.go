package verification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxResponseBody caps how much of a vendor response is read.
const maxResponseBody = 64 << 10

// Dispatcher delivers one verification email per call.
// Implementations must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *Request) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, req *Request) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, req *Request) error {
	return f(ctx, req)
}

// Option configures an HTTPDispatcher.
type Option func(*HTTPDispatcher)

// WithHTTPClient sets the HTTP client used for vendor calls.
// Default: a client with no timeout; bound calls with ctx or WithTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(d *HTTPDispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithComposer replaces the built-in DefaultComposer.
func WithComposer(c Composer) Option {
	return func(d *HTTPDispatcher) {
		if c != nil {
			d.composer = c
		}
	}
}

// HTTPDispatcher sends verification emails through a vendor's HTTP API.
// It holds no mutable state; a single instance can serve concurrent sign-ins.
type HTTPDispatcher struct {
	vendor   Vendor
	client   *http.Client
	composer Composer
	config   Config
	endpoint string
}

// New creates a dispatcher for the given vendor adapter.
// Configuration problems are reported by Dispatch as ErrSerialization
// before any network activity.
func New(vendor Vendor, cfg Config, opts ...Option) *HTTPDispatcher {
	d := &HTTPDispatcher{
		vendor:   vendor,
		client:   &http.Client{},
		composer: DefaultComposer{},
		config:   cfg,
		endpoint: cfg.Endpoint,
	}
	if d.endpoint == "" && vendor != nil {
		d.endpoint = vendor.DefaultEndpoint()
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Vendor returns the vendor name, or an empty string when none is set.
func (d *HTTPDispatcher) Vendor() string {
	if d.vendor == nil {
		return ""
	}
	return d.vendor.Name()
}

// Dispatch builds the message for req, posts it to the vendor and reports the outcome.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, req *Request) error {
	msg, err := d.Message(ctx, req)
	if err != nil {
		return err
	}

	body, err := d.vendor.Encode(msg)
	if err != nil {
		return errors.Join(ErrSerialization, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Join(ErrSerialization, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	d.vendor.Authorize(httpReq.Header, d.config.APIKey)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ErrCanceled, ctxErr)
		}
		return errors.Join(ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	return &VendorError{
		Vendor:     d.vendor.Name(),
		StatusCode: resp.StatusCode,
		Details:    d.vendor.ParseError(payload),
	}
}

// Message validates the configuration and request and builds the outbound
// message without sending it.
func (d *HTTPDispatcher) Message(ctx context.Context, req *Request) (*Message, error) {
	if err := d.validate(); err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}
	return BuildMessage(ctx, d.composer, d.config, req)
}

func (d *HTTPDispatcher) validate() error {
	if d.vendor == nil {
		return ErrVendorNotSpecified
	}
	if d.config.APIKey == "" {
		return ErrMissingAPIKey
	}
	u, err := url.Parse(d.endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidEndpoint
	}
	return nil
}

// BuildMessage derives the single outbound message for req.
// Subject resolution: cfg.Subject > composer subject.
// All failures are joined with ErrSerialization.
func BuildMessage(ctx context.Context, composer Composer, cfg Config, req *Request) (*Message, error) {
	switch {
	case req == nil:
		return nil, errors.Join(ErrSerialization, ErrNilRequest)
	case req.Identifier == "":
		return nil, errors.Join(ErrSerialization, ErrMissingIdentifier)
	case req.URL == "":
		return nil, errors.Join(ErrSerialization, ErrMissingURL)
	case cfg.FromEmail == "":
		return nil, errors.Join(ErrSerialization, ErrMissingSender)
	}

	if composer == nil {
		composer = DefaultComposer{}
	}
	content, err := composer.Compose(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}

	subject := content.Subject
	if cfg.Subject != "" {
		subject = cfg.Subject
	}

	msg := &Message{
		To:      req.Identifier,
		From:    cfg.From(),
		Subject: subject,
		Text:    content.Text,
		HTML:    content.HTML,
	}
	if !req.Expires.IsZero() {
		msg.Headers = map[string]string{
			"Expires": req.Expires.UTC().Format(time.RFC1123Z),
		}
	}
	return msg, nil
}
