// Package resendsdk implements verification.Dispatcher on top of the official
// Resend Go SDK. Use it instead of the resend adapter when you prefer the
// SDK's client over the generic HTTP dispatcher.
package resendsdk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/magiclink/pkg/verification"
)

// Name identifies the vendor.
const Name = "resend"

// Sender implements verification.Dispatcher using the Resend SDK.
type Sender struct {
	client   *resend.Client
	composer verification.Composer
	config   verification.Config
	tags     []resend.Tag
}

// Option configures a Sender.
type Option func(*options)

type options struct {
	httpClient *http.Client
	composer   verification.Composer
	tags       []resend.Tag
}

// WithHTTPClient sets the HTTP client the SDK uses.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithComposer replaces verification.DefaultComposer.
func WithComposer(c verification.Composer) Option {
	return func(o *options) {
		o.composer = c
	}
}

// WithTag attaches a name/value tag to every message.
func WithTag(name, value string) Option {
	return func(o *options) {
		o.tags = append(o.tags, resend.Tag{Name: name, Value: value})
	}
}

// New creates a Resend SDK sender.
// cfg.Endpoint, when set, replaces the SDK's base URL (e.g. "https://api.resend.com/").
func New(cfg verification.Config, opts ...Option) (*Sender, error) {
	o := &options{httpClient: &http.Client{}, composer: verification.DefaultComposer{}}
	for _, opt := range opts {
		opt(o)
	}

	hc := *o.httpClient
	hc.Transport = recordingTransport{base: hc.Transport}

	client := resend.NewCustomClient(&hc, cfg.APIKey)
	if cfg.Endpoint != "" {
		base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/") + "/")
		if err != nil || base.Host == "" {
			return nil, errors.Join(verification.ErrSerialization, verification.ErrInvalidEndpoint)
		}
		client.BaseURL = base
	}

	return &Sender{
		client:   client,
		composer: o.composer,
		config:   cfg,
		tags:     o.tags,
	}, nil
}

// Vendor returns the vendor name for logs and metrics.
func (s *Sender) Vendor() string { return Name }

// Dispatch implements verification.Dispatcher.
func (s *Sender) Dispatch(ctx context.Context, req *verification.Request) error {
	if s.config.APIKey == "" {
		return errors.Join(verification.ErrSerialization, verification.ErrMissingAPIKey)
	}

	msg, err := verification.BuildMessage(ctx, s.composer, s.config, req)
	if err != nil {
		return err
	}

	params := toRequest(msg)
	params.Tags = s.tags

	rec := &response{}
	if _, err := s.client.Emails.SendWithContext(withResponse(ctx, rec), params); err != nil {
		// An undecodable 2xx body still means the vendor accepted the message.
		if rec.status >= 200 && rec.status < 300 {
			return nil
		}
		return classify(ctx, err, rec)
	}
	return nil
}

func toRequest(msg *verification.Message) *resend.SendEmailRequest {
	return &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Headers: msg.Headers,
	}
}

// maxErrorBody caps how much of a rejection body is kept for details.
const maxErrorBody = 64 << 10

// response holds what the SDK hides from its errors: the status code and,
// for rejections, the raw body.
type response struct {
	status int
	body   []byte
}

type responseKey struct{}

func withResponse(ctx context.Context, rec *response) context.Context {
	return context.WithValue(ctx, responseKey{}, rec)
}

// recordingTransport fills the *response carried by the request context.
// The body is buffered and replayed so the SDK still decodes it.
type recordingTransport struct {
	base http.RoundTripper
}

func (t recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	rec, ok := req.Context().Value(responseKey{}).(*response)
	if !ok {
		return resp, nil
	}
	rec.status = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	rec.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// classify maps SDK errors onto the verification error taxonomy.
// The SDK reports vendor rejections as plain errors carrying the API message,
// so status and details come from the recorded response when there is one.
func classify(ctx context.Context, err error, rec *response) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(verification.ErrCanceled, ctxErr)
	}

	if rec == nil || rec.status == 0 {
		var urlErr *url.Error
		var netErr net.Error
		if errors.As(err, &urlErr) || errors.As(err, &netErr) {
			return errors.Join(verification.ErrNetwork, err)
		}
	}

	vendorErr := &verification.VendorError{Vendor: Name}
	if rec != nil {
		vendorErr.StatusCode = rec.status
		vendorErr.Details = verification.ParseErrorList(rec.body)
	}
	if len(vendorErr.Details) == 0 {
		if detail := strings.TrimSpace(strings.TrimPrefix(err.Error(), "[ERROR]:")); detail != "" {
			vendorErr.Details = []string{detail}
		}
	}
	return vendorErr
}
