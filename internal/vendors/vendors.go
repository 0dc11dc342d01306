// Package vendors turns configuration into a ready dispatcher.
package vendors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/dmitrymomot/magiclink/internal/config"
	"github.com/dmitrymomot/magiclink/pkg/mailer"
	"github.com/dmitrymomot/magiclink/pkg/metrics"
	"github.com/dmitrymomot/magiclink/pkg/verification"
	"github.com/dmitrymomot/magiclink/pkg/verification/postmark"
	"github.com/dmitrymomot/magiclink/pkg/verification/resend"
	"github.com/dmitrymomot/magiclink/pkg/verification/resendsdk"
	"github.com/dmitrymomot/magiclink/pkg/verification/sendgrid"
)

// BuiltinTemplates selects the embedded markdown templates when used as
// MAGICLINK_TEMPLATE_DIR.
const BuiltinTemplates = "builtin"

// ResendSDK selects the official Resend client instead of raw JSON.
const ResendSDK = "resend-sdk"

// ErrUnknownVendor is returned for an unsupported MAGICLINK_VENDOR.
var ErrUnknownVendor = errors.New("vendors: unknown vendor")

// Names lists the supported vendor names.
func Names() []string {
	return []string{sendgrid.Name, resend.Name, ResendSDK, postmark.Name}
}

// Composer picks the message composer for dir: empty selects the plain
// default, BuiltinTemplates the embedded markdown templates, anything else
// a template directory on disk.
func Composer(dir string) verification.Composer {
	switch dir {
	case "":
		return verification.DefaultComposer{}
	case BuiltinTemplates:
		return mailer.NewComposer(nil)
	default:
		return mailer.NewComposer(os.DirFS(dir))
	}
}

// New builds the dispatcher named by cfg.Vendor, without middleware.
func New(cfg *config.Config, client *http.Client, logger *slog.Logger) (verification.Dispatcher, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	composer := Composer(cfg.TemplateDir)
	name := strings.ToLower(strings.TrimSpace(cfg.Vendor))

	logger.Debug("building dispatcher",
		slog.String("vendor", name),
		slog.String("template_dir", cfg.TemplateDir),
	)

	opts := []verification.Option{
		verification.WithHTTPClient(client),
		verification.WithComposer(composer),
	}

	switch name {
	case sendgrid.Name:
		return sendgrid.NewDispatcher(cfg.Verification, opts...), nil
	case resend.Name:
		return resend.NewDispatcher(cfg.Verification, opts...), nil
	case postmark.Name:
		return postmark.NewDispatcher(cfg.Verification, opts...), nil
	case ResendSDK:
		return resendsdk.New(cfg.Verification,
			resendsdk.WithHTTPClient(client),
			resendsdk.WithComposer(composer),
		)
	}

	return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownVendor, cfg.Vendor, strings.Join(Names(), ", "))
}

// Supported reports whether name is a known vendor.
func Supported(name string) bool {
	return slices.Contains(Names(), strings.ToLower(strings.TrimSpace(name)))
}

// Deps are the collaborators Build layers around the vendor dispatcher.
// Nil fields are skipped.
type Deps struct {
	Client  *http.Client
	Logger  *slog.Logger
	Limiter verification.Limiter
	Metrics *metrics.Metrics
}

// Build returns the configured vendor dispatcher wrapped, outermost first,
// with logging, metrics, the per-identifier rate limit and the timeout.
func Build(cfg *config.Config, deps Deps) (verification.Dispatcher, error) {
	d, err := New(cfg, deps.Client, deps.Logger)
	if err != nil {
		return nil, err
	}

	mws := []verification.Middleware{verification.WithLogging(deps.Logger)}
	if deps.Metrics != nil {
		mws = append(mws, deps.Metrics.Dispatch())
	}
	mws = append(mws,
		verification.WithRateLimit(deps.Limiter),
		verification.WithTimeout(cfg.Timeout),
	)
	return verification.Chain(d, mws...), nil
}
