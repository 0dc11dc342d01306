// Package verification sends magic-link sign-in emails through HTTP email APIs.
//
// It replaces the SMTP step of an email sign-in provider: given the destination
// address and the sign-in link, it builds one message, posts it to a vendor's
// HTTP API and reports whether the vendor accepted it.
//
// # Architecture
//
//   - Dispatcher: single-method interface the host calls once per sign-in attempt
//   - HTTPDispatcher: generic implementation parameterised by a Vendor adapter
//   - Vendor: per-vendor payload shape, auth header and error format
//   - Composer: builds subject and bodies from a Request (DefaultComposer built in)
//   - Provider: the host hook holding the SendVerificationRequest override
//   - Middleware: caller-layered policies such as timeouts, logging and rate limits
//
// # Usage
//
//	import (
//		"github.com/dmitrymomot/magiclink/pkg/verification"
//		"github.com/dmitrymomot/magiclink/pkg/verification/sendgrid"
//	)
//
//	d := verification.Chain(
//		sendgrid.NewDispatcher(verification.Config{
//			APIKey:    os.Getenv("SENDGRID_API_KEY"),
//			FromEmail: "noreply@example.com",
//		}),
//		verification.WithLogging(logger),
//		verification.WithTimeout(10*time.Second),
//	)
//
//	provider := verification.NewProvider(verification.SendFuncOf(d))
//
//	err := provider.Send(ctx, &verification.Request{
//		Identifier: "user@example.com",
//		URL:        "https://app.example.com/callback?token=abc123",
//	})
//
// # Errors
//
// Every failure is returned to the caller; nothing is retried.
//
//   - ErrSerialization: the message could not be built; no request was made
//   - ErrNetwork: the HTTP call could not be completed
//   - ErrCanceled: ctx was canceled or timed out during the call
//   - ErrVendorRejected: non-2xx status; the error is a *VendorError whose
//     Details carry the vendor's error messages when the body was parseable
//   - ErrRateLimited: returned by WithRateLimit before the vendor is called
//   - ErrNoSender: Provider.Send without an override
package verification
