package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Middleware wraps a Dispatcher with a caller-chosen policy.
type Middleware func(next Dispatcher) Dispatcher

// Chain applies middlewares to d. The first middleware is the outermost.
func Chain(d Dispatcher, mws ...Middleware) Dispatcher {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			d = mws[i](d)
		}
	}
	return d
}

// VendorName returns the vendor behind d when d exposes one.
func VendorName(d Dispatcher) string {
	if v, ok := d.(interface{ Vendor() string }); ok {
		if name := v.Vendor(); name != "" {
			return name
		}
	}
	return "custom"
}

type wrapped struct {
	fn     DispatcherFunc
	vendor string
}

func (w wrapped) Dispatch(ctx context.Context, req *Request) error { return w.fn(ctx, req) }
func (w wrapped) Vendor() string                                   { return w.vendor }

// Wrap returns fn as a Dispatcher that reports the same vendor as next.
// Middlewares use it so that outer layers can still name the vendor.
func Wrap(next Dispatcher, fn DispatcherFunc) Dispatcher {
	return wrapped{fn: fn, vendor: VendorName(next)}
}

// WithTimeout bounds every dispatch with a deadline.
// Non-positive durations leave the dispatcher unchanged.
func WithTimeout(timeout time.Duration) Middleware {
	return func(next Dispatcher) Dispatcher {
		if timeout <= 0 {
			return next
		}
		return Wrap(next, func(ctx context.Context, req *Request) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next.Dispatch(ctx, req)
		})
	}
}

// WithLogging logs the outcome of every dispatch.
// Identifiers are masked; links and tokens are never logged.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return func(next Dispatcher) Dispatcher {
		vendor := VendorName(next)
		return Wrap(next, func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next.Dispatch(ctx, req)

			attrs := []any{
				slog.String("vendor", vendor),
				slog.Duration("duration", time.Since(start)),
			}
			if req != nil {
				attrs = append(attrs, slog.String("identifier", MaskIdentifier(req.Identifier)))
			}

			if err == nil {
				logger.InfoContext(ctx, "verification email sent", attrs...)
				return nil
			}

			attrs = append(attrs, slog.String("error", err.Error()))
			var vendorErr *VendorError
			if errors.As(err, &vendorErr) {
				attrs = append(attrs, slog.Int("status", vendorErr.StatusCode))
			}
			switch {
			case errors.Is(err, ErrRateLimited), errors.Is(err, ErrCanceled):
				logger.WarnContext(ctx, "verification email not sent", attrs...)
			default:
				logger.ErrorContext(ctx, "verification email failed", attrs...)
			}
			return err
		})
	}
}

// Limiter decides whether another message may go to key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// WithRateLimit rejects dispatches with ErrRateLimited once the limiter
// refuses the identifier. Limiter failures are returned and nothing is sent.
func WithRateLimit(limiter Limiter) Middleware {
	return func(next Dispatcher) Dispatcher {
		if limiter == nil {
			return next
		}
		return Wrap(next, func(ctx context.Context, req *Request) error {
			if req == nil || req.Identifier == "" {
				return next.Dispatch(ctx, req)
			}
			ok, err := limiter.Allow(ctx, strings.ToLower(strings.TrimSpace(req.Identifier)))
			if err != nil {
				return err
			}
			if !ok {
				return ErrRateLimited
			}
			return next.Dispatch(ctx, req)
		})
	}
}
