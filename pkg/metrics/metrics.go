// Package metrics exports Prometheus collectors for verification dispatch
// and for the webhook's HTTP traffic.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/magiclink/pkg/verification"
)

// Dispatch outcomes used as the "outcome" label.
const (
	OutcomeSent          = "sent"
	OutcomeRejected      = "rejected"
	OutcomeNetwork       = "network"
	OutcomeCanceled      = "canceled"
	OutcomeSerialization = "serialization"
	OutcomeRateLimited   = "rate_limited"
	OutcomeError         = "error"
)

const namespace = "magiclink"

// Metrics holds the registered collectors.
type Metrics struct {
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	vendorStatus     *prometheus.CounterVec
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	inflight         prometheus.Gauge
	gatherer         prometheus.Gatherer
}

// New registers the collectors with reg. A nil reg gets a fresh registry,
// which is also what Handler serves.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Verification emails handed to a vendor, by outcome.",
		}, []string{"vendor", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one verification email.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"vendor"}),
		vendorStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_rejections_total",
			Help:      "Vendor rejections by HTTP status.",
		}, []string{"vendor", "status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "HTTP requests being served.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.dispatches, m.dispatchDuration, m.vendorStatus,
		m.requests, m.requestDuration, m.inflight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Dispatch records outcome and latency of every dispatch made through the
// returned middleware.
func (m *Metrics) Dispatch() verification.Middleware {
	return func(next verification.Dispatcher) verification.Dispatcher {
		vendor := verification.VendorName(next)
		return verification.Wrap(next, func(ctx context.Context, req *verification.Request) error {
			start := time.Now()
			err := next.Dispatch(ctx, req)
			m.dispatchDuration.WithLabelValues(vendor).Observe(time.Since(start).Seconds())
			m.dispatches.WithLabelValues(vendor, Outcome(err)).Inc()

			var verr *verification.VendorError
			if errors.As(err, &verr) && verr.StatusCode > 0 {
				m.vendorStatus.WithLabelValues(vendor, strconv.Itoa(verr.StatusCode)).Inc()
			}
			return err
		})
	}
}

// Outcome classifies a dispatch error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSent
	case errors.Is(err, verification.ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, verification.ErrSerialization):
		return OutcomeSerialization
	case errors.Is(err, verification.ErrVendorRejected):
		return OutcomeRejected
	case errors.Is(err, verification.ErrCanceled):
		return OutcomeCanceled
	case errors.Is(err, verification.ErrNetwork):
		return OutcomeNetwork
	default:
		return OutcomeError
	}
}

// HTTP instruments a chi router. Routes are labelled by pattern so path
// parameters do not explode cardinality; unmatched requests use "unmatched".
func (m *Metrics) HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inflight.Inc()
		defer m.inflight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
