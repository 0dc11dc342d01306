package vendors_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/magiclink/internal/config"
	"github.com/dmitrymomot/magiclink/internal/vendors"
	"github.com/dmitrymomot/magiclink/pkg/mailer"
	"github.com/dmitrymomot/magiclink/pkg/metrics"
	"github.com/dmitrymomot/magiclink/pkg/ratelimit"
	"github.com/dmitrymomot/magiclink/pkg/verification"
)

type hit struct {
	path     string
	auth     string
	postmark string
	body     string
}

func fakeVendor(t *testing.T, status int) (*httptest.Server, <-chan hit) {
	t.Helper()

	hits := make(chan hit, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hits <- hit{
			path:     r.URL.Path,
			auth:     r.Header.Get("Authorization"),
			postmark: r.Header.Get("X-Postmark-Server-Token"),
			body:     string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func newConfig(vendor, endpoint string) *config.Config {
	return &config.Config{
		Vendor: vendor,
		Verification: verification.Config{
			Endpoint:  endpoint,
			APIKey:    "key-123",
			FromEmail: "auth@example.com",
		},
	}
}

func request() *verification.Request {
	return &verification.Request{
		Identifier: "user@example.com",
		URL:        "https://app.example.com/api/auth/callback/email?token=abc",
	}
}

func TestNew_Vendors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		vendor   string
		path     string
		status   int
		authed   func(h hit) bool
		endpoint func(base string) string
	}{
		{
			vendor:   "sendgrid",
			path:     "/v3/mail/send",
			status:   http.StatusAccepted,
			authed:   func(h hit) bool { return h.auth == "Bearer key-123" },
			endpoint: func(base string) string { return base + "/v3/mail/send" },
		},
		{
			vendor:   "resend",
			path:     "/emails",
			status:   http.StatusOK,
			authed:   func(h hit) bool { return h.auth == "Bearer key-123" },
			endpoint: func(base string) string { return base + "/emails" },
		},
		{
			vendor:   "resend-sdk",
			path:     "/emails",
			status:   http.StatusOK,
			authed:   func(h hit) bool { return h.auth == "Bearer key-123" },
			endpoint: func(base string) string { return base },
		},
		{
			vendor:   "Postmark",
			path:     "/email",
			status:   http.StatusOK,
			authed:   func(h hit) bool { return h.postmark == "key-123" },
			endpoint: func(base string) string { return base + "/email" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			t.Parallel()

			srv, hits := fakeVendor(t, tt.status)
			d, err := vendors.New(newConfig(tt.vendor, tt.endpoint(srv.URL)), srv.Client(), nil)
			require.NoError(t, err)
			require.True(t, vendors.Supported(tt.vendor))

			require.NoError(t, d.Dispatch(context.Background(), request()))

			h := <-hits
			require.Equal(t, tt.path, h.path)
			require.True(t, tt.authed(h), "auth header missing")
			require.Contains(t, h.body, "user@example.com")
			require.Contains(t, h.body, "https://app.example.com/api/auth/callback/email?token=abc")
		})
	}
}

func TestNew_UnknownVendor(t *testing.T) {
	t.Parallel()

	_, err := vendors.New(newConfig("mailgun", ""), nil, nil)
	require.ErrorIs(t, err, vendors.ErrUnknownVendor)
	require.ErrorContains(t, err, "sendgrid, resend, resend-sdk, postmark")
	require.False(t, vendors.Supported("mailgun"))
}

func TestComposer(t *testing.T) {
	t.Parallel()

	require.IsType(t, verification.DefaultComposer{}, vendors.Composer(""))
	require.IsType(t, &mailer.Composer{}, vendors.Composer(vendors.BuiltinTemplates))

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "layouts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signin.md"),
		[]byte("---\nsubject: Hello from disk\n---\n[!button|Go]({{.URL}})"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layouts", "base.html"),
		[]byte("<div>{{.Content}}</div>"), 0o600))

	content, err := vendors.Composer(dir).Compose(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, "Hello from disk", content.Subject)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	srv, hits := fakeVendor(t, http.StatusAccepted)
	cfg := newConfig("sendgrid", srv.URL)
	cfg.Timeout = 5 * time.Second

	limiter, err := ratelimit.NewMemory(ratelimit.Config{Limit: 1, Window: time.Minute})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	d, err := vendors.Build(cfg, vendors.Deps{Client: srv.Client(), Limiter: limiter, Metrics: m})
	require.NoError(t, err)
	require.Equal(t, "sendgrid", verification.VendorName(d))

	require.NoError(t, d.Dispatch(context.Background(), request()))
	require.ErrorIs(t, d.Dispatch(context.Background(), request()), verification.ErrRateLimited)

	require.Len(t, hits, 1, "rate-limited dispatch must not reach the vendor")
	count, err := testutil.GatherAndCount(reg, "magiclink_dispatches_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
