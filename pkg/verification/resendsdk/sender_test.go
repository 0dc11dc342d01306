package resendsdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/magiclink/pkg/verification"
)

func testConfig(endpoint string) verification.Config {
	return verification.Config{
		Endpoint:  endpoint,
		APIKey:    "re_test",
		FromEmail: "noreply@example.com",
		FromName:  "Example",
	}
}

func TestSender_Dispatch(t *testing.T) {
	t.Parallel()

	type capture struct {
		body map[string]any
		path string
		auth string
	}
	captured := make(chan capture, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c capture
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.body)
		c.path = r.URL.Path
		c.auth = r.Header.Get("Authorization")
		captured <- c

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	defer srv.Close()

	s, err := New(testConfig(srv.URL), WithTag("category", "magic_link"))
	require.NoError(t, err)
	require.Equal(t, "resend", s.Vendor())

	err = s.Dispatch(context.Background(), &verification.Request{
		Identifier: "user@example.com",
		URL:        "https://app.example.com/callback?token=abc123",
	})
	require.NoError(t, err)

	c := <-captured
	require.Equal(t, "/emails", c.path)
	require.Equal(t, "Bearer re_test", c.auth)
	require.Equal(t, []any{"user@example.com"}, c.body["to"])
	require.Equal(t, "Example <noreply@example.com>", c.body["from"])
	require.Contains(t, c.body["text"], "https://app.example.com/callback?token=abc123")
}

func TestSender_Dispatch_FailsFast(t *testing.T) {
	t.Parallel()

	cfg := testConfig("")
	cfg.FromEmail = ""
	s, err := New(cfg)
	require.NoError(t, err)

	err = s.Dispatch(context.Background(), &verification.Request{Identifier: "user@example.com", URL: "https://x.test"})
	require.ErrorIs(t, err, verification.ErrSerialization)
	require.ErrorIs(t, err, verification.ErrMissingSender)

	cfg = testConfig("")
	cfg.APIKey = ""
	s, err = New(cfg)
	require.NoError(t, err)

	err = s.Dispatch(context.Background(), &verification.Request{Identifier: "user@example.com", URL: "https://x.test"})
	require.ErrorIs(t, err, verification.ErrMissingAPIKey)
}

func TestNew_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(testConfig("not a url"))
	require.ErrorIs(t, err, verification.ErrInvalidEndpoint)
}

func TestToRequest(t *testing.T) {
	t.Parallel()

	req := toRequest(&verification.Message{
		To:      "user@example.com",
		From:    "Example <noreply@example.com>",
		Subject: "Sign in",
		Text:    "text",
		HTML:    "<p>html</p>",
		Headers: map[string]string{"Expires": "soon"},
	})

	require.Equal(t, []string{"user@example.com"}, req.To)
	require.Equal(t, "Example <noreply@example.com>", req.From)
	require.Equal(t, "Sign in", req.Subject)
	require.Equal(t, "text", req.Text)
	require.Equal(t, "<p>html</p>", req.Html)
	require.Equal(t, map[string]string{"Expires": "soon"}, req.Headers)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("vendor message", func(t *testing.T) {
		t.Parallel()

		err := classify(context.Background(), errors.New("[ERROR]: The from field is invalid."), nil)
		require.ErrorIs(t, err, verification.ErrVendorRejected)

		var vendorErr *verification.VendorError
		require.ErrorAs(t, err, &vendorErr)
		require.Equal(t, []string{"The from field is invalid."}, vendorErr.Details)
		require.Equal(t, "verification: resend rejected message: The from field is invalid.", err.Error())
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()

		err := classify(context.Background(), &url.Error{Op: "Post", URL: "https://api.resend.com/emails", Err: errors.New("connection refused")}, nil)
		require.ErrorIs(t, err, verification.ErrNetwork)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := classify(ctx, errors.New("anything"), nil)
		require.ErrorIs(t, err, verification.ErrCanceled)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSender_Dispatch_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantDetails []string
	}{
		{
			name:        "errors list",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"errors":["invalid from address"]}`,
			wantDetails: []string{"invalid from address"},
		},
		{
			name:        "resend message",
			status:      http.StatusUnprocessableEntity,
			contentType: "application/json",
			body:        `{"statusCode":422,"name":"validation_error","message":"Invalid from field"}`,
			wantDetails: []string{"Invalid from field"},
		},
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			contentType: "application/json",
			body:        `{"message":"Too many requests"}`,
			wantDetails: []string{"Too many requests"},
		},
		{
			name:        "bad gateway",
			status:      http.StatusBadGateway,
			contentType: "application/json",
			body:        `{"message":"upstream unavailable"}`,
			wantDetails: []string{"upstream unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			s, err := New(testConfig(srv.URL))
			require.NoError(t, err)

			err = s.Dispatch(context.Background(), &verification.Request{
				Identifier: "user@example.com",
				URL:        "https://app.example.com/callback?token=abc123",
			})
			require.ErrorIs(t, err, verification.ErrVendorRejected)
			require.NotErrorIs(t, err, verification.ErrNetwork)

			var vendorErr *verification.VendorError
			require.ErrorAs(t, err, &vendorErr)
			require.Equal(t, Name, vendorErr.Vendor)
			require.Equal(t, tt.status, vendorErr.StatusCode)
			require.Equal(t, tt.wantDetails, vendorErr.Details)
		})
	}
}

func TestClassify_RecordedResponse(t *testing.T) {
	t.Parallel()

	err := classify(context.Background(), errors.New("[ERROR]: 400 Bad Request"), &response{
		status: http.StatusBadRequest,
		body:   []byte(`{"errors":[{"message":"invalid from address","field":"from"}]}`),
	})

	var vendorErr *verification.VendorError
	require.ErrorAs(t, err, &vendorErr)
	require.Equal(t, http.StatusBadRequest, vendorErr.StatusCode)
	require.Len(t, vendorErr.Details, 1)
	require.Contains(t, vendorErr.Details[0], "invalid from address")

	err = classify(context.Background(), errors.New("[ERROR]: 502 Bad Gateway"), &response{status: http.StatusBadGateway, body: []byte("<html>")})
	require.ErrorAs(t, err, &vendorErr)
	require.Equal(t, http.StatusBadGateway, vendorErr.StatusCode)
	require.Equal(t, []string{"502 Bad Gateway"}, vendorErr.Details)
}
