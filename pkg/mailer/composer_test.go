package mailer_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/magiclink/pkg/mailer"
	"github.com/dmitrymomot/magiclink/pkg/verification"
)

const signInURL = "https://app.example.com/api/auth/callback/email?token=abc123&email=user%40example.com"

func newRequest() *verification.Request {
	return &verification.Request{
		Identifier: "user@example.com",
		URL:        signInURL,
		Expires:    time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC),
	}
}

func TestComposer_DefaultTemplate(t *testing.T) {
	t.Parallel()

	c := mailer.NewComposer(nil)
	content, err := c.Compose(context.Background(), newRequest())
	require.NoError(t, err)

	require.Equal(t, "Sign in to app.example.com", content.Subject)
	require.Contains(t, content.Text, signInURL)
	require.Contains(t, content.Text, "user@example.com")
	require.Contains(t, content.Text, "15:04 UTC on Jan 2")
	require.NotContains(t, content.Text, "<")

	require.Contains(t, content.HTML, "<title>Sign in to app.example.com</title>")
	require.Contains(t, content.HTML, `class="btn" target="_blank" rel="noopener">Sign in</a>`)
	require.Contains(t, content.HTML, "token=abc123&amp;email=user%40example.com")
	require.Contains(t, content.HTML, "#346df1")
}

func TestComposer_TextKeepsQueryVerbatim(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://app.example.com/callback?token=abc123&timestamp=1700000000",
		"https://app.example.com/callback?token=abc123&region=eu",
		"https://app.example.com/callback?token=abc123&param=1&notify=1",
		"https://app.example.com/callback?token=abc123&copy=1&sect=2&not=3",
	}

	c := mailer.NewComposer(nil)
	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			t.Parallel()

			req := newRequest()
			req.URL = u
			content, err := c.Compose(context.Background(), req)
			require.NoError(t, err)
			require.Contains(t, content.Text, "Sign in: "+u+"\n")
			require.Contains(t, content.Text, "\n"+u+"\n")
		})
	}
}

func TestComposer_Theme(t *testing.T) {
	t.Parallel()

	req := newRequest()
	req.Theme = verification.Theme{BrandColor: "#ff0000", ButtonText: "Log in"}

	content, err := mailer.NewComposer(nil).Compose(context.Background(), req)
	require.NoError(t, err)
	require.Contains(t, content.HTML, "#ff0000")
	require.Contains(t, content.HTML, ">Log in</a>")
}

func TestComposer_InvalidBrandColorFallsBack(t *testing.T) {
	t.Parallel()

	req := newRequest()
	req.Theme.BrandColor = "red;}</style><script>"

	content, err := mailer.NewComposer(nil).Compose(context.Background(), req)
	require.NoError(t, err)
	require.Contains(t, content.HTML, "#346df1")
	require.NotContains(t, content.HTML, "<script>")
}

func TestComposer_CustomFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"login.md": &fstest.MapFile{Data: []byte("Hi {{.Identifier}}, [!button|Go]({{.URL}})")},
		"layout.html": &fstest.MapFile{
			Data: []byte("<main>{{.Subject}}|{{.Content}}</main>"),
		},
	}

	c := mailer.NewComposer(fsys,
		mailer.WithTemplate("login.md"),
		mailer.WithLayout("layout.html"),
		mailer.WithFallbackSubject("Welcome back to {{.Host}}"),
	)

	content, err := c.Compose(context.Background(), newRequest())
	require.NoError(t, err)
	require.Equal(t, "Welcome back to app.example.com", content.Subject)
	require.Contains(t, content.HTML, "<main>Welcome back to app.example.com|")
	require.Contains(t, content.Text, "Go: "+signInURL)
}

func TestComposer_MissingFiles(t *testing.T) {
	t.Parallel()

	t.Run("template", func(t *testing.T) {
		t.Parallel()

		c := mailer.NewComposer(fstest.MapFS{}, mailer.WithTemplate("missing.md"))
		_, err := c.Compose(context.Background(), newRequest())
		require.ErrorIs(t, err, mailer.ErrTemplateNotFound)
	})

	t.Run("layout", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{"signin.md": &fstest.MapFile{Data: []byte("body")}}
		c := mailer.NewComposer(fsys, mailer.WithLayout("missing.html"))
		_, err := c.Compose(context.Background(), newRequest())
		require.ErrorIs(t, err, mailer.ErrLayoutNotFound)
	})
}

func TestComposer_BrokenTemplate(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"signin.md":         &fstest.MapFile{Data: []byte("{{.Unclosed")},
		"layouts/base.html": &fstest.MapFile{Data: []byte("{{.Content}}")},
	}

	_, err := mailer.NewComposer(fsys).Compose(context.Background(), newRequest())
	require.ErrorIs(t, err, mailer.ErrRenderFailed)
}

func TestComposer_BuildMessage(t *testing.T) {
	t.Parallel()

	cfg := verification.Config{
		Endpoint:  "https://api.example.com/send",
		APIKey:    "key",
		FromEmail: "auth@example.com",
	}
	msg, err := verification.BuildMessage(context.Background(), mailer.NewComposer(nil), cfg, newRequest())
	require.NoError(t, err)

	require.Equal(t, "user@example.com", msg.To)
	require.Equal(t, "Sign in to app.example.com", msg.Subject)
	require.Contains(t, msg.Text, signInURL)
	require.NotEmpty(t, msg.HTML)
	require.NotEmpty(t, msg.Headers["Expires"])
}

func TestComposer_Concurrent(t *testing.T) {
	t.Parallel()

	c := mailer.NewComposer(nil)
	errs := make(chan error, 16)
	for range 16 {
		go func() {
			_, err := c.Compose(context.Background(), newRequest())
			errs <- err
		}()
	}
	for range 16 {
		require.NoError(t, <-errs)
	}
}
