package mailer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
)

func convert(t *testing.T, source string, opts ...ButtonOption) string {
	t.Helper()

	md := goldmark.New(goldmark.WithExtensions(NewButtonExtension(opts...)))
	var buf bytes.Buffer
	require.NoError(t, md.Convert([]byte(source), &buf))
	return buf.String()
}

func TestButtonExtension_RendersButton(t *testing.T) {
	t.Parallel()

	out := convert(t, `[!button|Sign in](https://app.example.com/callback?token=abc123&next=%2F)`)
	require.Contains(t, out,
		`<a href="https://app.example.com/callback?token=abc123&amp;next=%2F" class="btn" target="_blank" rel="noopener">Sign in</a>`)
}

func TestButtonExtension_CustomClass(t *testing.T) {
	t.Parallel()

	out := convert(t, `[!button|Go](https://example.com)`, WithButtonClass("cta"))
	require.Contains(t, out, `class="cta"`)
}

func TestButtonExtension_SurroundingMarkdown(t *testing.T) {
	t.Parallel()

	out := convert(t, "# Sign in\n\nClick below:\n\n[!button|Sign in](https://example.com/cb)\n\nThanks!")
	require.Contains(t, out, "<h1>Sign in</h1>")
	require.Contains(t, out, `href="https://example.com/cb"`)
	require.Contains(t, out, "<p>Thanks!</p>")
}

func TestButtonExtension_EscapesLabel(t *testing.T) {
	t.Parallel()

	out := convert(t, `[!button|<script>alert(1)</script>](https://example.com)`)
	require.NotContains(t, out, "<script>")
}

func TestButtonExtension_DropsDangerousURL(t *testing.T) {
	t.Parallel()

	out := convert(t, `[!button|Click](javascript:alert)`)
	require.Contains(t, out, `<a href="" class="btn"`)
	require.NotContains(t, out, "javascript:")
}

func TestButtonExtension_IgnoresNonButtons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
	}{
		{name: "regular link", source: `[Regular](https://example.com)`},
		{name: "missing url", source: `[!button|Click Me]`},
		{name: "missing closing bracket", source: `[!button|Click Me(https://example.com)`},
		{name: "missing closing paren", source: `[!button|Click Me](https://example.com`},
		{name: "wrong prefix", source: `[button|Click Me](https://example.com)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.NotContains(t, convert(t, tt.source), `class="btn"`)
		})
	}
}

func TestButtonExtension_MultipleButtons(t *testing.T) {
	t.Parallel()

	out := convert(t, "[!button|Sign in](https://example.com/a) [!button|Cancel](https://example.com/b)")
	require.Contains(t, out, `href="https://example.com/a"`)
	require.Contains(t, out, `href="https://example.com/b"`)
}
