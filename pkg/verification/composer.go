package verification

import (
	"bytes"
	"context"
	"html/template"
	"regexp"
	"strings"
)

// Composer turns a Request into subject and body content.
type Composer interface {
	Compose(ctx context.Context, req *Request) (*Content, error)
}

// ComposerFunc adapts a function to the Composer interface.
type ComposerFunc func(ctx context.Context, req *Request) (*Content, error)

// Compose implements Composer.
func (f ComposerFunc) Compose(ctx context.Context, req *Request) (*Content, error) {
	return f(ctx, req)
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)

const (
	defaultBrandColor = "#346df1"
	defaultButtonText = "Sign in"
)

var defaultHTML = template.Must(template.New("signin").Parse(`<body style="background: #f9f9f9;">
  <table width="100%" border="0" cellspacing="20" cellpadding="0" style="background: #fff; max-width: 600px; margin: auto; border-radius: 10px;">
    <tr>
      <td align="center" style="padding: 10px 0px; font-size: 22px; font-family: Helvetica, Arial, sans-serif; color: #444;">
        Sign in to <strong>{{.Host}}</strong>
      </td>
    </tr>
    <tr>
      <td align="center" style="padding: 20px 0;">
        <a href="{{.URL}}" target="_blank" style="font-size: 18px; font-family: Helvetica, Arial, sans-serif; color: #fff; text-decoration: none; border-radius: 5px; padding: 10px 20px; border: 1px solid {{.Color}}; background: {{.Color}}; display: inline-block; font-weight: bold;">{{.Button}}</a>
      </td>
    </tr>
    <tr>
      <td align="center" style="padding: 0px 0px 10px 0px; font-size: 16px; line-height: 22px; font-family: Helvetica, Arial, sans-serif; color: #444;">
        If you did not request this email you can safely ignore it.
      </td>
    </tr>
  </table>
</body>`))

// DefaultComposer builds a short sign-in email with a text body that
// contains the link verbatim and an HTML body with an equivalent button.
type DefaultComposer struct {
	Subject string // Defaults to "Sign in to <host>"
}

// Compose implements Composer.
func (c DefaultComposer) Compose(_ context.Context, req *Request) (*Content, error) {
	host := req.Host()

	subject := c.Subject
	if subject == "" {
		subject = "Sign in"
		if host != "" {
			subject = "Sign in to " + host
		}
	}

	color := req.Theme.BrandColor
	if !hexColor.MatchString(color) {
		color = defaultBrandColor
	}
	button := req.Theme.ButtonText
	if button == "" {
		button = defaultButtonText
	}

	var html bytes.Buffer
	err := defaultHTML.Execute(&html, map[string]any{
		// Zero-width spaces keep mail clients from auto-linking the host.
		"Host":   template.HTML(strings.ReplaceAll(template.HTMLEscapeString(host), ".", "&#8203;.")),
		"URL":    req.URL,
		"Color":  template.CSS(color),
		"Button": button,
	})
	if err != nil {
		return nil, err
	}

	return &Content{
		Subject: subject,
		Text:    subject + "\n" + req.URL + "\n\n",
		HTML:    html.String(),
	}, nil
}
