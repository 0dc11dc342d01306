// Package mailer renders verification emails from markdown templates.
//
// A template is a markdown file with optional YAML frontmatter. The
// frontmatter "subject" key becomes the email subject; both subject and body
// are Go text templates executed against Data. The rendered markdown is
// converted to HTML with goldmark and wrapped in an HTML layout, while the
// plain text part is derived from the same markdown.
//
// # Buttons
//
// Call-to-action buttons use a custom link syntax:
//
//	[!button|Sign in]({{.URL}})
//
// which renders as an anchor with the "btn" class (see WithButtonClass).
//
// # Usage
//
//	composer := mailer.NewComposer(nil) // built-in template
//	d := sendgrid.NewDispatcher(cfg, verification.WithComposer(composer))
//
// Custom templates are loaded from any fs.FS:
//
//	composer := mailer.NewComposer(os.DirFS("./emails"),
//		mailer.WithTemplate("login.md"),
//		mailer.WithLayout("layouts/brand.html"),
//	)
//
// The layout receives .Subject, .BrandColor, .Host and .Content.
package mailer
