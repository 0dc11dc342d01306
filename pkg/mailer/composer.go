package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"regexp"
	"sync"
	texttemplate "text/template"
	"time"

	"github.com/yuin/goldmark"

	"github.com/dmitrymomot/magiclink/pkg/verification"
)

const (
	// DefaultTemplate is the sign-in template name inside DefaultFS.
	DefaultTemplate = "signin.md"

	// DefaultLayout is the HTML layout name inside DefaultFS.
	DefaultLayout = "layouts/base.html"

	defaultBrandColor = "#346df1"
	defaultButtonText = "Sign in"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)

// Composer renders verification emails from a markdown template with
// YAML frontmatter and an HTML layout. It implements verification.Composer.
//
// Parsed templates are cached after first use; rendering is safe for
// concurrent calls.
type Composer struct {
	fs       fs.FS
	md       goldmark.Markdown
	cached   *compiled
	template string
	layout   string
	subject  string
	mu       sync.RWMutex
}

// compiled holds the parsed template and layout for reuse.
type compiled struct {
	subject *texttemplate.Template
	body    *texttemplate.Template
	layout  *template.Template
}

// Option configures a Composer.
type Option func(*Composer)

// WithTemplate sets the markdown template path. Default: DefaultTemplate.
func WithTemplate(name string) Option {
	return func(c *Composer) {
		if name != "" {
			c.template = name
		}
	}
}

// WithLayout sets the HTML layout path. Default: DefaultLayout.
func WithLayout(name string) Option {
	return func(c *Composer) {
		if name != "" {
			c.layout = name
		}
	}
}

// WithFallbackSubject is used when the template has no subject.
// It may contain template actions. Default: "Sign in to {{.Host}}".
func WithFallbackSubject(subject string) Option {
	return func(c *Composer) {
		if subject != "" {
			c.subject = subject
		}
	}
}

// NewComposer creates a composer reading templates from fsys.
// A nil fsys selects DefaultFS.
func NewComposer(fsys fs.FS, opts ...Option) *Composer {
	if fsys == nil {
		fsys = DefaultFS
	}

	c := &Composer{
		fs:       fsys,
		template: DefaultTemplate,
		layout:   DefaultLayout,
		subject:  "Sign in to {{.Host}}",
		md: goldmark.New(
			goldmark.WithExtensions(NewButtonExtension()),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Data is what templates see.
type Data struct {
	Expires    time.Time
	Identifier string
	URL        string
	Host       string
	ButtonText string
	BrandColor string
}

func newData(req *verification.Request) Data {
	d := Data{
		Expires:    req.Expires,
		Identifier: req.Identifier,
		URL:        req.URL,
		Host:       req.Host(),
		ButtonText: req.Theme.ButtonText,
		BrandColor: req.Theme.BrandColor,
	}
	if d.ButtonText == "" {
		d.ButtonText = defaultButtonText
	}
	if !hexColor.MatchString(d.BrandColor) {
		d.BrandColor = defaultBrandColor
	}
	return d
}

// Compose implements verification.Composer.
func (c *Composer) Compose(_ context.Context, req *verification.Request) (*verification.Content, error) {
	tmpl, err := c.load()
	if err != nil {
		return nil, err
	}

	data := newData(req)

	var subject bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("%w: subject: %v", ErrRenderFailed, err)
	}

	var markdown bytes.Buffer
	if err := tmpl.body.Execute(&markdown, data); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrRenderFailed, err)
	}

	var content bytes.Buffer
	if err := c.md.Convert(markdown.Bytes(), &content); err != nil {
		return nil, fmt.Errorf("%w: markdown: %v", ErrRenderFailed, err)
	}

	var page bytes.Buffer
	err = tmpl.layout.Execute(&page, map[string]any{
		"Content":    template.HTML(content.String()),
		"Subject":    subject.String(),
		"BrandColor": template.CSS(data.BrandColor),
		"Host":       data.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: layout: %v", ErrRenderFailed, err)
	}

	return &verification.Content{
		Subject: subject.String(),
		Text:    PlainText(markdown.String(), data.URL),
		HTML:    page.String(),
	}, nil
}

// load returns the compiled template, parsing it on first use.
func (c *Composer) load() (*compiled, error) {
	c.mu.RLock()
	if c.cached != nil {
		defer c.mu.RUnlock()
		return c.cached, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.cached != nil {
		return c.cached, nil
	}

	raw, err := fs.ReadFile(c.fs, c.template)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, c.template, err)
	}
	parsed, err := ParseTemplate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, c.template, err)
	}

	subjectSrc := parsed.Subject
	if subjectSrc == "" {
		subjectSrc = c.subject
	}
	subject, err := texttemplate.New("subject").Parse(subjectSrc)
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %v", ErrRenderFailed, err)
	}
	body, err := texttemplate.New(path.Base(c.template)).Parse(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrRenderFailed, err)
	}

	rawLayout, err := fs.ReadFile(c.fs, c.layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, c.layout, err)
	}
	layout, err := template.New(path.Base(c.layout)).Parse(string(rawLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: layout: %v", ErrRenderFailed, err)
	}

	c.cached = &compiled{subject: subject, body: body, layout: layout}
	return c.cached, nil
}
