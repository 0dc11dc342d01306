package mailer

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontmatterDelimiter = []byte("---")

// Template is a parsed sign-in email template: YAML frontmatter plus a markdown body.
type Template struct {
	Metadata map[string]any
	Subject  string // From the "subject" key, case-insensitive; may contain {{.Field}} actions
	Body     string
}

// ParseTemplate splits template content into frontmatter metadata and markdown body.
// Content without a leading "---" line is treated as body only.
func ParseTemplate(content []byte) (*Template, error) {
	if !bytes.HasPrefix(content, frontmatterDelimiter) {
		return &Template{Metadata: map[string]any{}, Body: string(content)}, nil
	}

	rest := bytes.TrimLeft(bytes.TrimPrefix(content, frontmatterDelimiter), "\r\n")
	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: no content after opening delimiter", ErrInvalidFrontmatter)
	}

	end := bytes.Index(rest, frontmatterDelimiter)
	if end == -1 {
		return nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	meta := map[string]any{}
	if raw := rest[:end]; len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}

	body := rest[end+len(frontmatterDelimiter):]
	switch {
	case bytes.HasPrefix(body, []byte("\r\n")):
		body = body[2:]
	case bytes.HasPrefix(body, []byte("\n")):
		body = body[1:]
	}

	return &Template{
		Metadata: meta,
		Subject:  subjectOf(meta),
		Body:     string(body),
	}, nil
}

func subjectOf(meta map[string]any) string {
	for key, value := range meta {
		if !strings.EqualFold(key, "subject") {
			continue
		}
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}
