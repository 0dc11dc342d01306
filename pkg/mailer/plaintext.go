package mailer

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	buttonSyntax  = regexp.MustCompile(`\[!button\|([^\]]*)\]\(([^)]*)\)`)
	linkSyntax    = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	headingPrefix = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
	ampersand     = regexp.MustCompile(`&(?:[A-Za-z][A-Za-z0-9]*;|#[0-9]+;|#[xX][0-9A-Fa-f]+;)?`)

	strictPolicy     *bluemonday.Policy
	strictPolicyOnce sync.Once
)

// PlainText turns processed markdown into a plain text body.
// Links become "label: url" and inline HTML is stripped. Every
// occurrence of a verbatim string comes out byte for byte.
func PlainText(markdown string, verbatim ...string) string {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})

	s := strings.ReplaceAll(markdown, "\r\n", "\n")
	for _, v := range verbatim {
		if v != "" {
			s = strings.ReplaceAll(s, v, html.EscapeString(v))
		}
	}
	// Only terminated entities are decoded; "&times" in a query string is text.
	s = ampersand.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
	s = buttonSyntax.ReplaceAllString(s, "$1: $2")
	s = linkSyntax.ReplaceAllString(s, "$1: $2")
	s = headingPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = blankLines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s) + "\n"
}
