package verification

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Request is a single pending sign-in attempt awaiting email delivery.
// It is owned by the caller; the dispatcher never mutates it.
type Request struct {
	Expires    time.Time // Link expiry, informational
	Theme      Theme     // Optional branding for the HTML body
	Identifier string    // Destination address
	URL        string    // Absolute sign-in link
	Token      string    // Raw token embedded in URL, informational
}

// Theme carries optional branding hints for composers.
type Theme struct {
	BrandColor string
	ButtonText string
}

// Host returns the host part of the sign-in link, or an empty string
// when the link cannot be parsed.
func (r *Request) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Message is the vendor-neutral email derived from exactly one Request.
type Message struct {
	Headers map[string]string // Custom email headers
	To      string            // Recipient address
	From    string            // Sender, "Name <addr>" or "addr"
	Subject string
	Text    string // Plain text body
	HTML    string // HTML body, optional
}

// Content is what a Composer produces: subject and body representations.
type Content struct {
	Subject string
	Text    string
	HTML    string
}

// FormatAddress formats a name and address into RFC 5322 form.
// Returns "Name <addr>" if name is provided, otherwise just addr.
func FormatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

// SplitAddress reverses FormatAddress.
func SplitAddress(s string) (name, addr string) {
	s = strings.TrimSpace(s)
	open := strings.LastIndex(s, "<")
	if open == -1 || !strings.HasSuffix(s, ">") {
		return "", s
	}
	return strings.TrimSpace(s[:open]), strings.TrimSpace(s[open+1 : len(s)-1])
}

// MaskIdentifier hides most of the local part of an address for logging.
func MaskIdentifier(identifier string) string {
	local, domain, ok := strings.Cut(identifier, "@")
	if !ok {
		if utf8.RuneCountInString(identifier) <= 2 {
			return "***"
		}
		return firstRune(identifier) + "***"
	}
	if local == "" {
		return "***@" + domain
	}
	return firstRune(local) + "***@" + domain
}

func firstRune(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[:size]
}
