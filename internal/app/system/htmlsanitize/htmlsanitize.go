// Package htmlsanitize cleans the rich-text fields loaded into admission
// conditions before they are stored.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func contentPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "sub", "sup", "mark", "hr", "br")
		p.AllowAttrs("class", "style").OnElements("table", "thead", "tbody", "tr", "th", "td")
		p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
		p.AllowStyling()
		policy = p
	})
	return policy
}

// Sanitize strips scripts, event handlers, unsafe URLs and form elements
// while keeping formatting, lists, tables, links and images.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return contentPolicy().Sanitize(s)
}

// IsPlainText reports whether s contains no HTML tag.
func IsPlainText(s string) bool {
	open := strings.Index(s, "<")
	if open < 0 {
		return true
	}
	return !strings.Contains(s[open:], ">")
}

// PlainTextToHTML escapes s and wraps it in a paragraph, turning newlines
// into <br>.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// ForStorage returns the stored form of an imported text: plain text is
// converted to HTML, HTML is sanitized. Surrounding whitespace is dropped.
func ForStorage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return PlainTextToHTML(s)
	}
	return Sanitize(s)
}
