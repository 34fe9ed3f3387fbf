// Package sanitize scrubs free-text inputs before they are stored or echoed
// back through the tool-call and HTTP surfaces.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptTagRe    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	jsProtocolRe   = regexp.MustCompile(`(?i)javascript:[^"']*`)
	eventHandlerRe = regexp.MustCompile(`(?i)on\w+\s*=\s*["'][^"']*["']`)
)

// Clean strips script tags, javascript: URIs, and inline event handlers,
// escapes the remaining markup, and trims surrounding whitespace.
func Clean(s string) string {
	s = scriptTagRe.ReplaceAllString(s, "")
	s = jsProtocolRe.ReplaceAllString(s, "")
	s = eventHandlerRe.ReplaceAllString(s, "")
	s = html.EscapeString(s)
	return strings.TrimSpace(s)
}
