// Package content shapes message bodies for display and transport: HTML to
// plain text conversion, quoted-reply stripping for inbound email, quoted
// block construction for outbound replies, and preview truncation.
//
// The quoted-reply battery is heuristic by nature. False positives and
// negatives are acceptable; what matters is that identical input always
// produces identical output, so the steps run in a fixed order over the
// progressively shortened string.
package content

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	brRE         = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockCloseRE = regexp.MustCompile(`(?i)</(?:p|div)>`)
	tagRE        = regexp.MustCompile(`<[^>]+>`)
	manyBlankRE  = regexp.MustCompile(`\n{3,}`)

	// StrictPolicy drops every tag and attribute, leaving only text nodes.
	stripPolicy = bluemonday.StrictPolicy()
)

// LooksLikeHTML reports whether s appears to contain markup worth stripping.
func LooksLikeHTML(s string) bool { return tagRE.MatchString(s) }

// HTMLToPlainText converts an HTML body to readable plain text: line breaks
// and block closers become newlines, remaining tags are stripped, entities
// are decoded, and runs of three or more newlines collapse to two.
func HTMLToPlainText(s string) string {
	if s == "" {
		return ""
	}
	out := brRE.ReplaceAllString(s, "\n")
	out = blockCloseRE.ReplaceAllString(out, "\n")
	out = stripPolicy.Sanitize(out)
	out = html.UnescapeString(out)
	out = manyBlankRE.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// PlainTextToHTML escapes a plain-text body and turns newlines into <br>
// elements, for media that deliver HTML.
func PlainTextToHTML(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

// DisplayText picks the plain-text variant of a record body when present,
// strips markup from the HTML variant otherwise.
func DisplayText(textContent, htmlContent string) string {
	if strings.TrimSpace(textContent) != "" {
		if LooksLikeHTML(textContent) {
			return HTMLToPlainText(textContent)
		}
		return strings.TrimSpace(textContent)
	}
	return HTMLToPlainText(htmlContent)
}
