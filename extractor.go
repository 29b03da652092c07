package synapse

import "strings"

// Sentinels substituted when a page has no title or no readable text.
const (
	NoTitle   = "No Title Found"
	NoContent = "No readable content found."
)

// ExtractResult holds the human-readable text extracted from a page.
type ExtractResult struct {
	Title   string
	Content string
}

// Extractor turns raw markup into a title and plain-text body.
type Extractor interface {
	// Extract is a pure function of its input. It returns EPARSE only when
	// the input cannot be parsed at all; missing parts are replaced by the
	// NoTitle and NoContent sentinels instead.
	Extract(body []byte) (*ExtractResult, error)
}

// NewExtractResult trims title and content and substitutes the sentinels
// for empty values.
func NewExtractResult(title, content string) *ExtractResult {
	title = strings.TrimSpace(title)
	if title == "" {
		title = NoTitle
	}
	content = strings.TrimSpace(content)
	if content == "" {
		content = NoContent
	}
	return &ExtractResult{Title: title, Content: content}
}

// CollapseSpace joins the whitespace-separated fields of s with single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
