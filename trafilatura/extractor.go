// Package trafilatura implements synapse.Extractor with go-trafilatura.
package trafilatura

import (
	"bytes"

	"github.com/fwojciec/synapse"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements synapse.Extractor at compile time.
var _ synapse.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to extract main content from HTML.
type Extractor struct {
	converter synapse.Converter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConverter stores the main content as Markdown produced by c instead
// of plain text.
func WithConverter(c synapse.Converter) Option {
	return func(e *Extractor) {
		e.converter = c
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract processes raw HTML and returns the page title and main content.
func (e *Extractor) Extract(body []byte) (*synapse.ExtractResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return synapse.NewExtractResult("", ""), nil
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), opts)
	if err != nil {
		return nil, synapse.Errorf(synapse.EPARSE, "trafilatura: %w", err)
	}

	content := synapse.CollapseSpace(result.ContentText)
	if e.converter != nil && result.ContentNode != nil {
		contentHTML, err := renderNode(result.ContentNode)
		if err != nil {
			return nil, synapse.Errorf(synapse.EPARSE, "rendering content: %w", err)
		}
		if content, err = e.converter.Convert(contentHTML); err != nil {
			return nil, synapse.Errorf(synapse.EPARSE, "converting content: %w", err)
		}
	}

	return synapse.NewExtractResult(result.Metadata.Title, content), nil
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
