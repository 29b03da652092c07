// Package readability implements synapse.Extractor with go-readability,
// keeping only the main article text of a page.
package readability

import (
	"bytes"

	"github.com/fwojciec/synapse"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements synapse.Extractor at compile time.
var _ synapse.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML.
type Extractor struct {
	converter synapse.Converter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConverter stores the article as Markdown produced by c instead of
// plain text.
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

// Extract processes raw HTML and returns the article title and text.
func (e *Extractor) Extract(body []byte) (*synapse.ExtractResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return synapse.NewExtractResult("", ""), nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), nil)
	if err != nil {
		return nil, synapse.Errorf(synapse.EPARSE, "readability: %w", err)
	}

	content := synapse.CollapseSpace(article.TextContent)
	if e.converter != nil && article.Content != "" {
		md, err := e.converter.Convert(article.Content)
		if err != nil {
			return nil, synapse.Errorf(synapse.EPARSE, "converting article: %w", err)
		}
		content = md
	}

	return synapse.NewExtractResult(article.Title, content), nil
}
