// Package goquery implements synapse.Extractor on top of goquery. It keeps
// every visible text node of a page rather than guessing at the main
// content, so substring search sees everything the reader saw.
package goquery

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/synapse"
	"golang.org/x/net/html"
)

// Ensure Extractor implements synapse.Extractor at compile time.
var _ synapse.Extractor = (*Extractor)(nil)

// hiddenSelector matches elements whose text is never shown to the reader.
const hiddenSelector = "script, style"

// Extractor produces a title and the concatenated visible text of a page.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses body and returns the text of the first <title> element and
// every remaining text node joined by single spaces.
func (e *Extractor) Extract(body []byte) (*synapse.ExtractResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, synapse.Errorf(synapse.EPARSE, "failed to parse HTML: %w", err)
	}

	title := synapse.CollapseSpace(doc.Find("title").First().Text())

	doc.Find(hiddenSelector).Remove()

	var texts []string
	for _, n := range doc.Nodes {
		texts = appendText(texts, n)
	}

	return synapse.NewExtractResult(title, strings.Join(texts, " ")), nil
}

// appendText walks n depth-first and appends each non-blank text node,
// trimmed of surrounding whitespace. Comments and doctypes are skipped.
func appendText(texts []string, n *html.Node) []string {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			texts = append(texts, s)
		}
		return texts
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		texts = appendText(texts, c)
	}
	return texts
}
