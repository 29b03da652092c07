package mock

import "github.com/fwojciec/synapse"

var (
	_ synapse.Extractor  = (*Extractor)(nil)
	_ synapse.Converter  = (*Converter)(nil)
	_ synapse.Classifier = (*Classifier)(nil)
)

// Extractor is a mock implementation of synapse.Extractor.
type Extractor struct {
	ExtractFn func(body []byte) (*synapse.ExtractResult, error)
}

func (e *Extractor) Extract(body []byte) (*synapse.ExtractResult, error) {
	return e.ExtractFn(body)
}

// Converter is a mock implementation of synapse.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

// Classifier is a mock implementation of synapse.Classifier.
type Classifier struct {
	ClassifyFn func(url string) synapse.ItemType
}

func (c *Classifier) Classify(url string) synapse.ItemType {
	return c.ClassifyFn(url)
}
