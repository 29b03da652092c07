package synapse

// Classifier maps a captured URL to an item type.
type Classifier interface {
	// Classify returns ItemTypeArticle, ItemTypeVideo or ItemTypeProduct.
	// It never fails.
	Classify(url string) ItemType
}

// ClassificationRule assigns Type to any URL containing one of Patterns.
type ClassificationRule struct {
	Type     ItemType
	Patterns []string
}

// DefaultClassificationRules lists the rules in evaluation order. The first
// matching rule wins; URLs matching no rule are articles.
func DefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		{Type: ItemTypeVideo, Patterns: []string{"youtube.com", "vimeo.com"}},
		{Type: ItemTypeProduct, Patterns: []string{"amazon.com", "ebay.com", "flipkart.com"}},
	}
}
