package synapse

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms HTML content into Markdown.
	// The input should be clean HTML (e.g., the main content of an article).
	Convert(html string) (string, error)
}
