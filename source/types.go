// Package source holds the document model shared by the source parsers and
// the loaders that turn documents into facts.
package source

// Document is a parsed text document.
type Document struct {
	// Path is the file path the document was read from.
	Path string `json:"path"`

	// Content is the raw document content.
	Content string `json:"content"`

	// Frontmatter contains parsed YAML frontmatter if present.
	Frontmatter map[string]any `json:"frontmatter,omitempty"`

	// Body is the content without frontmatter.
	Body string `json:"body"`
}

// HasFrontmatter returns true if the document has non-empty frontmatter.
func (d *Document) HasFrontmatter() bool {
	return len(d.Frontmatter) > 0
}
