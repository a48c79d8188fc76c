package vectorstore

// SearchResult represents a single similarity search hit.
type SearchResult struct {
	// ID is the document identifier.
	ID string

	// Content is the document text content.
	Content string

	// Metadata contains the document metadata, including the backend's
	// ranking signal ("distance", "score" or "similarity").
	Metadata map[string]interface{}
}
