package driven

import "context"

// Extractor produces searchable content tokens for files of specific
// declared types. Extraction is bounded: implementations must respect
// the byte and token budgets passed at construction and must not block
// past ctx cancellation.
type Extractor interface {
	// DeclaredTypes returns the declared types this extractor handles,
	// e.g. "text/plain" or "text/markdown".
	DeclaredTypes() []string

	// Extract reads the file at path and returns its content tokens:
	// lowercased, deduplicated-preserving-order, bounded in count.
	// Returns domain.ErrExtractionBudget wrapped when truncation was
	// forced by the budget and nothing useful was produced.
	Extract(ctx context.Context, path string) ([]string, error)
}

// ExtractorRegistry selects the extractor for a declared type.
// Registration happens once at startup; dispatch is a map lookup,
// not open-ended runtime discovery.
type ExtractorRegistry interface {
	// Register adds an extractor for all of its declared types.
	Register(e Extractor)

	// ExtractorFor returns the extractor for a declared type.
	// Returns domain.ErrUnsupportedType if none is registered.
	ExtractorFor(declaredType string) (Extractor, error)

	// Extract dispatches to the matching extractor.
	Extract(ctx context.Context, path, declaredType string) ([]string, error)
}
