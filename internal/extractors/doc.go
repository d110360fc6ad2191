// Package extractors provides content extractors and the registry that
// dispatches files to them by declared type.
//
// Extractors turn file content into bounded sequences of searchable
// tokens. Each extractor handles specific declared types (derived from
// the file extension); the registry resolves the extractor once per
// file, at indexing time. Registration happens at startup, so dispatch
// is a plain map lookup.
//
// Extraction is budgeted: at most MaxBytes are read from any file and
// at most MaxTokens tokens are kept, so a pathological file cannot
// stall indexing.
package extractors
