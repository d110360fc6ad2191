package domain

import "time"

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results. Zero means the default.
	Limit int

	// Offset is the number of ordered results to skip.
	Offset int
}

// SearchResult represents a single ranked query hit.
type SearchResult struct {
	// Entry is the matched entry.
	Entry Entry

	// Score is the relevance score. Exact tag and name matches rank
	// above content-token matches; shorter paths break near-ties.
	Score float64
}

// IndexState describes the availability of the index.
type IndexState string

const (
	// IndexStateReady means the index is serving complete results.
	IndexStateReady IndexState = "ready"

	// IndexStateScanning means a full scan is in progress; results
	// are served but may be incomplete.
	IndexStateScanning IndexState = "scanning"

	// IndexStateRebuilding means the on-disk index was discarded after
	// corruption and is being rebuilt; results may be partial or empty.
	IndexStateRebuilding IndexState = "rebuilding"
)

// IndexStatus reports the observable state of the index.
type IndexStatus struct {
	// State is the current availability.
	State IndexState

	// EntryCount is the number of live entries.
	EntryCount int64

	// LastScanID identifies the most recent completed full scan.
	LastScanID string

	// LastScanTime is when that scan completed.
	LastScanTime time.Time

	// Roots are the configured index roots.
	Roots []string
}
