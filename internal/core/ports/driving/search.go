package driving

import (
	"context"

	"github.com/loupe-search/loupe/internal/core/domain"
)

// QueryService evaluates search queries against the index.
type QueryService interface {
	// Search parses and evaluates a query string, returning ranked and
	// paginated results. Malformed queries yield *domain.ParseError or
	// *domain.UnknownFieldError; an empty result set is not an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
