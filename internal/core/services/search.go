package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/core/ports/driving"
	"github.com/loupe-search/loupe/internal/logger"
	"github.com/loupe-search/loupe/internal/query"
)

// DefaultSearchLimit caps results when the caller does not.
const DefaultSearchLimit = 50

// Relevance weights. Exact field hits dominate, fuzzy file name
// matches rank in between, content token hits are the baseline.
const (
	scoreExact        = 100.0
	scoreFuzzyCap     = 90.0
	scoreToken        = 10.0
	pathLengthPenalty = 0.01
)

// Ensure Search implements the port.
var _ driving.QueryService = (*Search)(nil)

// Search evaluates query strings against the index. It is a pure
// reader: it never takes the writer's mutex and relies on per-entry
// snapshot isolation in the stores.
type Search struct {
	records  driven.RecordStore
	postings driven.PostingIndex
}

// NewSearch wires a search service over its stores.
func NewSearch(records driven.RecordStore, postings driven.PostingIndex) *Search {
	return &Search{records: records, postings: postings}
}

// Search parses, evaluates, ranks and paginates one query.
func (s *Search) Search(ctx context.Context, q string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	node, err := query.Parse(q)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	ev := &evaluator{records: s.records, postings: s.postings, now: started}
	entries, err := ev.evaluate(ctx, node)
	if err != nil {
		return nil, err
	}

	terms := rankTerms(node)
	results := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		results[i] = domain.SearchResult{Entry: *e, Score: score(e, terms)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if len(results[i].Entry.Path) != len(results[j].Entry.Path) {
			return len(results[i].Entry.Path) < len(results[j].Entry.Path)
		}
		return results[i].Entry.Path < results[j].Entry.Path
	})

	logger.Debug("Search: %q matched %d entries in %s", q, len(results), time.Since(started))
	return paginate(results, opts), nil
}

func paginate(results []domain.SearchResult, opts domain.SearchOptions) []domain.SearchResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	offset := max(opts.Offset, 0)
	if offset >= len(results) {
		return []domain.SearchResult{}
	}
	results = results[offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// rankTerms collects the textual terms a query is "about", used only
// for ordering. Negated subtrees contribute nothing: an entry matched
// despite a NOT clause should not be ranked by the excluded text.
func rankTerms(node query.Node) []string {
	var terms []string
	var walk func(query.Node)
	walk = func(n query.Node) {
		switch v := n.(type) {
		case *query.Term:
			if v.Text != "*" {
				terms = append(terms, v.Text)
			}
		case *query.Phrase:
			terms = append(terms, v.Tokens...)
		case *query.Field:
			if v.Name == "name" || v.Name == "content" || v.Name == "tag" {
				terms = append(terms, strings.ToLower(v.Value))
			}
		case *query.And:
			walk(v.L)
			walk(v.R)
		case *query.Or:
			walk(v.L)
			walk(v.R)
		case *query.Not:
			// Skipped.
		}
	}
	walk(node)
	return lo.Uniq(terms)
}

// score ranks one matched entry against the query terms.
func score(e *domain.Entry, terms []string) float64 {
	name := strings.ToLower(e.Name())
	stem := name
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		stem = name[:i]
	}

	total := 0.0
	for _, term := range terms {
		switch {
		case name == term || stem == term:
			total += scoreExact
		case e.HasTag(term):
			total += scoreExact
		default:
			if m := fuzzy.Find(term, []string{name}); len(m) > 0 {
				total += lo.Clamp(float64(m[0].Score), 1, scoreFuzzyCap)
			}
		}
		if lo.Contains(e.Tokens, term) {
			total += scoreToken
		}
	}
	return total - float64(len(e.Path))*pathLengthPenalty
}
