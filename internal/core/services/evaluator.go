package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/query"
)

// selection is the evaluation result for one AST node. A bounded
// selection carries a sorted candidate id set from the posting index;
// an unbounded one matches against every live entry. pred, when set,
// further filters candidates with predicates the posting index cannot
// answer (size, mtime, name matching).
type selection struct {
	bounded bool
	ids     []domain.EntryID
	pred    func(*domain.Entry) bool
}

// matches reports whether an entry satisfies the selection.
func (s selection) matches(e *domain.Entry) bool {
	if s.bounded && !containsID(s.ids, e.ID) {
		return false
	}
	return s.pred == nil || s.pred(e)
}

// evaluator compiles a parsed query against the stores.
type evaluator struct {
	records  driven.RecordStore
	postings driven.PostingIndex
	now      time.Time
}

// evaluate resolves the AST to the matching live entries, unranked.
func (ev *evaluator) evaluate(ctx context.Context, node query.Node) ([]*domain.Entry, error) {
	sel, err := ev.eval(ctx, node)
	if err != nil {
		return nil, err
	}

	var out []*domain.Entry
	if sel.bounded {
		for _, id := range sel.ids {
			e, err := ev.records.Get(ctx, id)
			if err != nil {
				// Posting without a record would be an integrity bug;
				// a tombstoned record is just not yet swept.
				continue
			}
			if e.TombstonedAt != nil {
				continue
			}
			if sel.pred == nil || sel.pred(e) {
				out = append(out, e)
			}
		}
		return out, nil
	}

	// No posting leaf bounds the query. Full record scan.
	err = ev.records.Scan(ctx, func(e *domain.Entry) bool {
		if e.TombstonedAt == nil && (sel.pred == nil || sel.pred(e)) {
			out = append(out, e)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ev *evaluator) eval(ctx context.Context, node query.Node) (selection, error) {
	switch n := node.(type) {
	case *query.Term:
		return ev.evalTerm(ctx, n)
	case *query.Phrase:
		return ev.evalPhrase(ctx, n)
	case *query.Field:
		return ev.evalField(ctx, n)
	case *query.SizeRange:
		return selection{pred: sizePred(n)}, nil
	case *query.TimeRange:
		return selection{pred: timePred(n, ev.now)}, nil
	case *query.Not:
		inner, err := ev.eval(ctx, n.X)
		if err != nil {
			return selection{}, err
		}
		// Lazy complement: never materialize NOT as a set.
		return selection{pred: func(e *domain.Entry) bool { return !inner.matches(e) }}, nil
	case *query.And:
		return ev.evalAnd(ctx, n)
	case *query.Or:
		return ev.evalOr(ctx, n)
	default:
		return selection{}, fmt.Errorf("%w: unexpected query node %T", domain.ErrInvalidInput, node)
	}
}

// evalTerm matches content tokens (posting-backed) or the file name.
// The name side has no postings, so a standalone term needs a scan;
// conjunction with any posting clause keeps it bounded.
func (ev *evaluator) evalTerm(ctx context.Context, t *query.Term) (selection, error) {
	if t.Text == "*" {
		ids, err := ev.records.AllIDs(ctx)
		if err != nil {
			return selection{}, err
		}
		return selection{bounded: true, ids: ids}, nil
	}

	ids, err := ev.postings.Postings(ctx, driven.FieldToken, t.Text)
	if err != nil {
		return selection{}, err
	}

	text := t.Text
	return selection{pred: func(e *domain.Entry) bool {
		if containsID(ids, e.ID) {
			return true
		}
		return strings.Contains(strings.ToLower(e.Name()), text)
	}}, nil
}

// evalPhrase is AND over the phrase's tokens. Token adjacency is not
// indexed, so this is deliberately broader than true phrase search.
func (ev *evaluator) evalPhrase(ctx context.Context, p *query.Phrase) (selection, error) {
	if len(p.Tokens) == 0 {
		return selection{}, nil
	}
	acc, err := ev.postings.Postings(ctx, driven.FieldToken, p.Tokens[0])
	if err != nil {
		return selection{}, err
	}
	for _, tok := range p.Tokens[1:] {
		next, err := ev.postings.Postings(ctx, driven.FieldToken, tok)
		if err != nil {
			return selection{}, err
		}
		acc = intersectIDs(acc, next)
		if len(acc) == 0 {
			break
		}
	}
	return selection{bounded: true, ids: acc}, nil
}

func (ev *evaluator) evalField(ctx context.Context, f *query.Field) (selection, error) {
	var field driven.PostingField
	switch f.Name {
	case "tag":
		field = driven.FieldTag
	case "ext":
		field = driven.FieldExt
	case "type":
		field = driven.FieldType
	case "content":
		field = driven.FieldToken
	case "name":
		return selection{pred: namePred(f)}, nil
	default:
		// The parser validates field names; reaching here is a bug.
		return selection{}, &domain.UnknownFieldError{Field: f.Name, Pos: f.Offset}
	}

	if !f.Prefix {
		ids, err := ev.postings.Postings(ctx, field, f.Value)
		if err != nil {
			return selection{}, err
		}
		return selection{bounded: true, ids: ids}, nil
	}

	groups, err := ev.postings.PostingsPrefix(ctx, field, f.Value)
	if err != nil {
		return selection{}, err
	}
	var acc []domain.EntryID
	for _, g := range groups {
		acc = unionIDs(acc, g.IDs)
	}
	return selection{bounded: true, ids: acc}, nil
}

func (ev *evaluator) evalAnd(ctx context.Context, n *query.And) (selection, error) {
	l, err := ev.eval(ctx, n.L)
	if err != nil {
		return selection{}, err
	}
	r, err := ev.eval(ctx, n.R)
	if err != nil {
		return selection{}, err
	}

	switch {
	case l.bounded && r.bounded:
		return selection{
			bounded: true,
			ids:     intersectIDs(l.ids, r.ids),
			pred:    andPreds(l.pred, r.pred),
		}, nil
	case l.bounded:
		return selection{bounded: true, ids: l.ids, pred: andPreds(l.pred, r.matches)}, nil
	case r.bounded:
		return selection{bounded: true, ids: r.ids, pred: andPreds(r.pred, l.matches)}, nil
	default:
		return selection{pred: andPreds(l.pred, r.pred)}, nil
	}
}

func (ev *evaluator) evalOr(ctx context.Context, n *query.Or) (selection, error) {
	l, err := ev.eval(ctx, n.L)
	if err != nil {
		return selection{}, err
	}
	r, err := ev.eval(ctx, n.R)
	if err != nil {
		return selection{}, err
	}

	if l.bounded && r.bounded && l.pred == nil && r.pred == nil {
		return selection{bounded: true, ids: unionIDs(l.ids, r.ids)}, nil
	}
	return selection{pred: func(e *domain.Entry) bool {
		return l.matches(e) || r.matches(e)
	}}, nil
}

// namePred matches file names case-insensitively. A trailing star makes
// a prefix pattern, a leading star a suffix pattern (name:*.txt), and a
// plain value matches as a substring.
func namePred(f *query.Field) func(*domain.Entry) bool {
	value := strings.ToLower(f.Value)
	if f.Prefix {
		if inner, ok := strings.CutPrefix(value, "*"); ok {
			return func(e *domain.Entry) bool {
				return strings.Contains(strings.ToLower(e.Name()), inner)
			}
		}
		return func(e *domain.Entry) bool {
			return strings.HasPrefix(strings.ToLower(e.Name()), value)
		}
	}
	if suffix, ok := strings.CutPrefix(value, "*"); ok {
		return func(e *domain.Entry) bool {
			return strings.HasSuffix(strings.ToLower(e.Name()), suffix)
		}
	}
	return func(e *domain.Entry) bool {
		return strings.Contains(strings.ToLower(e.Name()), value)
	}
}

func sizePred(r *query.SizeRange) func(*domain.Entry) bool {
	return func(e *domain.Entry) bool {
		if r.Lo != nil && e.Size < *r.Lo {
			return false
		}
		if r.Hi != nil && e.Size > *r.Hi {
			return false
		}
		return true
	}
}

func timePred(r *query.TimeRange, now time.Time) func(*domain.Entry) bool {
	return func(e *domain.Entry) bool {
		age := now.Sub(e.ModTime)
		if r.MaxAge != nil && age > *r.MaxAge {
			return false
		}
		if r.MinAge != nil && age < *r.MinAge {
			return false
		}
		return true
	}
}

func andPreds(a, b func(*domain.Entry) bool) func(*domain.Entry) bool {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(e *domain.Entry) bool { return a(e) && b(e) }
}

// containsID does a binary membership test on a sorted id slice.
func containsID(ids []domain.EntryID, id domain.EntryID) bool {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	return i < len(ids) && ids[i] == id
}

// intersectIDs merges two sorted id slices in O(n+m).
func intersectIDs(a, b []domain.EntryID) []domain.EntryID {
	out := make([]domain.EntryID, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// unionIDs merges two sorted id slices in O(n+m), deduplicating.
func unionIDs(a, b []domain.EntryID) []domain.EntryID {
	out := make([]domain.EntryID, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
