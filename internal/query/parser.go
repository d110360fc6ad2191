package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/loupe-search/loupe/internal/core/domain"

	"github.com/loupe-search/loupe/internal/tokenizer"
)

// Canonical field names and accepted aliases.
var fieldAliases = map[string]string{
	"tag":       "tag",
	"ext":       "ext",
	"extension": "ext",
	"type":      "type",
	"kind":      "type",
	"name":      "name",
	"content":   "content",
	"size":      "size",
	"mtime":     "mtime",
	"modified":  "mtime",
}

// Parse turns a query string into an AST.
// Malformed input yields *domain.ParseError; unrecognized field names
// yield *domain.UnknownFieldError.
func Parse(input string) (Node, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &domain.ParseError{Pos: tok.pos, Token: tok.text, Msg: "unexpected token"}
	}
	return node, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	tok := p.toks[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

// parseOr handles the lowest precedence level: a OR b.
func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokWord || !strings.EqualFold(tok.text, "OR") {
			return left, nil
		}
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{L: left, R: right}
	}
}

// parseAnd handles implicit AND: adjacent clauses conjoin. The AND
// keyword is accepted as an explicit spelling of the same thing.
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch tok.kind {
		case tokEOF, tokRParen:
			return left, nil
		case tokWord:
			if strings.EqualFold(tok.text, "OR") {
				return left, nil
			}
			if strings.EqualFold(tok.text, "AND") {
				p.next()
				continue
			}
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &And{L: left, R: right}
	}
}

// parseNot handles NOT and the dash prefix, which bind tightest.
func (p *parser) parseNot() (Node, error) {
	tok := p.peek()
	if tok.kind == tokNot || (tok.kind == tokWord && strings.EqualFold(tok.text, "NOT")) {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{X: operand}, nil
	}
	return p.parsePrimary()
}

// parsePrimary handles groups, phrases, field clauses and bare terms.
func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokLParen:
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokRParen {
			return nil, &domain.ParseError{Pos: closing.pos, Token: closing.text, Msg: "expected closing parenthesis"}
		}
		return node, nil

	case tokQuoted:
		toks := tokenizer.String(tok.text)
		if len(toks) == 0 {
			return nil, &domain.ParseError{Pos: tok.pos, Token: tok.text, Msg: "empty phrase"}
		}
		return &Phrase{Tokens: toks, Offset: tok.pos}, nil

	case tokWord:
		return p.parseWord(tok)

	case tokEOF:
		return nil, &domain.ParseError{Pos: tok.pos, Msg: "unexpected end of query"}

	default:
		return nil, &domain.ParseError{Pos: tok.pos, Token: tok.text, Msg: "expected clause"}
	}
}

// parseWord interprets a word token: #tag sugar, field:value, or a
// bare term.
func (p *parser) parseWord(tok token) (Node, error) {
	text := tok.text

	if strings.HasPrefix(text, "#") && len(text) > 1 {
		return &Field{
			Name:   "tag",
			Value:  domain.NormalizeTag(text[1:]),
			Offset: tok.pos,
		}, nil
	}

	colon := strings.IndexByte(text, ':')
	if colon < 0 {
		return &Term{Text: strings.ToLower(text), Offset: tok.pos}, nil
	}

	name := strings.ToLower(text[:colon])
	value := text[colon+1:]

	canonical, ok := fieldAliases[name]
	if !ok {
		return nil, &domain.UnknownFieldError{Field: name, Pos: tok.pos}
	}
	if value == "" {
		return nil, &domain.ParseError{Pos: tok.pos, Token: text, Msg: "empty field value"}
	}

	switch canonical {
	case "size":
		return parseSizeClause(value, tok.pos)
	case "mtime":
		return parseTimeClause(value, tok.pos)
	default:
		if strings.HasSuffix(value, "*") && len(value) > 1 {
			return &Field{
				Name:   canonical,
				Value:  strings.ToLower(strings.TrimSuffix(value, "*")),
				Prefix: true,
				Offset: tok.pos,
			}, nil
		}
		return &Field{Name: canonical, Value: strings.ToLower(value), Offset: tok.pos}, nil
	}
}

// parseSizeClause parses size:>1MB, size:1MB..10MB, size:500.
func parseSizeClause(value string, pos int) (Node, error) {
	if lo, hi, ok := strings.Cut(value, ".."); ok {
		loB, err := parseSizeLiteral(lo, pos)
		if err != nil {
			return nil, err
		}
		hiB, err := parseSizeLiteral(hi, pos)
		if err != nil {
			return nil, err
		}
		if loB > hiB {
			return nil, &domain.ParseError{Pos: pos, Token: value, Msg: "empty size range"}
		}
		return &SizeRange{Lo: &loB, Hi: &hiB, Offset: pos}, nil
	}

	op, rest := cutComparator(value)
	n, err := parseSizeLiteral(rest, pos)
	if err != nil {
		return nil, err
	}
	return sizeRangeFromOp(op, n, pos)
}

func sizeRangeFromOp(op string, n int64, pos int) (Node, error) {
	switch op {
	case ">":
		lo := n + 1
		return &SizeRange{Lo: &lo, Offset: pos}, nil
	case ">=":
		return &SizeRange{Lo: &n, Offset: pos}, nil
	case "<":
		hi := n - 1
		return &SizeRange{Hi: &hi, Offset: pos}, nil
	case "<=":
		return &SizeRange{Hi: &n, Offset: pos}, nil
	default:
		return &SizeRange{Lo: &n, Hi: &n, Offset: pos}, nil
	}
}

// parseTimeClause parses mtime:<7d (younger than 7 days),
// mtime:>7d (older), and mtime:1d..7d (age between bounds).
func parseTimeClause(value string, pos int) (Node, error) {
	if lo, hi, ok := strings.Cut(value, ".."); ok {
		minAge, err := parseDurationLiteral(lo, pos)
		if err != nil {
			return nil, err
		}
		maxAge, err := parseDurationLiteral(hi, pos)
		if err != nil {
			return nil, err
		}
		if minAge > maxAge {
			minAge, maxAge = maxAge, minAge
		}
		return &TimeRange{MinAge: &minAge, MaxAge: &maxAge, Offset: pos}, nil
	}

	op, rest := cutComparator(value)
	d, err := parseDurationLiteral(rest, pos)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<", "<=":
		return &TimeRange{MaxAge: &d, Offset: pos}, nil
	case ">", ">=":
		return &TimeRange{MinAge: &d, Offset: pos}, nil
	default:
		return nil, &domain.ParseError{Pos: pos, Token: value, Msg: "mtime requires a comparator or range"}
	}
}

// cutComparator splits a leading >, <, >= or <= off a literal.
func cutComparator(s string) (op, rest string) {
	switch {
	case strings.HasPrefix(s, ">="):
		return ">=", s[2:]
	case strings.HasPrefix(s, "<="):
		return "<=", s[2:]
	case strings.HasPrefix(s, ">"):
		return ">", s[1:]
	case strings.HasPrefix(s, "<"):
		return "<", s[1:]
	default:
		return "", s
	}
}

// sizeUnits maps unit suffixes to byte multipliers (binary).
var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"tb", 1 << 40},
	{"gb", 1 << 30},
	{"mb", 1 << 20},
	{"kb", 1 << 10},
	{"t", 1 << 40},
	{"g", 1 << 30},
	{"m", 1 << 20},
	{"k", 1 << 10},
	{"b", 1},
}

// parseSizeLiteral parses "500", "10kb", "1MB".
func parseSizeLiteral(s string, pos int) (int64, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return 0, &domain.ParseError{Pos: pos, Token: s, Msg: "missing size literal"}
	}

	mult := int64(1)
	num := lower
	for _, u := range sizeUnits {
		if strings.HasSuffix(lower, u.suffix) {
			mult = u.mult
			num = strings.TrimSuffix(lower, u.suffix)
			break
		}
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n < 0 {
		return 0, &domain.ParseError{Pos: pos, Token: s, Msg: "malformed size literal"}
	}
	return int64(n * float64(mult)), nil
}

// durationUnits maps suffixes to durations for mtime literals.
var durationUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"w", 7 * 24 * time.Hour},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// parseDurationLiteral parses "7d", "24h", "90m", "1w".
func parseDurationLiteral(s string, pos int) (time.Duration, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, u := range durationUnits {
		if !strings.HasSuffix(lower, u.suffix) {
			continue
		}
		num := strings.TrimSuffix(lower, u.suffix)
		n, err := strconv.ParseFloat(num, 64)
		if err != nil || n < 0 {
			break
		}
		return time.Duration(n * float64(u.unit)), nil
	}
	return 0, &domain.ParseError{Pos: pos, Token: s, Msg: "malformed duration literal"}
}
