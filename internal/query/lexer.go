package query

import (
	"strings"

	"github.com/loupe-search/loupe/internal/core/domain"
)

// tokenKind classifies lexer tokens.
type tokenKind uint8

const (
	tokWord tokenKind = iota
	tokQuoted
	tokLParen
	tokRParen
	tokNot // leading dash bound to the following clause
	tokEOF
)

// token is one lexical unit with its byte offset.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits a query string into tokens. Quoted strings form a single
// token; backslash escapes the next character inside and outside
// quotes; a dash immediately followed by a clause is negation.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n':
			i++

		case ch == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++

		case ch == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++

		case ch == '-' && i+1 < len(input) && !isSpaceByte(input[i+1]) && input[i+1] != ')':
			toks = append(toks, token{kind: tokNot, text: "-", pos: i})
			i++

		case ch == '"':
			text, next, err := lexQuoted(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokQuoted, text: text, pos: i})
			i = next

		default:
			text, next := lexWord(input, i)
			toks = append(toks, token{kind: tokWord, text: text, pos: i})
			i = next
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

// lexQuoted consumes a double-quoted string starting at input[start].
func lexQuoted(input string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		ch := input[i]
		switch ch {
		case '\\':
			if i+1 < len(input) {
				b.WriteByte(input[i+1])
				i += 2
				continue
			}
			i++
		case '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return "", 0, &domain.ParseError{Pos: start, Token: `"`, Msg: "unterminated quoted phrase"}
}

// lexWord consumes a run of non-delimiter characters.
func lexWord(input string, start int) (string, int) {
	var b strings.Builder
	i := start
	for i < len(input) {
		ch := input[i]
		if isSpaceByte(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}
		if ch == '\\' && i+1 < len(input) {
			b.WriteByte(input[i+1])
			i += 2
			continue
		}
		b.WriteByte(ch)
		i++
	}
	return b.String(), i
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}
