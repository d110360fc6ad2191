package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Pos: 4, Token: "))", Msg: "expected clause"}
	assert.Equal(t, `parse error at offset 4 near "))": expected clause`, err.Error())

	eof := &ParseError{Pos: 12, Msg: "unexpected end of query"}
	assert.Equal(t, "parse error at offset 12: unexpected end of query", eof.Error())
}

func TestUnknownFieldError_Error(t *testing.T) {
	err := &UnknownFieldError{Field: "owner", Pos: 0}
	assert.Equal(t, `unknown field "owner" at offset 0`, err.Error())
}

func TestQueryErrors_AreDistinguishable(t *testing.T) {
	var err error = &UnknownFieldError{Field: "owner"}

	var ufe *UnknownFieldError
	assert.True(t, errors.As(err, &ufe))

	var pe *ParseError
	assert.False(t, errors.As(err, &pe))
}
