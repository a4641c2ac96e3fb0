package csverr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrorUnwrap(t *testing.T) {
	pe := &ParseError{Line: 3, Column: 7, Field: 1, Err: ErrUnclosedQuote}
	require.True(t, errors.Is(pe, ErrUnclosedQuote))
	assert.False(t, errors.Is(pe, ErrUnexpectedToken))
}

func TestParseErrorMessage(t *testing.T) {
	pe := &ParseError{Line: 3, Column: 7, Field: 1, Err: ErrUnclosedQuote}
	assert.Contains(t, pe.Error(), "line 3")
	assert.Contains(t, pe.Error(), "column 7")
	assert.Contains(t, pe.Error(), "field 1")
}

func TestParseErrorNoField(t *testing.T) {
	pe := &ParseError{Line: 1, Column: 1, Field: -1, Err: ErrConfig}
	msg := pe.Error()
	assert.NotContains(t, msg, "field")
}

func TestParseErrorEscapesToken(t *testing.T) {
	pe := &ParseError{Line: 1, Column: 1, Field: 0, Token: []byte{'a', 0x01, 'b'}, Err: ErrUnexpectedToken}
	assert.Contains(t, pe.Error(), `\x01`)
	assert.Contains(t, pe.Error(), "token:")
}
