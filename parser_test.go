package smartercsv

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/tilo/smartercsv/csverr"
	"github.com/tilo/smartercsv/source"
)

func newTestParser(t *testing.T, data string, opts Options) *Parser {
	t.Helper()
	src := source.FromReader(bytes.NewReader([]byte(data)), unicode.UTF8)
	p, err := NewParser(src, nil, opts)
	require.NoError(t, err)
	return p
}

func TestReadRowAsFieldsBasic(t *testing.T) {
	p := newTestParser(t, "a,b,c\n1,2,3\n", Options{})

	row1, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, row1)

	row2, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, row2)

	_, err = p.ReadRowAsFields()
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, p.Eof())
}

func TestReadRowAsFieldsNoTrailingRowSep(t *testing.T) {
	p := newTestParser(t, "x,y", Options{})
	row, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, row)
}

func TestReadRowAsFieldsQuotedWithEmbeddedSep(t *testing.T) {
	p := newTestParser(t, `"hello, world",plain` + "\n", Options{})
	row, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"hello, world", "plain"}, row)
}

func TestReadRowAsFieldsDoubledQuoteEscape(t *testing.T) {
	p := newTestParser(t, `"she said ""hi""",ok`+"\n", Options{})
	row, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{`she said "hi"`, "ok"}, row)
}

func TestReadRowAsFieldsUnclosedQuote(t *testing.T) {
	p := newTestParser(t, `"unterminated,field`+"\n", Options{})
	_, err := p.ReadRowAsFields()
	require.Error(t, err)
	assert.ErrorIs(t, err, csverr.ErrUnclosedQuote)
}

func TestReadRowAsFieldsSkipsCommentRows(t *testing.T) {
	p := newTestParser(t, "# a comment\na,b\n", Options{CommentPrefix: []byte("#")})
	row, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, row)
}

func TestReadRowRaw(t *testing.T) {
	p := newTestParser(t, "one\ntwo\n", Options{})
	r1, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "one\n", r1)
	r2, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "two\n", r2)
	_, err = p.ReadRow()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSkipRows(t *testing.T) {
	p := newTestParser(t, "skip1\nskip2\nkeep\n", Options{})
	require.NoError(t, p.SkipRows(2))
	row, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, row)
}

func TestCustomColAndRowSep(t *testing.T) {
	p := newTestParser(t, "a;b|c;d|", Options{ColSep: []byte(";"), RowSep: []byte("|")})
	row1, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, row1)
	row2, err := p.ReadRowAsFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, row2)
}

func TestFieldPosTracksColumn(t *testing.T) {
	p := newTestParser(t, "aa,bbb\n", Options{})
	_, err := p.ReadRowAsFields()
	require.NoError(t, err)
	line, col := p.FieldPos(1)
	assert.Equal(t, 1, line)
	assert.Equal(t, 4, col)
}
