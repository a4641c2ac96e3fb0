package smartercsv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilo/smartercsv/csverr"
)

func unquotedFields(ss ...string) []Field {
	fields := make([]Field, len(ss))
	for i, s := range ss {
		fields[i] = Field{Value: s}
	}
	return fields
}

func TestParseLineFastPath(t *testing.T) {
	fields, err := ParseLine([]byte("a,b,c"), LineOptions{})
	require.NoError(t, err)
	assert.Equal(t, unquotedFields("a", "b", "c"), fields)
}

func TestParseLineFastPathEmptyFields(t *testing.T) {
	fields, err := ParseLine([]byte("a,,c"), LineOptions{})
	require.NoError(t, err)
	assert.Equal(t, unquotedFields("a", "", "c"), fields)
}

func TestParseLineSlowPathQuoted(t *testing.T) {
	fields, err := ParseLine([]byte(`"a,b",c`), LineOptions{HasQuotesHint: true})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Value: "a,b", Quoted: true}, {Value: "c"}}, fields)
}

func TestParseLineSlowPathDoubledEscape(t *testing.T) {
	fields, err := ParseLine([]byte(`"a""b",c`), LineOptions{HasQuotesHint: true})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Value: `a"b`, Quoted: true}, {Value: "c"}}, fields)
}

func TestParseLineSlowPathBackslashEscape(t *testing.T) {
	fields, err := ParseLine([]byte(`"a\"b",c`), LineOptions{QuoteEscaping: Backslash, HasQuotesHint: true})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Value: `a"b`, Quoted: true}, {Value: "c"}}, fields)
}

func TestParseLineSlowPathAutoDetectsDoubled(t *testing.T) {
	// rfc_count=4 is even and escaped_count=3 is odd, so Auto picks
	// DOUBLED: the backslash stays literal and "" collapses to one quote.
	fields, err := ParseLine([]byte(`"a\""b",c`), LineOptions{QuoteEscaping: Auto, HasQuotesHint: true})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Value: `a\"b`, Quoted: true}, {Value: "c"}}, fields)
}

func TestParseLineUnclosedQuote(t *testing.T) {
	_, err := ParseLine([]byte(`"unterminated`), LineOptions{HasQuotesHint: true})
	assert.ErrorIs(t, err, csverr.ErrUnclosedQuote)
}

func TestParseLineMultiByteColSep(t *testing.T) {
	fields, err := ParseLine([]byte("a::b::c"), LineOptions{ColSep: []byte("::")})
	require.NoError(t, err)
	assert.Equal(t, unquotedFields("a", "b", "c"), fields)
}

// Worked example: two quoted fields, the second containing a doubled quote,
// followed by a trailing empty field.
func TestParseLineDoubledQuotesWithTrailingEmptyField(t *testing.T) {
	fields, err := ParseLine([]byte(`"a,b","c""d",`), LineOptions{HasQuotesHint: true})
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Value: "a,b", Quoted: true},
		{Value: `c"d`, Quoted: true},
		{Value: ""},
	}, fields)
}

// Worked example: a backslash-escaped quote inside a field that never
// itself becomes quoted (the backslash run precedes the quote_char
// mid-field, not at the field boundary), followed by a plain field.
func TestParseLineBackslashEscapeMidField(t *testing.T) {
	fields, err := ParseLine([]byte("foo\\\\\"bar,baz"), LineOptions{QuoteEscaping: Backslash, HasQuotesHint: true})
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Value: `foo"bar`},
		{Value: "baz"},
	}, fields)
}

func TestParseLineMaxFieldsStopsEarly(t *testing.T) {
	fields, err := ParseLine([]byte("a,b,c,d"), LineOptions{MaxFields: 2})
	require.NoError(t, err)
	assert.Equal(t, unquotedFields("a", "b"), fields)
}

func TestParseLineMaxFieldsNegativeYieldsNoFields(t *testing.T) {
	fields, err := ParseLine([]byte("a,b,c"), LineOptions{MaxFields: -1})
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestParseLineNoQuotingLeavesQuoteCharLiteral(t *testing.T) {
	fields, err := ParseLine([]byte(`"a,b`), LineOptions{QuoteEscaping: NoQuoting, HasQuotesHint: true})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Value: `"a`}, {Value: "b"}}, fields)
}

func TestParseLineStripWhitespaceTrimsInsideQuotesAfterDequote(t *testing.T) {
	fields, err := ParseLine([]byte(`"  a  `+"\t"+`", b `), LineOptions{HasQuotesHint: true, StripWhitespace: true})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Value: "a", Quoted: true}, {Value: "b"}}, fields)
}
