package smartercsv

import "golang.org/x/text/encoding"

// QuoteEscaping selects how a literal quote_char is recognized inside a
// quoted field.
type QuoteEscaping int

const (
	// Doubled recognizes "" as an escaped quote (RFC 4180 style).
	Doubled QuoteEscaping = iota
	// Backslash recognizes \" as an escaped quote.
	Backslash
	// Auto disambiguates per row using count_quote_chars / count_quote_chars_auto.
	Auto
	// NoQuoting disables quote handling entirely: quote_char is an
	// ordinary data byte, never opens/closes a field, never collapses.
	// Only meaningful to the line parsers (ParseLine/ParseLineToRecord);
	// the streaming Parser has no RAW-only counterpart.
	NoQuoting
)

// Options configures a Parser. The zero value is not directly usable;
// construct via NewParser, which fills in the defaults below for any
// unset field.
type Options struct {
	// ColSep separates fields within a row. Defaults to ",".
	ColSep []byte
	// RowSep terminates a row. Defaults to "\n".
	RowSep []byte
	// QuoteChar opens and closes a quoted field. Defaults to '"'.
	QuoteChar byte
	// CommentPrefix, when non-empty, marks a row to skip entirely.
	CommentPrefix []byte
	// QuoteEscaping selects the escape convention for embedded quotes.
	QuoteEscaping QuoteEscaping
	// BufferSize overrides the double buffer's page size. Zero selects
	// DefaultBufferSize().
	BufferSize int
	// Encoding overrides the enc argument passed to NewParser. Leave nil
	// to use that argument. NewParser does not ask the source for its
	// encoding.
	Encoding encoding.Encoding
}

func (o Options) withDefaults() Options {
	if o.ColSep == nil {
		o.ColSep = []byte{','}
	}
	if o.RowSep == nil {
		o.RowSep = []byte{'\n'}
	}
	if o.QuoteChar == 0 {
		o.QuoteChar = '"'
	}
	return o
}

// maxSepLength is the byte length of the longest token the tokenizer must
// be able to recognize in one look-ahead: col_sep, row_sep, or a doubled
// quote_char.
func maxSepLength(colSep, rowSep []byte, quoteChar byte) int {
	m := len(colSep)
	if len(rowSep) > m {
		m = len(rowSep)
	}
	if quoteChar != 0 && 2 > m {
		m = 2
	}
	return m
}
