package smartercsv

import (
	"bytes"

	"github.com/tilo/smartercsv/csverr"
)

// emptyField is returned for every zero-length field instead of
// allocating a fresh empty string each time.
const emptyField = ""

// Field is one value produced by ParseLine, tagged with whether its
// source span in the line was quote_char-delimited. ParseLineToRecord
// uses Quoted to exempt quoted fields from numeric coercion, per the
// core's "quoted fields remain strings" rule.
type Field struct {
	Value  string
	Quoted bool
}

// LineOptions configures ParseLine. The zero value is not directly
// usable; ParseLine fills in defaults via withDefaults.
type LineOptions struct {
	ColSep        []byte
	QuoteChar     byte
	QuoteEscaping QuoteEscaping

	// MaxFields caps the number of fields returned. Zero means
	// unlimited; a negative value returns no fields at all (mirroring
	// the original implementation's handling of a negative max_size).
	MaxFields int
	// HasQuotesHint asserts the line may contain quote_char; false
	// asserts it contains none. ParseLine trusts this assertion rather
	// than scanning to confirm it — the same bargain the fast path's
	// speed depends on. Passing
	// HasQuotesHint=false (the zero value) on a line that does contain
	// quote_char will mis-tokenize it under the fast path.
	HasQuotesHint bool
	// StripWhitespace trims ASCII space and tab from each field's
	// boundary, after quote-stripping but before doubled-quote or
	// backslash-quote collapse.
	StripWhitespace bool
}

func (o LineOptions) withDefaults() LineOptions {
	if o.ColSep == nil {
		o.ColSep = []byte{','}
	}
	if o.QuoteChar == 0 {
		o.QuoteChar = '"'
	}
	return o
}

// ParseLine splits one already-materialized logical line (its row
// separator already stripped by the caller) into fields. It takes the
// fast path — a single byte-find scan — whenever col_sep is one byte
// and HasQuotesHint is false; otherwise it falls back to the
// quote-aware slow path.
func ParseLine(line []byte, opts LineOptions) ([]Field, error) {
	opts = opts.withDefaults()
	if opts.MaxFields < 0 {
		return nil, nil
	}
	if !opts.HasQuotesHint && len(opts.ColSep) == 1 {
		return parseLineFast(line, opts.ColSep[0], opts.MaxFields, opts.StripWhitespace), nil
	}
	return parseLineSlow(line, opts)
}

// parseLineFast mirrors smarter_csv.c's memchr scan: each separator
// found ends a field, boundaries are trimmed in place, and once
// MaxFields fields have been emitted, scanning stops outright — the
// trailing field is not appended either.
func parseLineFast(line []byte, sep byte, maxFields int, stripWS bool) []Field {
	var fields []Field
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] != sep {
			continue
		}
		if maxFields > 0 && len(fields) >= maxFields {
			return fields
		}
		fields = append(fields, Field{Value: trimField(line[start:i], stripWS)})
		start = i + 1
	}
	if maxFields == 0 || len(fields) < maxFields {
		fields = append(fields, Field{Value: trimField(line[start:], stripWS)})
	}
	return fields
}

// parseLineSlow implements the quote-aware scan from smarter_csv.c's
// rb_parse_csv_line: track in_quotes across the whole line, split on
// col_sep only outside quotes, then post-process each extracted raw
// span (dequote, trim, collapse) once its boundary is known — never
// byte-by-byte, so the quoted/unquoted decision can look at the span's
// first and last byte the way the original does.
//
// DOUBLED toggles in_quotes on every bare quote_char; a doubled pair
// nets back to the same in_quotes state by the time the field boundary
// is reached, and unescapeDoubledQuotes collapses it afterward. BACKSLASH
// instead treats a quote_char preceded by any run of backslashes as
// escaped (never toggling), and unescapeBackslashQuotes drops the whole
// preceding run when collapsing — see DESIGN.md for why this departs
// from a strict backslash-count-parity reading. NoQuoting disables all
// of the above: quote_char is ordinary data.
func parseLineSlow(line []byte, opts LineOptions) ([]Field, error) {
	quoteChar := opts.QuoteChar
	colSep := opts.ColSep
	maxFields := opts.MaxFields
	noQuoting := opts.QuoteEscaping == NoQuoting

	mode := opts.QuoteEscaping
	if mode == Auto {
		escaped, rfc := CountQuoteCharsAuto(line, quoteChar, colSep)
		mode = decideAutoEscaping(escaped, rfc)
	}

	var fields []Field
	start, p, n := 0, 0, len(line)
	backslashCount := 0
	inQuotes := false

	emit := func(end int) Field {
		return extractField(line[start:end], quoteChar, mode, noQuoting, opts.StripWhitespace)
	}

	for p < n {
		if matchesAt(line, p, colSep) && (noQuoting || !inQuotes) {
			if maxFields > 0 && len(fields) >= maxFields {
				return fields, nil
			}
			fields = append(fields, emit(p))
			p += len(colSep)
			start = p
			backslashCount = 0
			continue
		}
		if !noQuoting {
			if line[p] == '\\' {
				backslashCount++
			} else {
				if line[p] == quoteChar {
					escapedByBackslash := mode == Backslash && backslashCount > 0
					if !escapedByBackslash {
						inQuotes = !inQuotes
					}
				}
				backslashCount = 0
			}
		}
		p++
	}

	if inQuotes {
		return nil, &csverr.ParseError{Line: 1, Column: p + 1, Field: len(fields), Err: csverr.ErrUnclosedQuote}
	}
	if maxFields == 0 || len(fields) < maxFields {
		fields = append(fields, emit(n))
	}
	return fields, nil
}

// extractField post-processes one raw line span between separators:
// strip a surrounding quote_char pair, trim whitespace, then collapse
// the escaping convention's literal-quote sequences, in that order.
func extractField(raw []byte, quoteChar byte, mode QuoteEscaping, noQuoting, stripWS bool) Field {
	quoted := !noQuoting && len(raw) >= 2 && raw[0] == quoteChar && raw[len(raw)-1] == quoteChar
	if quoted {
		raw = raw[1 : len(raw)-1]
	}
	if stripWS {
		raw = bytes.Trim(raw, " \t")
	}
	if !noQuoting && (quoted || bytes.IndexByte(raw, quoteChar) >= 0) {
		if mode == Backslash {
			raw = unescapeBackslashQuotes(raw, quoteChar)
		} else {
			raw = unescapeDoubledQuotes(raw, quoteChar)
		}
	}
	return Field{Value: fieldString(raw), Quoted: quoted}
}

// unescapeDoubledQuotes collapses every adjacent quote_char pair to a
// single quote_char, leaving everything else untouched. It never
// strips a backslash; that is unescapeBackslashQuotes's job.
func unescapeDoubledQuotes(b []byte, quoteChar byte) []byte {
	if bytes.IndexByte(b, quoteChar) == -1 {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == quoteChar && i+1 < len(b) && b[i+1] == quoteChar {
			out = append(out, quoteChar)
			i++
			continue
		}
		out = append(out, b[i])
	}
	return out
}

// unescapeBackslashQuotes collapses a run of one or more backslashes
// immediately followed by quote_char into a single literal quote_char,
// dropping the entire run — not just the parity-odd remainder. A
// backslash run not followed by quote_char is left untouched.
func unescapeBackslashQuotes(b []byte, quoteChar byte) []byte {
	if bytes.IndexByte(b, quoteChar) == -1 {
		return b
	}
	out := make([]byte, 0, len(b))
	i := 0
	for i < len(b) {
		if b[i] != '\\' {
			out = append(out, b[i])
			i++
			continue
		}
		j := i
		for j < len(b) && b[j] == '\\' {
			j++
		}
		if j < len(b) && b[j] == quoteChar {
			out = append(out, quoteChar)
			i = j + 1
			continue
		}
		out = append(out, b[i:j]...)
		i = j
	}
	return out
}

func trimField(b []byte, stripWS bool) string {
	if stripWS {
		b = bytes.Trim(b, " \t")
	}
	return fieldString(b)
}

func fieldString(b []byte) string {
	if len(b) == 0 {
		return emptyField
	}
	return string(b)
}

func matchesAt(line []byte, i int, pat []byte) bool {
	if i+len(pat) > len(line) {
		return false
	}
	return bytes.Equal(line[i:i+len(pat)], pat)
}
