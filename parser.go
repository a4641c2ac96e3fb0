package smartercsv

import (
	"bytes"
	"io"

	"golang.org/x/text/encoding"

	"github.com/tilo/smartercsv/charcursor"
	"github.com/tilo/smartercsv/csverr"
	"github.com/tilo/smartercsv/source"
)

// rowBufferSize is the fixed scratch buffer one row's field bytes are
// assembled into before being sliced out as strings.
const rowBufferSize = 256 * 1024

// maxFieldsPerRow is the hard cap on fields in a single row, guarding
// against unbounded growth on adversarial input (a row holding an
// enormous number of column separators).
const maxFieldsPerRow = 128 * 1024

// Parser is the L4 component: a quote-aware row/field tokenizer driven by
// a character cursor. One Parser is bound to one source for its entire
// lifetime and is not safe for concurrent use.
type Parser struct {
	cursor *charcursor.Cursor
	buf    *source.DoubleBuffer
	cfg    Options

	maxSepLen int
	doubleQt  []byte

	rowBuf      []byte
	fieldStarts []int
	fieldLens   []int
	fieldLine   []int
	fieldCol    []int

	autoResolved     bool
	resolvedEscaping QuoteEscaping

	rowIndex int
	colPos   int // characters consumed so far in the current row, for FieldPos
}

// NewParser constructs a Parser over src. enc declares the source's text
// encoding (pass the encoding OpenFile returned, or an ExternalSource's
// Encoding()); a nil enc defaults to UTF-8 unless opts.Encoding overrides
// it.
func NewParser(src source.Source, enc encoding.Encoding, opts Options) (*Parser, error) {
	opts = opts.withDefaults()
	if opts.Encoding != nil {
		enc = opts.Encoding
	}

	bufferSize := opts.BufferSize
	if bufferSize == 0 {
		bufferSize = source.DefaultBufferSize()
	}
	maxSepLen := maxSepLength(opts.ColSep, opts.RowSep, opts.QuoteChar)
	carryMax := source.ResolveCarryMax(maxSepLen)

	db, err := source.NewDoubleBuffer(src, bufferSize, carryMax)
	if err != nil {
		return nil, err
	}

	return &Parser{
		cursor:    charcursor.NewCursor(db, enc),
		buf:       db,
		cfg:       opts,
		maxSepLen: maxSepLen,
		doubleQt:  []byte{opts.QuoteChar, opts.QuoteChar},
		rowBuf:    make([]byte, 0, rowBufferSize),
	}, nil
}

// Encoding reports the encoding this parser's cursor validates characters
// against.
func (p *Parser) Encoding() encoding.Encoding {
	return p.cursor.Encoding()
}

// Eof reports whether the underlying source has been fully drained.
func (p *Parser) Eof() bool {
	return p.buf.Eof()
}

// ReadRowAsFields reads one logical row, skipping any leading comment
// rows, and returns its fields as strings. Returns io.EOF once no more
// rows remain.
func (p *Parser) ReadRowAsFields() ([]string, error) {
	for {
		skipped, err := p.maybeSkipComment()
		if err != nil {
			return nil, err
		}
		if !skipped {
			break
		}
	}

	if _, err := p.buf.PeekByte(); err != nil {
		return nil, err
	}

	p.resetRow()
	rowComplete := false
	for !rowComplete {
		closed, err := p.readField()
		if err != nil {
			return nil, err
		}
		if !closed {
			return nil, p.wrapErr(csverr.ErrUnclosedQuote, nil)
		}

		peeked, err := p.cursor.PeekChars(p.maxSepLen)
		if err != nil && err != io.EOF {
			return nil, err
		}
		raw := concatChars(peeked)

		matchesCol := matchesPrefix(raw, p.cfg.ColSep)
		matchesRow := matchesPrefix(raw, p.cfg.RowSep)

		switch {
		case matchesRow && (!matchesCol || len(p.cfg.RowSep) >= len(p.cfg.ColSep)):
			if err := p.consumeChars(len(p.cfg.RowSep)); err != nil && err != io.EOF {
				return nil, err
			}
			rowComplete = true
		case matchesCol:
			if err := p.consumeChars(len(p.cfg.ColSep)); err != nil && err != io.EOF {
				return nil, err
			}
		case len(raw) < len(p.cfg.ColSep) && len(raw) < len(p.cfg.RowSep):
			p.nextChar() // force EOF to surface, if present
			rowComplete = true
		default:
			return nil, p.wrapErr(csverr.ErrUnexpectedToken, raw)
		}
	}

	fields := p.flushRow()
	p.rowIndex++
	return fields, nil
}

// ReadRow reads and returns the next raw logical row, row_sep included,
// without any field splitting. Returns io.EOF once no more rows remain.
func (p *Parser) ReadRow() (string, error) {
	var buf []byte
	for {
		ch, err := p.cursor.NextChar()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		buf = append(buf, ch...)
		if matchesSuffix(buf, p.cfg.RowSep) {
			return string(buf), nil
		}
	}
	if len(buf) == 0 {
		return "", io.EOF
	}
	return string(buf), nil
}

// SkipRows discards the next n raw rows. EOF reached before n rows have
// been skipped is not an error.
func (p *Parser) SkipRows(n int) error {
	for i := 0; i < n; i++ {
		if _, err := p.ReadRow(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}

// FieldPos reports the 1-indexed line and column the field at index i of
// the most recently returned row started at.
func (p *Parser) FieldPos(i int) (line, column int) {
	return p.fieldLine[i], p.fieldCol[i]
}

// maybeSkipComment consumes one full comment row if the upcoming bytes
// match CommentPrefix, reporting whether it did.
func (p *Parser) maybeSkipComment() (bool, error) {
	if len(p.cfg.CommentPrefix) == 0 {
		return false, nil
	}
	peeked, err := p.cursor.PeekChars(len(p.cfg.CommentPrefix))
	if err != nil && err != io.EOF {
		return false, err
	}
	raw := concatChars(peeked)
	if !matchesPrefix(raw, p.cfg.CommentPrefix) {
		return false, nil
	}
	if _, err := p.ReadRow(); err != nil && err != io.EOF {
		return false, err
	}
	return true, nil
}

func (p *Parser) resetRow() {
	p.rowBuf = p.rowBuf[:0]
	p.fieldStarts = p.fieldStarts[:0]
	p.fieldLens = p.fieldLens[:0]
	p.fieldLine = p.fieldLine[:0]
	p.fieldCol = p.fieldCol[:0]
	p.autoResolved = false
	p.colPos = 0
}

// autoLookahead bounds how many characters CountQuoteCharsAuto inspects
// when resolving Auto escaping for the current row.
const autoLookahead = 4096

// escapeBytes returns the two-byte escape sequence recognized as a
// literal embedded quote_char, per QuoteEscaping. Auto is resolved once
// per row, from a bounded look-ahead, and cached.
func (p *Parser) escapeBytes() []byte {
	esc := p.cfg.QuoteEscaping
	if esc == Auto {
		esc = p.resolveAutoEscaping()
	}
	if esc == Backslash {
		return []byte{'\\', p.cfg.QuoteChar}
	}
	return p.doubleQt
}

func (p *Parser) resolveAutoEscaping() QuoteEscaping {
	if p.autoResolved {
		return p.resolvedEscaping
	}
	peeked, _ := p.cursor.PeekChars(autoLookahead)
	escaped, rfc := CountQuoteCharsAuto(concatChars(peeked), p.cfg.QuoteChar, p.cfg.ColSep)
	p.resolvedEscaping = decideAutoEscaping(escaped, rfc)
	p.autoResolved = true
	return p.resolvedEscaping
}

func (p *Parser) flushRow() []string {
	fields := make([]string, len(p.fieldStarts))
	for i, start := range p.fieldStarts {
		fields[i] = string(p.rowBuf[start : start+p.fieldLens[i]])
	}
	return fields
}

func (p *Parser) consumeChars(n int) error {
	for i := 0; i < n; i++ {
		if _, err := p.nextChar(); err != nil {
			return err
		}
	}
	return nil
}

// nextChar consumes one character and counts it toward colPos, the
// current row's character position used by FieldPos.
func (p *Parser) nextChar() (charcursor.Char, error) {
	ch, err := p.cursor.NextChar()
	if err == nil {
		p.colPos++
	}
	return ch, err
}

func (p *Parser) appendBytes(b []byte) error {
	if len(p.rowBuf)+len(b) > rowBufferSize {
		return p.wrapErr(csverr.ErrRowBufferOverflow, nil)
	}
	p.rowBuf = append(p.rowBuf, b...)
	return nil
}

func (p *Parser) wrapErr(kind error, token []byte) error {
	return &csverr.ParseError{
		Line:   p.rowIndex + 1,
		Column: p.colPos + 1,
		Field:  len(p.fieldStarts),
		Token:  token,
		Err:    kind,
	}
}

func concatChars(chars []charcursor.Char) []byte {
	if len(chars) == 0 {
		return nil
	}
	var n int
	for _, c := range chars {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chars {
		out = append(out, c...)
	}
	return out
}

func matchesPrefix(raw, sep []byte) bool {
	if len(sep) == 0 || len(raw) < len(sep) {
		return false
	}
	return bytes.Equal(raw[:len(sep)], sep)
}

func matchesSuffix(raw, sep []byte) bool {
	if len(sep) == 0 || len(raw) < len(sep) {
		return false
	}
	return bytes.Equal(raw[len(raw)-len(sep):], sep)
}
