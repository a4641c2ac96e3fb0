package smartercsv

import (
	"io"

	"github.com/tilo/smartercsv/csverr"
)

// readField reads one field into the row buffer starting at the current
// write position, returning closed=false if a quoted field hit EOF before
// its terminating quote.
func (p *Parser) readField() (closed bool, err error) {
	if len(p.fieldStarts) >= maxFieldsPerRow {
		return false, p.wrapErr(csverr.ErrFieldCountOverflow, nil)
	}

	start := len(p.rowBuf)
	line := p.rowIndex + 1
	col := p.colPos + 1

	peeked, err := p.cursor.PeekChars(1)
	if err != nil && err != io.EOF {
		return false, err
	}
	raw := concatChars(peeked)
	quoted := len(raw) >= 1 && p.cfg.QuoteChar != 0 && raw[0] == p.cfg.QuoteChar

	if quoted {
		if err := p.consumeChars(1); err != nil && err != io.EOF {
			return false, err
		}
		closed, err = p.readQuotedBody()
	} else {
		closed, err = p.readRawBody()
	}
	if err != nil {
		return false, err
	}

	p.fieldStarts = append(p.fieldStarts, start)
	p.fieldLens = append(p.fieldLens, len(p.rowBuf)-start)
	p.fieldLine = append(p.fieldLine, line)
	p.fieldCol = append(p.fieldCol, col)
	return closed, nil
}

// readQuotedBody implements the QUOTED field-reader mode: every byte is
// taken literally except quote_char, where a doubled (or backslash, per
// QuoteEscaping) occurrence is an escaped literal quote and a lone
// occurrence terminates the field.
func (p *Parser) readQuotedBody() (bool, error) {
	esc := p.escapeBytes()
	for {
		peeked, err := p.cursor.PeekChars(2)
		if err != nil && err != io.EOF {
			return false, err
		}
		raw := concatChars(peeked)

		switch {
		case matchesPrefix(raw, esc):
			if err := p.consumeChars(len(esc)); err != nil && err != io.EOF {
				return false, err
			}
			if err := p.appendBytes([]byte{p.cfg.QuoteChar}); err != nil {
				return false, err
			}
		case len(raw) >= 1 && raw[0] == p.cfg.QuoteChar:
			if err := p.consumeChars(1); err != nil && err != io.EOF {
				return false, err
			}
			return true, nil
		case len(raw) == 0:
			return false, nil
		default:
			ch, err := p.nextChar()
			if err != nil {
				if err == io.EOF {
					return false, nil
				}
				return false, err
			}
			if err := p.appendBytes(ch); err != nil {
				return false, err
			}
		}
	}
}

// readRawBody implements the RAW field-reader mode: bytes accumulate
// until col_sep, row_sep, or EOF is seen. A doubled quote_char inside an
// unquoted field is still honored as an escaped literal quote, matching
// the original implementation's tolerance for stray escape sequences
// outside an opening quote.
func (p *Parser) readRawBody() (bool, error) {
	esc := p.escapeBytes()
	for {
		peeked, err := p.cursor.PeekChars(p.maxSepLen)
		if err != nil && err != io.EOF {
			return false, err
		}
		raw := concatChars(peeked)

		switch {
		case matchesPrefix(raw, esc):
			if err := p.consumeChars(len(esc)); err != nil && err != io.EOF {
				return false, err
			}
			if err := p.appendBytes([]byte{p.cfg.QuoteChar}); err != nil {
				return false, err
			}
		case matchesPrefix(raw, p.cfg.ColSep), matchesPrefix(raw, p.cfg.RowSep), len(raw) == 0:
			return true, nil
		default:
			ch, err := p.nextChar()
			if err != nil {
				if err == io.EOF {
					return true, nil
				}
				return false, err
			}
			if err := p.appendBytes(ch); err != nil {
				return false, err
			}
		}
	}
}
