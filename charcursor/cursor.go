// Package charcursor implements the L3 component of the smartercsv core:
// a character-level cursor over a double-buffered byte stream that
// assembles whole characters valid under a declared text encoding, with a
// fast path for ASCII/UTF-8 and a slow path that probes byte sequences
// for arbitrary encodings.
package charcursor

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/tilo/smartercsv/csverr"
	"github.com/tilo/smartercsv/internal/logctx"
)

// asciiUTF8Ceiling bounds how many bytes next_char accumulates on the
// ASCII/UTF-8 fast path before giving up (1 leading byte + up to 7 more).
const asciiUTF8Ceiling = 8

// arbitraryCeiling bounds how many bytes next_char accumulates for any
// other declared encoding before giving up.
const arbitraryCeiling = 64

// lookaheadFactor is K from the core spec: a safe per-character byte
// upper bound used to size the raw byte window requested from the
// double buffer for PeekChars(n).
const lookaheadFactor = 16

// byteReader is the subset of *source.DoubleBuffer the cursor needs. It is
// expressed as an interface so the cursor can be driven by fakes in tests
// without importing the source package's concrete type in test helpers.
type byteReader interface {
	NextByte() (byte, error)
	PeekBytes(n int) ([]byte, error)
}

// Char is a whole character's bytes, valid under the cursor's declared
// encoding.
type Char []byte

// String renders the character as a Go string (the bytes are passed
// through as-is; callers needing the declared encoding's semantics use
// Encoding()).
func (c Char) String() string { return string(c) }

// Cursor is the L3 component: one cursor drives one underlying byte
// reader and is not safe for concurrent use, matching the rest of the
// core's single-threaded model.
type Cursor struct {
	buf           byteReader
	enc           encoding.Encoding
	isASCIIOrUTF8 bool
}

// NewCursor binds a cursor to buf, validating characters against enc. A
// nil enc defaults to UTF-8.
func NewCursor(buf byteReader, enc encoding.Encoding) *Cursor {
	if enc == nil {
		enc = unicode.UTF8
	}
	return &Cursor{
		buf:           buf,
		enc:           enc,
		isASCIIOrUTF8: enc == unicode.UTF8 || isASCII(enc),
	}
}

// Encoding reports the declared encoding this cursor validates characters
// against.
func (c *Cursor) Encoding() encoding.Encoding {
	return c.enc
}

// ASCII is a sentinel recognized by NewCursor for the ASCII fast path,
// distinct from golang.org/x/text's lack of a dedicated ASCII encoding.
var ASCII encoding.Encoding = asciiEncoding{}

type asciiEncoding struct{ encoding.Encoding }

func isASCII(enc encoding.Encoding) bool {
	_, ok := enc.(asciiEncoding)
	return ok
}

// NextChar consumes bytes from the underlying reader and returns the next
// whole character. Returns io.EOF once no character can be assembled
// because the source is exhausted, and csverr.ErrInvalidEncoding if no
// valid character forms by the time the accumulation ceiling is reached.
func (c *Cursor) NextChar() (Char, error) {
	b, err := c.buf.NextByte()
	if err != nil {
		return nil, err
	}

	if c.isASCIIOrUTF8 {
		if b < 0x80 {
			return Char{b}, nil
		}
		return c.accumulate(b, asciiUTF8Ceiling, utf8CharComplete)
	}
	return c.accumulate(b, arbitraryCeiling, c.validUnderEncoding)
}

// accumulate implements the shared byte-by-byte growth loop both fast and
// slow character assembly use: append bytes one at a time, testing the
// accumulated sequence for completeness after each, until complete, EOF,
// or the ceiling is hit.
func (c *Cursor) accumulate(first byte, ceiling int, complete func([]byte) bool) (Char, error) {
	buf := make([]byte, 1, ceiling)
	buf[0] = first

	for len(buf) < ceiling {
		if complete(buf) {
			return Char(buf), nil
		}
		nb, err := c.buf.NextByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}
		buf = append(buf, nb)
	}
	if complete(buf) {
		return Char(buf), nil
	}
	return nil, csverr.ErrInvalidEncoding
}

// PeekChars asks the underlying reader for n*lookaheadFactor bytes of
// look-ahead, validates/scrubs the window into whole characters, and
// returns up to the first n of them without advancing the read position.
// Invalid sub-sequences are scrubbed (replaced with empty content) rather
// than failing the peek, matching the core's "scrub is the only silent
// recovery" policy.
func (c *Cursor) PeekChars(n int) ([]Char, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := c.buf.PeekBytes(n * lookaheadFactor)
	if len(raw) == 0 {
		if err != nil && err != io.EOF {
			return nil, err
		}
		return nil, nil
	}
	return c.splitChars(raw, n), nil
}

// splitChars scans raw greedily into whole characters, stopping once want
// characters have been collected or raw is exhausted. A byte that cannot
// begin any valid character within the ceiling is scrubbed: it is
// skipped and logged, contributing no character.
func (c *Cursor) splitChars(raw []byte, want int) []Char {
	out := make([]Char, 0, want)
	i := 0
	ceiling := arbitraryCeiling
	complete := c.validUnderEncoding
	if c.isASCIIOrUTF8 {
		ceiling = asciiUTF8Ceiling
		complete = utf8CharComplete
	}

	for i < len(raw) && len(out) < want {
		if c.isASCIIOrUTF8 && raw[i] < 0x80 {
			out = append(out, Char{raw[i]})
			i++
			continue
		}
		matched := false
		maxLen := ceiling
		if i+maxLen > len(raw) {
			maxLen = len(raw) - i
		}
		for length := 1; length <= maxLen; length++ {
			cand := raw[i : i+length]
			if complete(cand) {
				chr := make(Char, length)
				copy(chr, cand)
				out = append(out, chr)
				i += length
				matched = true
				break
			}
		}
		if !matched {
			i++
			logctx.Scrub(1)
		}
	}
	return out
}

// utf8CharComplete reports whether b is exactly one complete, valid UTF-8
// encoded rune.
func utf8CharComplete(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	r, size := utf8.DecodeRune(b)
	return size == len(b) && (r != utf8.RuneError || size > 1)
}

// validUnderEncoding reports whether b decodes cleanly in full under the
// cursor's declared encoding, treating a clean full decode as "one
// complete character" the way the original implementation treats a
// successful valid_encoding? check on the accumulated byte string.
func (c *Cursor) validUnderEncoding(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if _, err := transform.Bytes(c.enc.NewDecoder(), b); err != nil {
		return false
	}
	return true
}

// ScrubReplace mirrors the core's scrub primitive for external callers
// that only have raw bytes and a slice of invalid ranges (used by tests);
// it is not on the hot path.
func ScrubReplace(raw []byte, invalid [][2]int) []byte {
	if len(invalid) == 0 {
		return raw
	}
	var out bytes.Buffer
	prev := 0
	for _, rng := range invalid {
		out.Write(raw[prev:rng[0]])
		prev = rng[1]
	}
	out.Write(raw[prev:])
	return out.Bytes()
}
