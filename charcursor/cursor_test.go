package charcursor

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

// fakeReader is a minimal byteReader backed by an in-memory slice, used
// to drive the cursor without depending on package source from tests.
type fakeReader struct {
	data []byte
	pos  int
}

func (f *fakeReader) NextByte() (byte, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	b := f.data[f.pos]
	f.pos++
	return b, nil
}

func (f *fakeReader) PeekBytes(n int) ([]byte, error) {
	end := f.pos + n
	if end > len(f.data) {
		end = len(f.data)
	}
	return f.data[f.pos:end], nil
}

func TestNextCharASCIIFastPath(t *testing.T) {
	c := NewCursor(&fakeReader{data: []byte("abc")}, nil)
	ch, err := c.NextChar()
	require.NoError(t, err)
	assert.Equal(t, "a", ch.String())
}

func TestNextCharUTF8MultiByte(t *testing.T) {
	// "é" is 0xC3 0xA9 in UTF-8.
	c := NewCursor(&fakeReader{data: []byte{0xC3, 0xA9, 'x'}}, unicode.UTF8)
	ch, err := c.NextChar()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC3, 0xA9}, []byte(ch))

	ch2, err := c.NextChar()
	require.NoError(t, err)
	assert.Equal(t, "x", ch2.String())
}

func TestNextCharEOF(t *testing.T) {
	c := NewCursor(&fakeReader{data: nil}, nil)
	_, err := c.NextChar()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPeekCharsDoesNotAdvance(t *testing.T) {
	c := NewCursor(&fakeReader{data: []byte("hello")}, nil)
	peeked, err := c.PeekChars(3)
	require.NoError(t, err)
	require.Len(t, peeked, 3)
	assert.Equal(t, "hel", peeked[0].String()+peeked[1].String()+peeked[2].String())

	ch, err := c.NextChar()
	require.NoError(t, err)
	assert.Equal(t, "h", ch.String())
}

func TestPeekCharsEmptySource(t *testing.T) {
	c := NewCursor(&fakeReader{data: nil}, nil)
	peeked, err := c.PeekChars(4)
	assert.NoError(t, err)
	assert.Nil(t, peeked)
}

func TestScrubReplace(t *testing.T) {
	raw := []byte("abXYZcd")
	out := ScrubReplace(raw, [][2]int{{2, 5}})
	assert.Equal(t, "abcd", string(out))
}
