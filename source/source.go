// Package source implements the byte-source capability (L1) and the
// double-buffered reader (L2) of the smartercsv core: a bounded-memory,
// single-threaded byte stream with look-ahead that never loses bytes
// across a refill boundary.
package source

import (
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/tilo/smartercsv/csverr"
)

// Source is the capability every byte source must offer: a Read that
// behaves like io.Reader. Look-ahead via PeekBytes additionally needs a
// RelSeeker; sources that cannot rewind simply don't implement it, and
// PeekBytes degrades to ErrLookAheadUnsupported once the active window is
// exhausted.
type Source interface {
	io.Reader
}

// RelSeeker is the optional capability a Source offers to support
// DoubleBuffer.PeekBytes's rewind strategy: seek by a signed byte delta
// relative to the current read position.
type RelSeeker interface {
	SeekRelative(delta int64) error
}

// FileSource owns a file handle end to end: opened on construction,
// closed on Close. It is the FILE variant of the byte source capability.
type FileSource struct {
	f *os.File
}

// OpenFile opens path for reading and returns a FileSource bound to it
// along with the encoding FILE sources default to (UTF-8, per the core's
// data model). A leading UTF-8 BOM is stripped if present.
func OpenFile(path string) (*FileSource, encoding.Encoding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	fs := &FileSource{f: f}
	if err := fs.skipBOM(); err != nil {
		f.Close()
		return nil, nil, err
	}
	return fs, unicode.UTF8, nil
}

func (fs *FileSource) skipBOM() error {
	var buf [3]byte
	n, err := io.ReadFull(fs.f, buf[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return nil
	}
	// Not a BOM (or too short for one): rewind to the start.
	_, err = fs.f.Seek(0, io.SeekStart)
	return err
}

// Read implements Source.
func (fs *FileSource) Read(p []byte) (int, error) {
	return fs.f.Read(p)
}

// SeekRelative implements RelSeeker using the file's relative
// (io.SeekCurrent) seek.
func (fs *FileSource) SeekRelative(delta int64) error {
	_, err := fs.f.Seek(delta, io.SeekCurrent)
	return err
}

// Close releases the underlying file handle.
func (fs *FileSource) Close() error {
	return fs.f.Close()
}

// ExternalSource wraps a caller-provided io.Reader that the caller
// guarantees outlives the parser. This is the EXTERNAL_STREAM variant: the
// source is borrowed, never closed by this package.
type ExternalSource struct {
	r   io.Reader
	enc encoding.Encoding
}

// FromReader binds an external stream as a byte source, tagged with the
// encoding the caller asserts the stream is in. If enc is nil, UTF-8 is
// assumed.
func FromReader(r io.Reader, enc encoding.Encoding) *ExternalSource {
	if enc == nil {
		enc = unicode.UTF8
	}
	return &ExternalSource{r: r, enc: enc}
}

// Encoding reports the encoding this external stream was bound with.
func (es *ExternalSource) Encoding() encoding.Encoding {
	return es.enc
}

// Read implements Source.
func (es *ExternalSource) Read(p []byte) (int, error) {
	return es.r.Read(p)
}

// SeekRelative implements RelSeeker when the wrapped reader supports
// io.Seeker; otherwise PeekBytes's rewind strategy is unavailable for this
// stream and peek_bytes will report ErrLookAheadUnsupported once it needs
// bytes beyond the active window.
func (es *ExternalSource) SeekRelative(delta int64) error {
	seeker, ok := es.r.(io.Seeker)
	if !ok {
		return csverr.ErrLookAheadUnsupported
	}
	_, err := seeker.Seek(delta, io.SeekCurrent)
	return err
}
