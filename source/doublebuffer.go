package source

import (
	"fmt"
	"io"

	"github.com/klauspost/cpuid/v2"

	"github.com/tilo/smartercsv/csverr"
	"github.com/tilo/smartercsv/internal/logctx"
)

// Recommended page sizes (power-of-two, per the core's data model).
const (
	BufferSize256K = 256 * 1024
	BufferSize512K = 512 * 1024
	BufferSize1MB  = 1024 * 1024
)

// minCarryMax is the floor CARRY_MAX must never go below (the open
// question in the core spec resolves to max(max_sep_len, 8)).
const minCarryMax = 8

// ResolveCarryMax implements the CARRY_MAX resolution: the bound must be
// at least as large as the longest separator/escape look-ahead the
// tokenizer will ever request, and never smaller than minCarryMax.
func ResolveCarryMax(maxSepLen int) int {
	if maxSepLen < minCarryMax {
		return minCarryMax
	}
	return maxSepLen
}

// DefaultBufferSize picks a page size using the host's L2 cache size,
// mirroring the teacher's SupportedCPU gate that chose between the
// SIMD-accelerated path and a portable fallback based on CPU features:
// here the same cpuid probe chooses between the three recommended page
// sizes instead of gating an algorithm.
func DefaultBufferSize() int {
	if !cpuid.CPU.Supports(cpuid.SSE42) {
		logctx.Fallback("SSE4.2 not available, defaulting to the smallest recommended buffer page")
		return BufferSize256K
	}
	switch {
	case cpuid.CPU.Cache.L2 >= BufferSize1MB:
		return BufferSize1MB
	case cpuid.CPU.Cache.L2 >= BufferSize512K:
		return BufferSize512K
	default:
		return BufferSize256K
	}
}

// DoubleBuffer is the L2 component: two fixed-size pages that refill from
// a Source, preserving a bounded carry-over region across a swap so that
// no separator or multi-byte character straddling a refill boundary is
// ever lost.
type DoubleBuffer struct {
	src Source

	active, inactive []byte
	pos, length      int
	inactiveLen      int
	eof              bool

	bufferSize int
	carryMax   int

	scratch []byte // reused across PeekBytes calls, grown on demand
}

// NewDoubleBuffer constructs a double buffer over src with the given page
// size and CARRY_MAX. It performs the initial fill and swap described by
// the core spec's construction contract.
func NewDoubleBuffer(src Source, bufferSize, carryMax int) (*DoubleBuffer, error) {
	if bufferSize <= carryMax {
		return nil, fmt.Errorf("%w: buffer_size (%d) must exceed carry_max (%d)", csverr.ErrConfig, bufferSize, carryMax)
	}
	b := &DoubleBuffer{
		src:        src,
		active:     make([]byte, bufferSize),
		inactive:   make([]byte, bufferSize),
		bufferSize: bufferSize,
		carryMax:   carryMax,
	}
	if err := b.refill(); err != nil {
		return nil, err
	}
	if b.inactiveLen > 0 {
		b.swap()
	} else {
		b.length, b.pos = 0, 0
	}
	return b, nil
}

// refill implements the protocol of core spec §4.1: carry the unread tail
// of the active page into the inactive page, then fill the remainder of
// the inactive page from the source.
func (b *DoubleBuffer) refill() error {
	remaining := b.length - b.pos
	carry := remaining
	if carry > b.carryMax {
		carry = b.carryMax
	}
	if carry > 0 {
		copy(b.inactive[:carry], b.active[b.length-carry:b.length])
	}
	b.length = 0

	toRead := b.bufferSize - carry
	got, err := b.src.Read(b.inactive[carry : carry+toRead])
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", csverr.ErrSourceIO, err)
	}

	b.inactiveLen = carry + got
	if got == 0 {
		b.eof = true
	}
	return nil
}

func (b *DoubleBuffer) swap() {
	b.active, b.inactive = b.inactive, b.active
	b.length = b.inactiveLen
	b.pos = 0
}

// NextByte returns the next byte and advances the read position, or
// io.EOF once the source is exhausted.
func (b *DoubleBuffer) NextByte() (byte, error) {
	for b.pos >= b.length {
		if b.eof {
			return 0, io.EOF
		}
		if err := b.refill(); err != nil {
			return 0, err
		}
		if b.inactiveLen == 0 {
			return 0, io.EOF
		}
		b.swap()
	}
	c := b.active[b.pos]
	b.pos++
	return c, nil
}

// PeekByte returns the next byte without advancing the read position.
func (b *DoubleBuffer) PeekByte() (byte, error) {
	for b.pos >= b.length {
		if b.eof {
			return 0, io.EOF
		}
		if err := b.refill(); err != nil {
			return 0, err
		}
		if b.inactiveLen == 0 {
			return 0, io.EOF
		}
		b.swap()
	}
	return b.active[b.pos], nil
}

// PeekBytes returns up to n bytes starting at the current read position,
// without advancing it. The returned slice is only valid until the next
// call into the DoubleBuffer. The scratch buffer used is sized to n, not
// to a fixed CARRY_MAX constant, resolving the overflow the original
// implementation's static scratch_buf could hit when n exceeded it.
func (b *DoubleBuffer) PeekBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	if cap(b.scratch) < n {
		b.scratch = make([]byte, n)
	}
	scratch := b.scratch[:n]

	collected := 0
	remaining := b.length - b.pos
	if remaining > 0 {
		chunk := n
		if remaining < chunk {
			chunk = remaining
		}
		copy(scratch[:chunk], b.active[b.pos:b.pos+chunk])
		collected = chunk
	}

	toFetch := n - collected
	if toFetch > 0 && !b.eof {
		got, err := b.fetchAhead(scratch[collected:n])
		collected += got
		if err != nil {
			return scratch[:collected], err
		}
	}
	return scratch[:collected], nil
}

// fetchAhead reads len(dst) bytes ahead from the source, then rewinds the
// source by the number of bytes actually read so that the next refill
// sees them again. Returns ErrLookAheadUnsupported if the source cannot
// honor the rewind.
func (b *DoubleBuffer) fetchAhead(dst []byte) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := b.src.Read(dst[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			return total, fmt.Errorf("%w: %v", csverr.ErrSourceIO, err)
		}
		if n == 0 {
			break
		}
	}
	if total == 0 {
		return 0, nil
	}
	seeker, ok := b.src.(RelSeeker)
	if !ok {
		return total, csverr.ErrLookAheadUnsupported
	}
	if err := seeker.SeekRelative(-int64(total)); err != nil {
		return total, fmt.Errorf("%w: %v", csverr.ErrLookAheadUnsupported, err)
	}
	return total, nil
}

// Eof reports whether the buffer has been drained to end of stream: the
// last refill returned zero bytes and the active window is exhausted.
func (b *DoubleBuffer) Eof() bool {
	return b.eof && b.pos >= b.length
}
