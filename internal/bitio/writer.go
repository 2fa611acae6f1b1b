package bitio

import (
	"encoding/binary"
	"errors"
)

// Errors recorded by Writer. Once set, the error is sticky.
var (
	ErrOutOfMemory  = errors.New("bitio: output buffer limit exceeded")
	ErrWriterClosed = errors.New("bitio: write after Finish")
)

const (
	// flushBits is the number of accumulator bits moved to the buffer at once.
	flushBits = 32
	// flushBytes is flushBits in bytes.
	flushBytes = flushBits / 8

	// DefaultLimit caps the output buffer at 1 GiB.
	DefaultLimit = 1 << 30
)

// Writer packs variable-width codes least-significant bit first into a
// growable byte buffer.
//
// Bits are gathered in a 64-bit accumulator and moved to the buffer 32 bits
// at a time in little-endian order. Failures never panic: the first one is
// recorded, every later write is ignored, and Err reports it.
type Writer struct {
	acc    uint64
	used   int
	buf    []byte
	cur    int
	limit  int
	err    error
	closed bool
}

// NewWriter returns a Writer with room for about expectedSize bytes.
func NewWriter(expectedSize int) *Writer {
	return NewWriterLimit(expectedSize, DefaultLimit)
}

// NewWriterLimit is NewWriter with an explicit cap on the buffer size in
// bytes. Growing past limit sets ErrOutOfMemory.
func NewWriterLimit(expectedSize, limit int) *Writer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if expectedSize < 256 {
		expectedSize = 256
	}
	if expectedSize > limit {
		expectedSize = limit
	}
	return &Writer{
		buf:   make([]byte, roundKB(expectedSize)),
		limit: limit,
	}
}

func roundKB(n int) int {
	return ((n + 1023) >> 10) << 10
}

// PutBits appends the low n bits of v, 0 <= n <= 32.
func (w *Writer) PutBits(v uint32, n int) {
	if w.err != nil {
		return
	}
	if w.closed {
		w.err = ErrWriterClosed
		return
	}
	if n <= 0 {
		return
	}
	if n > 32 {
		n = 32
	}
	if w.used >= flushBits {
		w.flush()
		if w.err != nil {
			return
		}
	}
	w.acc |= (uint64(v) & (1<<uint(n) - 1)) << uint(w.used)
	w.used += n
}

// PutBit appends a single bit.
func (w *Writer) PutBit(b bool) {
	if b {
		w.PutBits(1, 1)
	} else {
		w.PutBits(0, 1)
	}
}

func (w *Writer) flush() {
	if !w.grow(flushBytes) {
		return
	}
	binary.LittleEndian.PutUint32(w.buf[w.cur:], uint32(w.acc))
	w.cur += flushBytes
	w.acc >>= flushBits
	w.used -= flushBits
}

// grow makes room for n more bytes, growing by half again plus rounding to
// 1 KiB. It reports false and records ErrOutOfMemory when the limit is hit.
func (w *Writer) grow(n int) bool {
	need := w.cur + n
	if need <= len(w.buf) {
		return true
	}
	if need > w.limit || need < w.cur {
		w.err = ErrOutOfMemory
		return false
	}
	size := len(w.buf) + len(w.buf)/2
	if size < need {
		size = need
	}
	size = roundKB(size)
	if size > w.limit {
		size = w.limit
	}
	tmp := make([]byte, size)
	copy(tmp, w.buf[:w.cur])
	w.buf = tmp
	return true
}

// Finish pads the final partial byte with zeros and returns the stream.
// The Writer accepts no writes afterwards. It returns nil if an error was
// recorded.
func (w *Writer) Finish() []byte {
	if w.err != nil {
		return nil
	}
	if w.closed {
		return w.buf[:w.cur]
	}
	for w.used >= flushBits {
		w.flush()
	}
	if w.err == nil && w.grow((w.used+7)>>3) {
		for w.used > 0 {
			w.buf[w.cur] = byte(w.acc)
			w.cur++
			w.acc >>= 8
			w.used -= 8
		}
	}
	w.used = 0
	w.acc = 0
	w.closed = true
	if w.err != nil {
		return nil
	}
	return w.buf[:w.cur]
}

// Len returns the number of bytes written so far, counting a partial byte.
func (w *Writer) Len() int {
	return w.cur + (w.used+7)>>3
}

// BitLen returns the number of bits written so far.
func (w *Writer) BitLen() int {
	return w.cur*8 + w.used
}

// Err returns the first error recorded by the Writer.
func (w *Writer) Err() error {
	return w.err
}

// Reset empties the Writer for reuse, keeping its buffer.
func (w *Writer) Reset() {
	w.acc, w.used, w.cur = 0, 0, 0
	w.err = nil
	w.closed = false
}
