// Package bitio implements the LSB-first bit packing used by VP8L streams.
package bitio

// Reader extracts LSB-first bit fields written by Writer.
//
// A 64-bit window is refilled a byte at a time. Reading past the end yields
// zero bits and sets the end-of-stream flag, which callers check once per
// decoded unit rather than after every read.
type Reader struct {
	buf    []byte
	pos    int
	window uint64
	nbits  int
	eos    bool
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	r := &Reader{buf: data}
	r.fill()
	return r
}

// fill tops up the window so that at least 32 bits are present, or the
// input is exhausted.
func (r *Reader) fill() {
	for r.nbits <= 56 && r.pos < len(r.buf) {
		r.window |= uint64(r.buf[r.pos]) << uint(r.nbits)
		r.pos++
		r.nbits += 8
	}
}

// ReadBits consumes n bits, 0 <= n <= 32.
func (r *Reader) ReadBits(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if n > 32 {
		r.eos = true
		return 0
	}
	if r.nbits < n {
		r.fill()
		if r.nbits < n {
			r.eos = true
			r.window, r.nbits = 0, 0
			return 0
		}
	}
	v := uint32(r.window & (1<<uint(n) - 1))
	r.window >>= uint(n)
	r.nbits -= n
	return v
}

// ReadBit consumes a single bit.
func (r *Reader) ReadBit() bool {
	return r.ReadBits(1) == 1
}

// PeekBits returns up to n bits (n <= 32) without consuming them. Missing
// bits past the end of input read as zero.
func (r *Reader) PeekBits(n int) uint32 {
	if r.nbits < n {
		r.fill()
	}
	return uint32(r.window & (1<<uint(n) - 1))
}

// Skip consumes n bits previously inspected with PeekBits.
func (r *Reader) Skip(n int) {
	if n > r.nbits {
		r.eos = true
		r.window, r.nbits = 0, 0
		return
	}
	r.window >>= uint(n)
	r.nbits -= n
}

// EOS reports whether a read ran past the end of the input.
func (r *Reader) EOS() bool {
	return r.eos
}
