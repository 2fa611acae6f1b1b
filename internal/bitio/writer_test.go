package bitio

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

// ---------------------------------------------------------------------------
// Writer / Reader round trips
// ---------------------------------------------------------------------------

func TestWriterReaderRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	type field struct {
		v uint32
		n int
	}
	fields := make([]field, 5000)
	w := NewWriter(16)
	for i := range fields {
		n := rng.Intn(33)
		v := rng.Uint32()
		if n < 32 {
			v &= 1<<uint(n) - 1
		}
		fields[i] = field{v, n}
		w.PutBits(v, n)
	}
	data := w.Finish()
	if err := w.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	r := NewReader(data)
	for i, f := range fields {
		if got := r.ReadBits(f.n); got != f.v {
			t.Fatalf("field %d (n=%d): got %#x, want %#x", i, f.n, got, f.v)
		}
	}
	if r.EOS() {
		t.Fatal("reader hit EOS inside written data")
	}
}

func TestWriterMasksHighBits(t *testing.T) {
	w := NewWriter(0)
	w.PutBits(0xffffffff, 3)
	w.PutBits(0, 5)
	data := w.Finish()
	if !bytes.Equal(data, []byte{0x07}) {
		t.Fatalf("got %x, want 07", data)
	}
}

func TestWriterLSBFirst(t *testing.T) {
	w := NewWriter(0)
	w.PutBits(0x2f, 8)
	w.PutBits(1, 1)
	w.PutBits(0, 7)
	data := w.Finish()
	if !bytes.Equal(data, []byte{0x2f, 0x01}) {
		t.Fatalf("got %x, want 2f01", data)
	}
}

func TestWriterZeroWidth(t *testing.T) {
	w := NewWriter(0)
	w.PutBits(0xff, 0)
	if w.BitLen() != 0 {
		t.Fatalf("BitLen = %d after zero-width write", w.BitLen())
	}
	if data := w.Finish(); len(data) != 0 {
		t.Fatalf("Finish = %x, want empty", data)
	}
}

func TestWriterLenCountsPartialByte(t *testing.T) {
	w := NewWriter(0)
	w.PutBits(1, 9)
	if w.Len() != 2 {
		t.Fatalf("Len = %d, want 2", w.Len())
	}
	if w.BitLen() != 9 {
		t.Fatalf("BitLen = %d, want 9", w.BitLen())
	}
}

func TestWriterGrowth(t *testing.T) {
	w := NewWriter(0)
	for i := 0; i < 100000; i++ {
		w.PutBits(uint32(i), 17)
	}
	data := w.Finish()
	if want := (100000*17 + 7) / 8; len(data) != want {
		t.Fatalf("len = %d, want %d", len(data), want)
	}
}

// ---------------------------------------------------------------------------
// Sticky errors
// ---------------------------------------------------------------------------

func TestWriterLimit(t *testing.T) {
	w := NewWriterLimit(0, 1024)
	for i := 0; i < 1000; i++ {
		w.PutBits(0xffffffff, 32)
	}
	if !errors.Is(w.Err(), ErrOutOfMemory) {
		t.Fatalf("Err = %v, want ErrOutOfMemory", w.Err())
	}
	n := w.BitLen()
	w.PutBits(1, 1)
	if w.BitLen() != n {
		t.Fatal("write after error changed the stream")
	}
	if data := w.Finish(); data != nil {
		t.Fatalf("Finish after error = %d bytes, want nil", len(data))
	}
}

func TestWriterClosed(t *testing.T) {
	w := NewWriter(0)
	w.PutBits(5, 3)
	first := append([]byte(nil), w.Finish()...)
	w.PutBits(1, 1)
	if !errors.Is(w.Err(), ErrWriterClosed) {
		t.Fatalf("Err = %v, want ErrWriterClosed", w.Err())
	}
	w.Reset()
	w.PutBits(5, 3)
	if again := w.Finish(); !bytes.Equal(again, first) {
		t.Fatalf("after Reset got %x, want %x", again, first)
	}
}

func TestReaderPastEnd(t *testing.T) {
	r := NewReader([]byte{0xaa})
	if got := r.ReadBits(8); got != 0xaa {
		t.Fatalf("got %#x, want 0xaa", got)
	}
	if r.EOS() {
		t.Fatal("EOS set too early")
	}
	if got := r.ReadBits(1); got != 0 {
		t.Fatalf("read past end = %d, want 0", got)
	}
	if !r.EOS() {
		t.Fatal("EOS not set after reading past end")
	}
}

func TestReaderPeekSkip(t *testing.T) {
	r := NewReader([]byte{0xb4, 0x01})
	if got := r.PeekBits(4); got != 0x4 {
		t.Fatalf("PeekBits(4) = %#x, want 0x4", got)
	}
	r.Skip(4)
	if got := r.ReadBits(5); got != 0x1b {
		t.Fatalf("ReadBits(5) = %#x, want 0x1b", got)
	}
}
