package lossless

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/deepteams/vp8l/internal/bitio"
)

func headerBits(bw *bitio.Writer, w, h int, alpha bool, version uint32) {
	bw.PutBits(Signature, 8)
	bw.PutBits(uint32(w-1), imageSizeBits)
	bw.PutBits(uint32(h-1), imageSizeBits)
	bw.PutBit(alpha)
	bw.PutBits(version, versionBits)
}

// ---------------------------------------------------------------------------
// Header
// ---------------------------------------------------------------------------

func TestDecodeHeader(t *testing.T) {
	bw := bitio.NewWriter(8)
	headerBits(bw, 300, 17, true, Version)
	h, err := DecodeHeader(bw.Finish())
	if err != nil {
		t.Fatal(err)
	}
	if h.Width != 300 || h.Height != 17 || !h.HasAlpha {
		t.Errorf("header %+v", h)
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	bad := bitio.NewWriter(8)
	headerBits(bad, 4, 4, false, 1)
	badVersion := bad.Finish()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"signature", []byte{0x2e, 0, 0, 0, 0}, ErrBadSignature},
		{"short", []byte{Signature, 0, 0}, ErrTruncated},
		{"version", badVersion, ErrBadVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeHeader(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("DecodeHeader = %v, want %v", err, tt.want)
			}
			if _, err := Decode(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Decode = %v, want %v", err, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Corrupt streams
// ---------------------------------------------------------------------------

func TestDecodeRepeatedTransform(t *testing.T) {
	bw := bitio.NewWriter(8)
	headerBits(bw, 4, 4, false, Version)
	for i := 0; i < 2; i++ {
		bw.PutBit(true)
		bw.PutBits(transformSubtractGreen, 2)
	}
	if _, err := Decode(bw.Finish()); !errors.Is(err, ErrBitstream) {
		t.Errorf("Decode = %v, want ErrBitstream", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	rng := rand.New(rand.NewSource(30))
	data, _, err := Encode(noiseImage(rng, 24, 9), 24, 9, 24, nil)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < len(data); n++ {
		if _, err := Decode(data[:n]); err == nil {
			t.Fatalf("prefix of %d/%d bytes decoded without error", n, len(data))
		}
	}
}

func TestDecodeCorruptNoPanic(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	imgs := [][]uint32{
		noiseImage(rng, 32, 32),
		paletteImage(rng, 32, 32, 5),
		gradientImage(32, 32),
	}
	for _, pix := range imgs {
		data, _, err := Encode(pix, 32, 32, 32, nil)
		if err != nil {
			t.Fatal(err)
		}
		for trial := 0; trial < 200; trial++ {
			mut := append([]byte(nil), data...)
			// Leave the header alone so the image size stays small.
			for k := 0; k < 1+trial%4; k++ {
				i := 5 + rng.Intn(len(mut)-5)
				mut[i] ^= byte(1 << uint(rng.Intn(8)))
			}
			dec, err := Decode(mut)
			if err == nil && len(dec.Pix) != 32*32 {
				t.Fatalf("decoded %d pixels", len(dec.Pix))
			}
		}
	}
}
