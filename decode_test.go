package vp8l

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"
	"testing/iotest"
)

// ---------------------------------------------------------------------------
// Decode
// ---------------------------------------------------------------------------

func TestDecode_RawAndContainer(t *testing.T) {
	img := makeColorPalette(12, 10, 6)
	c, err := Encode(NewPixelBuffer(img), nil)
	if err != nil {
		t.Fatal(err)
	}
	file := mustEncode(t, img, nil)
	if !bytes.Equal(file[20:20+len(c.Data)], c.Data) {
		t.Fatal("container payload differs from raw stream")
	}
	for name, data := range map[string][]byte{"raw": c.Data, "riff": file} {
		got, err := DecodeBytes(data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		assertSameNRGBA(t, got, img)
	}
}

func TestDecode_ImageRegistration(t *testing.T) {
	data := mustEncode(t, makeGradient(6, 5), nil)

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if format != "webp" {
		t.Errorf("format = %q, want webp", format)
	}
	if img.Bounds() != image.Rect(0, 0, 6, 5) {
		t.Errorf("bounds %v", img.Bounds())
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if format != "webp" || cfg.Width != 6 || cfg.Height != 5 || cfg.ColorModel != color.NRGBAModel {
		t.Errorf("DecodeConfig = %+v, %q", cfg, format)
	}
}

func TestDecode_ReaderWithoutLen(t *testing.T) {
	img := makeGradient(9, 9)
	data := mustEncode(t, img, nil)
	got, err := Decode(iotest.OneByteReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatal(err)
	}
	assertSameNRGBA(t, got, img)
}

func TestDecode_InvalidData(t *testing.T) {
	valid := mustEncode(t, makeNoise(21, 16, 16, false), nil)
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"riff only", valid[:12]},
		{"truncated payload", valid[:len(valid)-6]},
		{"lossy chunk", append(append(slices.Clone(valid[:12]), "VP8 "...), valid[16:]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(bytes.NewReader(tt.data)); err == nil {
				t.Error("Decode succeeded")
			}
			if _, err := Inspect(tt.data); err == nil {
				t.Error("Inspect succeeded")
			}
		})
	}
}

func TestDecode_BadVersion(t *testing.T) {
	c, err := Encode(NewPixelBuffer(makeGradient(3, 3)), nil)
	if err != nil {
		t.Fatal(err)
	}
	data := slices.Clone(c.Data)
	data[4] |= 0x20
	if _, err := DecodeBytes(data); !errors.Is(err, ErrBadVersion) {
		t.Errorf("DecodeBytes = %v, want ErrBadVersion", err)
	}
}

// ---------------------------------------------------------------------------
// Inspect
// ---------------------------------------------------------------------------

func TestInspect(t *testing.T) {
	tests := []struct {
		name string
		img  *image.NRGBA
	}{
		{"palette", makeColorPalette(32, 32, 9)},
		{"gradient", makeGradient(64, 64)},
		{"noise", makeNoise(22, 40, 40, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Encode(NewPixelBuffer(tt.img), nil)
			if err != nil {
				t.Fatal(err)
			}
			var buf bytes.Buffer
			if err := EncodeTo(&buf, NewPixelBuffer(tt.img), nil); err != nil {
				t.Fatal(err)
			}
			info, err := Inspect(buf.Bytes())
			if err != nil {
				t.Fatal(err)
			}
			if info.Width != c.Width || info.Height != c.Height || info.HasAlpha != c.HasAlpha {
				t.Errorf("info %+v, image %dx%d alpha %v", info, c.Width, c.Height, c.HasAlpha)
			}
			if !slices.Equal(info.Transforms, c.Stats.Transforms()) {
				t.Errorf("transforms %v, encoder used %v", info.Transforms, c.Stats.Transforms())
			}
			if info.CacheBits != c.Stats.CacheBits || info.Groups != c.Stats.Clusters {
				t.Errorf("cache %d groups %d, encoder used %d and %d",
					info.CacheBits, info.Groups, c.Stats.CacheBits, c.Stats.Clusters)
			}
			if info.Size != len(c.Data) || info.Digest != c.Digest() {
				t.Errorf("size %d digest %016x, want %d and %016x", info.Size, info.Digest, len(c.Data), c.Digest())
			}
		})
	}
}
