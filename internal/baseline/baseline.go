// Package baseline measures how general-purpose compressors and other
// lossless image formats do on the same pixels as the VP8L encoder.
package baseline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sort"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/huff0"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/tiff"
)

// Result is the output size of one compressor.
type Result struct {
	Name     string
	Size     int
	Duration time.Duration
}

// Ratio returns Size relative to raw bytes of input.
func (r Result) Ratio(raw int) float64 {
	if raw == 0 {
		return 0
	}
	return float64(r.Size) / float64(raw)
}

// Compressor turns raw little-endian ARGB bytes into a compressed form.
type Compressor struct {
	Name     string
	Compress func(raw []byte) ([]byte, error)
}

// Encoder writes an image in some lossless image format.
type Encoder struct {
	Name   string
	Encode func(img image.Image) ([]byte, error)
}

// Compressors returns the generic byte compressors, in report order.
func Compressors() []Compressor {
	return []Compressor{
		{"zlib", compressZlib},
		{"zstd", compressZstd},
		{"brotli", compressBrotli},
		{"lz4", compressLZ4},
		{"snappy", func(raw []byte) ([]byte, error) { return snappy.Encode(nil, raw), nil }},
		{"huff0", compressHuff0},
	}
}

// Encoders returns the lossless image format encoders, in report order.
func Encoders() []Encoder {
	return []Encoder{
		{"png", encodeWith(func(b *bytes.Buffer, img image.Image) error {
			enc := png.Encoder{CompressionLevel: png.BestCompression}
			return enc.Encode(b, img)
		})},
		{"tiff-deflate", encodeWith(func(b *bytes.Buffer, img image.Image) error {
			return tiff.Encode(b, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		})},
		{"qoi", encodeWith(func(b *bytes.Buffer, img image.Image) error {
			return qoi.Encode(b, img)
		})},
	}
}

func encodeWith(fn func(*bytes.Buffer, image.Image) error) func(image.Image) ([]byte, error) {
	return func(img image.Image) ([]byte, error) {
		var b bytes.Buffer
		if err := fn(&b, img); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	}
}

// ARGBBytes serialises pixels as little-endian 32-bit words.
func ARGBBytes(pix []uint32) []byte {
	raw := make([]byte, 4*len(pix))
	for i, p := range pix {
		binary.LittleEndian.PutUint32(raw[4*i:], p)
	}
	return raw
}

// Run compresses the plane pix (which holds the pixels of img) with every
// compressor and encoder. Results are sorted by size; the first entry is
// the uncompressed plane.
func Run(img image.Image, pix []uint32) ([]Result, error) {
	raw := ARGBBytes(pix)
	results := []Result{{Name: "raw", Size: len(raw)}}
	for _, c := range Compressors() {
		start := time.Now()
		out, err := c.Compress(raw)
		if err != nil {
			return nil, fmt.Errorf("baseline: %s: %w", c.Name, err)
		}
		results = append(results, Result{Name: c.Name, Size: len(out), Duration: time.Since(start)})
	}
	for _, e := range Encoders() {
		start := time.Now()
		out, err := e.Encode(img)
		if err != nil {
			return nil, fmt.Errorf("baseline: %s: %w", e.Name, err)
		}
		results = append(results, Result{Name: e.Name, Size: len(out), Duration: time.Since(start)})
	}
	sort.SliceStable(results[1:], func(i, j int) bool {
		return results[1+i].Size < results[1+j].Size
	})
	return results, nil
}

func compressZlib(raw []byte) ([]byte, error) {
	var b bytes.Buffer
	w, err := zlib.NewWriterLevel(&b, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func compressZstd(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func compressBrotli(raw []byte) ([]byte, error) {
	var b bytes.Buffer
	w := brotli.NewWriterLevel(&b, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func compressLZ4(raw []byte) ([]byte, error) {
	var b bytes.Buffer
	w := lz4.NewWriter(&b)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// compressHuff0 entropy codes raw in independent blocks with no match
// finding, a lower bound for what order-0 coding achieves. Blocks that do
// not compress are stored.
func compressHuff0(raw []byte) ([]byte, error) {
	var s huff0.Scratch
	var out []byte
	for len(raw) > 0 {
		n := min(len(raw), huff0.BlockSizeMax)
		block := raw[:n]
		raw = raw[n:]

		comp, _, err := huff0.Compress1X(block, &s)
		switch {
		case err == nil:
			out = binary.LittleEndian.AppendUint32(out, uint32(len(comp)))
			out = append(out, comp...)
		case errors.Is(err, huff0.ErrUseRLE):
			out = binary.LittleEndian.AppendUint32(out, 1)
			out = append(out, block[0])
		case errors.Is(err, huff0.ErrIncompressible):
			out = binary.LittleEndian.AppendUint32(out, uint32(len(block)))
			out = append(out, block...)
		default:
			return nil, err
		}
	}
	return out, nil
}
