package vp8l

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/deepteams/vp8l/internal/container"
	"github.com/deepteams/vp8l/internal/dsp"
	"github.com/deepteams/vp8l/internal/lossless"
)

func init() {
	image.RegisterFormat("webp", "RIFF????WEBPVP8L", decodeImage, DecodeConfig)
}

// Errors returned by the decoder.
var (
	ErrBadSignature = lossless.ErrBadSignature
	ErrBadVersion   = lossless.ErrBadVersion
	ErrBitstream    = lossless.ErrBitstream
	ErrTruncated    = lossless.ErrTruncated
)

// Info describes a VP8L stream as the decoder sees it.
type Info struct {
	Width    int
	Height   int
	HasAlpha bool
	// Transforms lists the transforms in stream order.
	Transforms []string
	CacheBits  int
	// Groups is the number of Huffman groups of the main image.
	Groups int
	// Size is the length of the VP8L payload in bytes.
	Size int
	// Digest is the xxHash64 of the payload, as CompressedImage.Digest.
	Digest uint64
}

// readAll reads all data from r. If r implements Len() int (e.g.
// *bytes.Reader), a single exact-sized allocation is used.
func readAll(r io.Reader) ([]byte, error) {
	if lr, ok := r.(interface{ Len() int }); ok {
		if n := lr.Len(); n > 0 {
			data := make([]byte, n)
			_, err := io.ReadFull(r, data)
			return data, err
		}
	}
	return io.ReadAll(r)
}

// Decode reads a lossless WebP file, or a raw VP8L stream, from r.
func Decode(r io.Reader) (*image.NRGBA, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("vp8l: reading data: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes a lossless WebP file or a raw VP8L stream.
func DecodeBytes(data []byte) (*image.NRGBA, error) {
	dec, err := decodeStream(data)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, dec.Width, dec.Height))
	ops := dsp.Select()
	for y := 0; y < dec.Height; y++ {
		ops.ExportNRGBA(img.Pix[y*img.Stride:y*img.Stride+4*dec.Width], dec.Pix[y*dec.Width:(y+1)*dec.Width])
	}
	return img, nil
}

func decodeImage(r io.Reader) (image.Image, error) {
	return Decode(r)
}

// DecodeConfig returns the colour model and dimensions of a lossless WebP
// image without decoding the pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := readAll(r)
	if err != nil {
		return image.Config{}, fmt.Errorf("vp8l: reading data: %w", err)
	}
	payload, err := container.ExtractVP8L(data)
	if err != nil {
		return image.Config{}, fmt.Errorf("vp8l: parsing container: %w", err)
	}
	h, err := container.ParseVP8LHeader(payload)
	if err != nil {
		return image.Config{}, fmt.Errorf("vp8l: parsing header: %w", err)
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: h.Width, Height: h.Height}, nil
}

// Inspect fully decodes data and reports how the stream was coded.
func Inspect(data []byte) (*Info, error) {
	payload, err := container.ExtractVP8L(data)
	if err != nil {
		return nil, fmt.Errorf("vp8l: parsing container: %w", err)
	}
	dec, err := decodeStream(payload)
	if err != nil {
		return nil, err
	}
	return &Info{
		Width:      dec.Width,
		Height:     dec.Height,
		HasAlpha:   dec.HasAlpha,
		Transforms: dec.Transforms,
		CacheBits:  dec.CacheBits,
		Groups:     dec.Groups,
		Size:       len(payload),
		Digest:     digest(payload),
	}, nil
}

func decodeStream(data []byte) (*lossless.Decoded, error) {
	payload, err := container.ExtractVP8L(data)
	if err != nil {
		return nil, fmt.Errorf("vp8l: parsing container: %w", err)
	}
	dec, err := lossless.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("vp8l: decode: %w", err)
	}
	return dec, nil
}
