package lossless

import (
	"fmt"

	"github.com/deepteams/vp8l/internal/bitio"
)

// Header is the fixed-size start of a VP8L stream.
type Header struct {
	Width    int
	Height   int
	HasAlpha bool
}

// Decoded is a fully decoded VP8L stream.
type Decoded struct {
	Header
	// Pix holds Width*Height ARGB pixels, row-major.
	Pix []uint32
	// Transforms lists the transforms in stream order.
	Transforms []string
	CacheBits  int
	// Groups is the number of Huffman groups of the main image.
	Groups int
}

// DecodeHeader reads the header of the VP8L stream data.
func DecodeHeader(data []byte) (Header, error) {
	return readHeader(bitio.NewReader(data))
}

func readHeader(br *bitio.Reader) (Header, error) {
	if br.ReadBits(8) != Signature {
		if br.EOS() {
			return Header{}, ErrTruncated
		}
		return Header{}, ErrBadSignature
	}
	h := Header{
		Width:  int(br.ReadBits(imageSizeBits)) + 1,
		Height: int(br.ReadBits(imageSizeBits)) + 1,
	}
	h.HasAlpha = br.ReadBit()
	version := br.ReadBits(versionBits)
	if br.EOS() {
		return Header{}, ErrTruncated
	}
	if version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}
	return h, nil
}

type decoder struct {
	br  *bitio.Reader
	out *Decoded
}

// Decode decodes the VP8L stream data.
func Decode(data []byte) (*Decoded, error) {
	br := bitio.NewReader(data)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	d := &decoder{br: br, out: &Decoded{Header: h}}

	var transforms []*transform
	width := h.Width
	for br.ReadBit() {
		if len(transforms) == 4 {
			return nil, fmt.Errorf("%w: too many transforms", ErrBitstream)
		}
		t, err := d.readTransform(width, h.Height, transforms)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, t)
		d.out.Transforms = append(d.out.Transforms, t.name())
		width = t.packedWidth
	}

	pix, err := d.decodeImageData(width, h.Height, true)
	if err != nil {
		return nil, err
	}
	d.out.Pix = applyInverseTransforms(pix, h.Width, h.Height, transforms)
	return d.out, nil
}

// decodeImageData decodes an entropy coded width*height image. Only the
// main image may carry a tile map.
func (d *decoder) decodeImageData(width, height int, main bool) ([]uint32, error) {
	br := d.br
	cacheBits := 0
	if br.ReadBit() {
		cacheBits = int(br.ReadBits(4))
		if cacheBits < 1 || cacheBits > MaxCacheBits {
			return nil, fmt.Errorf("%w: cache bits %d", ErrBitstream, cacheBits)
		}
	}

	part := &Partition{}
	numGroups := 1
	if main && br.ReadBit() {
		part.Bits = int(br.ReadBits(histoBitsLen)) + minHistoBits
		tiles, err := d.decodeImageData(subSampleSize(width, part.Bits), subSampleSize(height, part.Bits), false)
		if err != nil {
			return nil, err
		}
		part.Map = tiles
		for i, p := range tiles {
			g := (p >> 8) & 0xffff
			part.Map[i] = g
			numGroups = max(numGroups, int(g)+1)
		}
	}

	groups := make([][codesPerGroup]*huffmanDecoder, numGroups)
	for g := range groups {
		for i := range groups[g] {
			lengths, err := readCodeLengths(br, alphabetSize(i, cacheBits))
			if err != nil {
				return nil, err
			}
			if groups[g][i], err = newHuffmanDecoder(lengths); err != nil {
				return nil, err
			}
		}
		if br.EOS() {
			return nil, ErrTruncated
		}
	}
	if main {
		d.out.CacheBits = cacheBits
		d.out.Groups = numGroups
	}

	var cache *ColorCache
	if cacheBits > 0 {
		cache = NewColorCache(cacheBits)
	}
	out := make([]uint32, width*height)
	x, y := 0, 0
	for pos := 0; pos < len(out); {
		gc := &groups[part.group(x, y, width)]
		n := 1
		switch green := gc[codeGreen].read(br); {
		case green < numLiteralCodes:
			r := gc[codeRed].read(br)
			b := gc[codeBlue].read(br)
			a := gc[codeAlpha].read(br)
			out[pos] = uint32(a)<<24 | uint32(r)<<16 | uint32(green)<<8 | uint32(b)
		case green < numLiteralCodes+numLengthCodes:
			n = readPrefixed(br, green-numLiteralCodes)
			dist := planeCodeToDistance(width, readPrefixed(br, gc[codeDistance].read(br)))
			if dist > pos || pos+n > len(out) {
				return nil, fmt.Errorf("%w: copy of %d at distance %d from %d", ErrBitstream, n, dist, pos)
			}
			for k := pos; k < pos+n; k++ {
				out[k] = out[k-dist]
			}
		default:
			key := green - numLiteralCodes - numLengthCodes
			if cache == nil || key >= 1<<uint(cacheBits) {
				return nil, fmt.Errorf("%w: cache index %d", ErrBitstream, key)
			}
			out[pos] = cache.Lookup(key)
		}
		if br.EOS() {
			return nil, ErrTruncated
		}
		if cache != nil {
			for _, p := range out[pos : pos+n] {
				cache.Insert(p)
			}
		}
		pos += n
		x += n
		for x >= width {
			x -= width
			y++
		}
	}
	return out, nil
}
