// Package dsp provides the pixel kernels shared by the VP8L encoder and
// decoder. This file holds the reversible colour transforms on packed ARGB
// pixels.
package dsp

// SubtractGreen subtracts green from red and blue in every pixel of argb.
func SubtractGreen(argb []uint32) {
	for i, p := range argb {
		g := (p >> 8) & 0xff
		rb := ((p & 0x00ff00ff) + 0x01000100 - g*0x00010001) & 0x00ff00ff
		argb[i] = (p & 0xff00ff00) | rb
	}
}

// AddGreen is the inverse of SubtractGreen.
func AddGreen(argb []uint32) {
	for i, p := range argb {
		g := (p >> 8) & 0xff
		rb := ((p & 0x00ff00ff) + g*0x00010001) & 0x00ff00ff
		argb[i] = (p & 0xff00ff00) | rb
	}
}

// Multipliers are the cross-colour coefficients of one tile, stored as
// signed 3.5 fixed point values.
type Multipliers struct {
	GreenToRed  uint8
	GreenToBlue uint8
	RedToBlue   uint8
}

// Pack returns the multipliers in the layout of a transform image pixel.
func (m Multipliers) Pack() uint32 {
	return 0xff000000 | uint32(m.RedToBlue)<<16 | uint32(m.GreenToBlue)<<8 | uint32(m.GreenToRed)
}

// UnpackMultipliers is the inverse of Multipliers.Pack.
func UnpackMultipliers(p uint32) Multipliers {
	return Multipliers{
		GreenToRed:  uint8(p),
		GreenToBlue: uint8(p >> 8),
		RedToBlue:   uint8(p >> 16),
	}
}

// ColorTransformDelta returns (t * c) >> 5 with both operands read as
// signed bytes.
func ColorTransformDelta(t, c uint8) int32 {
	return (int32(int8(t)) * int32(int8(c))) >> 5
}

// TransformColor applies the forward cross-colour transform to one pixel.
func TransformColor(m Multipliers, argb uint32) uint32 {
	g := uint8(argb >> 8)
	r := uint8(argb >> 16)
	newRed := int32(r) - ColorTransformDelta(m.GreenToRed, g)
	newBlue := int32(argb&0xff) - ColorTransformDelta(m.GreenToBlue, g) - ColorTransformDelta(m.RedToBlue, r)
	return (argb & 0xff00ff00) | uint32(newRed&0xff)<<16 | uint32(newBlue&0xff)
}

// TransformColorInverse undoes TransformColor for one pixel.
func TransformColorInverse(m Multipliers, argb uint32) uint32 {
	g := uint8(argb >> 8)
	newRed := (int32(argb>>16&0xff) + ColorTransformDelta(m.GreenToRed, g)) & 0xff
	newBlue := int32(argb&0xff) + ColorTransformDelta(m.GreenToBlue, g)
	newBlue += ColorTransformDelta(m.RedToBlue, uint8(newRed))
	return (argb & 0xff00ff00) | uint32(newRed)<<16 | uint32(newBlue&0xff)
}

// BundleIndices packs one row of palette indices into dst. xbits of 1, 2
// and 3 pack 2, 4 and 8 indices per pixel; 0 stores one index per pixel.
// Indices go in the green channel.
func BundleIndices(row []uint8, xbits int, dst []uint32) {
	if xbits == 0 {
		for x, idx := range row {
			dst[x] = 0xff000000 | uint32(idx)<<8
		}
		return
	}
	depth := uint(8 >> uint(xbits))
	mask := 1<<uint(xbits) - 1
	var code uint32
	for x, idx := range row {
		sub := x & mask
		if sub == 0 {
			code = 0xff000000
		}
		code |= uint32(idx) << (8 + depth*uint(sub))
		dst[x>>uint(xbits)] = code
	}
}

// UnbundleIndices expands a packed row produced by BundleIndices into
// width colours looked up in palette. Out of range indices map to
// transparent black.
func UnbundleIndices(src []uint32, width, xbits int, palette []uint32, dst []uint32) {
	depth := uint(8 >> uint(xbits))
	perPixel := 1 << uint(xbits)
	mask := uint32(1)<<depth - 1
	for x := 0; x < width; x++ {
		word := src[x/perPixel] >> 8
		idx := int(word >> (depth * uint(x%perPixel)) & mask)
		if idx < len(palette) {
			dst[x] = palette[idx]
		} else {
			dst[x] = 0
		}
	}
}
