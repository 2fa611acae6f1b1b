package lossless

import "math/bits"

// Bitstream constants of the VP8L format.
const (
	// Signature is the first byte of every VP8L stream.
	Signature = 0x2f
	// Version is the only defined format version.
	Version = 0

	versionBits   = 3
	imageSizeBits = 14

	// MaxDimension is the largest width or height the header can carry.
	MaxDimension = 1 << imageSizeBits

	numLiteralCodes  = 256
	numLengthCodes   = 24
	numDistanceCodes = 40
	numCodeLengths   = 19

	maxCodeLength       = 15
	maxCodeLengthLength = 7

	// MaxCacheBits bounds the colour cache size written in the stream.
	MaxCacheBits = 11
	// MaxPaletteSize is the largest palette a colour-indexing transform carries.
	MaxPaletteSize = 256

	minTransformBits = 2
	maxTransformBits = 9
	transformBitsLen = 3

	minHistoBits = 2
	maxHistoBits = 9
	histoBitsLen = 3

	// Tile count ceiling for the meta-Huffman image.
	maxHistoImageSize = 2600

	maxCopyLength   = 4095
	planeCodeOffset = 120
	windowSize      = 1<<20 - planeCodeOffset

	codesPerGroup = 5
)

// Transform kinds as written in the 2-bit type field.
const (
	transformPredictor     = 0
	transformCrossColor    = 1
	transformSubtractGreen = 2
	transformColorIndexing = 3
)

// Indices of the five codes of a Huffman group.
const (
	codeGreen = iota
	codeRed
	codeBlue
	codeAlpha
	codeDistance
)

// codeLengthOrder is the transmission order of the code-length code lengths.
var codeLengthOrder = [numCodeLengths]uint8{
	17, 18, 0, 1, 2, 3, 4, 5, 16, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

// Repeat tokens 16, 17 and 18 of the code-length alphabet.
var (
	repeatExtraBits = [3]int{2, 3, 7}
	repeatOffsets   = [3]int{3, 3, 11}
)

// alphabetSize returns the number of symbols of code i of a group.
func alphabetSize(i, cacheBits int) int {
	switch i {
	case codeGreen:
		n := numLiteralCodes + numLengthCodes
		if cacheBits > 0 {
			n += 1 << uint(cacheBits)
		}
		return n
	case codeDistance:
		return numDistanceCodes
	}
	return numLiteralCodes
}

// codeToPlane packs the (dy, 8-dx) neighbourhood offsets addressed by the
// first 120 distance codes.
var codeToPlane = [planeCodeOffset]uint8{
	0x18, 0x07, 0x17, 0x19, 0x28, 0x06, 0x27, 0x29, 0x16, 0x1a,
	0x26, 0x2a, 0x38, 0x05, 0x37, 0x39, 0x15, 0x1b, 0x36, 0x3a,
	0x25, 0x2b, 0x48, 0x04, 0x47, 0x49, 0x14, 0x1c, 0x35, 0x3b,
	0x46, 0x4a, 0x24, 0x2c, 0x58, 0x45, 0x4b, 0x34, 0x3c, 0x03,
	0x57, 0x59, 0x13, 0x1d, 0x56, 0x5a, 0x23, 0x2d, 0x44, 0x4c,
	0x55, 0x5b, 0x33, 0x3d, 0x68, 0x02, 0x67, 0x69, 0x12, 0x1e,
	0x66, 0x6a, 0x22, 0x2e, 0x54, 0x5c, 0x43, 0x4d, 0x65, 0x6b,
	0x32, 0x3e, 0x78, 0x01, 0x77, 0x79, 0x53, 0x5d, 0x11, 0x1f,
	0x64, 0x6c, 0x42, 0x4e, 0x76, 0x7a, 0x21, 0x2f, 0x75, 0x7b,
	0x31, 0x3f, 0x63, 0x6d, 0x52, 0x5e, 0x00, 0x74, 0x7c, 0x41,
	0x4f, 0x10, 0x20, 0x62, 0x6e, 0x30, 0x73, 0x7d, 0x51, 0x5f,
	0x40, 0x72, 0x7e, 0x61, 0x6f, 0x50, 0x71, 0x7f, 0x60, 0x70,
}

// planeToCode inverts codeToPlane.
var planeToCode = func() (lut [128]uint8) {
	for code, plane := range codeToPlane {
		lut[plane] = uint8(code)
	}
	return lut
}()

// distanceToPlaneCode maps a linear backward distance to the distance code
// written in the stream. Short 2D offsets get the small codes.
func distanceToPlaneCode(xsize, dist int) int {
	yoffset := dist / xsize
	xoffset := dist - yoffset*xsize
	if xoffset <= 8 && yoffset < 8 {
		return int(planeToCode[yoffset*16+8-xoffset]) + 1
	}
	if xoffset > xsize-8 && yoffset < 7 {
		return int(planeToCode[(yoffset+1)*16+8+(xsize-xoffset)]) + 1
	}
	return dist + planeCodeOffset
}

// planeCodeToDistance is the inverse of distanceToPlaneCode.
func planeCodeToDistance(xsize, code int) int {
	if code > planeCodeOffset {
		return code - planeCodeOffset
	}
	plane := codeToPlane[code-1]
	dist := int(plane>>4)*xsize + 8 - int(plane&0xf)
	if dist < 1 {
		return 1
	}
	return dist
}

// prefixEncode splits a length or distance (>= 1) into its prefix symbol
// and the extra bits that follow it.
func prefixEncode(v int) (code, extraBits, extraValue int) {
	v--
	if v < 2 {
		return v, 0, 0
	}
	hb := bits.Len(uint(v)) - 1
	second := (v >> uint(hb-1)) & 1
	extraBits = hb - 1
	return 2*hb + second, extraBits, v & (1<<uint(extraBits) - 1)
}

// prefixBase returns the smallest value of prefix symbol code and the
// number of extra bits it carries.
func prefixBase(code int) (base, extraBits int) {
	if code < 4 {
		return code + 1, 0
	}
	extraBits = (code - 2) >> 1
	return (2+code&1)<<uint(extraBits) + 1, extraBits
}

// subSampleSize returns ceil(size / 2^bits).
func subSampleSize(size, bits int) int {
	return (size + 1<<uint(bits) - 1) >> uint(bits)
}

func log2Floor(v int) int {
	return bits.Len(uint(v)) - 1
}
