// Package container implements the RIFF/WEBP framing around a VP8L
// bitstream.
package container

import "encoding/binary"

// FourCC packs a chunk tag the way it appears on disk (little-endian).
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Chunk tags.
var (
	FourCCRIFF = FourCC('R', 'I', 'F', 'F')
	FourCCWEBP = FourCC('W', 'E', 'B', 'P')
	FourCCVP8  = FourCC('V', 'P', '8', ' ')
	FourCCVP8L = FourCC('V', 'P', '8', 'L')
)

// Fields of the 5-byte VP8L stream header.
const (
	VP8LMagicByte       = 0x2f
	VP8LVersion         = 0
	VP8LFrameHeaderSize = 5
)

// Framing sizes, in bytes.
const (
	TagSize         = 4
	ChunkHeaderSize = 8
	RIFFHeaderSize  = 12
	// MaxChunkPayload is the largest chunk size field that still leaves room
	// for a padding byte.
	MaxChunkPayload = ^uint32(0) - ChunkHeaderSize - 1
)

// FourCCString returns the tag as text, for error messages.
func FourCCString(fourcc uint32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], fourcc)
	return string(b[:])
}
