package container

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors returned by the parser.
var (
	ErrInvalidRIFF = errors.New("container: invalid RIFF header")
	ErrInvalidWebP = errors.New("container: invalid WEBP signature")
	ErrTruncated   = errors.New("container: truncated data")
	ErrTooLarge    = errors.New("container: payload too large")
	ErrUnsupported = errors.New("container: unsupported chunk")
	ErrInvalidVP8L = errors.New("container: invalid VP8L header")
)

// Header is the information packed in the first five bytes of a VP8L
// bitstream.
type Header struct {
	Width    int
	Height   int
	HasAlpha bool
	Version  int
}

// ParseVP8LHeader decodes the VP8L signature and packed size header.
func ParseVP8LHeader(payload []byte) (Header, error) {
	if len(payload) < VP8LFrameHeaderSize {
		return Header{}, ErrTruncated
	}
	if payload[0] != VP8LMagicByte {
		return Header{}, ErrInvalidVP8L
	}
	bits := binary.LittleEndian.Uint32(payload[1:5])
	h := Header{
		Width:    int(bits&0x3fff) + 1,
		Height:   int(bits>>14&0x3fff) + 1,
		HasAlpha: bits>>28&1 == 1,
		Version:  int(bits >> 29),
	}
	if h.Version != VP8LVersion {
		return Header{}, fmt.Errorf("%w: version %d", ErrInvalidVP8L, h.Version)
	}
	return h, nil
}

// PaddedSize returns size rounded up to an even number of bytes.
func PaddedSize(size uint32) uint32 {
	return size + (size & 1)
}

// WrapVP8L returns the simple-format file RIFF, WEBP, VP8L holding payload.
func WrapVP8L(payload []byte) ([]byte, error) {
	if uint64(len(payload)) > uint64(MaxChunkPayload)-TagSize-ChunkHeaderSize {
		return nil, ErrTooLarge
	}
	size := uint32(len(payload))
	riffSize := TagSize + ChunkHeaderSize + PaddedSize(size)
	buf := make([]byte, ChunkHeaderSize+riffSize)

	binary.LittleEndian.PutUint32(buf[0:4], FourCCRIFF)
	binary.LittleEndian.PutUint32(buf[4:8], riffSize)
	binary.LittleEndian.PutUint32(buf[8:12], FourCCWEBP)
	binary.LittleEndian.PutUint32(buf[12:16], FourCCVP8L)
	binary.LittleEndian.PutUint32(buf[16:20], size)
	copy(buf[20:], payload)
	return buf, nil
}

// ExtractVP8L returns the VP8L payload of a simple-format WebP file. A
// buffer that starts with the VP8L signature byte is returned unchanged.
func ExtractVP8L(data []byte) ([]byte, error) {
	if len(data) > 0 && data[0] == VP8LMagicByte {
		return data, nil
	}
	if len(data) < RIFFHeaderSize+ChunkHeaderSize {
		return nil, ErrTruncated
	}
	if binary.LittleEndian.Uint32(data[0:4]) != FourCCRIFF {
		return nil, ErrInvalidRIFF
	}
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if riffSize < TagSize+ChunkHeaderSize {
		return nil, ErrInvalidRIFF
	}
	if binary.LittleEndian.Uint32(data[8:12]) != FourCCWEBP {
		return nil, ErrInvalidWebP
	}
	end := len(data)
	if uint64(riffSize)+ChunkHeaderSize < uint64(end) {
		end = int(riffSize) + ChunkHeaderSize
	}
	buf := data[RIFFHeaderSize:end]
	fourcc := binary.LittleEndian.Uint32(buf[0:4])
	size := binary.LittleEndian.Uint32(buf[4:8])
	if fourcc != FourCCVP8L {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, FourCCString(fourcc))
	}
	if size > MaxChunkPayload {
		return nil, ErrTooLarge
	}
	if uint64(size) > uint64(len(buf)-ChunkHeaderSize) {
		return nil, ErrTruncated
	}
	return buf[ChunkHeaderSize : ChunkHeaderSize+int(size)], nil
}
