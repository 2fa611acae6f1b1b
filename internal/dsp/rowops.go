package dsp

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/cpu"
)

// RowOps converts rows between interleaved NRGBA bytes and packed ARGB
// words. The implementation is picked once from CPU capabilities by
// Select and then passed explicitly to whoever needs it.
type RowOps struct {
	// Name identifies the implementation, for logs and tests.
	Name string
	// ImportNRGBA fills dst[i] from src[4*i:4*i+4] (R, G, B, A).
	ImportNRGBA func(dst []uint32, src []byte)
	// ExportNRGBA is the inverse of ImportNRGBA.
	ExportNRGBA func(dst []byte, src []uint32)
}

var (
	// Generic converts one byte at a time.
	Generic = &RowOps{
		Name:        "generic",
		ImportNRGBA: importNRGBAGeneric,
		ExportNRGBA: exportNRGBAGeneric,
	}
	// Wide converts a 32-bit word per pixel with a byte swizzle.
	Wide = &RowOps{
		Name:        "wide",
		ImportNRGBA: importNRGBAWide,
		ExportNRGBA: exportNRGBAWide,
	}
)

// Select returns the row implementation for this CPU. The result is
// computed once per process and is read-only.
var Select = sync.OnceValue(func() *RowOps {
	if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD {
		return Wide
	}
	return Generic
})

func importNRGBAGeneric(dst []uint32, src []byte) {
	for i := range dst {
		s := src[4*i : 4*i+4 : 4*i+4]
		dst[i] = uint32(s[3])<<24 | uint32(s[0])<<16 | uint32(s[1])<<8 | uint32(s[2])
	}
}

func exportNRGBAGeneric(dst []byte, src []uint32) {
	for i, p := range src {
		d := dst[4*i : 4*i+4 : 4*i+4]
		d[0] = byte(p >> 16)
		d[1] = byte(p >> 8)
		d[2] = byte(p)
		d[3] = byte(p >> 24)
	}
}

// The little-endian load of R,G,B,A is 0xAABBGGRR; swapping R and B gives
// ARGB.
func importNRGBAWide(dst []uint32, src []byte) {
	for i := range dst {
		v := binary.LittleEndian.Uint32(src[4*i:])
		dst[i] = v&0xff00ff00 | (v&0xff)<<16 | (v>>16)&0xff
	}
}

func exportNRGBAWide(dst []byte, src []uint32) {
	for i, p := range src {
		binary.LittleEndian.PutUint32(dst[4*i:], p&0xff00ff00|(p&0xff)<<16|(p>>16)&0xff)
	}
}
