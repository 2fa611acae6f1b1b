package lossless

import (
	"slices"

	"github.com/deepteams/vp8l/internal/dsp"
)

// Palette is the ordered colour table of a colour-indexing transform.
type Palette []uint32

const colorSetSize = 1024

// colorSet is an open-addressed set of at most MaxPaletteSize colours,
// each remembering its insertion index.
type colorSet struct {
	keys  [colorSetSize]uint32
	index [colorSetSize]int16
	used  [colorSetSize]bool
	n     int
}

func (s *colorSet) slot(c uint32) int {
	i := int((c * cacheHashMul) >> (32 - 10))
	for s.used[i] && s.keys[i] != c {
		i = (i + 1) & (colorSetSize - 1)
	}
	return i
}

// add inserts c and reports false once the set would exceed
// MaxPaletteSize colours.
func (s *colorSet) add(c uint32) bool {
	i := s.slot(c)
	if s.used[i] {
		return true
	}
	if s.n == MaxPaletteSize {
		return false
	}
	s.keys[i], s.index[i], s.used[i] = c, int16(s.n), true
	s.n++
	return true
}

func (s *colorSet) lookup(c uint32) (int, bool) {
	i := s.slot(c)
	return int(s.index[i]), s.used[i]
}

// collectPalette returns the distinct colours of argb in ascending order,
// or false if there are more than MaxPaletteSize.
func collectPalette(argb []uint32) (Palette, bool) {
	var set colorSet
	last := ^argb[0]
	for _, c := range argb {
		if c == last {
			continue
		}
		if !set.add(c) {
			return nil, false
		}
		last = c
	}
	p := make(Palette, 0, set.n)
	for i, used := range set.used {
		if used {
			p = append(p, set.keys[i])
		}
	}
	slices.Sort(p)
	return p, true
}

// colorDistance weighs per-channel wrapped differences red:green:blue:alpha
// as 5:8:5:1. Green carries the most weight because red and blue are
// usually coded relative to it.
func colorDistance(a, b uint32) int {
	wrap := func(shift uint) int {
		d := int(uint8(a>>shift) - uint8(b>>shift))
		return min(d, 256-d)
	}
	return 5*wrap(16) + 8*wrap(8) + 5*wrap(0) + wrap(24)
}

// dispersion is the average weighted step between consecutive entries.
func (p Palette) dispersion() float64 {
	if len(p) < 2 {
		return 0
	}
	total := 0
	for i := 1; i < len(p); i++ {
		total += colorDistance(p[i-1], p[i])
	}
	return float64(total) / float64(len(p)-1)
}

// fragmentedAbove is the dispersion beyond which a sorted palette is
// considered scattered enough that reordering it is pointless.
func fragmentedAbove(n int) float64 {
	switch {
	case n <= 16:
		return 100
	case n <= 64:
		return 200
	case n <= 128:
		return 300
	}
	return 500
}

// nearestNeighborOrder chains each colour to the closest one not yet
// placed, starting from the first entry. Ties go to the lower index.
func (p Palette) nearestNeighborOrder() Palette {
	out := make(Palette, 0, len(p))
	placed := make([]bool, len(p))
	cur := 0
	for {
		out = append(out, p[cur])
		placed[cur] = true
		if len(out) == len(p) {
			return out
		}
		next, best := -1, 0
		for i, c := range p {
			if placed[i] {
				continue
			}
			if d := colorDistance(p[cur], c); next < 0 || d < best {
				next, best = i, d
			}
		}
		cur = next
	}
}

// optimizeOrder returns the palette reordered to shrink the deltas
// between neighbours, or p itself if that does not help by at least 20%.
func (p Palette) optimizeOrder() (Palette, bool) {
	if len(p) < 3 {
		return p, false
	}
	sorted := p.dispersion()
	if sorted > fragmentedAbove(len(p)) {
		return p, false
	}
	q := p.nearestNeighborOrder()
	if q.dispersion() > 0.8*sorted {
		return p, false
	}
	return q, true
}

// deltas returns the palette with every entry but the first replaced by
// its per-channel difference from the previous one.
func (p Palette) deltas() []uint32 {
	out := make([]uint32, len(p))
	out[0] = p[0]
	for i := 1; i < len(p); i++ {
		out[i] = dsp.SubPixels(p[i], p[i-1])
	}
	return out
}

// undoDeltas is the inverse of deltas.
func undoDeltas(d []uint32) Palette {
	p := make(Palette, len(d))
	for i, v := range d {
		if i == 0 {
			p[0] = v
			continue
		}
		p[i] = dsp.AddPixels(v, p[i-1])
	}
	return p
}

// bundleBits returns how many index bits are packed per pixel, as a
// power of two: 8, 4 or 2 indices per pixel for tiny palettes.
func (p Palette) bundleBits() int {
	switch n := len(p); {
	case n <= 2:
		return 3
	case n <= 4:
		return 2
	case n <= 16:
		return 1
	}
	return 0
}

// apply maps every pixel of the width*height plane argb to its palette
// index and packs the indices into dst, returning the packed width.
func (p Palette) apply(argb []uint32, width, height int, dst []uint32) int {
	var set colorSet
	for _, c := range p {
		set.add(c)
	}
	xbits := p.bundleBits()
	packed := subSampleSize(width, xbits)
	row := make([]uint8, width)
	for y := 0; y < height; y++ {
		for x, c := range argb[y*width : (y+1)*width] {
			idx, _ := set.lookup(c)
			row[x] = uint8(idx)
		}
		dsp.BundleIndices(row, xbits, dst[y*packed:(y+1)*packed])
	}
	return packed
}
