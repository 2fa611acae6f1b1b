package lossless

// Near-lossless preprocessing trades exactness for size: pixels that are
// not in a smooth neighbourhood are snapped to a coarser grid, which makes
// repeats and small residuals more likely. Border rows and columns are
// left intact.

const (
	nearLosslessMinSize = 64
	nearLosslessMaxBits = 5
)

// nearLosslessBits maps the 0..100 setting to a grid exponent; 100 gives 0.
func nearLosslessBits(level int) int {
	return min(nearLosslessMaxBits-level/20, nearLosslessMaxBits)
}

// quantizeChannel rounds v to the nearest multiple of 1<<bits, ties to
// even, saturating at 255.
func quantizeChannel(v uint32, bits uint) uint32 {
	mask := uint32(1)<<bits - 1
	v += mask>>1 + (v>>bits)&1
	if v > 0xff {
		return 0xff
	}
	return v &^ mask
}

func quantizePixel(p uint32, bits uint) uint32 {
	return quantizeChannel(p>>24, bits)<<24 |
		quantizeChannel((p>>16)&0xff, bits)<<16 |
		quantizeChannel((p>>8)&0xff, bits)<<8 |
		quantizeChannel(p&0xff, bits)
}

// within reports whether every channel of a and b differs by less than
// limit.
func within(a, b uint32, limit int) bool {
	for s := uint(0); s < 32; s += 8 {
		d := int((a>>s)&0xff) - int((b>>s)&0xff)
		if d >= limit || d <= -limit {
			return false
		}
	}
	return true
}

// applyNearLossless quantizes the width*height plane argb in place, one
// pass per grid exponent from the coarsest down to 1.
func applyNearLossless(argb []uint32, width, height, level int) {
	bits := nearLosslessBits(level)
	if bits <= 0 || height < 3 || (width < nearLosslessMinSize && height < nearLosslessMinSize) {
		return
	}
	above := make([]uint32, width)
	cur := make([]uint32, width)
	for ; bits >= 1; bits-- {
		limit := 1 << uint(bits)
		copy(above, argb[:width])
		for y := 1; y < height-1; y++ {
			row := argb[y*width : (y+1)*width]
			below := argb[(y+1)*width : (y+2)*width]
			copy(cur, row)
			for x := 1; x < width-1; x++ {
				p := cur[x]
				if within(p, cur[x-1], limit) && within(p, cur[x+1], limit) &&
					within(p, above[x], limit) && within(p, below[x], limit) {
					continue
				}
				row[x] = quantizePixel(p, uint(bits))
			}
			above, cur = cur, above
		}
	}
}
