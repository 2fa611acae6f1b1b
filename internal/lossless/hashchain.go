package lossless

// HashChain records, for every pixel position, the longest earlier match
// found for the run of pixels starting there.
type HashChain struct {
	// match[pos] packs distance<<lengthBits | length.
	match []uint32
}

const (
	chainHashBits = 18
	lengthBits    = 12

	// Positions above this are refused rather than allocated.
	maxChainPixels = 1 << 28

	pairMulHi = 0xc6a4a793
	pairMulLo = 0x5bd1e996
)

func pairHash(a, b uint32) uint32 {
	return (b*pairMulHi + a*pairMulLo) >> (32 - chainHashBits)
}

// chainDepth is how many candidates are examined per position.
func chainDepth(quality, method int) int {
	depth := 8 + quality*quality/128
	switch {
	case method == 0:
		depth = min(depth, 8)
	case method <= 2:
		depth = min(depth, 24)
	case method == 3:
		depth = min(depth, 48)
	}
	return depth
}

// chainWindow is the furthest back a match may start.
func chainWindow(quality, width int) int {
	switch {
	case quality > 75:
		return windowSize
	case quality > 50:
		return min(width<<8, windowSize)
	case quality > 25:
		return min(width<<6, windowSize)
	}
	return min(width<<4, windowSize)
}

// newHashChain indexes argb (width*height pixels) and computes the best
// match at every position.
func newHashChain(argb []uint32, width, height, quality, method int) (*HashChain, error) {
	size := width * height
	if width <= 0 || height <= 0 || size > maxChainPixels {
		return nil, ErrOutOfMemory
	}
	hc := &HashChain{match: make([]uint32, size)}
	if size < 3 {
		return hc, nil
	}

	// Link every position to the previous one with the same pixel pair.
	// The chain shares storage with match until the search below replaces
	// links with results, which happens strictly right to left.
	chain := hc.match
	head := make([]int32, 1<<chainHashBits)
	for i := range head {
		head[i] = -1
	}
	for pos := 0; pos < size-1; pos++ {
		h := pairHash(argb[pos], argb[pos+1])
		chain[pos] = uint32(head[h])
		head[h] = int32(pos)
	}

	depth := chainDepth(quality, method)
	window := chainWindow(quality, width)
	hc.match[size-1] = 0

	for base := size - 2; base > 0; {
		limit := min(size-base, maxCopyLength)
		cur := argb[base:]
		bestLen, bestDist := 0, 0
		budget := depth

		// Straight left and straight up are tried first; they are cheap
		// to code.
		if base >= width {
			if n := matchLength(argb[base-width:], cur, 0, limit); n > bestLen {
				bestLen, bestDist = n, width
			}
			budget--
		}
		if n := matchLength(argb[base-1:], cur, bestLen, limit); n > bestLen {
			bestLen, bestDist = n, 1
		}
		budget--

		lowest := max(base-window, 0)
		good := min(limit, 256)
		if bestLen < limit {
			for pos := int(int32(chain[base])); pos >= lowest && budget > 0; pos = int(int32(chain[pos])) {
				budget--
				if n := matchLength(argb[pos:], cur, bestLen, limit); n > bestLen {
					bestLen, bestDist = n, base-pos
					if bestLen >= good {
						break
					}
				}
			}
		}

		// A match at base usually extends one pixel to the left, which
		// saves searching there.
		reach := base
		for {
			hc.match[base] = uint32(bestDist)<<lengthBits | uint32(min(bestLen, maxCopyLength))
			base--
			if bestDist == 0 || base == 0 || base < bestDist || argb[base-bestDist] != argb[base] {
				break
			}
			if bestLen == maxCopyLength && bestDist != 1 && base+maxCopyLength < reach {
				break
			}
			if bestLen < maxCopyLength {
				bestLen++
				reach = base
			}
		}
	}
	hc.match[0] = 0
	return hc, nil
}

// matchLength returns how many leading pixels of a and b agree, up to
// limit. If the two differ at index best the match cannot improve on
// best and 0 is returned without scanning.
func matchLength(a, b []uint32, best, limit int) int {
	if best < limit && a[best] != b[best] {
		return 0
	}
	n := 0
	for n < limit && a[n] == b[n] {
		n++
	}
	return n
}

// Length returns the match length at pos.
func (hc *HashChain) Length(pos int) int {
	return int(hc.match[pos] & (1<<lengthBits - 1))
}

// Distance returns the match distance at pos.
func (hc *HashChain) Distance(pos int) int {
	return int(hc.match[pos] >> lengthBits)
}
