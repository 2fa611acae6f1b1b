package lossless

import (
	"math"
	"slices"
)

// Cost-model parsing: price every symbol from the statistics of a first
// parse, find the cheapest literal/copy path through the image by dynamic
// programming, then trace that path back from the last pixel.

// Literal and cache costs are scaled down; the first parse overstates
// them relative to what the final codes achieve.
const traceLiteralScale = 0.82

// costModel holds per-symbol bit costs taken from a seed parse.
type costModel struct {
	alpha, red, green, blue [numLiteralCodes]float64
	distance                [numDistanceCodes]float64
	// length[n] is the cost of the prefix symbol and extra bits of a copy
	// of n pixels.
	length [maxCopyLength + 1]float64
}

// symbolCosts sets out[i] to log2(sum/counts[i]). Unseen symbols cost as
// much as a symbol seen once; a population with one symbol costs nothing.
func symbolCosts(counts []uint32, out []float64) {
	var sum uint64
	nonzeros := 0
	for _, c := range counts {
		sum += uint64(c)
		if c != 0 {
			nonzeros++
		}
	}
	if nonzeros <= 1 {
		clear(out)
		return
	}
	logSum := math.Log2(float64(sum))
	for i, c := range counts {
		out[i] = logSum
		if c != 0 {
			out[i] -= math.Log2(float64(c))
		}
	}
}

func newCostModel(seed *TokenStream, width int) *costModel {
	h := seedHistogram(seed, width)
	m := &costModel{}
	symbolCosts(h.Alpha[:], m.alpha[:])
	symbolCosts(h.Red[:], m.red[:])
	symbolCosts(h.Blue[:], m.blue[:])
	symbolCosts(h.Distance[:], m.distance[:])

	green := make([]float64, len(h.Literal))
	symbolCosts(h.Literal, green)
	copy(m.green[:], green)
	for n := 1; n <= maxCopyLength; n++ {
		code, extra, _ := prefixEncode(n)
		m.length[n] = green[numLiteralCodes+code] + float64(extra)
	}
	return m
}

func (m *costModel) literal(p uint32) float64 {
	return traceLiteralScale * (m.alpha[p>>24] + m.red[(p>>16)&0xff] + m.green[(p>>8)&0xff] + m.blue[p&0xff])
}

func (m *costModel) distanceCost(planeCode int) float64 {
	code, extra, _ := prefixEncode(planeCode)
	return m.distance[code] + float64(extra)
}

// traceRefs writes to refs the cheapest parse of argb under the cost model
// of seed. A copy may start wherever hc records a match of at least minLen
// pixels and may be cut to any length from minLen up to that match.
func traceRefs(argb []uint32, width int, hc *HashChain, minLen int, seed, refs *TokenStream) {
	m := newCostModel(seed, width)
	size := len(argb)

	// cost[j] is the cheapest way found to code the first j pixels and
	// step[j] the length of the last token on that path.
	cost := make([]float64, size+1)
	step := make([]uint16, size+1)
	for j := 1; j <= size; j++ {
		cost[j] = math.MaxFloat64
	}
	for i := 0; i < size; i++ {
		if c := cost[i] + m.literal(argb[i]); c < cost[i+1] {
			cost[i+1], step[i+1] = c, 1
		}
		n := hc.Length(i)
		if n < minLen {
			continue
		}
		code := distanceToPlaneCode(width, hc.Distance(i))
		base := cost[i] + m.distanceCost(code)
		for k := minLen; k <= n; k++ {
			if c := base + m.length[k]; c < cost[i+k] {
				cost[i+k], step[i+k] = c, uint16(k)
			}
		}
		// Long copies from the left or straight up are taken as they are;
		// the positions inside them are not tried as copy starts.
		if n >= 128 && code <= 2 {
			i += n - 2
		}
	}

	// Pack the chosen path at the end of step. Writes stay at or above the
	// index being read.
	end := len(step)
	for j := size; j > 0; {
		k := int(step[j])
		end--
		step[end] = uint16(k)
		j -= k
	}
	refs.reset()
	pos := 0
	for _, k := range step[end:] {
		if k == 1 {
			refs.add(Literal(argb[pos]))
		} else {
			refs.add(Copy(int(k), hc.Distance(pos)))
		}
		pos += int(k)
	}
}

// boxCodes is how many of the smallest plane codes the box parse may use.
const boxCodes = 32

// boxOffsets returns the linear distances of the boxCodes smallest plane
// codes, in code order. Codes a narrow image cannot express are skipped.
func boxOffsets(width int) []int {
	var byCode [boxCodes]int
	for y := 0; y <= 6; y++ {
		for x := -6; x <= 6; x++ {
			d := y*width + x
			if d <= 0 {
				continue
			}
			if code := distanceToPlaneCode(width, d) - 1; code < boxCodes {
				byCode[code] = d
			}
		}
	}
	offsets := make([]int, 0, boxCodes)
	for _, d := range byCode {
		if d != 0 {
			offsets = append(offsets, d)
		}
	}
	return offsets
}

// runMatch returns how many pixels from a and from b agree, given that
// argb[a] == argb[b]. It hops over runs of equal pixels using runs.
func runMatch(argb []uint32, runs []uint16, a, b int) int {
	n := 0
	for {
		ra, rb := int(runs[a]), int(runs[b])
		if ra != rb {
			return min(n+min(ra, rb), maxCopyLength)
		}
		n += ra
		a += ra
		b += ra
		if n >= maxCopyLength || b >= len(argb) || argb[a] != argb[b] {
			return min(n, maxCopyLength)
		}
	}
}

// boxRefs parses argb greedily with copies restricted to the small 2D
// neighbourhood whose distances have the cheapest plane codes. Matches of
// full length found by best are reused when their distance qualifies.
func boxRefs(argb []uint32, width int, best *HashChain, minLen int, refs *TokenStream) {
	size := len(argb)
	runs := make([]uint16, size)
	runs[size-1] = 1
	for i := size - 2; i >= 0; i-- {
		runs[i] = 1
		if argb[i] == argb[i+1] {
			runs[i] = min(runs[i+1]+1, maxCopyLength)
		}
	}

	offsets := boxOffsets(width)
	// A match inherited from the previous position already covers every
	// offset that is one more than another offset; only the rest need a
	// fresh look.
	var fresh []int
	for _, d := range offsets {
		if !slices.Contains(offsets, d-1) {
			fresh = append(fresh, d)
		}
	}

	box := &HashChain{match: make([]uint32, size)}
	prevLen, prevDist := 0, 0
	for i := 1; i < size; i++ {
		n, d := best.Length(i), best.Distance(i)
		if n < maxCopyLength || !slices.Contains(offsets, d) {
			cands := offsets
			n, d = 0, 0
			if prevLen > 1 && prevLen < maxCopyLength {
				cands = fresh
				n, d = prevLen-1, prevDist
			}
			for _, off := range cands {
				if off > i || argb[i-off] != argb[i] {
					continue
				}
				if l := runMatch(argb, runs, i-off, i); l > n {
					n, d = l, off
					if n == maxCopyLength {
						break
					}
				}
			}
		}
		if n <= 1 {
			n, d = 0, 0
		}
		box.match[i] = uint32(d)<<lengthBits | uint32(n)
		prevLen, prevDist = n, d
	}
	lz77Refs(argb, box, minLen, refs)
}
