package lossless

import (
	"math/bits"
	"slices"

	"github.com/deepteams/vp8l/internal/bitio"
)

// HuffmanCode is a prefix code over one alphabet. Codes are stored bit
// reversed so they can be written LSB first.
type HuffmanCode struct {
	Lengths []uint8
	Codes   []uint16
}

// newHuffmanCode builds a length-limited code for counts. Symbols with a
// zero count get no code.
func newHuffmanCode(counts []uint32, maxLen int) *HuffmanCode {
	c := &HuffmanCode{
		Lengths: make([]uint8, len(counts)),
		Codes:   make([]uint16, len(counts)),
	}
	buildCodeLengths(counts, maxLen, c.Lengths)
	c.assignCodes()
	return c
}

// usedSymbols returns up to limit symbols that have a code, in order.
func (c *HuffmanCode) usedSymbols(limit int) []int {
	var syms []int
	for s, l := range c.Lengths {
		if l != 0 {
			syms = append(syms, s)
			if len(syms) == limit {
				break
			}
		}
	}
	return syms
}

// clearIfSingle drops the code when at most one symbol is used; the
// decoder reads such a symbol without consuming bits.
func (c *HuffmanCode) clearIfSingle() {
	if len(c.usedSymbols(2)) > 1 {
		return
	}
	clear(c.Lengths)
	clear(c.Codes)
}

// write emits symbol s.
func (c *HuffmanCode) write(w *bitio.Writer, s int) {
	w.PutBits(uint32(c.Codes[s]), int(c.Lengths[s]))
}

// assignCodes derives canonical codes from the lengths.
func (c *HuffmanCode) assignCodes() {
	var count [maxCodeLength + 1]int
	for _, l := range c.Lengths {
		count[l]++
	}
	count[0] = 0
	var next [maxCodeLength + 1]int
	code := 0
	for l := 1; l <= maxCodeLength; l++ {
		code = (code + count[l-1]) << 1
		next[l] = code
	}
	for s, l := range c.Lengths {
		if l == 0 {
			c.Codes[s] = 0
			continue
		}
		c.Codes[s] = reverseCode(next[l], int(l))
		next[l]++
	}
}

func reverseCode(code, n int) uint16 {
	return uint16(bits.Reverse16(uint16(code)) >> uint(16-n))
}

type huffLeaf struct {
	weight uint32
	sym    int
}

// buildCodeLengths fills lengths with Huffman code lengths for counts,
// none longer than maxLen. Leaves are merged two at a time, lightest
// first, with ties going to the lower symbol. If the tree is too deep the
// smallest counts are raised and the tree rebuilt.
func buildCodeLengths(counts []uint32, maxLen int, lengths []uint8) {
	clear(lengths)
	var leaves []huffLeaf
	for s, n := range counts {
		if n != 0 {
			leaves = append(leaves, huffLeaf{n, s})
		}
	}
	switch len(leaves) {
	case 0:
		return
	case 1:
		lengths[leaves[0].sym] = 1
		return
	}

	n := len(leaves)
	weight := make([]uint64, 2*n-1)
	parent := make([]int, 2*n-1)
	depth := make([]int, 2*n-1)
	for floor := uint32(1); ; floor <<= 1 {
		sorted := make([]huffLeaf, n)
		for i, l := range leaves {
			sorted[i] = huffLeaf{max(l.weight, floor), l.sym}
		}
		slices.SortFunc(sorted, func(a, b huffLeaf) int {
			if a.weight != b.weight {
				if a.weight < b.weight {
					return -1
				}
				return 1
			}
			return a.sym - b.sym
		})
		for i, l := range sorted {
			weight[i] = uint64(l.weight)
		}

		// Leaves sit at [0, n) in weight order and merged nodes are appended
		// in non-decreasing weight, so two queues replace a heap.
		leaf, inner, next := 0, n, n
		lightest := func() int {
			if leaf < n && (inner == next || weight[leaf] <= weight[inner]) {
				leaf++
				return leaf - 1
			}
			inner++
			return inner - 1
		}
		for next < 2*n-1 {
			a, b := lightest(), lightest()
			weight[next] = weight[a] + weight[b]
			parent[a], parent[b] = next, next
			next++
		}

		root := 2*n - 2
		depth[root] = 0
		deepest := 0
		for i := root - 1; i >= 0; i-- {
			depth[i] = depth[parent[i]] + 1
			if i < n {
				deepest = max(deepest, depth[i])
			}
		}
		if deepest <= maxLen {
			for i, l := range sorted {
				lengths[l.sym] = uint8(depth[i])
			}
			return
		}
	}
}

// smoothForRLE flattens nearly constant stretches of counts so the
// resulting code lengths run-length encode better. counts is modified.
func smoothForRLE(counts []uint32) {
	n := len(counts)
	for n > 0 && counts[n-1] == 0 {
		n--
	}
	if n == 0 {
		return
	}

	// Exact runs already long enough to be repeat coded are left alone.
	keep := make([]bool, n)
	for start := 0; start < n; {
		end := start + 1
		for end < n && counts[end] == counts[start] {
			end++
		}
		run := end - start
		if (counts[start] == 0 && run >= 5) || (counts[start] != 0 && run >= 7) {
			for k := start; k < end; k++ {
				keep[k] = true
			}
		}
		start = end
	}

	near := func(a, b uint32) bool {
		if a > b {
			return a-b < 4
		}
		return b-a < 4
	}
	stride, sum := uint32(0), uint32(0)
	limit := counts[0]
	for i := 0; i <= n; i++ {
		if i == n || keep[i] || (i > 0 && keep[i-1]) || !near(counts[i], limit) {
			if stride >= 4 || (stride >= 3 && sum == 0) {
				avg := uint32(0)
				if sum != 0 {
					avg = max((sum+stride/2)/stride, 1)
				}
				for k := uint32(1); k <= stride; k++ {
					counts[i-int(k)] = avg
				}
			}
			stride, sum = 0, 0
			switch {
			case i+3 < n:
				limit = (counts[i] + counts[i+1] + counts[i+2] + counts[i+3] + 2) / 4
			case i < n:
				limit = counts[i]
			default:
				limit = 0
			}
		}
		stride++
		if i < n {
			sum += counts[i]
			if stride >= 4 {
				limit = (sum + stride/2) / stride
			}
		}
	}
}
