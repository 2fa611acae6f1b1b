package lossless

// Clustering of tile histograms into a small set of Huffman groups.

const (
	// Each of the green, red and blue costs is split into this many bands
	// when binning tiles.
	costBands = 4

	// maxGreedyPairs bounds the candidate pairs evaluated per merge round.
	maxGreedyPairs = 128

	// Random rounds without an improving merge before giving up.
	maxFailedRounds = 8
)

// combineFactor is the share of a tile's own cost that merging it into its
// bin representative must save.
func combineFactor(tiles, quality int) float64 {
	f := 0.16
	if quality < 90 {
		for _, n := range []int{256, 512, 1024} {
			if tiles > n {
				f /= 2
			}
		}
	}
	if quality <= 50 {
		f /= 2
	}
	return f
}

type costRange struct{ lo, hi float64 }

func (r *costRange) band(v float64) int {
	if r.hi <= r.lo {
		return 0
	}
	return int((costBands - 1e-6) * (v - r.lo) / (r.hi - r.lo))
}

// binCombine merges each histogram into the first one that fell in the
// same cost bin when doing so saves enough bits. The inputs are left
// untouched.
func binCombine(hs []*Histogram, quality int) []*Histogram {
	var ranges [3]costRange
	for i, h := range hs {
		for c, part := range [3]float64{h.parts[codeGreen], h.parts[codeRed], h.parts[codeBlue]} {
			if i == 0 {
				ranges[c] = costRange{part, part}
				continue
			}
			ranges[c].lo = min(ranges[c].lo, part)
			ranges[c].hi = max(ranges[c].hi, part)
		}
	}

	factor := combineFactor(len(hs), quality)
	firstInBin := make(map[int]int)
	var out []*Histogram
	for _, h := range hs {
		bin := ranges[0].band(h.parts[codeGreen])
		bin = bin*costBands + ranges[1].band(h.parts[codeRed])
		bin = bin*costBands + ranges[2].band(h.parts[codeBlue])
		if j, ok := firstInBin[bin]; ok {
			rep := out[j]
			if mergedCost(rep, h)-rep.cost-h.cost < -factor*h.cost {
				rep.add(h)
				rep.updateCost()
				continue
			}
		} else {
			firstInBin[bin] = len(out)
		}
		out = append(out, cloneHistogram(h))
	}
	return out
}

func cloneHistogram(h *Histogram) *Histogram {
	c := *h
	c.Literal = append([]uint32(nil), h.Literal...)
	return &c
}

// lcg is a small deterministic generator for pair sampling.
type lcg uint32

func (r *lcg) next(n int) int {
	*r = *r*48271 + 12345
	return int(uint32(*r)>>8) % n
}

// greedyCombine repeatedly merges the pair of histograms whose union saves
// the most bits. Small sets are searched exhaustively; larger ones through
// a bounded random sample of pairs per round.
func greedyCombine(hs []*Histogram) []*Histogram {
	rng := lcg(1)
	failed := 0
	for len(hs) > 1 {
		n := len(hs)
		exhaustive := n*(n-1)/2 <= maxGreedyPairs
		bi, bj, best := -1, -1, 0.0
		consider := func(i, j int) {
			if d := mergedCost(hs[i], hs[j]) - hs[i].cost - hs[j].cost; d < best {
				bi, bj, best = i, j, d
			}
		}
		if exhaustive {
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					consider(i, j)
				}
			}
		} else {
			for k := 0; k < maxGreedyPairs; k++ {
				i, j := rng.next(n), rng.next(n-1)
				if j >= i {
					j++
				}
				consider(min(i, j), max(i, j))
			}
		}
		if bi < 0 {
			if exhaustive {
				break
			}
			if failed++; failed >= maxFailedRounds {
				break
			}
			continue
		}
		failed = 0
		hs[bi].add(hs[bj])
		hs[bi].updateCost()
		hs = append(hs[:bj], hs[bj+1:]...)
	}
	return hs
}

// remap assigns every tile histogram to the cluster it raises the cost of
// the least, then rebuilds the clusters from their tiles. Empty tiles are
// reported as -1.
func remap(tiles, clusters []*Histogram) []int {
	assign := make([]int, len(tiles))
	for t, h := range tiles {
		if h.Empty() {
			assign[t] = -1
			continue
		}
		best, bestCost := 0, 0.0
		if len(clusters) > 1 {
			for c, cl := range clusters {
				if d := mergedCost(cl, h) - cl.cost; c == 0 || d < bestCost {
					best, bestCost = c, d
				}
			}
		}
		assign[t] = best
	}
	for _, cl := range clusters {
		cl.reset()
	}
	for t, h := range tiles {
		if assign[t] >= 0 {
			clusters[assign[t]].add(h)
		}
	}
	return assign
}
