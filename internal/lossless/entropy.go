package lossless

import "math"

// Bit cost estimates used to compare candidate encodings. None of these
// need to be exact; they only need to rank alternatives consistently.

const slog2TableSize = 4096

// slog2Table[v] = v * log2(v).
var slog2Table = func() (t [slog2TableSize]float64) {
	for i := 1; i < slog2TableSize; i++ {
		t[i] = float64(i) * math.Log2(float64(i))
	}
	return t
}()

// slog2 returns v * log2(v), and 0 for v == 0.
func slog2(v uint64) float64 {
	if v < slog2TableSize {
		return slog2Table[v]
	}
	f := float64(v)
	return f * math.Log2(f)
}

// shannonBits returns the Shannon cost in bits of coding the population.
func shannonBits(counts []uint32) float64 {
	var sum uint64
	var acc float64
	for _, c := range counts {
		if c != 0 {
			sum += uint64(c)
			acc += slog2(uint64(c))
		}
	}
	return slog2(sum) - acc
}

// popStats summarises a population for cost estimation: its Shannon cost
// and the zero/non-zero run structure that drives the size of the code
// description.
type popStats struct {
	sum      uint64
	maxCount uint64
	nonzeros int
	entropy  float64

	// runs[z][long] sums run lengths of zero (z=0) or non-zero (z=1)
	// values, split by whether the run is longer than 3; longRuns counts
	// the long ones.
	runs     [2][2]int
	longRuns [2]int
}

// scanPopulation computes popStats for a, or for the element-wise sum of
// a and b when b is non-nil.
func scanPopulation(a, b []uint32) popStats {
	var s popStats
	if len(a) == 0 {
		return s
	}
	at := func(i int) uint64 {
		if b != nil {
			return uint64(a[i]) + uint64(b[i])
		}
		return uint64(a[i])
	}
	flush := func(v uint64, run int) {
		nz := 0
		if v != 0 {
			nz = 1
			s.sum += v * uint64(run)
			s.nonzeros += run
			s.entropy += slog2(v) * float64(run)
			s.maxCount = max(s.maxCount, v)
		}
		long := 0
		if run > 3 {
			long = 1
		}
		s.longRuns[nz] += long
		s.runs[nz][long] += run
	}
	prev, start := at(0), 0
	for i := 1; i < len(a); i++ {
		if v := at(i); v != prev {
			flush(prev, i-start)
			prev, start = v, i
		}
	}
	flush(prev, len(a)-start)
	s.entropy = slog2(s.sum) - s.entropy
	return s
}

// dataBits estimates the bits spent on symbols. Shannon entropy is too
// optimistic for sparse populations, so it is blended towards a bound
// that assumes the code cannot beat one bit for the dominant symbol.
func (s *popStats) dataBits() float64 {
	mix := 0.627
	switch {
	case s.nonzeros <= 1:
		return 0
	case s.nonzeros == 2:
		return 0.99*float64(s.sum) + 0.01*s.entropy
	case s.nonzeros == 3:
		mix = 0.95
	case s.nonzeros == 4:
		mix = 0.7
	}
	floor := float64(2*s.sum - s.maxCount)
	floor = mix*floor + (1-mix)*s.entropy
	return max(s.entropy, floor)
}

// headerBits estimates the bits spent describing the code itself.
func (s *popStats) headerBits() float64 {
	bits := float64(numCodeLengths*3) - 9.1
	bits += float64(s.longRuns[0]) * 1.5625
	bits += float64(s.runs[0][1]) * 0.234375
	bits += float64(s.longRuns[1]) * 2.578125
	bits += float64(s.runs[1][1]) * 0.703125
	bits += float64(s.runs[0][0]) * 1.796875
	bits += float64(s.runs[1][0]) * 3.28125
	return bits
}

// populationCost estimates the total cost of coding a population with its
// own Huffman code.
func populationCost(counts []uint32) float64 {
	s := scanPopulation(counts, nil)
	return s.dataBits() + s.headerBits()
}

// combinedCost is populationCost of a + b without materialising the sum.
func combinedCost(a, b []uint32) float64 {
	s := scanPopulation(a, b)
	return s.dataBits() + s.headerBits()
}

// prefixExtraBits returns the extra bits carried by prefix-coded symbols
// with the given counts (lengths or distances).
func prefixExtraBits(counts []uint32) float64 {
	var bits float64
	for code := 4; code < len(counts); code++ {
		bits += float64((code-2)>>1) * float64(counts[code])
	}
	return bits
}
