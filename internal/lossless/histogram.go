package lossless

// Histogram holds symbol counts for the five alphabets of one Huffman
// group.
type Histogram struct {
	// Literal counts green values, then length prefixes, then colour
	// cache keys.
	Literal  []uint32
	Red      [numLiteralCodes]uint32
	Blue     [numLiteralCodes]uint32
	Alpha    [numLiteralCodes]uint32
	Distance [numDistanceCodes]uint32

	cacheBits int
	tokens    int
	cost      float64
	parts     [codesPerGroup]float64
}

func newHistogram(cacheBits int) *Histogram {
	return &Histogram{
		Literal:   make([]uint32, alphabetSize(codeGreen, cacheBits)),
		cacheBits: cacheBits,
	}
}

// AddToken counts t. Copy distances must already be plane codes.
func (h *Histogram) AddToken(t Token) {
	h.tokens++
	switch t.Kind {
	case KindLiteral:
		h.Alpha[t.Value>>24]++
		h.Red[(t.Value>>16)&0xff]++
		h.Literal[(t.Value>>8)&0xff]++
		h.Blue[t.Value&0xff]++
	case KindCacheIndex:
		h.Literal[numLiteralCodes+numLengthCodes+int(t.Value)]++
	case KindCopy:
		code, _, _ := prefixEncode(int(t.Length))
		h.Literal[numLiteralCodes+code]++
		code, _, _ = prefixEncode(int(t.Value))
		h.Distance[code]++
	}
}

// AddStream counts every token of s.
func (h *Histogram) AddStream(s *TokenStream) {
	for _, t := range s.Tokens {
		h.AddToken(t)
	}
}

// Empty reports whether no token was counted.
func (h *Histogram) Empty() bool { return h.tokens == 0 }

func (h *Histogram) populations() [codesPerGroup][]uint32 {
	return [codesPerGroup][]uint32{h.Literal, h.Red[:], h.Blue[:], h.Alpha[:], h.Distance[:]}
}

// add accumulates o into h.
func (h *Histogram) add(o *Histogram) {
	dst, src := h.populations(), o.populations()
	for i := range dst {
		for s, c := range src[i] {
			dst[i][s] += c
		}
	}
	h.tokens += o.tokens
}

func (h *Histogram) reset() {
	for _, p := range h.populations() {
		clear(p)
	}
	h.tokens = 0
	h.cost = 0
	h.parts = [codesPerGroup]float64{}
}

// updateCost refreshes the cached coding cost of the histogram.
func (h *Histogram) updateCost() {
	h.cost = 0
	for i, p := range h.populations() {
		h.parts[i] = populationCost(p)
		h.cost += h.parts[i]
	}
}

// mergedCost returns the coding cost of a + b.
func mergedCost(a, b *Histogram) float64 {
	pa, pb := a.populations(), b.populations()
	var cost float64
	for i := range pa {
		cost += combinedCost(pa[i], pb[i])
	}
	return cost
}

// estimateBits returns the estimated size of the coded tokens including
// extra bits of lengths and distances.
func (h *Histogram) estimateBits() float64 {
	h.updateCost()
	return h.cost + prefixExtraBits(h.Literal[numLiteralCodes:numLiteralCodes+numLengthCodes]) +
		prefixExtraBits(h.Distance[:])
}

// huffmanCodes builds the five codes of the group.
func (h *Histogram) huffmanCodes() [codesPerGroup]*HuffmanCode {
	var codes [codesPerGroup]*HuffmanCode
	for i, p := range h.populations() {
		counts := append([]uint32(nil), p...)
		smoothForRLE(counts)
		codes[i] = newHuffmanCode(counts, maxCodeLength)
	}
	return codes
}
