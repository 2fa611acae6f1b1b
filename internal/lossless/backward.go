package lossless

// minCopyLength is the shortest match the parsers turn into a copy.
func minCopyLength(method int) int {
	if method >= 5 {
		return 3
	}
	return 4
}

// lz77Refs parses argb greedily using the matches recorded in hc. A match
// is cut short when stopping earlier lets the next match reach further.
func lz77Refs(argb []uint32, hc *HashChain, minLen int, refs *TokenStream) {
	refs.reset()
	size := len(argb)
	for i := 0; i < size; {
		n := hc.Length(i)
		if n < minLen {
			refs.add(Literal(argb[i]))
			i++
			continue
		}
		dist := hc.Distance(i)
		best, reach := n, 0
		last := min(i+n, size-1)
		for j := i + 1; j <= last; j++ {
			r := j + 1
			if nj := hc.Length(j); nj >= minLen {
				r = j + nj
			}
			if r > reach {
				best, reach = j-i, r
				if reach >= size {
					break
				}
			}
		}
		if best == 1 {
			refs.add(Literal(argb[i]))
		} else {
			refs.add(Copy(best, dist))
		}
		i += best
	}
}

// rleRefs only copies from the previous pixel or the pixel above.
func rleRefs(argb []uint32, width, minLen int, refs *TokenStream) {
	refs.reset()
	size := len(argb)
	for i := 0; i < size; {
		limit := min(size-i, maxCopyLength)
		left, up := 0, 0
		if i > 0 {
			left = matchLength(argb[i-1:], argb[i:], 0, limit)
		}
		if i >= width {
			up = matchLength(argb[i-width:], argb[i:], 0, limit)
		}
		switch {
		case left >= up && left >= minLen:
			refs.add(Copy(left, 1))
			i += left
		case up >= minLen:
			refs.add(Copy(up, width))
			i += up
		default:
			refs.add(Literal(argb[i]))
			i++
		}
	}
}

// seedHistogram counts refs without a colour cache. Linear distances are
// converted on the fly.
func seedHistogram(refs *TokenStream, width int) *Histogram {
	h := newHistogram(0)
	for _, t := range refs.Tokens {
		if t.Kind == KindCopy && !refs.PlaneCoded {
			t.Value = uint32(distanceToPlaneCode(width, int(t.Value)))
		}
		h.AddToken(t)
	}
	return h
}

// streamBits estimates the coded size of refs without a colour cache.
func streamBits(refs *TokenStream, width int) float64 {
	return seedHistogram(refs, width).estimateBits()
}

// backwardRefs returns the cheapest of several parses of the width*height
// plane argb, without colour cache references: greedy LZ77 and RLE, plus
// for method 5 and up a parse restricted to near 2D neighbours and a
// cost-model parse seeded with the best of the others.
func backwardRefs(argb []uint32, width, height, quality, method int) (*TokenStream, error) {
	hc, err := newHashChain(argb, width, height, quality, method)
	if err != nil {
		return nil, err
	}
	minLen := minCopyLength(method)
	newStream := func() *TokenStream {
		return &TokenStream{Tokens: make([]Token, 0, len(argb)/4+16)}
	}
	best := newStream()
	lz77Refs(argb, hc, minLen, best)
	bestBits := streamBits(best, width)
	traceable := true

	try := func(refs *TokenStream, lz bool) {
		if bits := streamBits(refs, width); bits < bestBits {
			best, bestBits, traceable = refs, bits, lz
		}
	}
	rle := newStream()
	rleRefs(argb, width, minLen, rle)
	try(rle, false)
	if method >= 5 {
		box := newStream()
		boxRefs(argb, width, hc, minLen, box)
		try(box, true)
		if traceable && quality >= 25 {
			traced := newStream()
			traceRefs(argb, width, hc, minLen, best, traced)
			try(traced, true)
		}
	}
	return best, nil
}

// bestCacheBits picks the colour cache size in [0, maxBits] that minimises
// the estimated size of refs. All sizes are evaluated in one pass.
func bestCacheBits(argb []uint32, width int, refs *TokenStream, maxBits int) int {
	if maxBits <= 0 {
		return 0
	}
	maxBits = min(maxBits, MaxCacheBits)
	histos := make([]*Histogram, maxBits+1)
	caches := make([]*ColorCache, maxBits+1)
	for b := range histos {
		histos[b] = newHistogram(b)
		if b > 0 {
			caches[b] = NewColorCache(b)
		}
	}
	pos := 0
	for _, t := range refs.Tokens {
		if t.Kind == KindCopy {
			ct := t
			if !refs.PlaneCoded {
				ct.Value = uint32(distanceToPlaneCode(width, int(t.Value)))
			}
			for b, h := range histos {
				h.AddToken(ct)
				if b > 0 {
					for _, p := range argb[pos : pos+t.Pixels()] {
						caches[b].Insert(p)
					}
				}
			}
			pos += t.Pixels()
			continue
		}
		p := argb[pos]
		histos[0].AddToken(Literal(p))
		for b := 1; b <= maxBits; b++ {
			if key, ok := caches[b].Find(p); ok {
				histos[b].AddToken(CacheIndex(key))
			} else {
				histos[b].AddToken(Literal(p))
				caches[b].Insert(p)
			}
		}
		pos++
	}

	best, bestBits := 0, histos[0].estimateBits()
	for b := 1; b <= maxBits; b++ {
		if bits := histos[b].estimateBits(); bits < bestBits {
			best, bestBits = b, bits
		}
	}
	return best
}

// applyCache rewrites literals of refs as cache references where a cache
// of the given size would hold the colour.
func applyCache(argb []uint32, refs *TokenStream, bits int) {
	if bits == 0 {
		return
	}
	cache := NewColorCache(bits)
	pos := 0
	for i := range refs.Tokens {
		t := &refs.Tokens[i]
		switch t.Kind {
		case KindCopy:
			for _, p := range argb[pos : pos+t.Pixels()] {
				cache.Insert(p)
			}
		default:
			p := argb[pos]
			if key, ok := cache.Find(p); ok {
				*t = CacheIndex(key)
			} else {
				*t = Literal(p)
				cache.Insert(p)
			}
		}
		pos += t.Pixels()
	}
}
