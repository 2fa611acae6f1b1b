package lossless

import (
	"math"

	"github.com/deepteams/vp8l/internal/dsp"
)

// plan is the outcome of analysis: which transforms to apply and the
// sampling parameters of the encode.
type plan struct {
	palette       Palette
	reordered     bool
	subtractGreen bool
	predictor     bool
	crossColor    bool
	transformBits int
	histoBits     int
	maxCacheBits  int
}

// Palettes in this size range may lose to the spatial transforms.
const (
	midPaletteMin = 17
	midPaletteMax = 96
)

// analyze inspects the width*height plane argb and decides on the
// transforms.
func analyze(argb []uint32, width, height int, cfg *EncoderConfig) plan {
	var p plan
	palette, ok := collectPalette(argb)
	if ok {
		p.palette = palette
		if cfg.Method > 0 {
			p.palette, p.reordered = palette.optimizeOrder()
		}
	}

	if cfg.Method == 0 {
		if p.palette == nil {
			p.subtractGreen, p.predictor = true, true
		}
		p.finish(width, height, cfg)
		return p
	}

	competing := p.palette != nil && len(p.palette) >= midPaletteMin &&
		len(p.palette) <= midPaletteMax && cfg.Quality > 75
	if p.palette != nil && !competing {
		p.finish(width, height, cfg)
		return p
	}

	est := newEstimator(argb, width, height)
	raw := est.direct(false)
	green := est.direct(true)
	sg := useSubtractGreen(raw, green, competing)
	base := raw
	if sg {
		base = green
	}
	tileBits := transformBits(cfg.Method, histoBits(cfg.Method, false, width, height))
	predicted := est.predicted(sg, tileBits)
	pred := predicted <= 0.95*est.leftDiff(sg)

	if competing {
		spatial := base
		if pred {
			spatial = predicted
		}
		if est.indexed(p.palette) <= spatial {
			p.finish(width, height, cfg)
			return p
		}
		p.palette, p.reordered = nil, false
	}

	p.subtractGreen = sg
	p.predictor = pred
	p.crossColor = pred && cfg.Hint != HintPhoto
	p.finish(width, height, cfg)
	return p
}

// useSubtractGreen reports whether subtracting green pays off given the
// estimated costs with and without it. Against a competing palette it has
// to save a fifth.
func useSubtractGreen(raw, green float64, competing bool) bool {
	if competing {
		return green < 0.8*raw
	}
	return green < raw
}

// finish derives tile sizes and the colour cache ceiling.
func (p *plan) finish(width, height int, cfg *EncoderConfig) {
	usePalette := p.palette != nil
	p.histoBits = histoBits(cfg.Method, usePalette, width, height)
	p.transformBits = transformBits(cfg.Method, p.histoBits)
	switch {
	case cfg.Quality <= 25:
		p.maxCacheBits = 0
	case usePalette:
		p.maxCacheBits = log2Floor(len(p.palette)) + 1
	default:
		p.maxCacheBits = MaxCacheBits - 1
	}
}

// clampBits keeps a sub-sampling exponent in [lo, hi], raising it until
// the sub-sampled image has at most maxSize entries and lowering it while
// that image would collapse to a single entry.
func clampBits(width, height, bits, lo, hi, maxSize int) int {
	bits = min(max(bits, lo), hi)
	area := func(b int) int { return subSampleSize(width, b) * subSampleSize(height, b) }
	for bits < hi && area(bits) > maxSize {
		bits++
	}
	for bits > lo && area(bits-1) == 1 {
		bits--
	}
	return bits
}

// histoBits returns the meta-Huffman tile exponent.
func histoBits(method int, usePalette bool, width, height int) int {
	bits := 7 - method
	if usePalette {
		bits = 9 - method
	}
	return clampBits(width, height, bits, minHistoBits, maxHistoBits, maxHistoImageSize)
}

// transformBits returns the predictor and cross-colour tile exponent.
func transformBits(method, histoBits int) int {
	limit := 5
	switch {
	case method < 4:
		limit = 6
	case method > 4:
		limit = 4
	}
	return max(min(histoBits, limit), minTransformBits)
}

// estimator measures sampled channel entropies. It owns two histogram
// buffers that are reused across every estimate.
type estimator struct {
	argb          []uint32
	width, height int
	step          int
	hist          [2][4][256]uint32
	tile          tileHist
}

const estimateSamples = 1 << 16

func newEstimator(argb []uint32, width, height int) *estimator {
	step := 1
	if n := width * height; n > estimateSamples {
		step = int(math.Sqrt(float64(n) / estimateSamples))
	}
	return &estimator{argb: argb, width: width, height: height, step: max(step, 1)}
}

func (e *estimator) at(x, y int, sg bool) uint32 {
	p := e.argb[y*e.width+x]
	if sg {
		g := (p >> 8) & 0xff
		r := (p>>16 - g) & 0xff
		b := (p - g) & 0xff
		p = p&0xff00ff00 | r<<16 | b
	}
	return p
}

func (e *estimator) reset(buf int) {
	for c := range e.hist[buf] {
		clear(e.hist[buf][c][:])
	}
}

func (e *estimator) count(buf int, p uint32) {
	h := &e.hist[buf]
	h[0][p>>24]++
	h[1][(p>>16)&0xff]++
	h[2][(p>>8)&0xff]++
	h[3][p&0xff]++
}

// bits returns the sampled cost of buffer buf scaled to the whole image.
func (e *estimator) bits(buf int) float64 {
	var total, samples float64
	for c := range e.hist[buf] {
		total += shannonBits(e.hist[buf][c][:])
	}
	for _, n := range e.hist[buf][0] {
		samples += float64(n)
	}
	if samples == 0 {
		return 0
	}
	return total * float64(e.width*e.height) / samples
}

// direct estimates coding the pixels as they are, optionally with green
// subtracted from red and blue.
func (e *estimator) direct(sg bool) float64 {
	e.reset(0)
	for y := 0; y < e.height; y += e.step {
		for x := 0; x < e.width; x += e.step {
			e.count(0, e.at(x, y, sg))
		}
	}
	return e.bits(0)
}

func (e *estimator) predict(mode, x, y int, sg bool) uint32 {
	switch {
	case x == 0 && y == 0:
		return dsp.ArgbBlack
	case y == 0:
		return e.at(x-1, 0, sg)
	case x == 0:
		return e.at(0, y-1, sg)
	}
	n := dsp.Neighbors{L: e.at(x-1, y, sg), T: e.at(x, y-1, sg), TL: e.at(x-1, y-1, sg)}
	if x+1 < e.width {
		n.TR = e.at(x+1, y-1, sg)
	} else {
		n.TR = e.at(0, y, sg)
	}
	return dsp.Predict(mode, n)
}

// leftDiff estimates coding each pixel as its difference from the pixel
// before it, the pixel above at the start of a row.
func (e *estimator) leftDiff(sg bool) float64 {
	e.reset(0)
	for y := 0; y < e.height; y += e.step {
		for x := 0; x < e.width; x += e.step {
			e.count(0, dsp.SubPixels(e.at(x, y, sg), e.predict(1, x, y, sg)))
		}
	}
	return e.bits(0)
}

// predicted estimates coding the residuals of the predictor with the
// lowest residual entropy in each tile of 2^tileBits pixels.
func (e *estimator) predicted(sg bool, tileBits int) float64 {
	e.reset(1)
	tile := 1 << uint(tileBits)
	for ty := 0; ty < e.height; ty += tile {
		for tx := 0; tx < e.width; tx += tile {
			xEnd, yEnd := min(tx+tile, e.width), min(ty+tile, e.height)
			bestMode, bestCost := 0, 0.0
			for mode := 0; mode < dsp.NumPredictors; mode++ {
				for y := ty; y < yEnd; y += e.step {
					for x := tx; x < xEnd; x += e.step {
						e.tile.add(dsp.SubPixels(e.at(x, y, sg), e.predict(mode, x, y, sg)))
					}
				}
				if cost := e.tile.cost(); mode == 0 || cost < bestCost {
					bestMode, bestCost = mode, cost
				}
			}
			for y := ty; y < yEnd; y += e.step {
				for x := tx; x < xEnd; x += e.step {
					e.count(1, dsp.SubPixels(e.at(x, y, sg), e.predict(bestMode, x, y, sg)))
				}
			}
		}
	}
	return e.bits(1)
}

// tileHist is a per-channel histogram of one tile's residuals. Only the
// bins it touched are cleared after use.
type tileHist struct {
	counts  [4][256]uint32
	touched []uint16
	n       uint64
}

func (h *tileHist) add(p uint32) {
	for c := range h.counts {
		v := uint8(p >> (8 * uint(c)))
		if h.counts[c][v] == 0 {
			h.touched = append(h.touched, uint16(c)<<8|uint16(v))
		}
		h.counts[c][v]++
	}
	h.n++
}

// cost returns the Shannon cost of the residuals added since the last
// call and empties the histogram.
func (h *tileHist) cost() float64 {
	var acc float64
	for _, k := range h.touched {
		n := &h.counts[k>>8][k&0xff]
		acc += slog2(uint64(*n))
		*n = 0
	}
	bits := 4*slog2(h.n) - acc
	h.touched = h.touched[:0]
	h.n = 0
	return bits
}

// indexed estimates coding the image through palette, including the
// palette itself.
func (e *estimator) indexed(palette Palette) float64 {
	var set colorSet
	for _, c := range palette {
		set.add(c)
	}
	e.reset(0)
	for y := 0; y < e.height; y += e.step {
		for x := 0; x < e.width; x += e.step {
			idx, _ := set.lookup(e.argb[y*e.width+x])
			e.count(0, 0xff000000|uint32(idx)<<8)
		}
	}
	return e.bits(0) + float64(32*len(palette))
}
