package lossless

import (
	"math"

	"github.com/deepteams/vp8l/internal/dsp"
)

// channelCost prices byte values of one channel by how often they have
// been seen so far, starting from a prior that favours values near zero.
type channelCost struct {
	counts [256]uint32
	total  uint64
	table  [256]float64
}

var (
	residualPrior = func() (p [256]uint32) {
		for v := range p {
			m := int(int8(uint8(v)))
			if m < 0 {
				m = -m
			}
			p[v] = 1 + 64/uint32(1+m)
		}
		return p
	}()
	residualPriorSum = func() (s uint64) {
		for _, v := range residualPrior {
			s += uint64(v)
		}
		return s
	}()
)

func (c *channelCost) refresh() {
	denom := math.Log2(float64(c.total + residualPriorSum))
	for v := range c.table {
		c.table[v] = denom - math.Log2(float64(uint64(c.counts[v])+uint64(residualPrior[v])))
	}
}

func (c *channelCost) add(v uint8) {
	c.counts[v]++
	c.total++
}

// predictorTransform picks a predictor per tile of 2^bits pixels, replaces
// the width*height plane argb by prediction residuals and returns the
// mode image, one pixel per tile with the mode in the green channel.
func predictorTransform(argb []uint32, width, height, bits int) []uint32 {
	tile := 1 << uint(bits)
	tilesX := subSampleSize(width, bits)
	modes := make([]uint32, tilesX*subSampleSize(height, bits))
	var costs [4]channelCost

	for ty := 0; ty < height; ty += tile {
		for tx := 0; tx < width; tx += tile {
			for c := range costs {
				costs[c].refresh()
			}
			xEnd, yEnd := min(tx+tile, width), min(ty+tile, height)
			best, bestCost := 0, math.Inf(1)
			for mode := 0; mode < dsp.NumPredictors; mode++ {
				cost := 0.0
				for y := ty; y < yEnd; y++ {
					row, prev := planeRows(argb, width, y)
					for x := tx; x < xEnd; x++ {
						r := dsp.SubPixels(row[x], dsp.PredictAt(mode, prev, row, x, y))
						cost += costs[0].table[r>>24] + costs[1].table[(r>>16)&0xff] +
							costs[2].table[(r>>8)&0xff] + costs[3].table[r&0xff]
					}
				}
				if cost < bestCost {
					best, bestCost = mode, cost
				}
			}
			modes[(ty>>uint(bits))*tilesX+tx>>uint(bits)] = 0xff000000 | uint32(best)<<8
			for y := ty; y < yEnd; y++ {
				row, prev := planeRows(argb, width, y)
				for x := tx; x < xEnd; x++ {
					r := dsp.SubPixels(row[x], dsp.PredictAt(best, prev, row, x, y))
					costs[0].add(uint8(r >> 24))
					costs[1].add(uint8(r >> 16))
					costs[2].add(uint8(r >> 8))
					costs[3].add(uint8(r))
				}
			}
		}
	}

	// Walk backwards so every prediction still sees original neighbours.
	for y := height - 1; y >= 0; y-- {
		row, prev := planeRows(argb, width, y)
		modeRow := modes[(y>>uint(bits))*tilesX:]
		for x := width - 1; x >= 0; x-- {
			mode := int(modeRow[x>>uint(bits)]>>8) & 0xf
			row[x] = dsp.SubPixels(row[x], dsp.PredictAt(mode, prev, row, x, y))
		}
	}
	return modes
}

// planeRows returns row y of the plane and the row above it (nil for the
// first row).
func planeRows(argb []uint32, width, y int) (row, prev []uint32) {
	row = argb[y*width : (y+1)*width]
	if y > 0 {
		prev = argb[(y-1)*width : y*width]
	}
	return row, prev
}

// inversePredictor undoes predictorTransform in place.
func inversePredictor(argb []uint32, width, height, bits int, modes []uint32) {
	tilesX := subSampleSize(width, bits)
	for y := 0; y < height; y++ {
		row, prev := planeRows(argb, width, y)
		modeRow := modes[(y>>uint(bits))*tilesX:]
		for x := 0; x < width; x++ {
			mode := int(modeRow[x>>uint(bits)]>>8) & 0xf
			row[x] = dsp.AddPixels(row[x], dsp.PredictAt(mode, prev, row, x, y))
		}
	}
}
