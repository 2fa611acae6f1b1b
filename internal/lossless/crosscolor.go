package lossless

import "github.com/deepteams/vp8l/internal/dsp"

// crossColorTransform picks colour multipliers per tile of 2^bits pixels,
// decorrelates red and blue from green (and blue from red) in place and
// returns the multiplier image.
func crossColorTransform(argb []uint32, width, height, bits int) []uint32 {
	tile := 1 << uint(bits)
	tilesX := subSampleSize(width, bits)
	out := make([]uint32, tilesX*subSampleSize(height, bits))
	var red, blue channelCost
	var prev dsp.Multipliers

	for ty := 0; ty < height; ty += tile {
		for tx := 0; tx < width; tx += tile {
			red.refresh()
			blue.refresh()
			t := tileView{argb, width, tx, ty, min(tx+tile, width), min(ty+tile, height)}

			var m dsp.Multipliers
			m.GreenToRed = searchMultiplier(prev.GreenToRed, func(v uint8) float64 {
				return t.cost(func(p uint32) float64 {
					r := int32(p>>16&0xff) - dsp.ColorTransformDelta(v, uint8(p>>8))
					return red.table[uint8(r)]
				})
			})
			blueCost := func(g2b, r2b uint8) float64 {
				return t.cost(func(p uint32) float64 {
					b := int32(p&0xff) - dsp.ColorTransformDelta(g2b, uint8(p>>8)) -
						dsp.ColorTransformDelta(r2b, uint8(p>>16))
					return blue.table[uint8(b)]
				})
			}
			m.GreenToBlue = searchMultiplier(prev.GreenToBlue, func(v uint8) float64 { return blueCost(v, 0) })
			m.RedToBlue = searchMultiplier(prev.RedToBlue, func(v uint8) float64 { return blueCost(m.GreenToBlue, v) })

			out[(ty>>uint(bits))*tilesX+tx>>uint(bits)] = m.Pack()
			for y := t.y0; y < t.y1; y++ {
				row := argb[y*width : (y+1)*width]
				for x := t.x0; x < t.x1; x++ {
					row[x] = dsp.TransformColor(m, row[x])
					red.add(uint8(row[x] >> 16))
					blue.add(uint8(row[x]))
				}
			}
			prev = m
		}
	}
	return out
}

type tileView struct {
	argb           []uint32
	width          int
	x0, y0, x1, y1 int
}

func (t tileView) cost(f func(p uint32) float64) float64 {
	var sum float64
	for y := t.y0; y < t.y1; y++ {
		for _, p := range t.argb[y*t.width+t.x0 : y*t.width+t.x1] {
			sum += f(p)
		}
	}
	return sum
}

// searchMultiplier minimises cost over signed multipliers: a coarse scan,
// two refinement rounds around the best value, and the previous tile's
// choice, which is kept on ties.
func searchMultiplier(prev uint8, cost func(uint8) float64) uint8 {
	best, bestCost := prev, cost(prev)
	try := func(v int) {
		if v < -128 || v > 127 {
			return
		}
		if c := cost(uint8(int8(v))); c < bestCost {
			best, bestCost = uint8(int8(v)), c
		}
	}
	for v := -128; v < 128; v += 16 {
		try(v)
	}
	for _, step := range []int{8, 4, 2, 1} {
		center := int(int8(best))
		try(center - step)
		try(center + step)
	}
	return best
}

// inverseCrossColor undoes crossColorTransform in place.
func inverseCrossColor(argb []uint32, width, height, bits int, mults []uint32) {
	tilesX := subSampleSize(width, bits)
	for y := 0; y < height; y++ {
		row := argb[y*width : (y+1)*width]
		multRow := mults[(y>>uint(bits))*tilesX:]
		for x := range row {
			row[x] = dsp.TransformColorInverse(dsp.UnpackMultipliers(multRow[x>>uint(bits)]), row[x])
		}
	}
}
