package lossless

// Partition maps every tile of the main image to a Huffman group.
type Partition struct {
	// Bits is the tile exponent; only meaningful with more than one group.
	Bits int
	// Map holds one group index per tile, row-major. It is nil when the
	// whole image uses a single group.
	Map    []uint32
	Groups []*Histogram
}

// partitionTokens splits refs (plane coded, covering a width*height
// image) into tiles of 2^bits pixels and clusters the tile statistics.
func partitionTokens(refs *TokenStream, width, height, bits, cacheBits, quality int) *Partition {
	tilesX := subSampleSize(width, bits)
	tiles := make([]*Histogram, tilesX*subSampleSize(height, bits))
	for i := range tiles {
		tiles[i] = newHistogram(cacheBits)
	}
	x, y := 0, 0
	for _, t := range refs.Tokens {
		tiles[(y>>uint(bits))*tilesX+x>>uint(bits)].AddToken(t)
		x += t.Pixels()
		for x >= width {
			x -= width
			y++
		}
	}

	var used []*Histogram
	for _, h := range tiles {
		if !h.Empty() {
			h.updateCost()
			used = append(used, h)
		}
	}
	var clusters []*Histogram
	if len(used) > 2*costBands*costBands*costBands {
		clusters = binCombine(used, quality)
	} else {
		for _, h := range used {
			clusters = append(clusters, cloneHistogram(h))
		}
	}
	clusters = greedyCombine(clusters)
	assign := remap(tiles, clusters)

	// Number groups in order of first use; empty tiles follow their left
	// neighbour so the map stays smooth.
	index := make([]int, len(clusters))
	for i := range index {
		index[i] = -1
	}
	p := &Partition{Map: make([]uint32, len(tiles))}
	prev := uint32(0)
	for t, a := range assign {
		if a >= 0 {
			if index[a] < 0 {
				index[a] = len(p.Groups)
				p.Groups = append(p.Groups, clusters[a])
			}
			prev = uint32(index[a])
		}
		p.Map[t] = prev
	}
	if len(p.Groups) == 0 {
		p.Groups = []*Histogram{newHistogram(cacheBits)}
	}
	if len(p.Groups) == 1 {
		p.Map = nil
		return p
	}
	p.Bits, p.Map = coarsen(p.Map, width, height, bits)
	return p
}

// coarsen doubles the tile size while every 2x2 block of the map holds a
// single value.
func coarsen(m []uint32, width, height, bits int) (int, []uint32) {
	for bits < maxHistoBits {
		tx, ty := subSampleSize(width, bits), subSampleSize(height, bits)
		uniform := true
		for y := 0; y < ty && uniform; y += 2 {
			for x := 0; x < tx && uniform; x += 2 {
				v := m[y*tx+x]
				for _, d := range [3][2]int{{1, 0}, {0, 1}, {1, 1}} {
					if x+d[0] < tx && y+d[1] < ty && m[(y+d[1])*tx+x+d[0]] != v {
						uniform = false
						break
					}
				}
			}
		}
		if !uniform {
			break
		}
		ntx := subSampleSize(width, bits+1)
		next := make([]uint32, ntx*subSampleSize(height, bits+1))
		for y := 0; y < ty; y += 2 {
			for x := 0; x < tx; x += 2 {
				next[(y/2)*ntx+x/2] = m[y*tx+x]
			}
		}
		m = next
		bits++
	}
	return bits, m
}

// group returns the group of the pixel at (x, y).
func (p *Partition) group(x, y, width int) int {
	if p.Map == nil {
		return 0
	}
	return int(p.Map[(y>>uint(p.Bits))*subSampleSize(width, p.Bits)+x>>uint(p.Bits)])
}
