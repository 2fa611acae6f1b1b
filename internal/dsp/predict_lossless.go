package dsp

// Spatial predictors shared by the lossless encoder and decoder.
//
// A prediction only looks at already-coded neighbours: L (left), T (top),
// TL (top-left) and TR (top-right). Pixels are packed ARGB words and all
// arithmetic is per 8-bit channel.

// NumPredictors is the number of predictor modes.
const NumPredictors = 14

// Neighbors holds the causal neighbourhood of a pixel.
type Neighbors struct {
	L, T, TL, TR uint32
}

// Predict returns the prediction of mode for the neighbourhood n. Modes
// outside 0..13 predict opaque black.
func Predict(mode int, n Neighbors) uint32 {
	switch mode {
	case 1:
		return n.L
	case 2:
		return n.T
	case 3:
		return n.TR
	case 4:
		return n.TL
	case 5:
		return average2(average2(n.L, n.TR), n.T)
	case 6:
		return average2(n.L, n.TL)
	case 7:
		return average2(n.L, n.T)
	case 8:
		return average2(n.TL, n.T)
	case 9:
		return average2(n.T, n.TR)
	case 10:
		return average2(average2(n.L, n.TL), average2(n.T, n.TR))
	case 11:
		return selectPred(n.L, n.T, n.TL)
	case 12:
		return clampAddSubtractFull(n.L, n.T, n.TL)
	case 13:
		return clampAddSubtractHalf(average2(n.L, n.T), n.TL)
	}
	return ArgbBlack
}

// ArgbBlack is opaque black, the prediction for the first pixel.
const ArgbBlack = 0xff000000

// PredictAt predicts pixel (x, y) of a plane with the given width, applying
// the fixed edge rules: black at the origin, L along the first row and T
// down the first column. row and prev are the current and previous rows of
// already reconstructed pixels.
func PredictAt(mode int, prev, row []uint32, x, y int) uint32 {
	switch {
	case y == 0 && x == 0:
		return ArgbBlack
	case y == 0:
		return row[x-1]
	case x == 0:
		return prev[0]
	}
	n := Neighbors{L: row[x-1], T: prev[x], TL: prev[x-1]}
	if x+1 < len(prev) {
		n.TR = prev[x+1]
	} else {
		// The rightmost pixel uses the leftmost pixel of the current row.
		n.TR = row[0]
	}
	return Predict(mode, n)
}

// average2 averages two pixels per channel without carry between channels.
func average2(a, b uint32) uint32 {
	return (((a ^ b) & 0xfefefefe) >> 1) + (a & b)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// selectPred picks T or L, whichever is closer to the gradient estimate
// L + T - TL summed over all channels.
func selectPred(l, t, tl uint32) uint32 {
	var pl, pt int32
	for s := uint(0); s < 32; s += 8 {
		cl := int32(l>>s) & 0xff
		ct := int32(t>>s) & 0xff
		ctl := int32(tl>>s) & 0xff
		pl += abs32(ct - ctl)
		pt += abs32(cl - ctl)
	}
	if pl < pt {
		return l
	}
	return t
}

func clamp255(v int32) uint32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint32(v)
}

func clampAddSubtractFull(a, b, c uint32) uint32 {
	var out uint32
	for s := uint(0); s < 32; s += 8 {
		v := int32(a>>s&0xff) + int32(b>>s&0xff) - int32(c>>s&0xff)
		out |= clamp255(v) << s
	}
	return out
}

func clampAddSubtractHalf(avg, c uint32) uint32 {
	var out uint32
	for s := uint(0); s < 32; s += 8 {
		a := int32(avg >> s & 0xff)
		b := int32(c >> s & 0xff)
		out |= clamp255(a+(a-b)/2) << s
	}
	return out
}

// SubPixels subtracts b from a per channel, modulo 256.
func SubPixels(a, b uint32) uint32 {
	ag := 0x00ff00ff + (a & 0xff00ff00) - (b & 0xff00ff00)
	rb := 0xff00ff00 + (a & 0x00ff00ff) - (b & 0x00ff00ff)
	return (ag & 0xff00ff00) | (rb & 0x00ff00ff)
}

// AddPixels adds b to a per channel, modulo 256.
func AddPixels(a, b uint32) uint32 {
	ag := (a & 0xff00ff00) + (b & 0xff00ff00)
	rb := (a & 0x00ff00ff) + (b & 0x00ff00ff)
	return (ag & 0xff00ff00) | (rb & 0x00ff00ff)
}
