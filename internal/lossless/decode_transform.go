package lossless

import (
	"fmt"

	"github.com/deepteams/vp8l/internal/dsp"
)

type transform struct {
	kind int
	bits int
	// width is the width of the image the transform was applied to;
	// packedWidth the width it left behind.
	width       int
	packedWidth int
	data        []uint32
}

func (t *transform) name() string {
	switch t.kind {
	case transformPredictor:
		return "predictor"
	case transformCrossColor:
		return "cross-color"
	case transformSubtractGreen:
		return "subtract-green"
	}
	return "color-indexing"
}

// readTransform reads one transform of an image of the given size. Each
// kind may appear once.
func (d *decoder) readTransform(width, height int, seen []*transform) (*transform, error) {
	t := &transform{kind: int(d.br.ReadBits(2)), width: width, packedWidth: width}
	for _, s := range seen {
		if s.kind == t.kind {
			return nil, fmt.Errorf("%w: repeated %s transform", ErrBitstream, t.name())
		}
	}
	switch t.kind {
	case transformPredictor, transformCrossColor:
		t.bits = int(d.br.ReadBits(transformBitsLen)) + minTransformBits
		data, err := d.decodeImageData(subSampleSize(width, t.bits), subSampleSize(height, t.bits), false)
		if err != nil {
			return nil, err
		}
		t.data = data
	case transformColorIndexing:
		n := int(d.br.ReadBits(8)) + 1
		deltas, err := d.decodeImageData(n, 1, false)
		if err != nil {
			return nil, err
		}
		palette := undoDeltas(deltas)
		t.data = palette
		t.bits = palette.bundleBits()
		t.packedWidth = subSampleSize(width, t.bits)
	}
	if d.br.EOS() {
		return nil, ErrTruncated
	}
	return t, nil
}

// applyInverseTransforms undoes ts, last first, on the decoded plane pix.
func applyInverseTransforms(pix []uint32, width, height int, ts []*transform) []uint32 {
	for i := len(ts) - 1; i >= 0; i-- {
		t := ts[i]
		switch t.kind {
		case transformPredictor:
			inversePredictor(pix, t.width, height, t.bits, t.data)
		case transformCrossColor:
			inverseCrossColor(pix, t.width, height, t.bits, t.data)
		case transformSubtractGreen:
			dsp.AddGreen(pix)
		case transformColorIndexing:
			full := make([]uint32, t.width*height)
			for y := 0; y < height; y++ {
				dsp.UnbundleIndices(pix[y*t.packedWidth:(y+1)*t.packedWidth], t.width, t.bits,
					t.data, full[y*t.width:(y+1)*t.width])
			}
			pix = full
		}
	}
	return pix
}
