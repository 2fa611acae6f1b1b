// Package vp8l provides a pure Go lossless encoder for the WebP VP8L
// bitstream, with a matching decoder.
//
// The encoder analyses each image to choose among the reversible VP8L
// transforms (colour indexing, subtract green, spatial prediction and
// cross-colour decorrelation), matches backward references with an
// optional colour cache, and entropy codes the result with per-tile
// Huffman groups. Output is deterministic: the same pixels and
// configuration always produce the same bytes.
//
// Basic usage for encoding:
//
//	err := vp8l.EncodeImage(w, img, &vp8l.Config{Quality: 90, Method: 6, NearLossless: 100})
//
// Raw streams without the RIFF container are available through Encode:
//
//	c, err := vp8l.Encode(vp8l.NewPixelBuffer(img), nil)
//
// Decoding returns an *image.NRGBA:
//
//	img, err := vp8l.Decode(r)
package vp8l
