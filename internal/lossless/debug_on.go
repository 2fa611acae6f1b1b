//go:build vp8ldebug

package lossless

import "fmt"

const debugChecks = true

// verifyStream panics unless replaying refs reproduces argb.
func verifyStream(refs *TokenStream, argb []uint32, width, height, cacheBits int) {
	got, err := refs.Replay(width, height, cacheBits)
	if err != nil {
		panic(fmt.Sprintf("lossless: invalid token stream: %v", err))
	}
	for i, p := range got {
		if p != argb[i] {
			panic(fmt.Sprintf("lossless: replay differs at pixel %d: %#08x != %#08x", i, p, argb[i]))
		}
	}
}
