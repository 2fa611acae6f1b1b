package vp8l_test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/deepteams/vp8l"
)

func ExampleEncode() {
	p := vp8l.PixelBuffer{
		Pix:    []uint32{0xff112233, 0xff112233, 0xff112233, 0xff112233},
		Width:  2,
		Height: 2,
		Stride: 2,
	}
	c, err := vp8l.Encode(p, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("signature %#x, palette %d\n", c.Data[0], c.Stats.PaletteSize)
	// Output:
	// signature 0x2f, palette 1
}

func ExampleEncodeImage() {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(60 * x), G: uint8(80 * y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := vp8l.EncodeImage(&buf, img, &vp8l.Config{Quality: 100, Method: 6, NearLossless: 100}); err != nil {
		fmt.Println(err)
		return
	}
	out, err := vp8l.Decode(&buf)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out.Bounds(), bytes.Equal(out.Pix, img.Pix))
	// Output:
	// (0,0)-(4,3) true
}

func ExampleDecodeConfig() {
	var buf bytes.Buffer
	if err := vp8l.EncodeImage(&buf, image.NewNRGBA(image.Rect(0, 0, 16, 9)), nil); err != nil {
		fmt.Println(err)
		return
	}
	cfg, err := vp8l.DecodeConfig(&buf)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%dx%d\n", cfg.Width, cfg.Height)
	// Output:
	// 16x9
}
