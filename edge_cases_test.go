package vp8l

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"

	xwebp "golang.org/x/image/webp"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func makeNRGBA(w, h int, fill color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	return img
}

func makeGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 128, A: 255})
		}
	}
	return img
}

func makeColorPalette(w, h, numColors int) *image.NRGBA {
	rng := rand.New(rand.NewSource(int64(numColors)))
	colors := make([]color.NRGBA, numColors)
	for i := range colors {
		colors[i] = color.NRGBA{R: uint8(i * 37), G: uint8(i * 91), B: uint8(i * 13), A: 255}
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, colors[rng.Intn(numColors)])
		}
	}
	return img
}

func makeNoise(seed int64, w, h int, alpha bool) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	if !alpha {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 255
		}
	}
	return img
}

// mustEncode returns img as a WebP file.
func mustEncode(t *testing.T, img image.Image, cfg *Config) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, cfg); err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	return buf.Bytes()
}

// assertSameNRGBA compares two images pixel by pixel in NRGBA space.
func assertSameNRGBA(t *testing.T, got, want image.Image) {
	t.Helper()
	gb, wb := got.Bounds(), want.Bounds()
	if gb.Dx() != wb.Dx() || gb.Dy() != wb.Dy() {
		t.Fatalf("size %dx%d, want %dx%d", gb.Dx(), gb.Dy(), wb.Dx(), wb.Dy())
	}
	for y := 0; y < wb.Dy(); y++ {
		for x := 0; x < wb.Dx(); x++ {
			g := color.NRGBAModel.Convert(got.At(gb.Min.X+x, gb.Min.Y+y)).(color.NRGBA)
			w := color.NRGBAModel.Convert(want.At(wb.Min.X+x, wb.Min.Y+y)).(color.NRGBA)
			if g != w {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

// roundTrip encodes img and decodes it with this package and with
// golang.org/x/image/webp, checking both against img.
func roundTrip(t *testing.T, img image.Image, cfg *Config) []byte {
	t.Helper()
	data := mustEncode(t, img, cfg)
	got, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	assertSameNRGBA(t, got, img)

	ref, err := xwebp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("x/image/webp Decode: %v", err)
	}
	assertSameNRGBA(t, ref, img)
	return data
}

// ---------------------------------------------------------------------------
// Dimensions
// ---------------------------------------------------------------------------

func TestEdge_1x1(t *testing.T) {
	img := makeNRGBA(1, 1, color.NRGBA{R: 255, G: 32, B: 7, A: 255})
	data := roundTrip(t, img, nil)
	cfg, err := DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1 || cfg.Height != 1 {
		t.Errorf("DecodeConfig = %dx%d, want 1x1", cfg.Width, cfg.Height)
	}
}

func TestEdge_Nx1(t *testing.T) {
	roundTrip(t, makeGradient(257, 1), nil)
}

func TestEdge_1xN(t *testing.T) {
	roundTrip(t, makeGradient(1, 257), nil)
}

func TestEdge_OddSizes(t *testing.T) {
	for _, sz := range [][2]int{{3, 5}, {17, 9}, {33, 65}, {127, 2}} {
		roundTrip(t, makeNoise(int64(sz[0]), sz[0], sz[1], false), &Config{Quality: 90, Method: 5, NearLossless: 100})
	}
}

func TestEdge_MaxDimension_Rejected(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, MaxDimension+1, 1))
	err := EncodeImage(&bytes.Buffer{}, img, nil)
	if err == nil {
		t.Fatal("expected error for oversized image")
	}
}

func TestEdge_MaxDimension_Strip(t *testing.T) {
	if testing.Short() {
		t.Skip("large image")
	}
	roundTrip(t, makeGradient(MaxDimension, 1), &Config{Quality: 25, Method: 1, NearLossless: 100})
}

func TestEdge_EmptyImage(t *testing.T) {
	err := EncodeImage(&bytes.Buffer{}, image.NewNRGBA(image.Rect(0, 0, 0, 5)), nil)
	if err == nil {
		t.Fatal("expected error for empty image")
	}
}

// ---------------------------------------------------------------------------
// Colours
// ---------------------------------------------------------------------------

func TestEdge_SingleColor(t *testing.T) {
	roundTrip(t, makeNRGBA(16, 16, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}), nil)
}

func TestEdge_FewColors(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 16, 17, 255, 256, 257} {
		roundTrip(t, makeColorPalette(40, 24, n), nil)
	}
}

func TestEdge_AllAlphaValues(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 256, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 256; x++ {
			// Alpha 0 pixels carry zero RGB so cleanup leaves them as is.
			c := color.NRGBA{A: uint8(x)}
			if x > 0 {
				c.R, c.G, c.B = uint8(x), uint8(255-x), uint8(y*60)
			}
			img.SetNRGBA(x, y, c)
		}
	}
	roundTrip(t, img, nil)
}

func TestEdge_TransparentExact(t *testing.T) {
	img := makeNRGBA(8, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	img.SetNRGBA(3, 3, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	roundTrip(t, img, &Config{Quality: 75, Method: 4, NearLossless: 100, Exact: true})

	got, err := Decode(bytes.NewReader(mustEncode(t, img, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if c := got.NRGBAAt(0, 0); c != (color.NRGBA{}) {
		t.Errorf("transparent pixel = %v, want zero", c)
	}
	if c := got.NRGBAAt(3, 3); c != img.NRGBAAt(3, 3) {
		t.Errorf("opaque pixel = %v, want %v", c, img.NRGBAAt(3, 3))
	}
}

// ---------------------------------------------------------------------------
// Parameter sweeps
// ---------------------------------------------------------------------------

func TestEdge_AllQualityLevels(t *testing.T) {
	img := makeNoise(3, 24, 24, true)
	for q := 0; q <= 100; q += 10 {
		roundTrip(t, img, &Config{Quality: float32(q), Method: 4, NearLossless: 100, Exact: true})
	}
}

func TestEdge_AllMethodLevels(t *testing.T) {
	img := makeGradient(48, 40)
	for m := 0; m <= 6; m++ {
		roundTrip(t, img, &Config{Quality: 75, Method: m, NearLossless: 100})
	}
}

func TestEdge_AllHints(t *testing.T) {
	img := makeGradient(40, 40)
	for _, h := range []ImageHint{HintDefault, HintPicture, HintPhoto, HintGraphic} {
		roundTrip(t, img, &Config{Quality: 75, Method: 4, ImageHint: h, NearLossless: 100})
	}
}
