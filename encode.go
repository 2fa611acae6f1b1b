package vp8l

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"

	"github.com/pierrec/xxHash/xxHash64"

	"github.com/deepteams/vp8l/internal/container"
	"github.com/deepteams/vp8l/internal/dsp"
	"github.com/deepteams/vp8l/internal/lossless"
)

// MaxDimension is the maximum width or height of a VP8L image, in pixels.
const MaxDimension = lossless.MaxDimension

// Errors reported by the encoder. EncodeError values wrap one of them.
var (
	ErrOutOfMemory  = lossless.ErrOutOfMemory
	ErrInvalidInput = lossless.ErrInvalidInput
	ErrUserAborted  = lossless.ErrUserAborted
	ErrBadWrite     = lossless.ErrBadWrite
)

// ImageHint describes the expected content of the image and biases the
// transform selection.
type ImageHint = lossless.ImageHint

const (
	HintDefault = lossless.HintDefault
	HintPicture = lossless.HintPicture
	HintPhoto   = lossless.HintPhoto
	HintGraphic = lossless.HintGraphic
)

// Stats describes the choices the encoder made for one image.
type Stats = lossless.Stats

// ProgressFunc is called with a completion percentage at fixed points of
// the encode: 0, after analysis, after reference matching and 100 once the
// stream is written. Returning false aborts the encode with ErrUserAborted.
type ProgressFunc func(percent int) bool

// Config controls VP8L encoding parameters.
type Config struct {
	// Quality is the compression effort (0-100, default 75). Higher values
	// search harder and produce smaller streams.
	Quality float32

	// Method trades encoding speed for size (0-6, default 4):
	//   0 = fastest, no transform search
	//   4 = good trade-off (default)
	//   6 = slowest, most thorough
	Method int

	// ImageHint biases the transform choice for the content type.
	ImageHint ImageHint

	// NearLossless is the near-lossless preprocessing level (0-100).
	// 100 (default) keeps every pixel exact; lower values allow small
	// errors on non-smooth pixels in exchange for size.
	NearLossless int

	// Exact keeps the RGB values of fully transparent pixels. By default
	// they are zeroed, which compresses better and is invisible.
	Exact bool

	// Progress, when non-nil, reports encoding progress and may abort it.
	Progress ProgressFunc

	// Logger receives debug traces of the encoder's decisions. Nil
	// discards them.
	Logger *slog.Logger
}

// DefaultConfig returns a configuration with quality 75, method 4 and
// near-lossless off.
func DefaultConfig() *Config {
	return &Config{
		Quality:      75,
		Method:       4,
		NearLossless: 100,
	}
}

// validateConfig returns an error describing the first invalid parameter
// of cfg, or nil.
func validateConfig(cfg *Config) error {
	if cfg.Quality < 0 || cfg.Quality > 100 {
		return fmt.Errorf("%w: quality %.2f (must be 0-100)", ErrInvalidInput, cfg.Quality)
	}
	if cfg.Method < 0 || cfg.Method > 6 {
		return fmt.Errorf("%w: method %d (must be 0-6)", ErrInvalidInput, cfg.Method)
	}
	if cfg.ImageHint < HintDefault || cfg.ImageHint > HintGraphic {
		return fmt.Errorf("%w: image hint %d", ErrInvalidInput, int(cfg.ImageHint))
	}
	if cfg.NearLossless < 0 || cfg.NearLossless > 100 {
		return fmt.Errorf("%w: near-lossless %d (must be 0-100)", ErrInvalidInput, cfg.NearLossless)
	}
	return nil
}

func (cfg *Config) encoderConfig() *lossless.EncoderConfig {
	return &lossless.EncoderConfig{
		Quality:      int(cfg.Quality + 0.5),
		Method:       cfg.Method,
		Hint:         cfg.ImageHint,
		NearLossless: cfg.NearLossless,
		Exact:        cfg.Exact,
		Progress:     cfg.Progress,
		Logger:       cfg.Logger,
	}
}

// EncodeError records a failed encode and the step that failed.
type EncodeError struct {
	Op  string
	Err error
}

func (e *EncodeError) Error() string {
	return "vp8l: " + e.Op + ": " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error { return e.Err }

// PixelBuffer is a rectangle of packed ARGB pixels (alpha in the top
// byte, blue in the low byte). Row y starts at Pix[y*Stride].
type PixelBuffer struct {
	Pix    []uint32
	Width  int
	Height int
	Stride int
}

// NewPixelBuffer converts img to a PixelBuffer with Stride == Width.
func NewPixelBuffer(img image.Image) PixelBuffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	p := PixelBuffer{Pix: make([]uint32, w*h), Width: w, Height: h, Stride: w}
	if w == 0 || h == 0 {
		return p
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
		b = nrgba.Bounds()
	}
	ops := dsp.Select()
	for y := 0; y < h; y++ {
		off := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
		ops.ImportNRGBA(p.Pix[y*w:(y+1)*w], nrgba.Pix[off:off+4*w])
	}
	return p
}

// CompressedImage is an encoded VP8L stream.
type CompressedImage struct {
	// Data is the raw VP8L bitstream, starting with the signature byte.
	Data     []byte
	Width    int
	Height   int
	HasAlpha bool
	Stats    Stats
}

// Digest returns the 64-bit xxHash of the stream. Equal images encoded
// with equal configurations have equal digests.
func (c *CompressedImage) Digest() uint64 {
	return digest(c.Data)
}

func digest(data []byte) uint64 {
	h := xxHash64.New(0)
	h.Write(data)
	return h.Sum64()
}

// Encode compresses p into a raw VP8L stream. If cfg is nil,
// DefaultConfig() is used. The pixels of p are never modified.
func Encode(p PixelBuffer, cfg *Config) (*CompressedImage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := validateConfig(cfg); err != nil {
		return nil, &EncodeError{Op: "config", Err: err}
	}
	data, stats, err := lossless.Encode(p.Pix, p.Width, p.Height, p.Stride, cfg.encoderConfig())
	if err != nil {
		return nil, &EncodeError{Op: "encode", Err: err}
	}
	h, err := container.ParseVP8LHeader(data)
	if err != nil {
		return nil, &EncodeError{Op: "encode", Err: err}
	}
	return &CompressedImage{
		Data:     data,
		Width:    p.Width,
		Height:   p.Height,
		HasAlpha: h.HasAlpha,
		Stats:    *stats,
	}, nil
}

// WriteTo writes the stream to w as a WebP file (RIFF, WEBP, VP8L chunk).
func (c *CompressedImage) WriteTo(w io.Writer) (int64, error) {
	buf, err := container.WrapVP8L(c.Data)
	if err != nil {
		return 0, &EncodeError{Op: "write", Err: fmt.Errorf("%w: %w", ErrOutOfMemory, err)}
	}
	n, err := w.Write(buf)
	if err != nil {
		return int64(n), &EncodeError{Op: "write", Err: fmt.Errorf("%w: %w", ErrBadWrite, err)}
	}
	return int64(n), nil
}

// EncodeTo compresses p and writes it to w as a WebP file.
func EncodeTo(w io.Writer, p PixelBuffer, cfg *Config) error {
	c, err := Encode(p, cfg)
	if err != nil {
		return err
	}
	_, err = c.WriteTo(w)
	return err
}

// EncodeImage compresses img and writes it to w as a WebP file.
func EncodeImage(w io.Writer, img image.Image, cfg *Config) error {
	b := img.Bounds()
	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		return &EncodeError{Op: "encode", Err: fmt.Errorf("%w: image dimension %dx%d exceeds maximum %d",
			ErrInvalidInput, b.Dx(), b.Dy(), MaxDimension)}
	}
	return EncodeTo(w, NewPixelBuffer(img), cfg)
}
