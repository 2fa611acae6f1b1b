// Command vp8lenc encodes images to lossless WebP and inspects the result.
//
// Usage:
//
//	vp8lenc enc [options] <input>        PNG/JPEG/GIF/BMP/TIFF/QOI → WebP (use "-" for stdin)
//	vp8lenc dec [options] <input.webp>   WebP → PNG/JPEG/BMP/TIFF/QOI
//	vp8lenc info <input.webp>            Display how a lossless WebP was coded
//	vp8lenc bench [options] <input>      Compare against generic compressors
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/disintegration/gift"
	"github.com/nfnt/resize"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	xwebp "golang.org/x/image/webp"

	"github.com/deepteams/vp8l"
	"github.com/deepteams/vp8l/internal/baseline"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "vp8lenc: %v\n", err)
		}
		os.Exit(1)
	}
}

// env carries the process streams so commands can be driven from tests.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	switch args[0] {
	case "enc":
		return e.runEnc(args[1:])
	case "dec":
		return e.runDec(args[1:])
	case "info":
		return e.runInfo(args[1:])
	case "bench":
		return e.runBench(args[1:])
	case "-h", "-help", "--help", "help":
		printUsage(stdout)
		return nil
	}
	printUsage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  vp8lenc enc [options] <input>        Encode PNG/JPEG/GIF/BMP/TIFF/QOI to lossless WebP
  vp8lenc dec [options] <input.webp>   Decode WebP to PNG, JPEG, BMP, TIFF or QOI
  vp8lenc info <input.webp>            Show how a lossless WebP was coded
  vp8lenc bench [options] <input>      Compare with generic compressors

Use "-" as input to read from stdin, "-o -" to write to stdout.

Run "vp8lenc <command> -h" for command-specific options.
`)
}

// readInput returns the contents of path, or of stdin for "-".
func (e *env) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(e.stdin)
	}
	return os.ReadFile(path)
}

// writeOutput calls write on stdout for "-", or on a new file at path that
// is removed again if write fails.
func (e *env) writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(e.stdout)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// defaultOutput derives an output name from the input path.
func defaultOutput(inputPath, ext string) string {
	if inputPath == "-" {
		return "output" + ext
	}
	return strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ext
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// --- enc ---

// encodeFlags are the encoder settings shared by enc and bench.
type encodeFlags struct {
	quality *float64
	method  *int
	hint    *string
	near    *int
	exact   *bool
}

func addEncodeFlags(fs *flag.FlagSet) *encodeFlags {
	return &encodeFlags{
		quality: fs.Float64("q", 75, "compression effort 0-100"),
		method:  fs.Int("m", 4, "compression method 0-6"),
		hint:    fs.String("hint", "default", "image hint: default/picture/photo/graphic"),
		near:    fs.Int("near", 100, "near-lossless level 0-100 (100 = off)"),
		exact:   fs.Bool("exact", false, "preserve RGB in transparent areas"),
	}
}

func (f *encodeFlags) config(logger *slog.Logger) (*vp8l.Config, error) {
	hint, err := parseHint(*f.hint)
	if err != nil {
		return nil, err
	}
	return &vp8l.Config{
		Quality:      float32(*f.quality),
		Method:       *f.method,
		ImageHint:    hint,
		NearLossless: *f.near,
		Exact:        *f.exact,
		Logger:       logger,
	}, nil
}

func parseHint(s string) (vp8l.ImageHint, error) {
	switch strings.ToLower(s) {
	case "default":
		return vp8l.HintDefault, nil
	case "picture":
		return vp8l.HintPicture, nil
	case "photo":
		return vp8l.HintPhoto, nil
	case "graphic":
		return vp8l.HintGraphic, nil
	}
	return 0, fmt.Errorf("unknown hint %q", s)
}

func (e *env) runEnc(args []string) error {
	fs := flag.NewFlagSet("enc", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	ef := addEncodeFlags(fs)
	size := fs.String("resize", "", "resize to WxH before encoding (0 keeps aspect ratio)")
	rotate := fs.Int("rotate", 0, "rotate clockwise by 90, 180 or 270 degrees")
	flip := fs.String("flip", "", "flip h (horizontal) or v (vertical)")
	crop := fs.String("crop", "", "crop to x,y,w,h before other processing")
	verbose := fs.Bool("v", false, "log encoder decisions to stderr")
	output := fs.String("o", "", `output path (default: <input>.webp, "-" for stdout)`)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("enc: missing input file\nUsage: vp8lenc enc [options] <input>")
	}
	inputPath := fs.Arg(0)

	cfg, err := ef.config(newLogger(e.stderr, *verbose))
	if err != nil {
		return fmt.Errorf("enc: %w", err)
	}
	p, err := parsePreprocess(*crop, *rotate, *flip, *size)
	if err != nil {
		return fmt.Errorf("enc: %w", err)
	}

	data, err := e.readInput(inputPath)
	if err != nil {
		return err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("enc: decoding input: %w", err)
	}
	img = p.apply(img)

	c, err := vp8l.Encode(vp8l.NewPixelBuffer(img), cfg)
	if err != nil {
		return fmt.Errorf("enc: %w", err)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = defaultOutput(inputPath, ".webp")
	}
	err = e.writeOutput(outputPath, func(w io.Writer) error {
		_, err := c.WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("enc: %w", err)
	}
	fmt.Fprintf(e.stderr, "Encoded %s (%s, %dx%d) → %s (%d bytes, %s)\n",
		inputPath, format, c.Width, c.Height, outputPath, len(c.Data),
		strings.Join(c.Stats.Transforms(), "+"))
	return nil
}

// preprocess is the geometry applied to the input before encoding: crop,
// then rotate, then flip, then resize.
type preprocess struct {
	filters      []gift.Filter
	resizeWidth  uint
	resizeHeight uint
}

func parsePreprocess(crop string, rotate int, flip, size string) (*preprocess, error) {
	p := &preprocess{}
	if crop != "" {
		v, err := parseInts(crop, ",", 4)
		if err != nil {
			return nil, fmt.Errorf("crop %q: %w", crop, err)
		}
		if v[2] <= 0 || v[3] <= 0 {
			return nil, fmt.Errorf("crop %q: empty rectangle", crop)
		}
		p.filters = append(p.filters, gift.Crop(image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3])))
	}
	switch rotate {
	case 0:
	case 90:
		p.filters = append(p.filters, gift.Rotate270())
	case 180:
		p.filters = append(p.filters, gift.Rotate180())
	case 270:
		p.filters = append(p.filters, gift.Rotate90())
	default:
		return nil, fmt.Errorf("rotate %d: must be 0, 90, 180 or 270", rotate)
	}
	switch strings.ToLower(flip) {
	case "":
	case "h":
		p.filters = append(p.filters, gift.FlipHorizontal())
	case "v":
		p.filters = append(p.filters, gift.FlipVertical())
	default:
		return nil, fmt.Errorf("flip %q: must be h or v", flip)
	}
	if size != "" {
		v, err := parseInts(strings.ToLower(size), "x", 2)
		if err != nil {
			return nil, fmt.Errorf("resize %q: %w", size, err)
		}
		if v[0] < 0 || v[1] < 0 || v[0]+v[1] == 0 {
			return nil, fmt.Errorf("resize %q: invalid size", size)
		}
		p.resizeWidth, p.resizeHeight = uint(v[0]), uint(v[1])
	}
	return p, nil
}

func parseInts(s, sep string, n int) ([]int, error) {
	parts := strings.Split(s, sep)
	if len(parts) != n {
		return nil, fmt.Errorf("want %d values separated by %q", n, sep)
	}
	out := make([]int, n)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *preprocess) apply(img image.Image) image.Image {
	if len(p.filters) > 0 {
		g := gift.New(p.filters...)
		dst := image.NewNRGBA(g.Bounds(img.Bounds()))
		g.Draw(dst, img)
		img = dst
	}
	if p.resizeWidth > 0 || p.resizeHeight > 0 {
		img = resize.Resize(p.resizeWidth, p.resizeHeight, img, resize.Lanczos3)
	}
	return img
}

// --- dec ---

func (e *env) runDec(args []string) error {
	fs := flag.NewFlagSet("dec", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	output := fs.String("o", "", `output path (default: <input>.png, "-" for stdout)`)
	fmtFlag := fs.String("fmt", "", "output format: png, jpeg, bmp, tiff, qoi (from extension if omitted)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("dec: missing input file\nUsage: vp8lenc dec [options] <input.webp>")
	}
	inputPath := fs.Arg(0)

	data, err := e.readInput(inputPath)
	if err != nil {
		return fmt.Errorf("dec: reading input: %w", err)
	}
	img, err := decodeWebP(data)
	if err != nil {
		return fmt.Errorf("dec: %w", err)
	}

	outFmt := detectOutputFormat(*fmtFlag, *output)
	outputPath := *output
	if outputPath == "" {
		outputPath = defaultOutput(inputPath, "."+outFmt)
	}
	err = e.writeOutput(outputPath, func(w io.Writer) error {
		return encodeImage(w, img, outFmt)
	})
	if err != nil {
		return fmt.Errorf("dec: %w", err)
	}
	fmt.Fprintf(e.stderr, "Decoded %s → %s\n", inputPath, outputPath)
	return nil
}

// decodeWebP decodes lossless files itself and hands anything else (lossy
// or extended files) to golang.org/x/image/webp.
func decodeWebP(data []byte) (image.Image, error) {
	img, err := vp8l.DecodeBytes(data)
	if err == nil {
		return img, nil
	}
	if other, xerr := xwebp.Decode(bytes.NewReader(data)); xerr == nil {
		return other, nil
	}
	return nil, err
}

// detectOutputFormat returns the output format from the flag or the
// output extension, defaulting to png.
func detectOutputFormat(fmtFlag, outputPath string) string {
	if fmtFlag != "" {
		return strings.ToLower(fmtFlag)
	}
	if outputPath != "" && outputPath != "-" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".jpg", ".jpeg":
			return "jpeg"
		case ".bmp":
			return "bmp"
		case ".tif", ".tiff":
			return "tiff"
		case ".qoi":
			return "qoi"
		}
	}
	return "png"
}

// encodeImage writes img in the specified format to w.
func encodeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case "jpeg", "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff", "tif":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case "qoi":
		return qoi.Encode(w, img)
	case "png":
		return png.Encode(w, img)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// --- info ---

func (e *env) runInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("info: missing input file\nUsage: vp8lenc info <input.webp>")
	}
	inputPath := args[0]

	data, err := e.readInput(inputPath)
	if err != nil {
		return err
	}
	info, err := vp8l.Inspect(data)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	name := inputPath
	if inputPath == "-" {
		name = "<stdin>"
	}
	transforms := "none"
	if len(info.Transforms) > 0 {
		transforms = strings.Join(info.Transforms, ", ")
	}
	fmt.Fprintf(e.stdout, "File:       %s\n", name)
	fmt.Fprintf(e.stdout, "Dimensions: %d x %d\n", info.Width, info.Height)
	fmt.Fprintf(e.stdout, "Alpha:      %v\n", info.HasAlpha)
	fmt.Fprintf(e.stdout, "Transforms: %s\n", transforms)
	fmt.Fprintf(e.stdout, "Cache bits: %d\n", info.CacheBits)
	fmt.Fprintf(e.stdout, "Groups:     %d\n", info.Groups)
	fmt.Fprintf(e.stdout, "Stream:     %d bytes\n", info.Size)
	fmt.Fprintf(e.stdout, "File size:  %d bytes\n", len(data))
	fmt.Fprintf(e.stdout, "Digest:     %016x\n", info.Digest)
	return nil
}

// --- bench ---

func (e *env) runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	ef := addEncodeFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("bench: missing input file\nUsage: vp8lenc bench [options] <input>")
	}
	cfg, err := ef.config(nil)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}
	data, err := e.readInput(fs.Arg(0))
	if err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("bench: decoding input: %w", err)
	}

	p := vp8l.NewPixelBuffer(img)
	start := time.Now()
	c, err := vp8l.Encode(p, cfg)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}
	elapsed := time.Since(start)
	results, err := baseline.Run(img, p.Pix)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}
	results = append(results, baseline.Result{Name: "vp8l", Size: len(c.Data), Duration: elapsed})

	raw := results[0].Size
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "codec\tbytes\tratio\ttime\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%v\t\n", r.Name, r.Size, r.Ratio(raw), r.Duration.Round(time.Microsecond))
	}
	return tw.Flush()
}
