package lossless

import (
	"fmt"
	"log/slog"

	"github.com/deepteams/vp8l/internal/bitio"
	"github.com/deepteams/vp8l/internal/dsp"
	"github.com/deepteams/vp8l/internal/pool"
)

// VP8L lossless encoder entry point.
//
// The encoder copies the caller's pixels into a scratch plane, analyses
// them to pick transforms, applies the transforms while writing their
// side information, then parses the residual plane into tokens, clusters
// their statistics per tile and writes the entropy coded stream.
// Auxiliary images (palette, transform parameters, tile map) go through
// the same token pipeline without transforms or colour cache.

// ImageHint describes the expected content of the image.
type ImageHint int

const (
	HintDefault ImageHint = iota
	HintPicture
	HintPhoto
	HintGraphic
)

func (h ImageHint) String() string {
	switch h {
	case HintDefault:
		return "default"
	case HintPicture:
		return "picture"
	case HintPhoto:
		return "photo"
	case HintGraphic:
		return "graphic"
	}
	return fmt.Sprintf("ImageHint(%d)", int(h))
}

// EncoderConfig holds configuration for the VP8L lossless encoder.
type EncoderConfig struct {
	// Quality controls encoding effort (0 = fast, 100 = best compression).
	Quality int
	// Method controls encoding method (0 = fast, 6 = best).
	Method int
	Hint   ImageHint
	// NearLossless is the near-lossless level (100 = true lossless).
	NearLossless int
	// Exact keeps the RGB values of fully transparent pixels.
	Exact bool
	// Progress, when set, is called with a percentage at fixed points of
	// the encode. Returning false aborts with ErrUserAborted.
	Progress func(percent int) bool
	// Logger receives debug traces. Nil discards them.
	Logger *slog.Logger
	// MaxOutput bounds the stream size in bytes; zero selects
	// bitio.DefaultLimit.
	MaxOutput int
}

// DefaultEncoderConfig returns a default encoder configuration.
func DefaultEncoderConfig() *EncoderConfig {
	return &EncoderConfig{
		Quality:      75,
		Method:       4,
		NearLossless: 100,
	}
}

func (c *EncoderConfig) validate() error {
	switch {
	case c.Quality < 0 || c.Quality > 100:
		return fmt.Errorf("%w: quality %d not in [0, 100]", ErrInvalidInput, c.Quality)
	case c.Method < 0 || c.Method > 6:
		return fmt.Errorf("%w: method %d not in [0, 6]", ErrInvalidInput, c.Method)
	case c.NearLossless < 0 || c.NearLossless > 100:
		return fmt.Errorf("%w: near-lossless level %d not in [0, 100]", ErrInvalidInput, c.NearLossless)
	case c.Hint < HintDefault || c.Hint > HintGraphic:
		return fmt.Errorf("%w: unknown image hint %d", ErrInvalidInput, int(c.Hint))
	case c.MaxOutput < 0:
		return fmt.Errorf("%w: negative output limit", ErrInvalidInput)
	}
	return nil
}

// Stats describes the choices made for one encode.
type Stats struct {
	PaletteSize   int
	SubtractGreen bool
	Predictor     bool
	CrossColor    bool
	TransformBits int
	CacheBits     int
	HistoBits     int
	Clusters      int
	Literals      int
	CacheRefs     int
	Copies        int
	Bytes         int
}

// Transforms lists the transforms in the order they were applied.
func (s *Stats) Transforms() []string {
	var out []string
	if s.PaletteSize > 0 {
		out = append(out, "color-indexing")
	}
	if s.SubtractGreen {
		out = append(out, "subtract-green")
	}
	if s.Predictor {
		out = append(out, "predictor")
	}
	if s.CrossColor {
		out = append(out, "cross-color")
	}
	return out
}

type encState uint8

const (
	stateInit encState = iota
	stateAnalyze
	statePalette
	stateTransforms
	stateReferences
	stateHistograms
	stateEmit
	stateFinalize
)

func (s encState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateAnalyze:
		return "analyze"
	case statePalette:
		return "palette"
	case stateTransforms:
		return "transforms"
	case stateReferences:
		return "references"
	case stateHistograms:
		return "histograms"
	case stateEmit:
		return "emit"
	case stateFinalize:
		return "finalize"
	}
	return fmt.Sprintf("encState(%d)", uint8(s))
}

type encoder struct {
	cfg   *EncoderConfig
	log   *slog.Logger
	bw    *bitio.Writer
	state encState
	stats Stats
}

// Encode compresses the width*height image held in argb, whose rows start
// stride words apart, into a VP8L bitstream. argb is not modified. A nil
// cfg selects DefaultEncoderConfig.
func Encode(argb []uint32, width, height, stride int, cfg *EncoderConfig) ([]byte, *Stats, error) {
	if cfg == nil {
		cfg = DefaultEncoderConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	if err := validateBuffer(argb, width, height, stride); err != nil {
		return nil, nil, err
	}
	e := &encoder{cfg: cfg, log: cfg.Logger}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	data, err := e.encode(argb, width, height, stride)
	if err != nil {
		e.log.Debug("vp8l: encode failed", "state", e.state, "err", err)
		return nil, nil, err
	}
	return data, &e.stats, nil
}

func validateBuffer(argb []uint32, width, height, stride int) error {
	switch {
	case width <= 0 || height <= 0:
		return fmt.Errorf("%w: empty image %dx%d", ErrInvalidInput, width, height)
	case width > MaxDimension || height > MaxDimension:
		return fmt.Errorf("%w: %dx%d exceeds %d pixels per side", ErrInvalidInput, width, height, MaxDimension)
	case stride < width:
		return fmt.Errorf("%w: stride %d smaller than width %d", ErrInvalidInput, stride, width)
	case len(argb) < (height-1)*stride+width:
		return fmt.Errorf("%w: buffer holds %d pixels, need %d", ErrInvalidInput, len(argb), (height-1)*stride+width)
	}
	return nil
}

func (e *encoder) enter(s encState) {
	e.state = s
	e.log.Debug("vp8l: state", "state", s)
}

func (e *encoder) checkpoint(percent int) error {
	if e.cfg.Progress != nil && !e.cfg.Progress(percent) {
		return ErrUserAborted
	}
	return nil
}

func (e *encoder) encode(argb []uint32, width, height, stride int) ([]byte, error) {
	e.enter(stateInit)
	if err := e.checkpoint(0); err != nil {
		return nil, err
	}
	plane := pool.GetUint32(width * height)
	defer pool.PutUint32(plane)
	hasAlpha := e.importPlane(plane, argb, width, height, stride)

	e.enter(stateAnalyze)
	p := analyze(plane, width, height, e.cfg)
	e.stats.PaletteSize = len(p.palette)
	e.stats.SubtractGreen = p.subtractGreen
	e.stats.Predictor = p.predictor
	e.stats.CrossColor = p.crossColor
	if p.predictor || p.crossColor {
		e.stats.TransformBits = p.transformBits
	}
	e.log.Debug("vp8l: analyze",
		"palette", len(p.palette),
		"reordered", p.reordered,
		"subtractGreen", p.subtractGreen,
		"predictor", p.predictor,
		"crossColor", p.crossColor,
		"transformBits", p.transformBits,
		"histoBits", p.histoBits,
		"maxCacheBits", p.maxCacheBits)
	if p.palette == nil && e.cfg.NearLossless < 100 {
		applyNearLossless(plane, width, height, e.cfg.NearLossless)
	}
	if err := e.checkpoint(20); err != nil {
		return nil, err
	}

	e.bw = bitio.NewWriterLimit(width*height/2+64, e.cfg.MaxOutput)
	e.writeHeader(width, height, hasAlpha)

	curWidth, err := e.applyTransforms(plane, width, height, &p)
	if err != nil {
		return nil, err
	}
	if err := e.encodeImageData(plane[:curWidth*height], curWidth, height, true, p.histoBits, p.maxCacheBits); err != nil {
		return nil, err
	}

	e.enter(stateFinalize)
	data := e.bw.Finish()
	if err := e.writerErr(); err != nil {
		return nil, err
	}
	e.stats.Bytes = len(data)
	e.log.Debug("vp8l: done", "bytes", len(data), "cacheBits", e.stats.CacheBits, "clusters", e.stats.Clusters)
	if err := e.checkpoint(100); err != nil {
		return nil, err
	}
	return data, nil
}

// importPlane copies the caller's pixels into plane, zeroing fully
// transparent pixels unless the config asks for exact colours, and reports
// whether any pixel is not opaque.
func (e *encoder) importPlane(plane, argb []uint32, width, height, stride int) bool {
	hasAlpha := false
	for y := 0; y < height; y++ {
		row := plane[y*width : (y+1)*width]
		copy(row, argb[y*stride:y*stride+width])
		for x, p := range row {
			a := p >> 24
			if a == 0xff {
				continue
			}
			hasAlpha = true
			if a == 0 && !e.cfg.Exact {
				row[x] = 0
			}
		}
	}
	return hasAlpha
}

func (e *encoder) writeHeader(width, height int, hasAlpha bool) {
	e.bw.PutBits(Signature, 8)
	e.bw.PutBits(uint32(width-1), imageSizeBits)
	e.bw.PutBits(uint32(height-1), imageSizeBits)
	e.bw.PutBit(hasAlpha)
	e.bw.PutBits(Version, versionBits)
}

func (e *encoder) writeTransform(kind int) {
	e.bw.PutBits(1, 1)
	e.bw.PutBits(uint32(kind), 2)
}

// applyTransforms transforms plane in place, writing every transform and
// its auxiliary image, and returns the width of the resulting plane.
func (e *encoder) applyTransforms(plane []uint32, width, height int, p *plan) (int, error) {
	if p.palette != nil {
		e.enter(statePalette)
		e.writeTransform(transformColorIndexing)
		e.bw.PutBits(uint32(len(p.palette)-1), 8)
		if err := e.encodeSubImage(p.palette.deltas(), len(p.palette), 1); err != nil {
			return 0, err
		}
		packed := p.palette.apply(plane, width, height, plane)
		e.bw.PutBits(0, 1)
		return packed, nil
	}

	e.enter(stateTransforms)
	if p.subtractGreen {
		e.writeTransform(transformSubtractGreen)
		dsp.SubtractGreen(plane)
	}
	bits := p.transformBits
	tw, th := subSampleSize(width, bits), subSampleSize(height, bits)
	if p.predictor {
		modes := predictorTransform(plane, width, height, bits)
		e.writeTransform(transformPredictor)
		e.bw.PutBits(uint32(bits-minTransformBits), transformBitsLen)
		if err := e.encodeSubImage(modes, tw, th); err != nil {
			return 0, err
		}
	}
	if p.crossColor {
		mults := crossColorTransform(plane, width, height, bits)
		e.writeTransform(transformCrossColor)
		e.bw.PutBits(uint32(bits-minTransformBits), transformBitsLen)
		if err := e.encodeSubImage(mults, tw, th); err != nil {
			return 0, err
		}
	}
	e.bw.PutBits(0, 1)
	return width, nil
}

func (e *encoder) encodeSubImage(argb []uint32, width, height int) error {
	return e.encodeImageData(argb, width, height, false, 0, 0)
}

// encodeImageData writes the entropy coded width*height plane argb. The
// main image may use a colour cache and a tile map; auxiliary images use
// neither.
func (e *encoder) encodeImageData(argb []uint32, width, height int, main bool, histoBits, maxCacheBits int) error {
	if main {
		e.enter(stateReferences)
	}
	refs, err := backwardRefs(argb, width, height, e.cfg.Quality, e.cfg.Method)
	if err != nil {
		return err
	}
	cacheBits := 0
	if main {
		cacheBits = bestCacheBits(argb, width, refs, maxCacheBits)
		applyCache(argb, refs, cacheBits)
	}
	refs.toPlaneCodes(width)
	if debugChecks {
		verifyStream(refs, argb, width, height, cacheBits)
	}

	var part *Partition
	if main {
		e.stats.CacheBits = cacheBits
		e.stats.Literals, e.stats.CacheRefs, e.stats.Copies = refs.Counts()
		if err := e.checkpoint(60); err != nil {
			return err
		}
		e.enter(stateHistograms)
		part = partitionTokens(refs, width, height, histoBits, cacheBits, e.cfg.Quality)
		e.stats.Clusters = len(part.Groups)
		if part.Map != nil {
			e.stats.HistoBits = part.Bits
		}
		e.log.Debug("vp8l: histograms", "cacheBits", cacheBits, "clusters", len(part.Groups),
			"histoBits", part.Bits, "tokens", refs.Len())
	} else {
		h := newHistogram(0)
		h.AddStream(refs)
		part = &Partition{Groups: []*Histogram{h}}
	}

	bw := e.bw
	if cacheBits > 0 {
		bw.PutBits(1, 1)
		bw.PutBits(uint32(cacheBits), 4)
	} else {
		bw.PutBits(0, 1)
	}
	if main {
		if part.Map != nil {
			bw.PutBits(1, 1)
			bw.PutBits(uint32(part.Bits-minHistoBits), histoBitsLen)
			tiles := make([]uint32, len(part.Map))
			for i, g := range part.Map {
				tiles[i] = g << 8
			}
			if err := e.encodeSubImage(tiles, subSampleSize(width, part.Bits), subSampleSize(height, part.Bits)); err != nil {
				return err
			}
		} else {
			bw.PutBits(0, 1)
		}
		e.enter(stateEmit)
	}

	codes := make([][codesPerGroup]*HuffmanCode, len(part.Groups))
	for i, g := range part.Groups {
		codes[i] = g.huffmanCodes()
		for _, c := range codes[i] {
			storeHuffmanCode(bw, c)
		}
	}
	writeTokens(bw, refs, width, part, codes)
	return e.writerErr()
}

// writerErr reports a failed write as ErrOutOfMemory; the writer only
// fails when its output limit is hit.
func (e *encoder) writerErr() error {
	if err := e.bw.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	return nil
}

// writeTokens emits refs with the codes of the group owning the tile each
// token starts in.
func writeTokens(bw *bitio.Writer, refs *TokenStream, width int, part *Partition, codes [][codesPerGroup]*HuffmanCode) {
	x, y := 0, 0
	for _, t := range refs.Tokens {
		gc := &codes[part.group(x, y, width)]
		switch t.Kind {
		case KindLiteral:
			gc[codeGreen].write(bw, int(t.Value>>8)&0xff)
			gc[codeRed].write(bw, int(t.Value>>16)&0xff)
			gc[codeBlue].write(bw, int(t.Value)&0xff)
			gc[codeAlpha].write(bw, int(t.Value>>24))
		case KindCacheIndex:
			gc[codeGreen].write(bw, numLiteralCodes+numLengthCodes+int(t.Value))
		case KindCopy:
			code, n, extra := prefixEncode(int(t.Length))
			gc[codeGreen].write(bw, numLiteralCodes+code)
			bw.PutBits(uint32(extra), n)
			code, n, extra = prefixEncode(int(t.Value))
			gc[codeDistance].write(bw, code)
			bw.PutBits(uint32(extra), n)
		}
		x += t.Pixels()
		for x >= width {
			x -= width
			y++
		}
	}
}
