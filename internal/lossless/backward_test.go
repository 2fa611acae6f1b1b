package lossless

import (
	"errors"
	"math/rand"
	"testing"
)

// ---------------------------------------------------------------------------
// Token streams
// ---------------------------------------------------------------------------

func TestTokenStreamReplay(t *testing.T) {
	s := &TokenStream{}
	s.add(Literal(1))
	s.add(Literal(2))
	s.add(Copy(4, 2))
	s.add(Literal(3))
	got, err := s.Replay(7, 1, 0)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	want := []uint32{1, 2, 1, 2, 1, 2, 3}
	assertPixels(t, got, want)
	if s.PixelCount() != 7 || s.Len() != 4 {
		t.Errorf("PixelCount %d Len %d", s.PixelCount(), s.Len())
	}
	lit, cached, copies := s.Counts()
	if lit != 3 || cached != 0 || copies != 1 {
		t.Errorf("Counts() = %d, %d, %d", lit, cached, copies)
	}
}

func TestTokenStreamReplayErrors(t *testing.T) {
	tests := []struct {
		name   string
		tokens []Token
		w, h   int
		cache  int
	}{
		{"overrun", []Token{Literal(1), Copy(5, 1)}, 3, 1, 0},
		{"distance", []Token{Literal(1), Copy(2, 2)}, 3, 1, 0},
		{"no cache", []Token{CacheIndex(0)}, 1, 1, 0},
		{"cache range", []Token{CacheIndex(4)}, 1, 1, 2},
		{"short", []Token{Literal(1)}, 2, 1, 0},
	}
	for _, tt := range tests {
		s := &TokenStream{Tokens: tt.tokens}
		if _, err := s.Replay(tt.w, tt.h, tt.cache); err == nil {
			t.Errorf("%s: no error", tt.name)
		}
	}
}

func TestTokenKindString(t *testing.T) {
	for k, want := range map[TokenKind]string{KindLiteral: "literal", KindCacheIndex: "cache", KindCopy: "copy", 7: "TokenKind(7)"} {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Hash chain
// ---------------------------------------------------------------------------

func TestHashChainMatchesAreValid(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	const w, h = 61, 40
	pix := paletteImage(rng, w, h, 6)
	for _, q := range []int{0, 50, 100} {
		hc, err := newHashChain(pix, w, h, q, 4)
		if err != nil {
			t.Fatalf("newHashChain: %v", err)
		}
		found := 0
		for pos := range pix {
			n, d := hc.Length(pos), hc.Distance(pos)
			if n == 0 {
				continue
			}
			found++
			if d < 1 || d > pos || n > maxCopyLength || pos+n > len(pix) {
				t.Fatalf("q%d pos %d: length %d distance %d", q, pos, n, d)
			}
			if d > chainWindow(q, w) {
				t.Fatalf("q%d pos %d: distance %d outside window", q, pos, d)
			}
			for k := 0; k < n; k++ {
				if pix[pos+k] != pix[pos+k-d] {
					t.Fatalf("q%d pos %d: match of %d at %d breaks at %d", q, pos, n, d, k)
				}
			}
		}
		if found == 0 {
			t.Errorf("q%d: no matches in a repetitive image", q)
		}
	}
}

func TestHashChainRefusesEmpty(t *testing.T) {
	if _, err := newHashChain(nil, 0, 5, 75, 4); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("err = %v, want ErrOutOfMemory", err)
	}
}

func TestChainDepthCaps(t *testing.T) {
	if d := chainDepth(100, 0); d != 8 {
		t.Errorf("method 0 depth %d", d)
	}
	if d := chainDepth(100, 2); d != 24 {
		t.Errorf("method 2 depth %d", d)
	}
	if d := chainDepth(100, 6); d != 8+100*100/128 {
		t.Errorf("method 6 depth %d", d)
	}
}

// ---------------------------------------------------------------------------
// Parsers and colour cache
// ---------------------------------------------------------------------------

func TestBackwardRefsReplay(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	images := []struct {
		w, h int
		pix  []uint32
	}{
		{40, 30, paletteImage(rng, 40, 30, 4)},
		{33, 21, noiseImage(rng, 33, 21)},
		{64, 16, gradientImage(64, 16)},
		{2, 1, []uint32{5, 5}},
		{1, 1, []uint32{9}},
	}
	for i, img := range images {
		for _, m := range []int{0, 4, 6} {
			refs, err := backwardRefs(img.pix, img.w, img.h, 75, m)
			if err != nil {
				t.Fatalf("image %d: %v", i, err)
			}
			got, err := refs.Replay(img.w, img.h, 0)
			if err != nil {
				t.Fatalf("image %d m%d: %v", i, m, err)
			}
			assertPixels(t, got, img.pix)

			bits := bestCacheBits(img.pix, img.w, refs, MaxCacheBits)
			if bits < 0 || bits > MaxCacheBits {
				t.Fatalf("cache bits %d", bits)
			}
			applyCache(img.pix, refs, bits)
			refs.toPlaneCodes(img.w)
			got, err = refs.Replay(img.w, img.h, bits)
			if err != nil {
				t.Fatalf("image %d m%d cache %d: %v", i, m, bits, err)
			}
			assertPixels(t, got, img.pix)
		}
	}
}

func TestRLERefsUseNeighbours(t *testing.T) {
	const w = 10
	pix := make([]uint32, w*3)
	for i := range pix {
		pix[i] = uint32(i % w)
	}
	refs := &TokenStream{}
	rleRefs(pix, w, 4, refs)
	for _, tk := range refs.Tokens {
		if tk.Kind == KindCopy && tk.Value != 1 && tk.Value != w {
			t.Fatalf("copy distance %d", tk.Value)
		}
	}
	if _, _, copies := refs.Counts(); copies == 0 {
		t.Error("repeated rows produced no copies")
	}
}

func TestApplyCacheFindsRepeats(t *testing.T) {
	pix := []uint32{1, 2, 3, 1, 2, 3, 7, 1}
	refs := &TokenStream{}
	for _, p := range pix {
		refs.add(Literal(p))
	}
	applyCache(pix, refs, 4)
	_, cached, _ := refs.Counts()
	if cached == 0 {
		t.Error("no cache references for repeated colours")
	}
	got, err := refs.Replay(len(pix), 1, 4)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	assertPixels(t, got, pix)
}

func TestColorCache(t *testing.T) {
	c := NewColorCache(3)
	color := uint32(0xff123456)
	if c.Bits() != 3 {
		t.Fatalf("Bits() = %d", c.Bits())
	}
	c.Insert(color)
	key, ok := c.Find(color)
	if !ok || c.Lookup(key) != color {
		t.Fatalf("Find after Insert: key %d ok %v", key, ok)
	}
	if key != int((color*cacheHashMul)>>29) {
		t.Errorf("key %d does not follow the multiplicative hash", key)
	}
	c.Reset()
	if _, ok := c.Find(color); ok {
		t.Error("Reset kept the colour")
	}
}

// ---------------------------------------------------------------------------
// Box and cost-model parses
// ---------------------------------------------------------------------------

type parseImage struct {
	name string
	w, h int
	pix  []uint32
}

func parseImages(rng *rand.Rand) []parseImage {
	flat := make([]uint32, 200*150)
	for i := range flat {
		flat[i] = 0xff808080
	}
	tiles := make([]uint32, 48*40)
	for i := range tiles {
		x, y := i%48, i/48
		tiles[i] = 0xff000000 | uint32((x%6)*40)<<16 | uint32((y%5)*50)
	}
	return []parseImage{
		{"palette", 64, 48, paletteImage(rng, 64, 48, 6)},
		{"noise", 33, 21, noiseImage(rng, 33, 21)},
		{"gradient", 64, 16, gradientImage(64, 16)},
		{"tiles", 48, 40, tiles},
		{"flat", 200, 150, flat},
		{"column", 1, 40, gradientImage(1, 40)},
		{"pair", 2, 1, []uint32{5, 5}},
		{"single", 1, 1, []uint32{9}},
	}
}

func TestBoxOffsets(t *testing.T) {
	tests := []struct {
		width int
		n     int
		first []int
	}{
		{100, boxCodes, []int{100, 1, 101, 99}},
		{10, 24, []int{10, 1, 11, 9}},
		{1, 4, []int{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		offs := boxOffsets(tt.width)
		if len(offs) != tt.n {
			t.Errorf("width %d: %d offsets, want %d", tt.width, len(offs), tt.n)
			continue
		}
		for i, want := range tt.first {
			if offs[i] != want {
				t.Errorf("width %d: offset %d = %d, want %d", tt.width, i, offs[i], want)
			}
		}
		seen := make(map[int]bool)
		for _, d := range offs {
			if seen[d] {
				t.Errorf("width %d: offset %d repeated", tt.width, d)
			}
			seen[d] = true
			if code := distanceToPlaneCode(tt.width, d); code > boxCodes {
				t.Errorf("width %d: offset %d has plane code %d", tt.width, d, code)
			}
		}
	}
}

func TestRunMatch(t *testing.T) {
	tests := []struct {
		name string
		pix  []uint32
		a, b int
		want int
	}{
		{"distinct tail", []uint32{1, 2, 3, 1, 2, 4}, 0, 3, 2},
		{"runs", []uint32{7, 7, 7, 7, 7, 7}, 0, 1, 5},
		{"uneven runs", []uint32{7, 7, 8, 7, 7, 7, 8}, 0, 3, 2},
		{"repeat to end", []uint32{1, 1, 2, 1, 1, 2}, 0, 3, 3},
		{"single", []uint32{4, 5, 4, 6}, 0, 2, 1},
	}
	for _, tt := range tests {
		runs := make([]uint16, len(tt.pix))
		runs[len(runs)-1] = 1
		for i := len(runs) - 2; i >= 0; i-- {
			runs[i] = 1
			if tt.pix[i] == tt.pix[i+1] {
				runs[i] = runs[i+1] + 1
			}
		}
		if got := runMatch(tt.pix, runs, tt.a, tt.b); got != tt.want {
			t.Errorf("%s: runMatch = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestBoxRefsStayNear(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for _, img := range parseImages(rng) {
		hc, err := newHashChain(img.pix, img.w, img.h, 75, 6)
		if err != nil {
			t.Fatalf("%s: %v", img.name, err)
		}
		refs := &TokenStream{}
		boxRefs(img.pix, img.w, hc, 3, refs)
		got, err := refs.Replay(img.w, img.h, 0)
		if err != nil {
			t.Fatalf("%s: Replay: %v", img.name, err)
		}
		assertPixels(t, got, img.pix)
		for _, tk := range refs.Tokens {
			if tk.Kind != KindCopy {
				continue
			}
			if code := distanceToPlaneCode(img.w, int(tk.Value)); code > boxCodes {
				t.Errorf("%s: copy distance %d has plane code %d", img.name, tk.Value, code)
			}
		}
	}
}

func TestTraceRefsReplay(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	for _, img := range parseImages(rng) {
		hc, err := newHashChain(img.pix, img.w, img.h, 90, 6)
		if err != nil {
			t.Fatalf("%s: %v", img.name, err)
		}
		seed := &TokenStream{}
		lz77Refs(img.pix, hc, 3, seed)
		traced := &TokenStream{}
		traceRefs(img.pix, img.w, hc, 3, seed, traced)
		got, err := traced.Replay(img.w, img.h, 0)
		if err != nil {
			t.Fatalf("%s: Replay: %v", img.name, err)
		}
		assertPixels(t, got, img.pix)
		for _, tk := range traced.Tokens {
			if tk.Kind == KindCopy && tk.Length < 3 {
				t.Errorf("%s: copy of %d pixels", img.name, tk.Length)
			}
		}
		if img.name == "flat" && traced.Len() > 20 {
			t.Errorf("flat image traced into %d tokens", traced.Len())
		}
	}
}

func TestSymbolCosts(t *testing.T) {
	out := make([]float64, 4)
	symbolCosts([]uint32{0, 9, 0, 0}, out)
	for i, c := range out {
		if c != 0 {
			t.Errorf("single symbol: cost[%d] = %v", i, c)
		}
	}
	symbolCosts([]uint32{2, 1, 1, 0}, out)
	want := []float64{1, 2, 2, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("cost[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestBackwardRefsMethodSixNotLarger(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	for _, img := range parseImages(rng) {
		hc, err := newHashChain(img.pix, img.w, img.h, 90, 6)
		if err != nil {
			t.Fatal(err)
		}
		lz := &TokenStream{}
		lz77Refs(img.pix, hc, minCopyLength(6), lz)
		high, err := backwardRefs(img.pix, img.w, img.h, 90, 6)
		if err != nil {
			t.Fatal(err)
		}
		got, err := high.Replay(img.w, img.h, 0)
		if err != nil {
			t.Fatalf("%s: Replay: %v", img.name, err)
		}
		assertPixels(t, got, img.pix)
		if streamBits(high, img.w) > streamBits(lz, img.w) {
			t.Errorf("%s: method 6 parse costs more than its own LZ77 parse", img.name)
		}
	}
}
