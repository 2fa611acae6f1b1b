package lossless

import "fmt"

// TokenKind tags a Token.
type TokenKind uint8

const (
	// KindLiteral carries a full ARGB colour.
	KindLiteral TokenKind = iota
	// KindCacheIndex refers to a colour cache slot.
	KindCacheIndex
	// KindCopy repeats Length pixels found Distance pixels back.
	KindCopy
)

func (k TokenKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindCacheIndex:
		return "cache"
	case KindCopy:
		return "copy"
	}
	return fmt.Sprintf("TokenKind(%d)", uint8(k))
}

// Token is one element of the entropy coded pixel stream.
//
// For a literal Value is the colour, for a cache index it is the slot and
// for a copy it is the distance. Once a stream is finalised copy
// distances hold plane codes rather than linear distances.
type Token struct {
	Kind   TokenKind
	Length uint16
	Value  uint32
}

// Literal returns a literal token.
func Literal(argb uint32) Token { return Token{Kind: KindLiteral, Length: 1, Value: argb} }

// CacheIndex returns a cache reference token.
func CacheIndex(key int) Token { return Token{Kind: KindCacheIndex, Length: 1, Value: uint32(key)} }

// Copy returns a backward reference token.
func Copy(length, distance int) Token {
	return Token{Kind: KindCopy, Length: uint16(length), Value: uint32(distance)}
}

// Pixels returns how many pixels the token covers.
func (t Token) Pixels() int { return int(t.Length) }

// TokenStream is the sequence of tokens covering an image in scan order.
type TokenStream struct {
	Tokens []Token
	// PlaneCoded reports that copy distances hold plane codes.
	PlaneCoded bool
}

func (s *TokenStream) add(t Token) { s.Tokens = append(s.Tokens, t) }

func (s *TokenStream) reset() {
	s.Tokens = s.Tokens[:0]
	s.PlaneCoded = false
}

// Len returns the number of tokens.
func (s *TokenStream) Len() int { return len(s.Tokens) }

// PixelCount returns the number of pixels the stream covers.
func (s *TokenStream) PixelCount() int {
	n := 0
	for _, t := range s.Tokens {
		n += t.Pixels()
	}
	return n
}

// Counts returns the number of literal, cache and copy tokens.
func (s *TokenStream) Counts() (literals, cached, copies int) {
	for _, t := range s.Tokens {
		switch t.Kind {
		case KindLiteral:
			literals++
		case KindCacheIndex:
			cached++
		case KindCopy:
			copies++
		}
	}
	return
}

// toPlaneCodes rewrites linear copy distances as plane codes for an
// image of the given width.
func (s *TokenStream) toPlaneCodes(width int) {
	if s.PlaneCoded {
		return
	}
	for i := range s.Tokens {
		if t := &s.Tokens[i]; t.Kind == KindCopy {
			t.Value = uint32(distanceToPlaneCode(width, int(t.Value)))
		}
	}
	s.PlaneCoded = true
}

// Replay rebuilds the pixels the stream describes for an image of the
// given size, as a decoder would. It reports malformed streams instead of
// panicking.
func (s *TokenStream) Replay(width, height, cacheBits int) ([]uint32, error) {
	out := make([]uint32, width*height)
	var cache *ColorCache
	if cacheBits > 0 {
		cache = NewColorCache(cacheBits)
	}
	pos := 0
	for i, t := range s.Tokens {
		if pos+t.Pixels() > len(out) {
			return nil, fmt.Errorf("lossless: token %d overruns the image", i)
		}
		switch t.Kind {
		case KindLiteral:
			out[pos] = t.Value
			pos++
		case KindCacheIndex:
			if cache == nil || int(t.Value) >= 1<<uint(cacheBits) {
				return nil, fmt.Errorf("lossless: token %d: bad cache index %d", i, t.Value)
			}
			out[pos] = cache.Lookup(int(t.Value))
			pos++
		case KindCopy:
			dist := int(t.Value)
			if s.PlaneCoded {
				dist = planeCodeToDistance(width, dist)
			}
			if dist < 1 || dist > pos {
				return nil, fmt.Errorf("lossless: token %d: distance %d at %d", i, dist, pos)
			}
			for k := 0; k < t.Pixels(); k++ {
				out[pos+k] = out[pos+k-dist]
			}
			pos += t.Pixels()
		}
		if cache != nil {
			for k := pos - t.Pixels(); k < pos; k++ {
				cache.Insert(out[k])
			}
		}
	}
	if pos != len(out) {
		return nil, fmt.Errorf("lossless: stream covers %d of %d pixels", pos, len(out))
	}
	return out, nil
}
