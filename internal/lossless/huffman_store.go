package lossless

import "github.com/deepteams/vp8l/internal/bitio"

// lengthToken is one symbol of the run-length coded code-length sequence:
// a literal length 0..15, or a repeat code 16..18 with its extra bits.
type lengthToken struct {
	code  uint8
	extra uint8
}

// codeLengthTokens run-length codes lengths. Code 16 repeats the previous
// non-zero length 3..6 times, 17 and 18 emit 3..10 and 11..138 zeros.
func codeLengthTokens(lengths []uint8) []lengthToken {
	var toks []lengthToken
	prev := uint8(8)
	for i := 0; i < len(lengths); {
		v := lengths[i]
		run := 1
		for i+run < len(lengths) && lengths[i+run] == v {
			run++
		}
		i += run
		if v == 0 {
			for run > 0 {
				switch {
				case run < 3:
					toks = append(toks, lengthToken{0, 0})
					run--
				case run < 11:
					toks = append(toks, lengthToken{17, uint8(run - 3)})
					run = 0
				default:
					n := min(run, 138)
					toks = append(toks, lengthToken{18, uint8(n - 11)})
					run -= n
				}
			}
			continue
		}
		if v != prev {
			toks = append(toks, lengthToken{v, 0})
			run--
			prev = v
		}
		for run > 0 {
			if run < 3 {
				toks = append(toks, lengthToken{v, 0})
				run--
				continue
			}
			n := min(run, 6)
			toks = append(toks, lengthToken{16, uint8(n - 3)})
			run -= n
		}
	}
	return toks
}

// storeHuffmanCode writes the description of c. Afterwards a code with a
// single used symbol is cleared so that its symbol is emitted with zero
// bits, which is what the decoder expects.
func storeHuffmanCode(w *bitio.Writer, c *HuffmanCode) {
	syms := c.usedSymbols(3)
	switch {
	case len(syms) == 0:
		// Nothing is ever coded; describe a one-symbol code for symbol 0.
		w.PutBits(1, 1)
		w.PutBits(0, 3)
	case len(syms) <= 2 && syms[len(syms)-1] < numLiteralCodes:
		storeSimpleCode(w, syms)
	default:
		storeFullCode(w, c)
	}
	c.clearIfSingle()
}

func storeSimpleCode(w *bitio.Writer, syms []int) {
	w.PutBits(1, 1)
	w.PutBits(uint32(len(syms)-1), 1)
	if syms[0] <= 1 {
		w.PutBits(0, 1)
		w.PutBits(uint32(syms[0]), 1)
	} else {
		w.PutBits(1, 1)
		w.PutBits(uint32(syms[0]), 8)
	}
	if len(syms) == 2 {
		w.PutBits(uint32(syms[1]), 8)
	}
}

func storeFullCode(w *bitio.Writer, c *HuffmanCode) {
	toks := codeLengthTokens(c.Lengths)
	var counts [numCodeLengths]uint32
	for _, t := range toks {
		counts[t.code]++
	}
	lengthCode := newHuffmanCode(counts[:], maxCodeLengthLength)

	w.PutBits(0, 1)
	n := numCodeLengths
	for n > 4 && lengthCode.Lengths[codeLengthOrder[n-1]] == 0 {
		n--
	}
	w.PutBits(uint32(n-4), 4)
	for _, s := range codeLengthOrder[:n] {
		w.PutBits(uint32(lengthCode.Lengths[s]), 3)
	}
	lengthCode.clearIfSingle()

	// Trailing zero runs can be dropped when announcing the token count is
	// cheaper than sending them.
	trimmed, saved := len(toks), 0
	for trimmed > 0 {
		t := toks[trimmed-1]
		if t.code != 0 && t.code < 17 {
			break
		}
		saved += int(lengthCode.Lengths[t.code])
		if t.code >= 17 {
			saved += repeatExtraBits[t.code-16]
		}
		trimmed--
	}
	count := len(toks)
	if trimmed > 1 && saved > 12 {
		count = trimmed
		w.PutBits(1, 1)
		pairs := log2Floor(max(trimmed-2, 1))/2 + 1
		w.PutBits(uint32(pairs-1), 3)
		w.PutBits(uint32(trimmed-2), 2*pairs)
	} else {
		w.PutBits(0, 1)
	}

	for _, t := range toks[:count] {
		lengthCode.write(w, int(t.code))
		if t.code >= 16 {
			w.PutBits(uint32(t.extra), repeatExtraBits[t.code-16])
		}
	}
}
