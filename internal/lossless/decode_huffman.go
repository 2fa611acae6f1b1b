package lossless

import "github.com/deepteams/vp8l/internal/bitio"

// Prefix code decoding.
//
// Codes up to fastBits long resolve with one table lookup on the peeked
// bits. Longer codes are walked one bit at a time over the canonical
// ordering, which needs no further tables.

const fastBits = 8

type huffmanDecoder struct {
	// single is the only used symbol, read with zero bits, or -1.
	single int
	// fast entries hold symbol<<4 | length; length 0 marks a long code.
	fast    [1 << fastBits]uint16
	count   [maxCodeLength + 1]uint16
	symbols []uint16
}

// newHuffmanDecoder builds a decoder for the canonical code described by
// lengths. Codes that over- or under-subscribe the code space are
// rejected, except for a lone symbol.
func newHuffmanDecoder(lengths []uint8) (*huffmanDecoder, error) {
	d := &huffmanDecoder{single: -1}
	used, last := 0, 0
	for s, l := range lengths {
		if l == 0 {
			continue
		}
		if int(l) > maxCodeLength {
			return nil, ErrBitstream
		}
		d.count[l]++
		used++
		last = s
	}
	switch used {
	case 0:
		return nil, ErrBitstream
	case 1:
		d.single = last
		return d, nil
	}

	left := 1
	for l := 1; l <= maxCodeLength; l++ {
		left = left<<1 - int(d.count[l])
		if left < 0 {
			return nil, ErrBitstream
		}
	}
	if left != 0 {
		return nil, ErrBitstream
	}

	var offs [maxCodeLength + 2]int
	for l := 1; l <= maxCodeLength; l++ {
		offs[l+1] = offs[l] + int(d.count[l])
	}
	d.symbols = make([]uint16, used)
	for s, l := range lengths {
		if l != 0 {
			d.symbols[offs[l]] = uint16(s)
			offs[l]++
		}
	}

	code, i := 0, 0
	for l := 1; l <= fastBits; l++ {
		for k := 0; k < int(d.count[l]); k++ {
			entry := d.symbols[i]<<4 | uint16(l)
			for j := int(reverseCode(code, l)); j < 1<<fastBits; j += 1 << uint(l) {
				d.fast[j] = entry
			}
			code++
			i++
		}
		code <<= 1
	}
	return d, nil
}

// read decodes one symbol. At the end of input it returns garbage and the
// reader reports EOS.
func (d *huffmanDecoder) read(br *bitio.Reader) int {
	if d.single >= 0 {
		return d.single
	}
	if e := d.fast[br.PeekBits(fastBits)]; e&0xf != 0 {
		br.Skip(int(e & 0xf))
		return int(e >> 4)
	}
	code, first, index := 0, 0, 0
	for l := 1; l <= maxCodeLength; l++ {
		code |= int(br.ReadBits(1))
		n := int(d.count[l])
		if code-first < n {
			return int(d.symbols[index+code-first])
		}
		index += n
		first = (first + n) << 1
		code <<= 1
	}
	return 0
}

// readCodeLengths reads the description of a code over alphabetSize
// symbols.
func readCodeLengths(br *bitio.Reader, alphabetSize int) ([]uint8, error) {
	lengths := make([]uint8, alphabetSize)
	if br.ReadBit() {
		n := int(br.ReadBits(1)) + 1
		first := 1
		if br.ReadBit() {
			first = 8
		}
		syms := [2]int{int(br.ReadBits(first)), 0}
		if n == 2 {
			syms[1] = int(br.ReadBits(8))
		}
		for _, s := range syms[:n] {
			if s >= alphabetSize {
				return nil, ErrBitstream
			}
			lengths[s] = 1
		}
		return lengths, nil
	}

	numCodes := int(br.ReadBits(4)) + 4
	if numCodes > numCodeLengths {
		return nil, ErrBitstream
	}
	var clLengths [numCodeLengths]uint8
	for _, s := range codeLengthOrder[:numCodes] {
		clLengths[s] = uint8(br.ReadBits(3))
	}
	if br.EOS() {
		return nil, ErrTruncated
	}
	cl, err := newHuffmanDecoder(clLengths[:])
	if err != nil {
		return nil, err
	}

	maxSymbol := alphabetSize
	if br.ReadBit() {
		n := 2 + 2*int(br.ReadBits(3))
		maxSymbol = 2 + int(br.ReadBits(n))
		if maxSymbol > alphabetSize {
			return nil, ErrBitstream
		}
	}

	prev := uint8(8)
	for sym := 0; sym < alphabetSize && maxSymbol > 0; maxSymbol-- {
		c := cl.read(br)
		if br.EOS() {
			return nil, ErrTruncated
		}
		if c < 16 {
			lengths[sym] = uint8(c)
			if c != 0 {
				prev = uint8(c)
			}
			sym++
			continue
		}
		k := c - 16
		reps := repeatOffsets[k] + int(br.ReadBits(repeatExtraBits[k]))
		if sym+reps > alphabetSize {
			return nil, ErrBitstream
		}
		v := uint8(0)
		if c == 16 {
			v = prev
		}
		for end := sym + reps; sym < end; sym++ {
			lengths[sym] = v
		}
	}
	return lengths, nil
}

// readPrefixed reads the value of a length or distance prefix symbol.
func readPrefixed(br *bitio.Reader, code int) int {
	base, extra := prefixBase(code)
	return base + int(br.ReadBits(extra))
}
