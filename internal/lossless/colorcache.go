package lossless

// ColorCache is the hash-addressed table of recently seen colours shared
// by encoder and decoder. A zero-bit cache is disabled and holds nothing.
type ColorCache struct {
	colors []uint32
	shift  uint
	bits   int
}

const cacheHashMul = 0x1e35a7bd

// NewColorCache returns a cache of 2^bits entries; bits must be in
// [1, MaxCacheBits].
func NewColorCache(bits int) *ColorCache {
	return &ColorCache{
		colors: make([]uint32, 1<<uint(bits)),
		shift:  uint(32 - bits),
		bits:   bits,
	}
}

// Bits returns the cache size in bits.
func (c *ColorCache) Bits() int { return c.bits }

// Key returns the slot argb hashes to.
func (c *ColorCache) Key(argb uint32) int {
	return int((argb * cacheHashMul) >> c.shift)
}

// Insert stores argb in its slot.
func (c *ColorCache) Insert(argb uint32) {
	c.colors[c.Key(argb)] = argb
}

// Lookup returns the colour held in slot key.
func (c *ColorCache) Lookup(key int) uint32 {
	return c.colors[key]
}

// Find returns the slot holding argb, if any.
func (c *ColorCache) Find(argb uint32) (int, bool) {
	key := c.Key(argb)
	return key, c.colors[key] == argb
}

// Reset clears every slot.
func (c *ColorCache) Reset() {
	clear(c.colors)
}
