// Package pool provides bucketed sync.Pool instances for the pixel planes
// and byte rows the encoder allocates on every call. Buffers are organized
// by size class to minimize waste.
package pool

import "sync"

// Size classes, in elements.
const (
	Size1K   = 1 << 10
	Size4K   = 1 << 12
	Size16K  = 1 << 14
	Size64K  = 1 << 16
	Size256K = 1 << 18
	Size1M   = 1 << 20
	Size4M   = 1 << 22
)

var sizes = [...]int{Size1K, Size4K, Size16K, Size64K, Size256K, Size1M, Size4M}

// bucketIndex returns the pool index for a given size, or -1 when the size
// is larger than every class.
func bucketIndex(size int) int {
	for i, s := range sizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// bucketed is a set of pools, one per size class.
type bucketed[T any] struct {
	pools [len(sizes)]sync.Pool
}

func (b *bucketed[T]) get(n int) []T {
	idx := bucketIndex(n)
	if idx < 0 {
		return make([]T, n)
	}
	if p, ok := b.pools[idx].Get().(*[]T); ok && cap(*p) >= n {
		s := (*p)[:n]
		clear(s)
		return s
	}
	return make([]T, n, sizes[idx])
}

func (b *bucketed[T]) put(s []T) {
	c := cap(s)
	if c < Size1K {
		return
	}
	idx := bucketIndex(c)
	if idx < 0 {
		return
	}
	// Only full-class slices are pooled so that get can rely on the
	// capacity of its class.
	if c != sizes[idx] {
		return
	}
	s = s[:c]
	b.pools[idx].Put(&s)
}

var (
	uint32s bucketed[uint32]
	bytes   bucketed[byte]
)

// GetUint32 returns a zeroed uint32 slice of the requested length. The
// caller should call PutUint32 when done.
func GetUint32(n int) []uint32 { return uint32s.get(n) }

// PutUint32 returns a slice obtained from GetUint32 to the pool.
func PutUint32(s []uint32) { uint32s.put(s) }

// Get returns a zeroed byte slice of the requested length. The caller
// should call Put when done.
func Get(n int) []byte { return bytes.get(n) }

// Put returns a slice obtained from Get to the pool.
func Put(b []byte) { bytes.put(b) }
