// Package intern provides content-addressed interning of immutable values.
//
// A Table deduplicates structurally equal values into one stored instance
// and returns stable pointers, so callers can compare values by pointer
// identity. Entries are never evicted or mutated; a returned pointer stays
// valid for the lifetime of the table.
package intern

import "hash/fnv"

// Hasher is a function that computes a content hash for a value.
type Hasher[V any] func(V) uint64

// StringHasher computes FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Table is an intern table for values of type V. Equal values share one
// stored instance. Hash collisions are resolved by full structural equality
// (==), never by hash alone.
//
// A Table is owned by a single goroutine; it is not safe for concurrent
// use.
type Table[V comparable] struct {
	buckets map[uint64][]*V
	hasher  Hasher[V]

	lookups uint64
	hits    uint64
}

// NewTable creates an intern table using the given content hasher.
func NewTable[V comparable](hasher Hasher[V]) *Table[V] {
	return &Table[V]{
		buckets: make(map[uint64][]*V),
		hasher:  hasher,
	}
}

// Lookup returns the stored instance structurally equal to v, inserting v
// if no such instance exists. Two calls with equal values always return the
// same pointer.
func (t *Table[V]) Lookup(v V) *V {
	t.lookups++
	h := t.hasher(v)
	for _, p := range t.buckets[h] {
		if *p == v {
			t.hits++
			return p
		}
	}
	p := new(V)
	*p = v
	t.buckets[h] = append(t.buckets[h], p)
	return p
}

// Len returns the number of distinct values stored.
func (t *Table[V]) Len() int {
	n := 0
	for _, b := range t.buckets {
		n += len(b)
	}
	return n
}

// Stats reports lookup statistics.
type Stats struct {
	Len     int
	Lookups uint64
	Hits    uint64
	HitRate float64
}

// Stats returns current intern-table statistics.
func (t *Table[V]) Stats() Stats {
	s := Stats{Len: t.Len(), Lookups: t.lookups, Hits: t.hits}
	if t.lookups > 0 {
		s.HitRate = float64(t.hits) / float64(t.lookups)
	}
	return s
}
