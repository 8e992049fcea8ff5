// Package codec describes how keys and values are turned into bytes for the
// slotted page format, and the width knowledge (fixed vs. variable) that
// drives the page's layout choice.
package codec

// Ordered is the set of Go types the engine accepts as keys: anything with a
// natural total order, so the memtable and run can stay sorted without a
// caller-supplied comparator.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64 | ~string
}

// Codec serializes values of type T and reports whether T has a static byte
// width. Width returns a positive byte count for fixed-width types, or -1 to
// mark T as variable-width (length-prefixed in the page).
type Codec[T any] interface {
	Width() int
	Encode(v T) []byte
	Decode(b []byte) T
}

// Optional represents a value that may be absent. An absent Optional encodes
// a tombstone when stored as an LSM value.
type Optional[V any] struct {
	Value   V
	Present bool
}

// Some wraps v as a present value.
func Some[V any](v V) Optional[V] {
	return Optional[V]{Value: v, Present: true}
}

// None returns an absent Optional, i.e. a tombstone.
func None[V any]() Optional[V] {
	return Optional[V]{}
}
