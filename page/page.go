// Package page implements the slotted page codec: a self-describing,
// block-sized container for an ordered set of key -> optional-value cells.
//
// Layout choice is driven by the key and value codecs' declared widths. When
// both are fixed-width the page uses the compact Fixed layout (no
// per-cell length prefixes); otherwise it falls back to the Variable layout.
//
// Fixed header (6 bytes):
//
//	[flag:1 bit | num_cells:15 bits] [key_width:2 bytes] [value_width:2 bytes]
//
// Variable header (2 bytes):
//
//	[flag:1 bit | num_cells:15 bits]
//
// After the header comes a forward-growing array of 2-byte cell offsets;
// cells themselves are packed from the end of the block backward, in
// key-sorted order. Offset i counts bytes from the end of the block to the
// end of cell i, identically for both layouts.
//
// Fixed cell: key_bytes || tag(1) || value_bytes (zero-padded when absent).
// Variable cell: key_len(2) || key_bytes || val_len(2) || tag(1) || value_bytes.
package page

import (
	"fmt"
	"sort"

	"github.com/flashkv/flashkv/codec"
)

// BlockSize is the fixed size of every page, matching the buffer pool's
// block size.
const BlockSize = 4096

// cellOverhead is the conservative per-cell reservation charged by AddCell:
// 2 bytes for the offset-table slot plus framing headroom. AddCell and
// Decode both charge it, so their accounting never drifts apart; Encode
// does no accounting of its own.
const cellOverhead = 16

// Type distinguishes the two on-disk cell layouts a page can use.
type Type uint8

const (
	Fixed Type = iota
	Variable
)

type cell[K codec.Ordered, V any] struct {
	key     K
	value   V
	present bool
}

// Page is the in-memory, pre-encode form of a slotted page: an ordered set
// of cells that have been accepted by AddCell, plus the bookkeeping needed
// to know when it's full.
type Page[K codec.Ordered, V any] struct {
	kc codec.Codec[K]
	vc codec.Codec[V]

	typ       Type
	cells     []cell[K, V]
	spaceLeft int
}

// New returns an empty page. Its layout (Fixed or Variable) is decided once,
// from kc and vc's widths.
func New[K codec.Ordered, V any](kc codec.Codec[K], vc codec.Codec[V]) *Page[K, V] {
	typ := Variable
	if kc.Width() > 0 && vc.Width() > 0 {
		typ = Fixed
	}
	return &Page[K, V]{
		kc:        kc,
		vc:        vc,
		typ:       typ,
		spaceLeft: BlockSize,
	}
}

// Type reports the page's layout.
func (p *Page[K, V]) Type() Type { return p.typ }

// NumCells reports how many cells the page currently holds.
func (p *Page[K, V]) NumCells() int { return len(p.cells) }

// SpaceLeft reports the number of bytes still available for new cells.
func (p *Page[K, V]) SpaceLeft() int { return p.spaceLeft }

// FirstKey returns the smallest key in the page. Only valid when
// NumCells() > 0.
func (p *Page[K, V]) FirstKey() K { return p.cells[0].key }

// Each calls fn for every cell in ascending key order.
func (p *Page[K, V]) Each(fn func(key K, value V, present bool)) {
	for _, c := range p.cells {
		fn(c.key, c.value, c.present)
	}
}

// At returns the i-th cell in ascending key order, for callers (the merge
// cursor) that need indexed access instead of a full traversal.
func (p *Page[K, V]) At(i int) (key K, value V, present bool) {
	c := p.cells[i]
	return c.key, c.value, c.present
}

// Get looks up a key within the page.
func (p *Page[K, V]) Get(key K) (value V, present, found bool) {
	i := p.search(key)
	if i < len(p.cells) && p.cells[i].key == key {
		return p.cells[i].value, p.cells[i].present, true
	}
	return value, false, false
}

func (p *Page[K, V]) search(key K) int {
	return sort.Search(len(p.cells), func(i int) bool { return !(p.cells[i].key < key) })
}

func (p *Page[K, V]) cost(key K, value V, present bool) int {
	switch p.typ {
	case Fixed:
		return cellOverhead + p.kc.Width() + p.vc.Width() + 1
	default:
		keyLen := len(p.kc.Encode(key))
		valLen := 1
		if present {
			valLen += len(p.vc.Encode(value))
		}
		return cellOverhead + keyLen + valLen
	}
}

// AddCell attempts to insert key -> value (or a tombstone, when present is
// false) into the page in sorted order. It returns true on success. On
// rejection it returns the same (key, value, present) unchanged so the
// caller can retry against a fresh page. Replacing an existing key is
// checked against the space the old cell's removal would free, not just
// the page's current space_left, so an update that merely shrinks or grows
// a cell within the freed budget is never wrongly rejected or accepted.
func (p *Page[K, V]) AddCell(key K, value V, present bool) (key2 K, value2 V, present2 bool, ok bool) {
	i := p.search(key)
	isUpdate := i < len(p.cells) && p.cells[i].key == key

	available := p.spaceLeft
	if isUpdate {
		old := p.cells[i]
		available += p.cost(old.key, old.value, old.present)
	}

	cost := p.cost(key, value, present)
	if cost > available {
		return key, value, present, false
	}

	if isUpdate {
		p.cells[i] = cell[K, V]{key, value, present}
		p.spaceLeft = available - cost
		return key, value, present, true
	}

	p.cells = append(p.cells, cell[K, V]{})
	copy(p.cells[i+1:], p.cells[i:])
	p.cells[i] = cell[K, V]{key, value, present}
	p.spaceLeft -= cost
	return key, value, present, true
}

func overflowErr(n int) error {
	return fmt.Errorf("page: %d cells exceeds the 15-bit cell count", n)
}
