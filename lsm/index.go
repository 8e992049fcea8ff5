package lsm

import (
	"sort"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/flashkv/flashkv/codec"
	"github.com/flashkv/flashkv/page"
)

// sparseIndex maps the smallest key of each on-disk page to that page's byte
// offset, sorted ascending by key. Lookups find the greatest indexed key
// less than or equal to the target.
type sparseIndex[K codec.Ordered] struct {
	keys    []K
	offsets []int64
}

func (idx *sparseIndex[K]) reset() {
	idx.keys = idx.keys[:0]
	idx.offsets = idx.offsets[:0]
}

func (idx *sparseIndex[K]) append(key K, offset int64) {
	idx.keys = append(idx.keys, key)
	idx.offsets = append(idx.offsets, offset)
}

// lookup returns the offset of the page that would contain key, if any page
// could possibly hold it (i.e. there is an indexed page whose first key is
// <= key).
func (idx *sparseIndex[K]) lookup(key K) (int64, bool) {
	i := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] > key })
	if i == 0 {
		return 0, false
	}
	return idx.offsets[i-1], true
}

func decodePage[K codec.Ordered, V any](buf []byte, kc codec.Codec[K], vc codec.Codec[V]) *page.Page[K, V] {
	return page.Decode(buf, kc, vc)
}

// rebuildIndex walks the run file page by page, rebuilding both the sparse
// index (first key of page -> page offset) and the bloom filter (every key
// present on disk, tombstone or not) in a single pass.
func (t *Table[K, V]) rebuildIndex() error {
	t.index.reset()
	filter := bloom.NewWithEstimates(t.bloomEstimate, 0.01)

	var offset int64
	for {
		blk, err := t.pool.Get(t.diskPath, offset)
		if err != nil {
			return err
		}
		if blk == nil {
			break
		}

		p := decodePage(blk.Bytes(), t.kc, t.vc)
		if p.NumCells() > 0 {
			t.index.append(p.FirstKey(), offset)
		}
		p.Each(func(key K, _ V, _ bool) {
			filter.Add(t.kc.Encode(key))
		})

		offset += page.BlockSize
	}

	t.bloom = filter
	return nil
}
