// Package lsm implements the LSM table: an in-memory ordered memtable backed
// by a single sorted, immutable on-disk run, with a sparse index over the run
// and a merge procedure that folds the memtable back into the run.
package lsm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/sirupsen/logrus"

	"github.com/flashkv/flashkv/codec"
	"github.com/flashkv/flashkv/memtable"
	"github.com/flashkv/flashkv/pool"
)

// bytesPerBlockHeuristic is the per-pool-block memtable budget used to decide
// when a table has grown large enough to merge: memtable_size is compared
// against capacity * bytesPerBlockHeuristic.
const bytesPerBlockHeuristic = 2048

// defaultRunsDir is where run files live, relative to the working directory,
// unless overridden with WithRunsDir.
const defaultRunsDir = "disktables"

// defaultBloomEstimate sizes the read-accelerator bloom filter rebuilt after
// every index scan. It trades a modest false-positive rate for skipping disk
// entirely on misses; it never produces false negatives, so Get's correctness
// never depends on it.
const defaultBloomEstimate = 100_000

// Table is one LSM table: a memtable, the single on-disk run it merges into,
// and the sparse index and bloom filter built from that run.
type Table[K codec.Ordered, V any] struct {
	name string
	pool *pool.Pool

	kc codec.Codec[K]
	vc codec.Codec[V]

	memtable     memtable.Memtable[K, codec.Optional[V]]
	memtableSize int

	diskPath string
	index    sparseIndex[K]
	bloom    *bloom.BloomFilter

	mergeCount int

	mergeThreshold int
	bloomEstimate  uint
	logger         logrus.FieldLogger
	runsDir        string
}

// Option configures a Table at construction time.
type Option[K codec.Ordered, V any] func(*Table[K, V])

// WithLogger overrides the table's logger. The default is
// logrus.StandardLogger().
func WithLogger[K codec.Ordered, V any](l logrus.FieldLogger) Option[K, V] {
	return func(t *Table[K, V]) { t.logger = l }
}

// WithMergeThreshold overrides the memtable byte-size threshold that
// triggers an automatic merge on Put. The default scales with the pool's
// capacity (capacity * 2048 bytes).
func WithMergeThreshold[K codec.Ordered, V any](bytes int) Option[K, V] {
	return func(t *Table[K, V]) { t.mergeThreshold = bytes }
}

// WithRunsDir overrides the directory run files are created under. The
// default is "disktables", matching the library's working-directory
// convention; tests use this to isolate runs inside a temp directory.
func WithRunsDir[K codec.Ordered, V any](dir string) Option[K, V] {
	return func(t *Table[K, V]) { t.runsDir = dir }
}

// WithBloomEstimate overrides the expected-entry-count used to size the
// read-accelerator bloom filter rebuilt on every index scan.
func WithBloomEstimate[K codec.Ordered, V any](n uint) Option[K, V] {
	return func(t *Table[K, V]) { t.bloomEstimate = n }
}

// New opens (or creates) a table named name over p, using kc and vc to
// serialize keys and values. It ensures the runs directory exists and builds
// the sparse index (and bloom filter) from whatever run file is already
// there, if any.
func New[K codec.Ordered, V any](name string, p *pool.Pool, kc codec.Codec[K], vc codec.Codec[V], opts ...Option[K, V]) (*Table[K, V], error) {
	t := &Table[K, V]{
		name:          name,
		pool:          p,
		kc:            kc,
		vc:            vc,
		memtable:      memtable.New[K, codec.Optional[V]](),
		bloomEstimate: defaultBloomEstimate,
		logger:        logrus.StandardLogger(),
		runsDir:       defaultRunsDir,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.mergeThreshold == 0 {
		t.mergeThreshold = bytesPerBlockHeuristic * p.Capacity()
	}

	if err := os.MkdirAll(t.runsDir, 0o755); err != nil {
		return nil, fmt.Errorf("lsm: create runs directory %s: %w", t.runsDir, err)
	}
	t.diskPath = filepath.Join(t.runsDir, name)

	if err := t.rebuildIndex(); err != nil {
		return nil, err
	}
	return t, nil
}

// MergeCount reports how many merges this table has performed.
func (t *Table[K, V]) MergeCount() int { return t.mergeCount }

func (t *Table[K, V]) entrySize(k K, v codec.Optional[V]) int {
	size := len(t.kc.Encode(k)) + 1
	if v.Present {
		size += len(t.vc.Encode(v.Value))
	}
	return size
}

// Put upserts key k. Passing codec.None[V]() records a tombstone.
func (t *Table[K, V]) Put(k K, v codec.Optional[V]) error {
	old, hadOld := t.memtable.Put(k, v)
	if hadOld {
		t.memtableSize -= t.entrySize(k, old)
	}
	t.memtableSize += t.entrySize(k, v)

	if t.memtableSize > t.mergeThreshold {
		if err := t.Merge(); err != nil {
			return err
		}
		if err := t.rebuildIndex(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns k's value. The second result is false when k has never been
// put or was last put as a tombstone; callers cannot distinguish "absent"
// from "deleted" from this signature alone, matching the reference's
// Option<V> semantics. A non-nil error means the lookup could not be
// completed at all (a buffer pool I/O failure) and the first two results
// carry no meaning.
func (t *Table[K, V]) Get(k K) (V, bool, error) {
	if v, ok := t.memtable.Get(k); ok {
		return v.Value, v.Present, nil
	}

	var zero V
	if t.bloom != nil && !t.bloom.Test(t.kc.Encode(k)) {
		return zero, false, nil
	}

	offset, ok := t.index.lookup(k)
	if !ok {
		return zero, false, nil
	}

	blk, err := t.pool.Get(t.diskPath, offset)
	if err != nil {
		return zero, false, fmt.Errorf("lsm: table %s: disk read at offset %d: %w", t.name, offset, err)
	}
	if blk == nil {
		return zero, false, nil
	}

	p := decodePage(blk.Bytes(), t.kc, t.vc)
	value, present, found := p.Get(k)
	if !found {
		return zero, false, nil
	}
	return value, present, nil
}
