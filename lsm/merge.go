package lsm

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/flashkv/flashkv/codec"
	"github.com/flashkv/flashkv/memtable"
	"github.com/flashkv/flashkv/page"
)

// memCursor walks a memtable snapshot (already in key order) one record at a
// time, exposing an explicit peek/advance pair instead of a push-style
// iterator, so the merge loop can interleave it with the disk cursor without
// callback inversion.
type memCursor[K codec.Ordered, V any] struct {
	records []memtable.Record[K, codec.Optional[V]]
	pos     int
}

func newMemCursor[K codec.Ordered, V any](snapshot memtable.Memtable[K, codec.Optional[V]]) *memCursor[K, V] {
	c := &memCursor[K, V]{}
	for rec := range snapshot.Iterator() {
		c.records = append(c.records, rec)
	}
	return c
}

func (c *memCursor[K, V]) peek() (K, codec.Optional[V], bool) {
	if c.pos >= len(c.records) {
		var zeroK K
		return zeroK, codec.Optional[V]{}, false
	}
	r := c.records[c.pos]
	return r.Key, r.Value, true
}

func (c *memCursor[K, V]) advance() { c.pos++ }

// diskCursor walks the existing run page by page, then cell by cell within
// each page, fetching pages through the buffer pool lazily as it advances.
type diskCursor[K codec.Ordered, V any] struct {
	table   *Table[K, V]
	offset  int64
	page    *page.Page[K, V]
	cellIdx int
	err     error
}

func newDiskCursor[K codec.Ordered, V any](t *Table[K, V]) *diskCursor[K, V] {
	return &diskCursor[K, V]{table: t}
}

func (c *diskCursor[K, V]) fill() {
	for c.err == nil {
		if c.page != nil && c.cellIdx < c.page.NumCells() {
			return
		}
		blk, err := c.table.pool.Get(c.table.diskPath, c.offset)
		if err != nil {
			c.err = err
			return
		}
		if blk == nil {
			c.page = nil
			return
		}
		c.page = decodePage(blk.Bytes(), c.table.kc, c.table.vc)
		c.cellIdx = 0
		c.offset += page.BlockSize
		if c.page.NumCells() > 0 {
			return
		}
	}
}

func (c *diskCursor[K, V]) peek() (key K, value V, present, ok bool) {
	c.fill()
	if c.err != nil || c.page == nil || c.cellIdx >= c.page.NumCells() {
		return key, value, false, false
	}
	key, value, present = c.page.At(c.cellIdx)
	return key, value, present, true
}

func (c *diskCursor[K, V]) advance() { c.cellIdx++ }

// mergeWriter packs emitted cells into slotted pages and streams full pages
// out to the temp run file through the buffer pool, matching add_cell's
// reject-and-retry protocol from the page codec.
type mergeWriter[K codec.Ordered, V any] struct {
	table     *Table[K, V]
	tempPath  string
	outOffset int64
	current   *page.Page[K, V]
}

func newMergeWriter[K codec.Ordered, V any](t *Table[K, V], tempPath string) *mergeWriter[K, V] {
	return &mergeWriter[K, V]{
		table:    t,
		tempPath: tempPath,
		current:  page.New(t.kc, t.vc),
	}
}

func (w *mergeWriter[K, V]) emit(key K, value V, present bool) error {
	_, _, _, ok := w.current.AddCell(key, value, present)
	if ok {
		return nil
	}

	if err := w.flushCurrent(); err != nil {
		return err
	}

	w.current = page.New(w.table.kc, w.table.vc)
	if _, _, _, ok := w.current.AddCell(key, value, present); !ok {
		panic(fmt.Sprintf("lsm: cell for key %v does not fit in an empty page", key))
	}
	return nil
}

func (w *mergeWriter[K, V]) flushCurrent() error {
	if w.current.NumCells() == 0 {
		return nil
	}
	if err := w.table.pool.Write(w.tempPath, w.outOffset, w.current.Encode()); err != nil {
		return err
	}
	w.outOffset += page.BlockSize
	return nil
}

// Merge folds the current memtable into the on-disk run, writing a new run
// file and installing it in place of the old one via rename, then rebuilds
// the sparse index and bloom filter from the new run. The memtable is
// empty and memtableSize is zero once Merge returns successfully.
func (t *Table[K, V]) Merge() error {
	t.logger.WithFields(logrus.Fields{"table": t.name, "memtable_size": t.memtableSize}).Debug("lsm: merge starting")

	snapshot := t.memtable
	t.memtable = memtable.New[K, codec.Optional[V]]()
	t.memtableSize = 0

	tempPath := t.diskPath + "_merge"
	writer := newMergeWriter(t, tempPath)

	mem := newMemCursor[K, V](snapshot)
	disk := newDiskCursor[K, V](t)

mergeLoop:
	for {
		mk, mv, mok := mem.peek()
		dk, dv, dpresent, dok := disk.peek()

		switch {
		case !mok && !dok:
			break mergeLoop
		case mok && (!dok || mk <= dk):
			if err := writer.emit(mk, mv.Value, mv.Present); err != nil {
				return err
			}
			mem.advance()
			if dok && mk == dk {
				disk.advance()
			}
		default:
			if err := writer.emit(dk, dv, dpresent); err != nil {
				return err
			}
			disk.advance()
		}
	}

	if disk.err != nil {
		return disk.err
	}
	if err := writer.flushCurrent(); err != nil {
		return err
	}

	if err := t.pool.Flush(); err != nil {
		return err
	}

	if err := os.Remove(t.diskPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lsm: remove old run %s: %w", t.diskPath, err)
	}
	if err := os.Rename(tempPath, t.diskPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lsm: rename %s to %s: %w", tempPath, t.diskPath, err)
	}
	if err := t.pool.Rename(tempPath, t.diskPath); err != nil {
		return err
	}
	if err := t.rebuildIndex(); err != nil {
		return err
	}

	t.mergeCount++
	t.logger.WithFields(logrus.Fields{"table": t.name, "merge_count": t.mergeCount, "pages_written": writer.outOffset / page.BlockSize}).
		Info("lsm: merge complete")
	return nil
}
