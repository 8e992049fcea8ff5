// Package pool implements the fixed-size block buffer pool: an LRU-replaced,
// write-back cache over blocks of files opened in direct (unbuffered) I/O
// mode. It is the sole mediator of disk access for the rest of the engine.
package pool

import (
	"container/list"
	"fmt"

	"github.com/sirupsen/logrus"
)

type key struct {
	file   string
	offset int64
}

// Stats is a diagnostic, non-authoritative snapshot of pool activity. It is
// not part of any invariant and callers should not branch logic on it.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
}

// Pool is the LRU block buffer pool: a bounded set of resident Blocks,
// most-recently-used at the front, mediating every read and write against
// direct-I/O file handles.
//
// Pool is not safe for concurrent use — the engine has no multi-writer
// concurrency model, so no internal locking is attempted.
// Every file is opened fresh per operation; the pool keeps no persistent
// file-handle cache, only cached block bytes.
type Pool struct {
	capacity int
	lru      *list.List // front = MRU; Value is *Block
	index    map[key]*list.Element
	logger   logrus.FieldLogger

	stats Stats
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithLogger overrides the pool's logger. The default is
// logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pool) { p.logger = l }
}

// New returns a Pool that holds at most capacity resident blocks.
func New(capacity int, opts ...Option) *Pool {
	p := &Pool{
		capacity: capacity,
		lru:      list.New(),
		index:    make(map[key]*list.Element, capacity),
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns a snapshot of the pool's hit/miss/eviction counters.
func (p *Pool) Stats() Stats { return p.stats }

// Capacity returns the maximum number of resident blocks the pool will
// hold, as passed to New.
func (p *Pool) Capacity() int { return p.capacity }

// Get returns the block covering offset (rounded down to a block boundary)
// in file, promoting it to most-recently-used. It returns (nil, nil) when
// the requested block lies entirely past the end of the file; any other
// I/O failure is returned as a non-nil error.
func (p *Pool) Get(file string, offset int64) (*Block, error) {
	aligned := alignDown(offset)

	if elem, ok := p.index[key{file, aligned}]; ok {
		p.lru.MoveToFront(elem)
		p.stats.Hits++
		return elem.Value.(*Block), nil
	}

	p.stats.Misses++
	blk, err := p.readFromDisk(file, aligned)
	if err != nil {
		return nil, err
	}
	if blk == nil {
		return nil, nil
	}

	if err := p.insert(blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// Write overwrites len(data) bytes at offset in file, aligning down to find
// the target block, ensuring it is resident (reading it in from disk first
// when present there), and marking it dirty. When the block exists neither
// in the cache nor on disk, a new dirty block is created so that runs grow
// in block-aligned chunks as merge streams pages out.
func (p *Pool) Write(file string, offset int64, data []byte) error {
	aligned := alignDown(offset)
	inBlock := int(offset - aligned)
	if inBlock+len(data) > BlockSize {
		return fmt.Errorf("pool: write of %d bytes at in-block offset %d overflows a block", len(data), inBlock)
	}

	if elem, ok := p.index[key{file, aligned}]; ok {
		blk := elem.Value.(*Block)
		copy(blk.bytes[inBlock:inBlock+len(data)], data)
		blk.dirty = true
		p.lru.MoveToFront(elem)
		return nil
	}

	blk, err := p.readFromDisk(file, aligned)
	if err != nil {
		return err
	}
	if blk == nil {
		blk = newAlignedBlock(file, aligned)
	}

	copy(blk.bytes[inBlock:inBlock+len(data)], data)
	blk.dirty = true
	return p.insert(blk)
}

// Rename purges any cached blocks belonging to the (stale) destination
// file, then rewrites the identity of every block cached under from to to.
// It never touches the filesystem — the caller is responsible for the
// actual rename.
func (p *Pool) Rename(from, to string) error {
	for k, elem := range p.index {
		if k.file == to {
			p.lru.Remove(elem)
			delete(p.index, k)
		}
	}

	for k, elem := range p.index {
		if k.file != from {
			continue
		}
		blk := elem.Value.(*Block)
		blk.file = to
		delete(p.index, k)
		p.index[key{to, k.offset}] = elem
	}

	p.logger.WithFields(logrus.Fields{"from": from, "to": to}).Debug("pool: renamed cached blocks")
	return nil
}

// Flush writes every resident dirty block back to its file at its aligned
// offset and clears its dirty bit. It does not evict anything.
func (p *Pool) Flush() error {
	for e := p.lru.Front(); e != nil; e = e.Next() {
		blk := e.Value.(*Block)
		if !blk.dirty {
			continue
		}
		if err := p.writeBack(blk); err != nil {
			return err
		}
		blk.dirty = false
	}
	return nil
}

// insert adds blk as the most-recently-used block, evicting the
// least-recently-used resident block first if the pool is already at
// capacity. It returns an error when that eviction had to write back a
// dirty block and the write-back failed; blk is still inserted in that
// case, since the failure belongs to the evicted block, not this one.
func (p *Pool) insert(blk *Block) error {
	var evictErr error
	if p.lru.Len() >= p.capacity {
		evictErr = p.evictOne()
	}
	elem := p.lru.PushFront(blk)
	p.index[key{blk.file, blk.offset}] = elem
	return evictErr
}

// evictOne drops the least-recently-used resident block, writing it back
// first if dirty. A failed write-back is returned as an error rather than
// only logged: the block is still evicted either way, since the pool has
// nowhere else to hold it, but the caller must learn that the bytes were
// lost rather than see the operation report success.
func (p *Pool) evictOne() error {
	back := p.lru.Back()
	if back == nil {
		return nil
	}
	blk := back.Value.(*Block)

	var err error
	if blk.dirty {
		if werr := p.writeBack(blk); werr != nil {
			err = fmt.Errorf("pool: evicting dirty block %s@%d: %w", blk.file, blk.offset, werr)
		}
	}

	p.lru.Remove(back)
	delete(p.index, key{blk.file, blk.offset})
	p.stats.Evictions++
	return err
}
