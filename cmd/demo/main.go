// Command demo exercises a table end to end: a pool sized for a modest
// resident set, a run of uint64 -> uint64 puts and gets, a merge, and a
// final flush. It is a smoke test you can run by hand, not part of the
// library surface.
package main

import (
	"log"

	"github.com/flashkv/flashkv/codec"
	"github.com/flashkv/flashkv/lsm"
	"github.com/flashkv/flashkv/pool"
)

func main() {
	p := pool.New(4096) // 4096 blocks * 4096 bytes = 16 MiB, per the reference sizing.

	table, err := lsm.New[uint64, uint64]("thing", p, codec.Uint64Codec{}, codec.Uint64Codec{})
	if err != nil {
		log.Fatalf("demo: open table: %v", err)
	}

	const n = 1_000_000
	for i := uint64(0); i < n; i++ {
		if err := table.Put(i, codec.Some(i)); err != nil {
			log.Fatalf("demo: put %d: %v", i, err)
		}
	}

	for i := uint64(0); i < n; i++ {
		v, ok, err := table.Get(i)
		if err != nil {
			log.Fatalf("demo: get %d: %v", i, err)
		}
		if !ok || v != i {
			log.Fatalf("demo: get %d: got (%v,%v), want (%v,true)", i, v, ok, i)
		}
	}

	if err := table.Merge(); err != nil {
		log.Fatalf("demo: merge: %v", err)
	}
	if err := p.Flush(); err != nil {
		log.Fatalf("demo: flush: %v", err)
	}

	log.Printf("demo: %d entries, %d merge(s)", n, table.MergeCount())
}
