package memtable

import (
	"math/rand"
	"testing"
)

func init() {
	rand.Seed(1)
}

func TestEmptySkipList(t *testing.T) {
	sl := New[int, string]()

	if sl.Len() != 0 {
		t.Fatalf("expected size 0, got %d", sl.Len())
	}
	if _, ok := sl.Get(1); ok {
		t.Fatalf("expected not found in empty skiplist")
	}
}

func TestPutAndGetSingle(t *testing.T) {
	sl := New[int, string]()

	sl.Put(10, "ten")

	val, ok := sl.Get(10)
	if !ok || val != "ten" {
		t.Fatalf("expected (ten,true), got (%v,%v)", val, ok)
	}
}

func TestPutReturnsPreviousValue(t *testing.T) {
	sl := New[int, string]()

	old, hadOld := sl.Put(1, "one")
	if hadOld {
		t.Fatalf("first put should report no previous value, got %q", old)
	}

	old, hadOld = sl.Put(1, "uno")
	if !hadOld || old != "one" {
		t.Fatalf("expected (one,true), got (%v,%v)", old, hadOld)
	}

	val, ok := sl.Get(1)
	if !ok || val != "uno" {
		t.Fatalf("update failed, got (%v,%v)", val, ok)
	}
	if sl.Len() != 1 {
		t.Fatalf("expected size 1, got %d", sl.Len())
	}
}

func TestSequentialInsertAndGet(t *testing.T) {
	sl := New[int, int]()

	for i := 1; i <= 1000; i++ {
		sl.Put(i, i*i)
	}

	for i := 1; i <= 1000; i++ {
		v, ok := sl.Get(i)
		if !ok || v != i*i {
			t.Fatalf("bad value for key %d", i)
		}
	}

	if sl.Len() != 1000 {
		t.Fatalf("expected size 1000, got %d", sl.Len())
	}
}

func TestRandomInsertAndGet(t *testing.T) {
	sl := New[int, int]()
	m := map[int]int{}

	for i := 0; i < 1000; i++ {
		k := rand.Intn(5000)
		v := rand.Intn(99999)
		sl.Put(k, v)
		m[k] = v
	}

	for k, v := range m {
		got, ok := sl.Get(k)
		if !ok || got != v {
			t.Fatalf("bad value for key %d: got %d want %d", k, got, v)
		}
	}
}

func TestDeleteDecrementsSize(t *testing.T) {
	sl := New[int, int]()

	for i := 0; i < 100; i++ {
		sl.Put(i, i)
	}

	for i := 0; i < 100; i += 2 {
		sl.Delete(i)
	}

	if sl.Len() != 50 {
		t.Fatalf("expected size 50, got %d", sl.Len())
	}

	for i := 0; i < 100; i++ {
		_, ok := sl.Get(i)
		if i%2 == 0 && ok {
			t.Fatalf("key %d should be deleted", i)
		}
		if i%2 == 1 && !ok {
			t.Fatalf("key %d should exist", i)
		}
	}
}

func TestDeleteAll(t *testing.T) {
	sl := New[int, int]()

	for i := 0; i < 100; i++ {
		sl.Put(i, i)
	}
	for i := 0; i < 100; i++ {
		sl.Delete(i)
	}

	if sl.Len() != 0 {
		t.Fatalf("expected size 0 after delete all, got %d", sl.Len())
	}
	for i := 0; i < 100; i++ {
		if _, ok := sl.Get(i); ok {
			t.Fatalf("key %d still exists", i)
		}
	}
}

func TestOrderedStructure(t *testing.T) {
	sl := New[int, int]()

	for i := 0; i < 200; i++ {
		sl.Put(rand.Intn(10000), i)
	}

	x := sl.head.forward[0]
	prev := -1 << 31
	for x != nil {
		if x.record.Key < prev {
			t.Fatalf("skiplist out of order")
		}
		prev = x.record.Key
		x = x.forward[0]
	}
}

func TestIteratorEmpty(t *testing.T) {
	sl := New[int, int]()

	count := 0
	for range sl.Iterator() {
		count++
	}
	if count != 0 {
		t.Fatalf("expected empty iterator, got %d elements", count)
	}
}

func TestIteratorSequential(t *testing.T) {
	sl := New[int, int]()

	for i := 1; i <= 1000; i++ {
		sl.Put(i, i*10)
	}

	i := 1
	for rec := range sl.Iterator() {
		if rec.Key != i || rec.Value != i*10 {
			t.Fatalf("bad iteration order at %d: got (%d,%d)", i, rec.Key, rec.Value)
		}
		i++
	}
	if i != 1001 {
		t.Fatalf("iterator missed items, ended at %d", i-1)
	}
}

func TestIteratorRandomSorted(t *testing.T) {
	sl := New[int, int]()

	for i := 0; i < 2000; i++ {
		sl.Put(rand.Intn(10000), i)
	}

	prev := -1 << 31
	count := 0
	for rec := range sl.Iterator() {
		if rec.Key < prev {
			t.Fatalf("iterator out of order: %d < %d", rec.Key, prev)
		}
		prev = rec.Key
		count++
	}
	if count != sl.Len() {
		t.Fatalf("iterator count mismatch: got %d want %d", count, sl.Len())
	}
}

func TestIteratorEarlyStop(t *testing.T) {
	sl := New[int, int]()

	for i := 0; i < 100; i++ {
		sl.Put(i, i)
	}

	count := 0
	iter := sl.Iterator()
	iter(func(_ Record[int, int]) bool {
		count++
		return count < 10
	})

	if count != 10 {
		t.Fatalf("expected early stop at 10, got %d", count)
	}
}

func TestIteratorAfterDelete(t *testing.T) {
	sl := New[int, int]()

	for i := 0; i < 200; i++ {
		sl.Put(i, i)
	}
	for i := 0; i < 200; i += 3 {
		sl.Delete(i)
	}

	expected := 0
	for rec := range sl.Iterator() {
		if expected%3 == 0 {
			expected++
		}
		if rec.Key != expected {
			t.Fatalf("bad iterator after delete: got %d want %d", rec.Key, expected)
		}
		expected++
	}
}
