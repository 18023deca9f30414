package partition

import "sync"

// Iterator is a cursor over a Registry. It points at one partition and
// remembers at most one more.
type Iterator struct {
	reg  *Registry
	cur  int
	next int
}

var iteratorPool = sync.Pool{
	New: func() any { return new(Iterator) },
}

func newIterator(r *Registry, cur, next int) *Iterator {
	it := iteratorPool.Get().(*Iterator)
	it.reg = r
	it.cur = cur
	it.next = next
	return it
}

// Next moves to the following partition. At the end of the sequence the
// iterator is emptied and ErrNotFound is returned, on this call and on
// every later one.
func (it *Iterator) Next() error {
	if it == nil {
		return ErrNotFound
	}
	if it.next >= 0 {
		it.cur = it.next
		it.next = -1
		return nil
	}
	it.cur = -1
	return ErrNotFound
}

// Get returns the current partition.
func (it *Iterator) Get() (*Descriptor, error) {
	if it == nil || it.cur < 0 {
		return nil, ErrNotFound
	}
	return &it.reg.parts[it.cur], nil
}

// Release hands the iterator back. It must not be used afterwards.
// Releasing a nil or already released iterator does nothing.
func (it *Iterator) Release() {
	if it == nil || it.reg == nil {
		return
	}
	*it = Iterator{cur: -1, next: -1}
	iteratorPool.Put(it)
}
