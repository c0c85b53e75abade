package skl

// Iterator traverses a Skiplist's keys in sorted order. The zero value is
// not positioned on any node; call First, Last, or SeekGE before reading
// Key. An Iterator is single-goroutine: FullListIterator owns exactly one
// at a time, matching spec §4.3's per-consumer iterator model.
type Iterator struct {
	list *Skiplist
	nd   *node
}

// Valid reports whether the iterator is positioned on a real node (as
// opposed to before the first or after the last key).
func (it *Iterator) Valid() bool {
	return it.nd != nil && it.nd != it.list.head && it.nd != it.list.tail
}

// Key returns the key at the iterator's current position. Valid must be
// true.
func (it *Iterator) Key() []byte {
	return it.nd.key(it.list.arena)
}

// First seeks to the smallest key in the list.
func (it *Iterator) First() {
	it.nd = it.list.getNext(it.list.head, 0)
	if it.nd == it.list.tail {
		it.nd = nil
	}
}

// Last seeks to the largest key in the list.
func (it *Iterator) Last() {
	it.nd = it.list.getPrev(it.list.tail, 0)
	if it.nd == it.list.head {
		it.nd = nil
	}
}

// Next advances to the next-largest key. It is a no-op if the iterator is
// already invalid or already past the last key.
func (it *Iterator) Next() {
	if it.nd == nil {
		return
	}
	it.nd = it.list.getNext(it.nd, 0)
	if it.nd == it.list.tail {
		it.nd = nil
	}
}

// Prev retreats to the next-smallest key. It is a no-op if the iterator is
// already invalid or already before the first key.
func (it *Iterator) Prev() {
	if it.nd == nil {
		return
	}
	it.nd = it.list.getPrev(it.nd, 0)
	if it.nd == it.list.head {
		it.nd = nil
	}
}

// SeekGE positions the iterator at the smallest key >= target, or
// invalidates it if no such key exists.
func (it *Iterator) SeekGE(target []byte) {
	level := int(it.list.Height()) - 1
	prev := it.list.head
	var next *node
	for {
		prev, next, _ = it.list.findSpliceForLevel(target, level, prev)
		if level == 0 {
			break
		}
		level--
	}
	if next == it.list.tail {
		it.nd = nil
		return
	}
	it.nd = next
}
