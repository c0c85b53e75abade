package hashlinklist

import "github.com/lsmkit/lsmkit/internal/base"

// bucketIterator implements Iterator over a single, fixed bucket. It
// mirrors hash_linklist_rep.cc's HashLinkListRep::Iterator: since a bucket
// is only ever linked in one direction, Prev, SeekToFirst, and
// SeekToLast are not merely unsupported but deliberately invalidate the
// iterator (spec §4.3, §9) rather than silently emulating a direction the
// underlying list cannot provide.
type bucketIterator struct {
	table  *Table
	bucket uint32
	off    uint32 // 0 means invalid
}

func newBucketIterator(t *Table, bucket uint32) Iterator {
	it := &bucketIterator{table: t, bucket: bucket}
	it.seekToHead()
	return it
}

// seekToHead positions the iterator at the bucket's first node. It is the
// internal construction-time positioning hash_linklist_rep.cc calls
// SeekToHead; it is deliberately not exposed as the public SeekToFirst,
// which must invalidate per spec §4.3.
func (it *bucketIterator) seekToHead() {
	it.off = it.table.findGreaterOrEqualInBucket(it.bucket, nil)
}

func (it *bucketIterator) Valid() bool { return it.off != 0 }

func (it *bucketIterator) Key() Key {
	nd := (*node)(it.table.arena.Pointer(it.off))
	return nd.key(it.table.arena)
}

// Next advances within the bucket's singly-linked list.
func (it *bucketIterator) Next() {
	if it.off == 0 {
		return
	}
	nd := (*node)(it.table.arena.Pointer(it.off))
	it.off = loadAcquire(&nd.next)
}

// Prev invalidates the iterator: a bucket's list has no backward link, so
// there is no way to answer "the entry before this one" without an
// additional full scan from the head every time, which spec §9 explicitly
// declines to pay for in the common, forward-scanning case.
func (it *bucketIterator) Prev() {
	it.off = 0
}

// Seek repositions within this bucket only; target is a raw user key
// expected to already share the bucket's prefix (the table's
// GetIterator/GetDynamicPrefixIterator callers are responsible for that per
// spec §4.3). It is turned into a search key that sorts before any stored
// entry sharing target's user key, mirroring Iterator::Seek's use of
// EncodeKey to build a comparable memtable key from its target.
func (it *bucketIterator) Seek(target []byte) {
	searchKey := base.EncodeKey(nil, base.MakeSearchKey(target))
	it.off = it.table.findGreaterOrEqualInBucket(it.bucket, searchKey)
}

// SeekToFirst invalidates the iterator, matching Prev and SeekToLast: spec
// §4.3 and §8 both require Prev/SeekToFirst/SeekToLast to invalidate a
// prefix or dynamic iterator (hash_linklist_rep.cc:231-237's SeekToFirst
// calls Reset(nullptr)), since only Seek and forward Next understand this
// bucket's one-directional link.
func (it *bucketIterator) SeekToFirst() {
	it.off = 0
}

// SeekToLast invalidates the iterator for the same reason Prev does: the
// bucket's list only links forward, so finding the last entry would
// require an O(n) scan that spec §9 declines to hide behind this call.
func (it *bucketIterator) SeekToLast() {
	it.off = 0
}

var _ Iterator = (*bucketIterator)(nil)
