package hashlinklist

import "github.com/lsmkit/lsmkit/internal/base"

// dynamicIterator implements Iterator with no bucket fixed at
// construction time: each call to Seek re-extracts the target's prefix,
// hashes it, and re-homes the iterator onto whichever bucket that prefix
// maps to before walking forward within it. This is the
// GetDynamicPrefixIterator() case from spec §4.3, grounded directly on
// hash_linklist_rep.cc's DynamicIterator.
//
// Like bucketIterator, it inherits the plain HashLinkListRep::Iterator's
// restriction that Prev, SeekToFirst, and SeekToLast invalidate rather
// than attempt a total order the table was never asked to maintain.
type dynamicIterator struct {
	bucketIterator
}

func newDynamicIterator(t *Table) Iterator {
	return &dynamicIterator{bucketIterator{table: t}}
}

// Seek re-homes the iterator to the bucket for target's extracted prefix,
// then positions at the first key >= target within it. target is a raw
// user key, extracted directly rather than through bucketIndex's UserKey
// unwrap, the same as GetIterator's prefix argument.
func (it *dynamicIterator) Seek(target []byte) {
	if !it.table.extractor.InDomain(target) {
		it.off = 0
		return
	}
	it.bucket = it.table.bucketForRawKey(target)
	searchKey := base.EncodeKey(nil, base.MakeSearchKey(target))
	it.off = it.table.findGreaterOrEqualInBucket(it.bucket, searchKey)
}

var _ Iterator = (*dynamicIterator)(nil)
