// Package hashlinklist implements the hash-linklist memtable
// representation: a hash-partitioned table of sorted, singly-linked buckets
// described in spec §§2-7. Keys that share a logical prefix (as extracted
// by a prefixtransform.Extractor) land in the same bucket, keeping prefix
// scans cheap without paying for a fully ordered structure across the whole
// table.
//
// The table is single-writer/many-reader: exactly one goroutine calls
// Insert, while any number of goroutines read concurrently via Contains or
// an Iterator. All cross-goroutine visibility is carried by sync/atomic
// operations on the bucket heads and node next-pointers, which on every
// architecture Go supports provide sequentially consistent ordering and so
// satisfy the acquire/release ordering spec §5 requires.
//
// Nodes and the bucket array are allocated from an internal/arena.Arena and
// addressed by uint32 offset rather than live Go pointer, for the reasons
// documented on arena.Arena.
package hashlinklist

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"

	"github.com/lsmkit/lsmkit/hashfunc"
	"github.com/lsmkit/lsmkit/internal/arena"
	"github.com/lsmkit/lsmkit/internal/base"
	"github.com/lsmkit/lsmkit/internal/invariants"
	"github.com/lsmkit/lsmkit/prefixtransform"
)

// Key is an encoded record as produced by base.EncodeKey: a user key
// followed by an internal trailer (sequence number and kind). The table
// never interprets a Key beyond comparing it and extracting its prefix; it
// is an opaque, ordered byte string from the table's point of view.
type Key = base.Bytes

// KeyComparator orders two encoded Keys. It is the external Key Comparator
// capability from spec §6, typically base.InternalCompare bound to a
// user-key comparator.
type KeyComparator = base.Compare

// MemTableRep is the capability spec §6 calls "MemTableRep capability": the
// operations a memtable representation exposes to its owner.
type MemTableRep interface {
	// Insert adds key to the table. It must not be called concurrently with
	// itself or with another Insert; per spec §5 there is exactly one
	// writer.
	Insert(key []byte) error

	// Contains reports whether key is present in the table under the exact
	// comparator equality (not prefix equality).
	Contains(key []byte) bool

	// ApproximateMemoryUsage returns the table's best estimate of the bytes
	// it has consumed. The hash-linklist representation always reports 0;
	// see the note on ApproximateMemoryUsage above bucketHeaderSize.
	ApproximateMemoryUsage() uint64

	// GetIterator returns an iterator appropriate for prefix, per spec
	// §4.3's factory dispatch table: a populated slice yields a
	// BucketIterator or EmptyIterator, nil yields a FullListIterator.
	GetIterator(prefix []byte) Iterator

	// GetDynamicPrefixIterator returns an iterator that re-homes itself to
	// a new bucket on every Seek, per spec §4.3.
	GetDynamicPrefixIterator() Iterator
}

// Iterator is the capability spec §4.3 describes: positional access over
// some subset (or all) of the table's keys, in ascending order while
// Valid.
type Iterator interface {
	// Valid reports whether the iterator is positioned on an entry.
	Valid() bool

	// Key returns the entry at the current position. Valid must be true.
	Key() Key

	// Next advances to the next entry in ascending order.
	Next()

	// Prev retreats to the previous entry in ascending order. Bucket and
	// dynamic (prefix) iterators invalidate instead.
	Prev()

	// Seek positions the iterator at the first entry >= target.
	Seek(target []byte)

	// SeekToFirst positions the iterator at the smallest entry reachable
	// from it. Bucket and dynamic (prefix) iterators invalidate instead.
	SeekToFirst()

	// SeekToLast positions the iterator at the largest entry reachable
	// from it. Bucket and dynamic (prefix) iterators invalidate instead.
	SeekToLast()
}

// ApproximateMemoryUsage always returns 0 for this representation: see
// spec's Open Question on ApproximateMemoryUsage, resolved in
// DESIGN.md's Open Question decisions as "report zero" rather than track consumption,
// matching hash_linklist_rep.cc's own ApproximateMemoryUsage.

// bucketHeaderSize is one atomic uint32 offset per bucket: the offset of
// the bucket's head node, or 0 (the arena's nil sentinel) if the bucket is
// empty.
const bucketHeaderSize = 4

// node is a single entry in a bucket's sorted singly-linked list. It is
// allocated from the table's arena; next is a uint32 offset (0 means nil),
// loaded and stored with acquire/release semantics via sync/atomic.
type node struct {
	next     uint32 // atomic
	keyOff   uint32
	keySize  uint32
}

func (n *node) key(a *arena.Arena) Key { return a.Bytes(n.keyOff, n.keySize) }

// Table is the concrete hash-linklist MemTableRep described in spec §3: a
// fixed-size array of B buckets, each the head of a sorted singly-linked
// list of nodes sharing the same extracted prefix.
type Table struct {
	arena     *arena.Arena
	cmp       KeyComparator
	extractor prefixtransform.Extractor
	hasher    hashfunc.Hasher
	bucketOff uint32
	numBuckets uint32
}

// NewTable constructs a Table with numBuckets buckets, keys ordered by cmp
// and partitioned by extractor, backed by the given arena. hasher defaults
// to hashfunc.Murmur32 (seed 0), matching hash_linklist_rep.cc, when nil.
func NewTable(cmp KeyComparator, a *arena.Arena, extractor prefixtransform.Extractor, numBuckets uint32, hasher hashfunc.Hasher) (*Table, error) {
	if numBuckets == 0 {
		return nil, errors.New("hashlinklist: numBuckets must be > 0")
	}
	if hasher == nil {
		hasher = hashfunc.Murmur32
	}
	off, err := a.Allocate(numBuckets * bucketHeaderSize)
	if err != nil {
		return nil, errors.Wrap(err, "hashlinklist: allocating bucket array")
	}
	// Bucket cells start zeroed (the arena's backing store is a freshly
	// allocated []byte), which is exactly the nil sentinel every bucket
	// needs before its first Insert.
	return &Table{
		arena:      a,
		cmp:        cmp,
		extractor:  extractor,
		hasher:     hasher,
		bucketOff:  off,
		numBuckets: numBuckets,
	}, nil
}

func (t *Table) bucketCell(i uint32) *uint32 {
	return (*uint32)(t.arena.Pointer(t.bucketOff + i*bucketHeaderSize))
}

// bucketIndex computes the bucket for an encoded Key as stored by Insert:
// hash(extractor(UserKey(k))) mod B, per spec §4.2/I1. It must only be
// called with an encoded key (Insert, Contains) — a raw prefix or user key
// passed here would have its trailing bytes misread as an internal-key
// trailer; see bucketForRawKey for the GetIterator/dynamicIterator case.
func (t *Table) bucketIndex(key []byte) uint32 {
	return t.bucketForRawKey(base.UserKey(key))
}

// bucketForRawKey computes the bucket for prefix, which is already a raw
// user key or prefix (not an encoded Key) — the case for GetIterator's
// prefix argument and dynamicIterator.Seek's target, mirroring
// hash_linklist_rep.cc's GetBucket(prefix) being called directly on an
// already-extracted prefix, with no UserKey unwrap.
func (t *Table) bucketForRawKey(prefix []byte) uint32 {
	return t.hasher(t.extractor.Transform(prefix)) % t.numBuckets
}

// Insert implements MemTableRep.Insert: spec §4.2's single-writer insertion
// algorithm. It walks the target bucket's singly-linked list to find the
// first node whose key is >= key, then links a freshly allocated node in
// front of it.
func (t *Table) Insert(key []byte) error {
	bucket := t.bucketIndex(key)
	cell := t.bucketCell(bucket)

	var prevCell *uint32 = cell
	curOff := loadAcquire(cell)
	for curOff != 0 {
		cur := (*node)(t.arena.Pointer(curOff))
		c := t.cmp(key, cur.key(t.arena))
		if invariants.Enabled {
			invariants.Assert(c != 0, "hashlinklist: duplicate insert of key %x", key)
		}
		if c <= 0 {
			break
		}
		prevCell = &cur.next
		curOff = loadAcquire(prevCell)
	}

	keyOff, err := t.arena.Allocate(uint32(len(key)))
	if err != nil {
		return errors.Wrap(err, "hashlinklist: allocating key bytes")
	}
	copy(t.arena.Bytes(keyOff, uint32(len(key))), key)

	nodeOff, err := t.arena.Allocate(uint32(nodeHeaderSize))
	if err != nil {
		return errors.Wrap(err, "hashlinklist: allocating node")
	}
	nd := (*node)(t.arena.Pointer(nodeOff))
	nd.keyOff = keyOff
	nd.keySize = uint32(len(key))
	storeRelease(&nd.next, curOff)

	storeRelease(prevCell, nodeOff)

	if invariants.Enabled {
		t.assertBucketSorted(bucket)
	}
	return nil
}

const nodeHeaderSize = 12 // next uint32 + keyOff uint32 + keySize uint32

// assertBucketSorted walks a bucket end to end and panics (via
// invariants.Assert) if it finds two adjacent keys out of order. It is
// compiled out entirely unless built with -tags invariants or -race; see
// SPEC_FULL.md §12.
func (t *Table) assertBucketSorted(bucket uint32) {
	off := loadAcquire(t.bucketCell(bucket))
	var prev Key
	for off != 0 {
		nd := (*node)(t.arena.Pointer(off))
		k := nd.key(t.arena)
		if prev != nil {
			invariants.Assert(t.cmp(prev, k) < 0, "hashlinklist: bucket %d out of order", bucket)
		}
		prev = k
		off = loadAcquire(&nd.next)
	}
}

// Contains implements MemTableRep.Contains.
func (t *Table) Contains(key []byte) bool {
	bucket := t.bucketIndex(key)
	off := loadAcquire(t.bucketCell(bucket))
	for off != 0 {
		nd := (*node)(t.arena.Pointer(off))
		c := t.cmp(key, nd.key(t.arena))
		if c == 0 {
			return true
		}
		if c < 0 {
			return false
		}
		off = loadAcquire(&nd.next)
	}
	return false
}

// ApproximateMemoryUsage always reports 0; see the note above
// bucketHeaderSize.
func (t *Table) ApproximateMemoryUsage() uint64 { return 0 }

// findGreaterOrEqualInBucket implements spec §4.3's
// FindGreaterOrEqualInBucket: the first node in bucket whose key is >=
// target, or 0 if none.
func (t *Table) findGreaterOrEqualInBucket(bucket uint32, target []byte) uint32 {
	off := loadAcquire(t.bucketCell(bucket))
	for off != 0 {
		nd := (*node)(t.arena.Pointer(off))
		if target == nil || t.cmp(nd.key(t.arena), target) >= 0 {
			return off
		}
		off = loadAcquire(&nd.next)
	}
	return 0
}

// GetIterator implements MemTableRep.GetIterator, dispatching per spec
// §4.3's factory table. A nil prefix yields a FullListIterator; otherwise
// the extractor decides whether prefix is even reachable (an
// EmptyIterator) before a BucketIterator is built over its bucket.
func (t *Table) GetIterator(prefix []byte) Iterator {
	if prefix == nil {
		return t.newFullListIterator()
	}
	if !t.extractor.InDomain(prefix) {
		return newEmptyIterator()
	}
	return newBucketIterator(t, t.bucketForRawKey(prefix))
}

// GetDynamicPrefixIterator implements MemTableRep.GetDynamicPrefixIterator.
func (t *Table) GetDynamicPrefixIterator() Iterator {
	return newDynamicIterator(t)
}

// String implements fmt.Stringer for diagnostics, formatting bucket
// occupancy the way the teacher's Table-level diagnostics summarize
// structure rather than dumping every key.
func (t *Table) String() string {
	return fmt.Sprintf("hashlinklist.Table{buckets: %d}", t.numBuckets)
}

// SafeFormat implements redact.SafeFormatter, so Table can be logged
// without redaction concerns: it never carries user key bytes, only shape.
func (t *Table) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(t.String()))
}

var _ MemTableRep = (*Table)(nil)
