// Package skl implements the "internal skip-list" collaborator from spec
// §6: a concurrent ordered set of encoded keys, used solely by
// hashlinklist's FullListIterator to materialize a total-order snapshot
// over an otherwise bucket-partitioned table.
//
// It is adapted from cockroachdb/pebble's arenaskl package (itself adapted
// from Dgraph's badger, in turn adapted from RocksDB's inline skip-list):
// nodes are allocated from an arena.Arena and linked via uint32 offsets
// rather than live pointers, for the reasons documented on arena.Arena.
// Unlike the teacher's skip-list, this one stores keys only (a set, not a
// map), since FullListIterator has no associated value to carry.
package skl

import (
	"math"
	"math/rand"
	"sync/atomic"
	"unsafe"

	"github.com/lsmkit/lsmkit/internal/arena"
	"github.com/lsmkit/lsmkit/internal/base"
)

const (
	maxHeight = 20
	pValue    = 1 / math.E
)

var probabilities [maxHeight]uint32

func init() {
	p := float64(1.0)
	for i := 0; i < maxHeight; i++ {
		probabilities[i] = uint32(float64(math.MaxUint32) * p)
		p *= pValue
	}
}

type links struct {
	next atomic.Uint32
	prev atomic.Uint32
}

type node struct {
	keyOffset uint32
	keySize   uint32
	tower     [maxHeight]links
}

func newNode(a *arena.Arena, height int, key []byte) (*node, error) {
	unused := (maxHeight - height) * int(unsafe.Sizeof(links{}))
	nodeSize := uint32(int(unsafe.Sizeof(node{})) - unused)

	nodeOff, err := a.Allocate(nodeSize + uint32(len(key)))
	if err != nil {
		return nil, err
	}
	nd := (*node)(a.Pointer(nodeOff))
	nd.keyOffset = nodeOff + nodeSize
	nd.keySize = uint32(len(key))
	copy(a.Bytes(nd.keyOffset, nd.keySize), key)
	return nd, nil
}

func (n *node) key(a *arena.Arena) []byte { return a.Bytes(n.keyOffset, n.keySize) }

// Skiplist is a concurrent ordered set of encoded keys, backed by an
// arena.Arena. The zero value is not usable; construct one with New.
type Skiplist struct {
	arena   *arena.Arena
	cmp     base.Compare
	head    *node
	tail    *node
	height  atomic.Uint32
}

// New constructs an empty skip-list over the given arena, ordered by cmp.
// It allocates its head and tail sentinel nodes from the arena immediately.
func New(a *arena.Arena, cmp base.Compare) (*Skiplist, error) {
	head, err := newNode(a, maxHeight, nil)
	if err != nil {
		return nil, err
	}
	tail, err := newNode(a, maxHeight, nil)
	if err != nil {
		return nil, err
	}
	headOff := a.GetOffset(unsafe.Pointer(head))
	tailOff := a.GetOffset(unsafe.Pointer(tail))
	for i := range head.tower {
		head.tower[i].next.Store(tailOff)
		tail.tower[i].prev.Store(headOff)
	}
	s := &Skiplist{arena: a, cmp: cmp, head: head, tail: tail}
	s.height.Store(1)
	return s, nil
}

// Height returns the tallest tower among nodes inserted so far.
func (s *Skiplist) Height() uint32 { return s.height.Load() }

// Add inserts key if no equal key is already present. It returns false if
// an equal key already exists (the set is unchanged).
//
// Add is safe to call concurrently with Iterator methods on other
// goroutines, but concurrent calls to Add itself are not: FullListIterator
// is always built by the single writer that also owns the hash-linklist
// table, so this matches spec §5's single-writer model.
func (s *Skiplist) Add(key []byte) (bool, error) {
	var prevs, nexts [maxHeight]*node
	if s.findSplice(key, &prevs, &nexts) {
		return false, nil
	}

	height := s.randomHeight()
	nd, err := newNode(s.arena, int(height), key)
	if err != nil {
		return false, err
	}
	if cur := s.Height(); height > cur {
		s.height.CompareAndSwap(cur, height)
	}
	ndOff := s.arena.GetOffset(unsafe.Pointer(nd))

	for i := uint32(0); i < height; i++ {
		prev, next := prevs[i], nexts[i]
		if prev == nil {
			prev, next = s.head, s.tail
		}
		prevOff := s.arena.GetOffset(unsafe.Pointer(prev))
		nextOff := s.arena.GetOffset(unsafe.Pointer(next))
		nd.tower[i].next.Store(nextOff)
		nd.tower[i].prev.Store(prevOff)
		prev.tower[i].next.Store(ndOff)
		next.tower[i].prev.Store(ndOff)
	}
	return true, nil
}

// findSplice locates, for every level, the node immediately before and
// immediately after where key belongs. It returns true if key is already
// present.
func (s *Skiplist) findSplice(key []byte, prevs, nexts *[maxHeight]*node) bool {
	level := int(s.Height()) - 1
	prev := s.head
	found := false
	for {
		var next *node
		prev, next, found = s.findSpliceForLevel(key, level, prev)
		prevs[level] = prev
		nexts[level] = next
		if level == 0 {
			break
		}
		level--
	}
	return found
}

func (s *Skiplist) findSpliceForLevel(key []byte, level int, start *node) (prev, next *node, found bool) {
	prev = start
	for {
		next = s.getNext(prev, level)
		if next == s.tail {
			return prev, next, false
		}
		nextKey := next.key(s.arena)
		switch c := s.cmp(key, nextKey); {
		case c == 0:
			return prev, next, true
		case c < 0:
			return prev, next, false
		default:
			prev = next
		}
	}
}

func (s *Skiplist) randomHeight() uint32 {
	h := uint32(1)
	r := rand.Uint32()
	for h < maxHeight && r <= probabilities[h] {
		h++
	}
	return h
}

func (s *Skiplist) getNext(n *node, level int) *node {
	return (*node)(s.arena.Pointer(n.tower[level].next.Load()))
}

func (s *Skiplist) getPrev(n *node, level int) *node {
	return (*node)(s.arena.Pointer(n.tower[level].prev.Load()))
}

// NewIter returns a new, invalid Iterator over the skip-list.
func (s *Skiplist) NewIter() Iterator {
	return Iterator{list: s}
}
