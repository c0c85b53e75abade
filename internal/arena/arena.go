// Package arena implements the bump allocator described in spec §6: fixed
// size, lock-free, hands out aligned raw memory that is never individually
// freed. It is grounded on cockroachdb/pebble's internal/arenaskl.Arena,
// adapted to the typed sync/atomic API and to offset-only allocation (no
// value/key copying helpers, since those are specific to a skip-list node
// layout).
//
// Everything this component places in an Arena — the bucket array, table
// nodes, and the internal skip-list's own nodes — is represented as uint32
// offsets rather than live Go pointers. That is deliberate: the arena's
// backing store is a plain []byte, which Go's precise garbage collector
// does not scan for embedded pointers, so nothing placed in it may hold a
// real pointer as one of its fields. Offsets sidestep the problem entirely
// and are the same technique the teacher's arenaskl package uses for its
// skip-list towers.
package arena

import (
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// align4 rounds an allocation up to a 4-byte boundary, sufficient for the
// uint32 offsets and atomic cells this package's callers place in the
// arena.
const align4 = 3

// ErrArenaFull is returned by Allocate when the arena has no room left for
// the requested allocation. Per spec §7, the caller (the enclosing
// memtable) is expected to treat this as fatal for the memtable and trigger
// a flush; this package does not retry or compact.
var ErrArenaFull = errors.New("arena: allocation failed, arena is full")

// Arena is a fixed-size bump allocator. The zero value is not usable; build
// one with New. A *Arena is safe for concurrent use by a single allocating
// writer and any number of concurrent readers of already-allocated memory,
// matching spec §5's single-writer/many-reader model.
type Arena struct {
	n   atomic.Uint32
	buf []byte
}

// New allocates a new arena with the given capacity in bytes.
func New(size uint32) *Arena {
	// Offset 0 is reserved to act as a nil sentinel for the uint32-offset
	// "pointers" built on top of this arena, so real allocations start at 1.
	a := &Arena{buf: make([]byte, size)}
	a.n.Store(1)
	return a
}

// Size returns the number of bytes allocated from the arena so far.
func (a *Arena) Size() uint32 { return a.n.Load() }

// Capacity returns the arena's total size in bytes.
func (a *Arena) Capacity() uint32 { return uint32(len(a.buf)) }

// Allocate reserves size bytes, aligned to a 4-byte boundary, and returns
// the offset of the reservation. It is safe to call concurrently with
// itself only if the caller externally serializes writers, per spec §5
// ("Bucket array: array itself immutable after construction; each slot
// updated by the writer only... Caller is responsible for serializing
// writers").
func (a *Arena) Allocate(size uint32) (uint32, error) {
	padded := size + align4
	newSize := a.n.Add(padded)
	if int(newSize) > len(a.buf) {
		return 0, ErrArenaFull
	}
	offset := (newSize - padded + align4) &^ align4
	return offset, nil
}

// Bytes returns the size bytes starting at offset. Offset 0 (the nil
// sentinel) returns nil.
func (a *Arena) Bytes(offset, size uint32) []byte {
	if offset == 0 {
		return nil
	}
	return a.buf[offset : offset+size : offset+size]
}

// Pointer returns an unsafe.Pointer to the byte at offset, for placing
// fixed-size structs (bucket cells, nodes) at a known location. Offset 0
// returns nil.
func (a *Arena) Pointer(offset uint32) unsafe.Pointer {
	if offset == 0 {
		return nil
	}
	return unsafe.Pointer(&a.buf[offset])
}

// GetOffset is the inverse of Pointer: given a pointer into the arena's
// backing buffer, it returns the offset that produces it. ptr must point
// somewhere within this arena (typically a struct previously returned via
// Pointer), or GetOffset panics.
func (a *Arena) GetOffset(ptr unsafe.Pointer) uint32 {
	if ptr == nil {
		return 0
	}
	offset := uintptr(ptr) - uintptr(unsafe.Pointer(&a.buf[0]))
	if offset > uintptr(len(a.buf)) {
		panic("arena: pointer out of range")
	}
	return uint32(offset)
}
