package base

import "encoding/binary"

// InternalKeyKind distinguishes the handful of record kinds an encoded key
// can carry. The hash-linklist table itself is kind-agnostic; the kind only
// participates in the encoded key's sort order via InternalCompare.
type InternalKeyKind uint8

// The kinds used by this package's trailer encoding.
const (
	InternalKeyKindSet InternalKeyKind = iota
	InternalKeyKindDelete
	// InternalKeyKindMax is numerically greater than every other kind; since
	// InternalCompare orders larger trailers first, a search key built with
	// it lands before any real entry with the same user key (see
	// MakeSearchKey).
	InternalKeyKindMax = InternalKeyKind(0xff)
)

// InternalKeyTrailer packs a sequence number and a kind into 8 bytes,
// mirroring cockroachdb/pebble's InternalKeyTrailer (1 byte kind, 7 bytes
// sequence number).
type InternalKeyTrailer uint64

// MakeTrailer combines a sequence number and kind into a trailer.
func MakeTrailer(seqNum uint64, kind InternalKeyKind) InternalKeyTrailer {
	return InternalKeyTrailer(seqNum<<8) | InternalKeyTrailer(kind)
}

// SeqNum returns the trailer's sequence number.
func (t InternalKeyTrailer) SeqNum() uint64 { return uint64(t) >> 8 }

// Kind returns the trailer's kind.
func (t InternalKeyTrailer) Kind() InternalKeyKind { return InternalKeyKind(t) }

// SeqNumMax is the largest sequence number a trailer can hold. Because
// InternalCompare orders larger sequence numbers first, MakeSearchKey uses it
// so that a search key is ordered before any real entry sharing its user key.
const SeqNumMax uint64 = 1<<56 - 1

// InternalKey is the encoded form the hash-linklist table actually stores
// and compares: a user key plus an 8-byte trailer. It is the concrete
// grounding for spec §3's opaque "encoded key".
type InternalKey struct {
	UserKeyBytes []byte
	Trailer      InternalKeyTrailer
}

// MakeInternalKey constructs an internal key from a user key, sequence
// number and kind.
func MakeInternalKey(userKey []byte, seqNum uint64, kind InternalKeyKind) InternalKey {
	return InternalKey{UserKeyBytes: userKey, Trailer: MakeTrailer(seqNum, kind)}
}

// MakeSearchKey constructs an internal key suitable for Seek: it sorts
// before any real entry sharing the same user key, matching
// hash_linklist_rep.cc's use of the memtable's own search-key construction
// ahead of calling Seek on a MemTableRep::Iterator.
func MakeSearchKey(userKey []byte) InternalKey {
	return MakeInternalKey(userKey, SeqNumMax, InternalKeyKindMax)
}

// Size returns the number of bytes Encode will write.
func (k InternalKey) Size() int { return len(k.UserKeyBytes) + 8 }

// Encode writes the internal key into buf, which must be at least Size()
// bytes long.
func (k InternalKey) Encode(buf []byte) {
	i := copy(buf, k.UserKeyBytes)
	binary.LittleEndian.PutUint64(buf[i:], uint64(k.Trailer))
}

// EncodeKey is the external Encode helper capability from spec §6: given a
// scratch buffer and an internal key, it produces the encoded form that
// Compare and UserKey operate on. Iterators' Seek use it to turn a
// caller-supplied target into something FindGreaterOrEqualInBucket can
// compare against.
func EncodeKey(scratch []byte, key InternalKey) []byte {
	n := key.Size()
	if cap(scratch) < n {
		scratch = make([]byte, n)
	}
	scratch = scratch[:n]
	key.Encode(scratch)
	return scratch
}

// DecodeInternalKey decodes an encoded key produced by EncodeKey.
func DecodeInternalKey(encoded []byte) InternalKey {
	n := len(encoded) - 8
	if n < 0 {
		return InternalKey{Trailer: InternalKeyTrailer(InternalKeyKindMax)}
	}
	trailer := InternalKeyTrailer(binary.LittleEndian.Uint64(encoded[n:]))
	return InternalKey{UserKeyBytes: encoded[:n:n], Trailer: trailer}
}

// UserKey is the external projection from spec §6: it recovers the
// user-supplied key bytes from an encoded key.
func UserKey(encoded []byte) []byte {
	return DecodeInternalKey(encoded).UserKeyBytes
}

// InternalCompare compares two encoded keys: first by user key using cmp,
// then, for equal user keys, by descending sequence number so that newer
// entries sort first. This is the concrete Compare passed to the
// hash-linklist table and to its internal skip-list.
func InternalCompare(cmp Compare, a, b []byte) int {
	ak, bk := DecodeInternalKey(a), DecodeInternalKey(b)
	if x := cmp(ak.UserKeyBytes, bk.UserKeyBytes); x != 0 {
		return x
	}
	switch {
	case ak.Trailer > bk.Trailer:
		return -1
	case ak.Trailer < bk.Trailer:
		return 1
	default:
		return 0
	}
}
