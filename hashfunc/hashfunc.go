// Package hashfunc provides the 32-bit non-cryptographic hash capability
// spec §6 asks for: bucket assignment in the hash-linklist table is
// "hash(extractor(UserKey(k))) mod B", and this package supplies that hash.
//
// Murmur32 is grounded on cockroachdb/pebble's bloom.hash, a Go port of the
// murmur-like Hash function from LevelDB/RocksDB. The teacher's version
// hardcodes its own bloom-filter seed; this package restores the seed
// parameter so it can be called with seed 0, the seed the original
// hash_linklist_rep.cc's GetHash passes
// (`MurmurHash(slice.data(), slice.size(), 0)`). Only the seed is shared:
// the algorithm is bloom.hash's, not the MurmurHash that GetHash calls, so
// bucket assignments are not bit-compatible with the original.
package hashfunc

// Hasher is a 32-bit non-cryptographic hash over a byte slice.
type Hasher func(b []byte) uint32

// Murmur32 hashes with seed 0, the default used by the hash-linklist
// table's bucket assignment.
func Murmur32(b []byte) uint32 { return murmur32(b, 0) }

// NewMurmur32 returns a Hasher using the murmur-style hash with the given
// seed.
func NewMurmur32(seed uint32) Hasher {
	return func(b []byte) uint32 { return murmur32(b, seed) }
}

// murmur32 implements a hashing algorithm similar to the Murmur hash, ported
// from cockroachdb/pebble's bloom.hash with its seed made a parameter.
func murmur32(b []byte, seed uint32) uint32 {
	const m = 0xc6a4a793
	h := seed ^ (uint32(len(b)) * m)
	for ; len(b) >= 4; b = b[4:] {
		h += uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		h *= m
		h ^= h >> 16
	}
	// Cast each trailing byte to a signed 8-bit integer before widening, to
	// match the sign-extension behavior of RocksDB's Hash, as bloom.hash does.
	switch len(b) {
	case 3:
		h += uint32(int8(b[2])) << 16
		fallthrough
	case 2:
		h += uint32(int8(b[1])) << 8
		fallthrough
	case 1:
		h += uint32(int8(b[0]))
		h *= m
		h ^= h >> 24
	}
	return h
}
