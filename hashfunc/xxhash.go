package hashfunc

import "github.com/cespare/xxhash/v2"

// XXHash32 is an alternate Hasher built on github.com/cespare/xxhash/v2,
// the same checksum library the teacher uses for block checksums in
// sstable/block. It truncates the 64-bit digest to 32 bits, which is all
// the hash-linklist table's bucket index needs ("hash(...) mod B").
//
// Most callers should use Murmur32, the table's default hash; XXHash32
// exists for callers who already
// depend on xxhash elsewhere and want a single hash implementation across
// their stack.
func XXHash32(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}
