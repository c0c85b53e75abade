package hashlinklist

import "github.com/lsmkit/lsmkit/internal/base"

// testCmp is the KeyComparator every test table is built with: encoded keys
// ordered by user key via base.DefaultCompare, then by descending sequence
// number. Comparing raw, unencoded bytes would silently skip the
// EncodeKey/UserKey/InternalCompare layer bucketIndex and Seek are wired
// through, so tests exercise the same encoded form any real caller does.
func testCmp(a, b []byte) int { return base.InternalCompare(base.DefaultCompare, a, b) }

// encodeTestKey builds the encoded Key form Insert and Contains require: a
// user key plus an internal trailer, as base.EncodeKey would produce for
// any real caller.
func encodeTestKey(userKey string, seqNum uint64) []byte {
	return base.EncodeKey(nil, base.MakeInternalKey([]byte(userKey), seqNum, base.InternalKeyKindSet))
}

// userKeyOf recovers the user key portion of an encoded Key, for asserting
// against plain expected strings.
func userKeyOf(k Key) string { return string(base.UserKey(k)) }
