package hashlinklist

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsmkit/lsmkit/internal/arena"
	"github.com/lsmkit/lsmkit/prefixtransform"
)

func newTestTable(t *testing.T, extractor prefixtransform.Extractor, numBuckets uint32) *Table {
	t.Helper()
	tbl, err := NewTable(testCmp, arena.New(4<<20), extractor, numBuckets, nil)
	require.NoError(t, err)
	return tbl
}

func TestInsertAndContains(t *testing.T) {
	tbl := newTestTable(t, prefixtransform.NewNoopTransform(), 16)

	require.False(t, tbl.Contains(encodeTestKey("catfish", 1)))
	require.NoError(t, tbl.Insert(encodeTestKey("catfish", 1)))
	require.True(t, tbl.Contains(encodeTestKey("catfish", 1)))
	require.False(t, tbl.Contains(encodeTestKey("cathode", 1)))
}

func TestInsertMaintainsBucketOrder(t *testing.T) {
	extractor := prefixtransform.NewFixedPrefixTransform(3)
	tbl := newTestTable(t, extractor, 1) // force every key into the same bucket

	keys := []string{"catfish", "cathode", "cattle", "catsup"}
	for _, k := range keys {
		require.NoError(t, tbl.Insert(encodeTestKey(k, 1)))
	}

	it := tbl.GetIterator([]byte("cat"))
	seekToBucketHead(t, it)
	var got []string
	for it.Valid() {
		got = append(got, userKeyOf(it.Key()))
		it.Next()
	}
	require.Equal(t, []string{"catfish", "cathode", "catsup", "cattle"}, got)
}

// TestBucketingUsesUserKeyNotEncodedBytes exercises spec §4.2/I1's
// bucketOf(k) = hash(extractor(UserKey(k))) mod B directly: two entries
// sharing the same user key but different trailers (different sequence
// numbers) must land in the same bucket and both be visible to a prefix
// iterator over that user key's extracted prefix. Bucketing off the raw
// encoded bytes instead would let the trailer perturb the hash and split
// them across buckets, breaking Capped(L) whenever the user key is shorter
// than L.
func TestBucketingUsesUserKeyNotEncodedBytes(t *testing.T) {
	extractor := prefixtransform.NewCappedPrefixTransform(8)
	tbl := newTestTable(t, extractor, 1024)

	require.NoError(t, tbl.Insert(encodeTestKey("ab", 1)))
	require.NoError(t, tbl.Insert(encodeTestKey("ab", 2)))

	it := tbl.GetIterator([]byte("ab"))
	it.SeekToFirst()
	require.False(t, it.Valid()) // SeekToFirst always invalidates a bucket iterator

	it.Seek([]byte("ab"))
	var got []string
	for it.Valid() {
		got = append(got, userKeyOf(it.Key()))
		it.Next()
	}
	// InternalCompare orders equal user keys by descending sequence number,
	// so the newer entry (seqNum 2) sorts first.
	require.Equal(t, []string{"ab", "ab"}, got)
}

func TestApproximateMemoryUsageIsAlwaysZero(t *testing.T) {
	tbl := newTestTable(t, prefixtransform.NewNoopTransform(), 16)
	require.NoError(t, tbl.Insert(encodeTestKey("key", 1)))
	require.EqualValues(t, 0, tbl.ApproximateMemoryUsage())
}

func TestFactoryCreatesUsableTable(t *testing.T) {
	f := NewFactory(prefixtransform.NewFixedPrefixTransform(3), 64)
	require.Equal(t, "HashLinkList(FixedPrefix.3)", f.Name())

	a := arena.New(1 << 20)
	rep, err := f.CreateMemTableRep(testCmp, a)
	require.NoError(t, err)
	require.NoError(t, rep.Insert(encodeTestKey("catfish", 1)))
	require.True(t, rep.Contains(encodeTestKey("catfish", 1)))
}

// TestConcurrentInsertAndRead exercises the single-writer/many-reader model
// from spec §5: one goroutine inserts while several others read concurrently
// via Contains, modeled on the teacher's own race-detector-oriented
// concurrency tests (arenaskl/race_test.go).
func TestConcurrentInsertAndRead(t *testing.T) {
	tbl := newTestTable(t, prefixtransform.NewCappedPrefixTransform(4), 1024)

	const n = 10000
	var wg sync.WaitGroup
	done := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					tbl.Contains(encodeTestKey(fmt.Sprintf("key-%05d", n/2), 1))
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		require.NoError(t, tbl.Insert(encodeTestKey(fmt.Sprintf("key-%05d", i), 1)))
	}
	close(done)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.True(t, tbl.Contains(encodeTestKey(fmt.Sprintf("key-%05d", i), 1)))
	}
}
