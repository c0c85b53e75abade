package base

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	k := MakeInternalKey([]byte("banana"), 7, InternalKeyKindSet)
	enc := EncodeKey(nil, k)
	got := DecodeInternalKey(enc)
	require.Equal(t, []byte("banana"), got.UserKeyBytes)
	require.Equal(t, uint64(7), got.Trailer.SeqNum())
	require.Equal(t, InternalKeyKindSet, got.Trailer.Kind())
	require.Equal(t, []byte("banana"), UserKey(enc))
}

func TestInternalCompareOrdersByUserKeyThenSeqNumDescending(t *testing.T) {
	a := EncodeKey(nil, MakeInternalKey([]byte("apple"), 5, InternalKeyKindSet))
	b := EncodeKey(nil, MakeInternalKey([]byte("banana"), 1, InternalKeyKindSet))
	require.Negative(t, InternalCompare(DefaultCompare, a, b))

	newer := EncodeKey(nil, MakeInternalKey([]byte("apple"), 9, InternalKeyKindSet))
	older := EncodeKey(nil, MakeInternalKey([]byte("apple"), 1, InternalKeyKindSet))
	require.Negative(t, InternalCompare(DefaultCompare, newer, older))

	search := EncodeKey(nil, MakeSearchKey([]byte("apple")))
	require.Negative(t, InternalCompare(DefaultCompare, search, newer))
}
