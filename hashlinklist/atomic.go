package hashlinklist

import "sync/atomic"

// loadAcquire and storeRelease wrap sync/atomic's uint32 operations, which
// on every architecture the Go runtime supports are sequentially
// consistent — a strictly stronger guarantee than the acquire/release
// ordering spec §5 requires of bucket-head and node-next access, and so
// satisfy it. Node.next and each bucket cell are always read and written
// through these two helpers, never by plain load/store, matching
// hash_linklist_rep.cc's use of std::memory_order_acquire /
// std::memory_order_release on its Pointer_ fields.
func loadAcquire(addr *uint32) uint32 {
	return atomic.LoadUint32(addr)
}

func storeRelease(addr *uint32, val uint32) {
	atomic.StoreUint32(addr, val)
}
