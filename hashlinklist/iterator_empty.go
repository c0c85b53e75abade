package hashlinklist

// emptyIterator implements Iterator for a prefix the table's extractor
// cannot even produce (InDomain returns false). Per spec §4.3 it is always
// invalid and every positioning method is a no-op: there is nothing to
// find because the target prefix could never have been inserted.
type emptyIterator struct{}

func newEmptyIterator() Iterator { return emptyIterator{} }

func (emptyIterator) Valid() bool      { return false }
func (emptyIterator) Key() Key         { return nil }
func (emptyIterator) Next()            {}
func (emptyIterator) Prev()            {}
func (emptyIterator) Seek([]byte)      {}
func (emptyIterator) SeekToFirst()     {}
func (emptyIterator) SeekToLast()      {}

var _ Iterator = emptyIterator{}
