package hashlinklist

import (
	"github.com/lsmkit/lsmkit/hashfunc"
	"github.com/lsmkit/lsmkit/internal/arena"
	"github.com/lsmkit/lsmkit/prefixtransform"
)

// Factory builds Tables that share a configuration, mirroring
// MemTableRepFactory from the original: an engine constructs one Factory
// per column family at open time, then calls CreateMemTableRep once per
// memtable rotation.
type Factory struct {
	extractor   prefixtransform.Extractor
	bucketCount uint32
	hasher      hashfunc.Hasher
}

// Option configures a Factory. The functional-options shape follows the
// teacher's own db.Options.EnsureDefaults pattern of layering optional
// configuration over required constructor arguments.
type Option func(*Factory)

// WithHasher overrides the default hashfunc.Murmur32 bucket hash.
func WithHasher(h hashfunc.Hasher) Option {
	return func(f *Factory) { f.hasher = h }
}

// NewFactory returns a Factory that partitions keys across bucketCount
// buckets using extractor to derive each key's prefix.
func NewFactory(extractor prefixtransform.Extractor, bucketCount uint32, opts ...Option) *Factory {
	f := &Factory{extractor: extractor, bucketCount: bucketCount, hasher: hashfunc.Murmur32}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateMemTableRep builds a new, empty Table backed by arena, using cmp
// to order keys within each bucket. This is the external "create a
// representation" capability from spec §6.
func (f *Factory) CreateMemTableRep(cmp KeyComparator, a *arena.Arena) (MemTableRep, error) {
	return NewTable(cmp, a, f.extractor, f.bucketCount, f.hasher)
}

// Name identifies this factory's configuration, following the teacher's
// convention (InternalKeyKind.String, prefixtransform.Extractor.Name) of
// giving every pluggable component a stable, loggable name.
func (f *Factory) Name() string {
	return "HashLinkList(" + f.extractor.Name() + ")"
}
