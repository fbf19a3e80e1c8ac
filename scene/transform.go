package scene

import (
	"github.com/lumenray/lumen/geom"
	"github.com/lumenray/lumen/intern"
)

// The current transform is a pair of matrices, one per key time, so a
// stream can describe rigid motion blur by editing the slots separately
// through the ActiveTransform directives.
const (
	maxTransforms       = 2
	startTransformIndex = 0
	endTransformIndex   = 1
)

const (
	startTransformBit = 1 << startTransformIndex
	endTransformBit   = 1 << endTransformIndex
	allTransformsBits = (1 << maxTransforms) - 1
)

type transformSet [maxTransforms]geom.Transform

func identitySet() transformSet {
	return transformSet{geom.Identity(), geom.Identity()}
}

func (t transformSet) isAnimated() bool {
	return t[startTransformIndex] != t[endTransformIndex]
}

func (t transformSet) inverse() transformSet {
	var inv transformSet
	for i := range t {
		inv[i] = t[i].Inverse()
	}
	return inv
}

// AnimatedTransform is a transform keyed at two times. Both handles come
// from a [TransformCache], so equal transforms share pointers. The zero
// value means no transform was recorded.
type AnimatedTransform struct {
	Start     *geom.Transform
	End       *geom.Transform
	StartTime float64
	EndTime   float64
}

// IsAnimated reports whether the two keys actually differ.
func (at AnimatedTransform) IsAnimated() bool {
	return at.Start != nil && at.End != nil && *at.Start != *at.End
}

// TransformCache deduplicates transforms so that the entity graph holds
// one allocation per distinct matrix no matter how many entities share
// it. Entities compare and hash transform handles by pointer.
type TransformCache struct {
	table *intern.Table[geom.Transform]
}

func NewTransformCache() *TransformCache {
	return &TransformCache{table: intern.NewTable(geom.Transform.Hash)}
}

// Lookup returns the canonical handle for t, inserting it on first use.
// Two calls with equal transforms return the same pointer.
func (c *TransformCache) Lookup(t geom.Transform) *geom.Transform {
	return c.table.Lookup(t)
}

// Stats reports cache occupancy and hit rate.
func (c *TransformCache) Stats() intern.Stats {
	return c.table.Stats()
}
