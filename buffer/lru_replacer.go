package buffer

import (
	lru "github.com/hashicorp/golang-lru"
)

// LRUReplacer is a classic recency-only Replacer: the degenerate K=1 case
// of LRU-K, kept as a second, swappable policy built directly on
// github.com/hashicorp/golang-lru rather than reimplementing a plain LRU
// queue by hand. It costs less per access than LRUKReplacer and is the
// right choice for workloads that don't exhibit the access patterns LRU-K
// was designed to resist (e.g. one-off sequential scans competing with a
// small hot set).
type LRUReplacer struct {
	cache *lru.Cache
}

// NewLRUReplacer returns a replacer that can track up to numFrames evictable
// frames at once.
func NewLRUReplacer(numFrames int) *LRUReplacer {
	c, err := lru.New(numFrames)
	if err != nil {
		// lru.New only fails for a non-positive size, which is a
		// construction-time programming error, not a runtime condition
		// callers can recover from.
		panic(err)
	}
	return &LRUReplacer{cache: c}
}

// RecordAccess marks frameID most-recently-used if it is already evictable.
// New frames are non-evictable by default (matching LRUKReplacer and the
// Replacer contract), so RecordAccess must not itself make frameID
// evictable — only SetEvictable(frameID, true) may do that. A Get on a
// frame the cache isn't tracking is a harmless no-op.
func (r *LRUReplacer) RecordAccess(frameID int, accessType AccessType) error {
	r.cache.Get(frameID) // touch to refresh recency; no insert on miss
	return nil
}

// SetEvictable toggles frameID's membership in the underlying LRU cache:
// evictable frames are present, non-evictable frames are absent. Unlike
// LRUKReplacer it needs no prior RecordAccess: SetEvictable(frameID, true)
// adds any frame ID, and frame IDs are not range-checked.
func (r *LRUReplacer) SetEvictable(frameID int, evictable bool) error {
	if evictable {
		r.cache.ContainsOrAdd(frameID, struct{}{})
		return nil
	}
	r.cache.Remove(frameID)
	return nil
}

// Evict removes and returns the least-recently-used evictable frame ID.
func (r *LRUReplacer) Evict() (int, bool) {
	key, _, ok := r.cache.RemoveOldest()
	if !ok {
		return 0, false
	}
	return key.(int), true
}

// Remove drops frameID's tracking state unconditionally. Unlike LRUKReplacer
// it does not distinguish "not evictable" from "not tracked," since a
// recency-only cache never tracks non-evictable frames in the first place.
func (r *LRUReplacer) Remove(frameID int) error {
	r.cache.Remove(frameID)
	return nil
}

// Size returns the number of frames currently evictable.
func (r *LRUReplacer) Size() int {
	return r.cache.Len()
}
