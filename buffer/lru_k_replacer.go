package buffer

import "sync"

// lruKNode tracks the bounded access history of a single frame. history
// holds up to k timestamps, oldest first; it is never empty while the node
// exists in nodes.
type lruKNode struct {
	history   []uint64
	evictable bool
}

// LRUKReplacer selects, among evictable frames, the one whose next access
// is predicted furthest in the future: the frame with the maximum backward
// K-distance (O'Neil, O'Neil & Weikum). A frame with fewer than K recorded
// accesses has infinite backward K-distance and is preferred for eviction
// over any frame with a full K-length history; ties go to the frame whose
// oldest tracked access is furthest in the past, and remaining ties to the
// smallest frame ID.
type LRUKReplacer struct {
	mu sync.Mutex

	k         int
	numFrames int
	nodes     map[int]*lruKNode
	size      int
	clock     uint64
}

// NewLRUKReplacer returns a replacer prepared to track up to numFrames
// distinct frame IDs in [0, numFrames), each remembering its last k
// accesses.
func NewLRUKReplacer(numFrames, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:         k,
		numFrames: numFrames,
		nodes:     make(map[int]*lruKNode),
	}
}

func (r *LRUKReplacer) validFrame(frameID int) bool {
	return frameID >= 0 && frameID < r.numFrames
}

// RecordAccess advances the replacer's logical clock by one and appends
// that timestamp to frameID's history, trimming to the last k entries.
func (r *LRUKReplacer) RecordAccess(frameID int, accessType AccessType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.validFrame(frameID) {
		return ErrInvalidFrame
	}

	r.clock++

	n, ok := r.nodes[frameID]
	if !ok {
		n = &lruKNode{}
		r.nodes[frameID] = n
	}

	n.history = append(n.history, r.clock)
	if len(n.history) > r.k {
		n.history = n.history[1:]
	}

	return nil
}

// SetEvictable toggles frameID's eligibility for Evict and adjusts Size
// accordingly. It is a no-op for untracked frames and idempotent in
// evictable.
func (r *LRUKReplacer) SetEvictable(frameID int, evictable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.validFrame(frameID) {
		return ErrInvalidFrame
	}

	n, ok := r.nodes[frameID]
	if !ok {
		return nil
	}

	if n.evictable == evictable {
		return nil
	}
	n.evictable = evictable
	if evictable {
		r.size++
	} else {
		r.size--
	}
	return nil
}

// Evict removes and returns the chosen victim frame ID, or (0, false) if
// there are no evictable frames.
func (r *LRUKReplacer) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return 0, false
	}

	infVictim, finVictim := -1, -1
	var infFirst, finFirst uint64

	for frameID, n := range r.nodes {
		if !n.evictable || len(n.history) == 0 {
			continue
		}
		first := n.history[0]
		if len(n.history) < r.k {
			if infVictim == -1 || first < infFirst || (first == infFirst && frameID < infVictim) {
				infVictim, infFirst = frameID, first
			}
		} else {
			if finVictim == -1 || first < finFirst || (first == finFirst && frameID < finVictim) {
				finVictim, finFirst = frameID, first
			}
		}
	}

	victim := infVictim
	if victim == -1 {
		victim = finVictim
	}
	if victim == -1 {
		return 0, false
	}

	delete(r.nodes, victim)
	r.size--
	return victim, true
}

// Remove drops all tracking state for frameID, regardless of its backward
// K-distance. It fails if frameID is tracked but not evictable, and is a
// silent no-op if frameID is not tracked at all.
func (r *LRUKReplacer) Remove(frameID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return nil
	}
	if !n.evictable {
		return ErrNotEvictable
	}

	delete(r.nodes, frameID)
	r.size--
	return nil
}

// Size returns the number of frames currently marked evictable.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
