package buffer

import (
	"sync"
	"sync/atomic"

	"bufferpool/disk"
)

// invalidPageID is the sentinel bound-page-ID a frame carries when it holds
// no page.
const invalidPageID int64 = -1

// Frame is a fixed-size in-memory slot that may host a page. Frames are
// created once at pool construction and live for the lifetime of the
// buffer pool manager, rebinding page IDs over and over as pages are
// admitted and evicted; identity (frameID) never changes and is never
// recycled.
type Frame struct {
	frameID int

	data     []byte
	pinCount atomic.Int64
	dirty    bool
	latch    sync.RWMutex

	// boundPageID is the page currently occupying this frame, or
	// invalidPageID if the frame is free. Kept on the frame itself rather
	// than derived by scanning the page table, so eviction's reverse
	// lookup (frame -> page) is O(1).
	boundPageID int64
}

func newFrame(frameID int) *Frame {
	return &Frame{
		frameID:     frameID,
		data:        make([]byte, disk.PageSize),
		boundPageID: invalidPageID,
	}
}

// ID returns the frame's immutable identifier.
func (f *Frame) ID() int { return f.frameID }

// Data returns the frame's page buffer. Callers must hold the appropriate
// latch (enforced in practice by only reaching a Frame through a page
// guard).
func (f *Frame) Data() []byte { return f.data }

// IsDirty reports whether the frame's bytes differ from the backing store.
func (f *Frame) IsDirty() bool { return f.dirty }

// PinCount returns the frame's current pin count.
func (f *Frame) PinCount() int64 { return f.pinCount.Load() }

// reset zeroes the buffer and clears pin/dirty/binding state. Only valid to
// call while the frame is unreachable from the page table.
func (f *Frame) reset() {
	for i := range f.data {
		f.data[i] = 0
	}
	f.pinCount.Store(0)
	f.dirty = false
	f.boundPageID = invalidPageID
}
