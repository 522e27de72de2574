package buffer

import (
	"sync"

	"bufferpool/disk"
)

// ReadPageGuard is a scoped, shared-latch acquisition of a page. It pins
// the page's frame for its entire lifetime and releases the pin and the
// latch exactly once, on Drop. A ReadPageGuard must not be copied; pass it
// by pointer (or hand off ownership by discarding the source variable) the
// way a move-only type would be handled in a language with destructors.
type ReadPageGuard struct {
	pageID    int64
	frame     *Frame
	replacer  Replacer
	bpmMu     *sync.Mutex
	scheduler *disk.Scheduler
	valid     bool
}

// newReadPageGuard acquires the frame's shared latch and bumps its pin
// count. The caller must already have incremented bookkeeping (pin count
// is bumped here, but SetEvictable(false) and the page-table entry are the
// buffer pool manager's responsibility, performed while it still holds
// bpmMu — see BufferPoolManager for why the guard itself never takes
// bpmMu).
func newReadPageGuard(pageID int64, frame *Frame, replacer Replacer, bpmMu *sync.Mutex, scheduler *disk.Scheduler) *ReadPageGuard {
	frame.latch.RLock()
	frame.pinCount.Add(1)
	return &ReadPageGuard{
		pageID:    pageID,
		frame:     frame,
		replacer:  replacer,
		bpmMu:     bpmMu,
		scheduler: scheduler,
		valid:     true,
	}
}

// PageID returns the ID of the page this guard holds.
func (g *ReadPageGuard) PageID() int64 {
	mustBeValid(g.valid, "read")
	return g.pageID
}

// Data returns the page's bytes. Safe to read for as long as the guard is
// held.
func (g *ReadPageGuard) Data() []byte {
	mustBeValid(g.valid, "read")
	return g.frame.Data()
}

// IsDirty reports whether the underlying frame has unflushed writes.
func (g *ReadPageGuard) IsDirty() bool {
	mustBeValid(g.valid, "read")
	return g.frame.IsDirty()
}

// Flush synchronously writes the page back to the backing store if dirty.
// Safe under a shared latch because a dirty bit can only be cleared, never
// set, while any reader (including this one) excludes writers.
func (g *ReadPageGuard) Flush() error {
	mustBeValid(g.valid, "read")
	return flushFrame(g.scheduler, g.pageID, g.frame)
}

// Drop releases the latch and the pin. It is idempotent: calling Drop on an
// already-dropped guard, or on the zero value, does nothing. Callers should
// defer guard.Drop() immediately after a successful acquisition.
func (g *ReadPageGuard) Drop() {
	if !g.valid {
		return
	}

	prev := g.frame.pinCount.Add(-1) + 1
	g.frame.latch.RUnlock()

	if prev == 1 {
		g.bpmMu.Lock()
		_ = g.replacer.SetEvictable(g.frame.ID(), true)
		g.bpmMu.Unlock()
	}

	g.valid = false
	g.pageID = invalidPageID
	g.frame = nil
	g.replacer = nil
	g.bpmMu = nil
	g.scheduler = nil
}

// WritePageGuard is a scoped, exclusive-latch acquisition of a page.
// Obtaining one is itself modeled as a mutation: the frame is marked dirty
// immediately on construction, since the caller is now free to write
// through DataMut.
type WritePageGuard struct {
	pageID    int64
	frame     *Frame
	replacer  Replacer
	bpmMu     *sync.Mutex
	scheduler *disk.Scheduler
	valid     bool
}

func newWritePageGuard(pageID int64, frame *Frame, replacer Replacer, bpmMu *sync.Mutex, scheduler *disk.Scheduler) *WritePageGuard {
	frame.latch.Lock()
	frame.pinCount.Add(1)
	frame.dirty = true
	return &WritePageGuard{
		pageID:    pageID,
		frame:     frame,
		replacer:  replacer,
		bpmMu:     bpmMu,
		scheduler: scheduler,
		valid:     true,
	}
}

// PageID returns the ID of the page this guard holds.
func (g *WritePageGuard) PageID() int64 {
	mustBeValid(g.valid, "write")
	return g.pageID
}

// Data returns the page's bytes, read-only.
func (g *WritePageGuard) Data() []byte {
	mustBeValid(g.valid, "write")
	return g.frame.Data()
}

// DataMut returns the page's bytes for in-place mutation.
func (g *WritePageGuard) DataMut() []byte {
	mustBeValid(g.valid, "write")
	return g.frame.Data()
}

// IsDirty reports whether the underlying frame has unflushed writes. Always
// true immediately after acquisition.
func (g *WritePageGuard) IsDirty() bool {
	mustBeValid(g.valid, "write")
	return g.frame.IsDirty()
}

// Flush synchronously writes the page back to the backing store if dirty.
func (g *WritePageGuard) Flush() error {
	mustBeValid(g.valid, "write")
	return flushFrame(g.scheduler, g.pageID, g.frame)
}

// Drop releases the latch and the pin. Idempotent, like ReadPageGuard.Drop.
func (g *WritePageGuard) Drop() {
	if !g.valid {
		return
	}

	prev := g.frame.pinCount.Add(-1) + 1
	g.frame.latch.Unlock()

	if prev == 1 {
		g.bpmMu.Lock()
		_ = g.replacer.SetEvictable(g.frame.ID(), true)
		g.bpmMu.Unlock()
	}

	g.valid = false
	g.pageID = invalidPageID
	g.frame = nil
	g.replacer = nil
	g.bpmMu = nil
	g.scheduler = nil
}

func mustBeValid(valid bool, kind string) {
	if !valid {
		panic("buffer: tried to use an invalid " + kind + " page guard")
	}
}
