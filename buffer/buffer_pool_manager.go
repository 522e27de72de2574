// Package buffer implements the buffer pool subsystem: the LRU-K
// replacement policy, the buffer pool manager that admits and evicts
// pages, and the scoped read/write page guards callers use to touch page
// bytes.
package buffer

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"

	"bufferpool/disk"
)

// InvalidPageID is the sentinel value distinguishing an unbound page ID.
const InvalidPageID int64 = invalidPageID

// Option configures a BufferPoolManager at construction time.
type Option func(*BufferPoolManager)

// WithReplacer overrides the default LRU-K replacer with another
// implementation of Replacer (e.g. LRUReplacer). Mostly useful for tests
// and for workloads that don't need LRU-K's resistance to sequential
// scans.
func WithReplacer(r Replacer) Option {
	return func(b *BufferPoolManager) {
		b.replacer = r
	}
}

// BufferPoolManager mediates between a fixed-size set of in-memory frames
// and a disk.Scheduler backed by durable storage. It decides which pages
// are resident, admits and evicts frames, coordinates dirty write-back,
// and hands out scoped page guards that enforce the pin/latch discipline
// eviction safety depends on.
//
// Lock ordering: bpmMu is always acquired before a frame's rwlatch, never
// the reverse while still holding bpmMu. Releasing a page guard takes the
// opposite path — frame latch released first, bpmMu acquired only
// afterward to flip the frame back to evictable — which is what makes that
// release safe without ever holding both locks at once.
type BufferPoolManager struct {
	bpmMu sync.Mutex

	numFrames int
	frames    []*Frame
	pageTable map[int64]int // page ID -> frame ID, resident pages only
	freeList  *list.List    // frame IDs with no bound page

	replacer  Replacer
	scheduler *disk.Scheduler

	nextPageID atomic.Int64
}

// NewBufferPoolManager constructs a pool of numFrames frames backed by
// scheduler, using LRU-K with history depth k as the default replacement
// policy (override with WithReplacer).
func NewBufferPoolManager(numFrames int, scheduler *disk.Scheduler, k int, opts ...Option) *BufferPoolManager {
	frames := make([]*Frame, numFrames)
	freeList := list.New()
	for i := 0; i < numFrames; i++ {
		frames[i] = newFrame(i)
		freeList.PushBack(i)
	}

	b := &BufferPoolManager{
		numFrames: numFrames,
		frames:    frames,
		pageTable: make(map[int64]int, numFrames),
		freeList:  freeList,
		replacer:  NewLRUKReplacer(numFrames, k),
		scheduler: scheduler,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Size returns the number of frames in the pool.
func (b *BufferPoolManager) Size() int { return b.numFrames }

// NewPage allocates a fresh page ID. It is lock-free and monotonic, and —
// deliberately, per the original design this subsystem follows — does not
// reserve a frame: the ID may not be backed by any resident page until a
// caller actually reads or writes it.
func (b *BufferPoolManager) NewPage() int64 {
	return b.nextPageID.Add(1) - 1
}

// popFreeOrEvict returns a frame ID to (re)use: the front of the free list
// if non-empty, otherwise the replacer's chosen victim. ok is false only
// when neither source has anything to offer.
func (b *BufferPoolManager) popFreeOrEvict() (fid int, ok bool) {
	if front := b.freeList.Front(); front != nil {
		b.freeList.Remove(front)
		return front.Value.(int), true
	}
	return b.replacer.Evict()
}

// evictOldBinding writes back the frame's current page if dirty and clears
// its page-table entry, readying the frame to be rebound. No-op if the
// frame holds no page.
func (b *BufferPoolManager) evictOldBinding(frame *Frame) {
	oldPageID := frame.boundPageID
	if oldPageID == invalidPageID {
		return
	}
	if frame.dirty {
		if err := b.scheduler.ScheduleAndWait(&disk.Request{
			PageID:  oldPageID,
			Data:    frame.data,
			IsWrite: true,
		}); err != nil {
			panic(fmt.Sprintf("buffer: failed to write back dirty page %d: %s", oldPageID, err))
		}
	}
	delete(b.pageTable, oldPageID)
	frame.reset()
}

// CheckedReadPage returns a shared-latch guard on pageID, bringing it into
// a frame first if necessary. ok is false only when the pool has no free
// frame and nothing evictable.
func (b *BufferPoolManager) CheckedReadPage(pageID int64, accessType AccessType) (*ReadPageGuard, bool) {
	b.bpmMu.Lock()

	if fid, ok := b.pageTable[pageID]; ok {
		frame := b.frames[fid]
		_ = b.replacer.RecordAccess(fid, accessType)
		_ = b.replacer.SetEvictable(fid, false)
		guard := newReadPageGuard(pageID, frame, b.replacer, &b.bpmMu, b.scheduler)
		b.bpmMu.Unlock()
		return guard, true
	}

	fid, ok := b.popFreeOrEvict()
	if !ok {
		b.bpmMu.Unlock()
		return nil, false
	}
	frame := b.frames[fid]
	b.evictOldBinding(frame)

	if err := b.scheduler.ScheduleAndWait(&disk.Request{PageID: pageID, Data: frame.data}); err != nil {
		panic(fmt.Sprintf("buffer: failed to read page %d: %s", pageID, err))
	}
	frame.boundPageID = pageID
	b.pageTable[pageID] = fid
	_ = b.replacer.RecordAccess(fid, accessType)
	_ = b.replacer.SetEvictable(fid, false)

	guard := newReadPageGuard(pageID, frame, b.replacer, &b.bpmMu, b.scheduler)
	b.bpmMu.Unlock()
	return guard, true
}

// CheckedWritePage returns an exclusive-latch guard on pageID, bringing it
// into a frame first if necessary. ok is false only when the pool has no
// free frame and nothing evictable.
func (b *BufferPoolManager) CheckedWritePage(pageID int64, accessType AccessType) (*WritePageGuard, bool) {
	b.bpmMu.Lock()

	if fid, ok := b.pageTable[pageID]; ok {
		frame := b.frames[fid]
		_ = b.replacer.RecordAccess(fid, accessType)
		_ = b.replacer.SetEvictable(fid, false)
		guard := newWritePageGuard(pageID, frame, b.replacer, &b.bpmMu, b.scheduler)
		b.bpmMu.Unlock()
		return guard, true
	}

	fid, ok := b.popFreeOrEvict()
	if !ok {
		b.bpmMu.Unlock()
		return nil, false
	}
	frame := b.frames[fid]
	b.evictOldBinding(frame)

	if err := b.scheduler.ScheduleAndWait(&disk.Request{PageID: pageID, Data: frame.data}); err != nil {
		panic(fmt.Sprintf("buffer: failed to read page %d: %s", pageID, err))
	}
	frame.boundPageID = pageID
	b.pageTable[pageID] = fid
	_ = b.replacer.RecordAccess(fid, accessType)
	_ = b.replacer.SetEvictable(fid, false)

	guard := newWritePageGuard(pageID, frame, b.replacer, &b.bpmMu, b.scheduler)
	b.bpmMu.Unlock()
	return guard, true
}

// ReadPage is CheckedReadPage for callers that treat an unavailable frame
// as unrecoverable: it aborts the process rather than returning an error.
func (b *BufferPoolManager) ReadPage(pageID int64, accessType AccessType) *ReadPageGuard {
	guard, ok := b.CheckedReadPage(pageID, accessType)
	if !ok {
		panic(fmt.Sprintf("buffer: CheckedReadPage failed to bring in page %d: no frame available", pageID))
	}
	return guard
}

// WritePage is CheckedWritePage for callers that treat an unavailable frame
// as unrecoverable: it aborts the process rather than returning an error.
func (b *BufferPoolManager) WritePage(pageID int64, accessType AccessType) *WritePageGuard {
	guard, ok := b.CheckedWritePage(pageID, accessType)
	if !ok {
		panic(fmt.Sprintf("buffer: CheckedWritePage failed to bring in page %d: no frame available", pageID))
	}
	return guard
}

// DeletePage removes pageID from the pool and returns its frame to the
// free list, then asks the disk scheduler to deallocate the page ID on the
// backing store regardless of whether the page was resident. It fails
// (returning false, changing nothing) only if the page is resident and
// still pinned.
func (b *BufferPoolManager) DeletePage(pageID int64) bool {
	b.bpmMu.Lock()
	if fid, ok := b.pageTable[pageID]; ok {
		frame := b.frames[fid]
		if frame.PinCount() > 0 {
			b.bpmMu.Unlock()
			return false
		}
		delete(b.pageTable, pageID)
		_ = b.replacer.SetEvictable(fid, false)
		frame.reset()
		b.freeList.PushBack(fid)
	}
	b.bpmMu.Unlock()

	if err := b.scheduler.ScheduleAndWait(&disk.Request{PageID: pageID, IsDeallocate: true}); err != nil {
		panic(fmt.Sprintf("buffer: failed to deallocate page %d: %s", pageID, err))
	}
	return true
}

// FlushPage writes pageID back to the backing store if dirty, taking the
// frame's exclusive latch for the duration. Returns false if pageID is not
// resident.
func (b *BufferPoolManager) FlushPage(pageID int64) bool {
	b.bpmMu.Lock()
	fid, ok := b.pageTable[pageID]
	b.bpmMu.Unlock()
	if !ok {
		return false
	}

	frame := b.frames[fid]
	frame.latch.Lock()
	defer frame.latch.Unlock()
	if err := flushFrame(b.scheduler, pageID, frame); err != nil {
		panic(fmt.Sprintf("buffer: failed to flush page %d: %s", pageID, err))
	}
	return true
}

// FlushPageUnsafe is FlushPage without taking the frame's latch: the
// caller is asserting there is no concurrent writer. Returns false if
// pageID is not resident.
func (b *BufferPoolManager) FlushPageUnsafe(pageID int64) bool {
	b.bpmMu.Lock()
	fid, ok := b.pageTable[pageID]
	b.bpmMu.Unlock()
	if !ok {
		return false
	}

	frame := b.frames[fid]
	if err := flushFrame(b.scheduler, pageID, frame); err != nil {
		panic(fmt.Sprintf("buffer: failed to flush page %d: %s", pageID, err))
	}
	return true
}

// FlushAllPages flushes every resident dirty page. It snapshots the page
// table under bpmMu, then flushes each page under only that page's own
// frame latch — no global lock is held across I/O, so flushes of distinct
// pages can proceed (and complete) in any order relative to each other.
func (b *BufferPoolManager) FlushAllPages() {
	b.bpmMu.Lock()
	type target struct {
		pageID int64
		frame  *Frame
	}
	targets := make([]target, 0, len(b.pageTable))
	for pageID, fid := range b.pageTable {
		targets = append(targets, target{pageID: pageID, frame: b.frames[fid]})
	}
	b.bpmMu.Unlock()

	for _, t := range targets {
		t.frame.latch.Lock()
		if err := flushFrame(b.scheduler, t.pageID, t.frame); err != nil {
			panic(fmt.Sprintf("buffer: failed to flush page %d: %s", t.pageID, err))
		}
		t.frame.latch.Unlock()
	}
}

// FlushAllPagesUnsafe is FlushAllPages without taking any frame latches:
// the caller is asserting there are no concurrent writers anywhere in the
// pool.
func (b *BufferPoolManager) FlushAllPagesUnsafe() {
	b.bpmMu.Lock()
	defer b.bpmMu.Unlock()
	for pageID, fid := range b.pageTable {
		frame := b.frames[fid]
		if err := flushFrame(b.scheduler, pageID, frame); err != nil {
			panic(fmt.Sprintf("buffer: failed to flush page %d: %s", pageID, err))
		}
	}
}

// GetPinCount returns pageID's current pin count, or (0, false) if the page
// is not resident.
func (b *BufferPoolManager) GetPinCount(pageID int64) (int64, bool) {
	b.bpmMu.Lock()
	defer b.bpmMu.Unlock()
	fid, ok := b.pageTable[pageID]
	if !ok {
		return 0, false
	}
	return b.frames[fid].PinCount(), true
}

// flushFrame synchronously writes frame's bytes back as pageID if dirty,
// clearing the dirty bit on success. The caller is responsible for holding
// whatever latch makes this safe (a guard's own latch, or an explicit
// frame.latch.Lock() in the manager's flush paths).
func flushFrame(scheduler *disk.Scheduler, pageID int64, frame *Frame) error {
	if !frame.dirty {
		return nil
	}
	if err := scheduler.ScheduleAndWait(&disk.Request{
		PageID:  pageID,
		Data:    frame.data,
		IsWrite: true,
	}); err != nil {
		return err
	}
	frame.dirty = false
	return nil
}
