package buffer

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bufferpool/disk"
)

func newTestPool(t *testing.T, numFrames, k int, opts ...Option) *BufferPoolManager {
	t.Helper()
	m, err := disk.NewManager(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	s := disk.NewScheduler(m)
	t.Cleanup(func() {
		s.Shutdown()
		_ = m.Close()
	})
	return NewBufferPoolManager(numFrames, s, k, opts...)
}

func randomPage(t *testing.T) [disk.PageSize]byte {
	t.Helper()
	faker := gofakeit.New(0)
	var data [disk.PageSize]byte
	for i := range data {
		data[i] = faker.Uint8()
	}
	return data
}

// TestBufferPoolManagerFillsThenRefusesThenRecovers mirrors the teacher's
// sample test: fill the pool, confirm it refuses further admissions while
// every frame is pinned, then confirm unpinning frees capacity again.
func TestBufferPoolManagerFillsThenRefusesThenRecovers(t *testing.T) {
	bpm := newTestPool(t, 10, 2)

	var guards []*WritePageGuard
	for i := 0; i < 10; i++ {
		pid := bpm.NewPage()
		g, ok := bpm.CheckedWritePage(pid, AccessUnknown)
		require.True(t, ok)
		guards = append(guards, g)
	}

	for i := 0; i < 10; i++ {
		pid := bpm.NewPage()
		_, ok := bpm.CheckedWritePage(pid, AccessUnknown)
		assert.False(t, ok, "pool is full and every frame is pinned")
	}

	for _, g := range guards[:5] {
		g.Drop()
	}

	for i := 0; i < 5; i++ {
		pid := bpm.NewPage()
		g, ok := bpm.CheckedWritePage(pid, AccessUnknown)
		require.True(t, ok)
		g.Drop()
	}

	for _, g := range guards[5:] {
		g.Drop()
	}
}

// TestBufferPoolManagerRoundTripsDataThroughEviction covers spec scenario 4:
// write a page, force it out of the pool, then read it back and confirm the
// bytes survived the round trip through the backing store.
func TestBufferPoolManagerRoundTripsDataThroughEviction(t *testing.T) {
	bpm := newTestPool(t, 1, 1)
	want := randomPage(t)

	pidA := bpm.NewPage()
	wg, ok := bpm.CheckedWritePage(pidA, AccessUnknown)
	require.True(t, ok)
	copy(wg.DataMut(), want[:])
	wg.Drop()

	pidB := bpm.NewPage()
	rg2, ok := bpm.CheckedReadPage(pidB, AccessUnknown) // evicts pidA's only frame
	require.True(t, ok)
	rg2.Drop()

	rg1, ok := bpm.CheckedReadPage(pidA, AccessUnknown)
	require.True(t, ok)
	defer rg1.Drop()
	assert.Equal(t, want[:], rg1.Data())
}

// TestBufferPoolManagerPinExcludesEviction covers spec scenario 3: with
// every frame pinned, a miss for a new page is refused until a guard drops.
func TestBufferPoolManagerPinExcludesEviction(t *testing.T) {
	bpm := newTestPool(t, 2, 2)

	p0 := bpm.NewPage()
	p1 := bpm.NewPage()
	g0, ok := bpm.CheckedWritePage(p0, AccessUnknown)
	require.True(t, ok)
	g1, ok := bpm.CheckedWritePage(p1, AccessUnknown)
	require.True(t, ok)

	p2 := bpm.NewPage()
	_, ok = bpm.CheckedReadPage(p2, AccessUnknown)
	assert.False(t, ok)

	g0.Drop()

	g2, ok := bpm.CheckedReadPage(p2, AccessUnknown)
	require.True(t, ok)
	g2.Drop()
	g1.Drop()
}

// TestBufferPoolManagerDeletePagePinnedFails covers spec scenario 5.
func TestBufferPoolManagerDeletePagePinnedFails(t *testing.T) {
	bpm := newTestPool(t, 4, 2)
	pid := bpm.NewPage()
	g, ok := bpm.CheckedWritePage(pid, AccessUnknown)
	require.True(t, ok)

	assert.False(t, bpm.DeletePage(pid))

	count, ok := bpm.GetPinCount(pid)
	require.True(t, ok)
	assert.Equal(t, int64(1), count)

	g.Drop()
	assert.True(t, bpm.DeletePage(pid))
	_, ok = bpm.GetPinCount(pid)
	assert.False(t, ok)
}

func TestBufferPoolManagerDeletePageAlwaysDeallocates(t *testing.T) {
	bpm := newTestPool(t, 4, 2)
	// page never fetched, never resident.
	assert.True(t, bpm.DeletePage(999))
}

func TestBufferPoolManagerFlushPageIdempotentWhenClean(t *testing.T) {
	bpm := newTestPool(t, 2, 2)
	pid := bpm.NewPage()
	g, ok := bpm.CheckedReadPage(pid, AccessUnknown)
	require.True(t, ok)
	g.Drop()

	assert.True(t, bpm.FlushPage(pid))
	assert.True(t, bpm.FlushPage(pid))
}

func TestBufferPoolManagerFlushPageNotResident(t *testing.T) {
	bpm := newTestPool(t, 2, 2)
	assert.False(t, bpm.FlushPage(12345))
}

func TestBufferPoolManagerFlushAllPagesWritesBackDirty(t *testing.T) {
	bpm := newTestPool(t, 3, 2)

	pids := make([]int64, 3)
	for i := range pids {
		pids[i] = bpm.NewPage()
		g, ok := bpm.CheckedWritePage(pids[i], AccessUnknown)
		require.True(t, ok)
		g.DataMut()[0] = byte(i + 1)
		g.Drop()
	}

	bpm.FlushAllPages()

	for i, pid := range pids {
		g, ok := bpm.CheckedReadPage(pid, AccessUnknown)
		require.True(t, ok)
		assert.False(t, g.IsDirty())
		assert.Equal(t, byte(i+1), g.Data()[0])
		g.Drop()
	}
}

// TestBufferPoolManagerConcurrentReaders covers spec scenario 6: many
// concurrent read guards on the same page all succeed and pin count tracks
// the number of live guards.
func TestBufferPoolManagerConcurrentReaders(t *testing.T) {
	bpm := newTestPool(t, 4, 2)
	pid := bpm.NewPage()
	seed, ok := bpm.CheckedWritePage(pid, AccessUnknown)
	require.True(t, ok)
	seed.Drop()

	const n = 16
	var wg sync.WaitGroup
	guards := make([]*ReadPageGuard, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, ok := bpm.CheckedReadPage(pid, AccessUnknown)
			require.True(t, ok)
			guards[i] = g
		}(i)
	}
	wg.Wait()

	count, ok := bpm.GetPinCount(pid)
	require.True(t, ok)
	assert.Equal(t, int64(n), count)

	for _, g := range guards {
		g.Drop()
	}

	count, ok = bpm.GetPinCount(pid)
	require.True(t, ok)
	assert.Equal(t, int64(0), count)
}

func TestBufferPoolManagerSize(t *testing.T) {
	bpm := newTestPool(t, 7, 2)
	assert.Equal(t, 7, bpm.Size())
}

func TestBufferPoolManagerNewPageIsMonotonicAndDoesNotReserveAFrame(t *testing.T) {
	bpm := newTestPool(t, 1, 1)
	first := bpm.NewPage()
	second := bpm.NewPage()
	assert.Equal(t, first+1, second)
	// neither call touched a frame or the page table.
	_, ok := bpm.GetPinCount(first)
	assert.False(t, ok)
}

func TestBufferPoolManagerWithAlternateReplacer(t *testing.T) {
	m, err := disk.NewManager(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	s := disk.NewScheduler(m)
	t.Cleanup(func() {
		s.Shutdown()
		_ = m.Close()
	})

	bpm := NewBufferPoolManager(2, s, 2, WithReplacer(NewLRUReplacer(2)))

	p0 := bpm.NewPage()
	p1 := bpm.NewPage()
	g0, ok := bpm.CheckedReadPage(p0, AccessUnknown)
	require.True(t, ok)
	g0.Drop()
	g1, ok := bpm.CheckedReadPage(p1, AccessUnknown)
	require.True(t, ok)
	g1.Drop()

	p2 := bpm.NewPage()
	g2, ok := bpm.CheckedReadPage(p2, AccessUnknown) // evicts p0, least recently used
	require.True(t, ok)
	g2.Drop()

	_, ok = bpm.GetPinCount(p0)
	assert.False(t, ok, "p0 should have been evicted under plain LRU")
}
