package disk

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	s := NewScheduler(m)
	t.Cleanup(func() {
		s.Shutdown()
		_ = m.Close()
	})
	return s
}

func TestSchedulerWriteThenRead(t *testing.T) {
	s := newTestScheduler(t)

	data := make([]byte, PageSize)
	for i := range data {
		data[i] = byte(i % 251)
	}

	err := s.ScheduleAndWait(&Request{PageID: 1, Data: data, IsWrite: true})
	require.NoError(t, err)

	out := make([]byte, PageSize)
	err = s.ScheduleAndWait(&Request{PageID: 1, Data: out})
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestSchedulerDeallocate(t *testing.T) {
	s := newTestScheduler(t)
	err := s.ScheduleAndWait(&Request{PageID: 9, IsDeallocate: true})
	assert.NoError(t, err)
}

func TestSchedulerSerializesConcurrentRequests(t *testing.T) {
	s := newTestScheduler(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(pid int64) {
			defer wg.Done()
			data := make([]byte, PageSize)
			data[0] = byte(pid)
			err := s.ScheduleAndWait(&Request{PageID: pid, Data: data, IsWrite: true})
			assert.NoError(t, err)

			out := make([]byte, PageSize)
			err = s.ScheduleAndWait(&Request{PageID: pid, Data: out})
			assert.NoError(t, err)
			assert.Equal(t, byte(pid), out[0])
		}(int64(i))
	}
	wg.Wait()
}
