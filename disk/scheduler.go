package disk

import "sync"

// Request describes one unit of work for the Scheduler: a page read, a
// page write, or a deallocate. At most one of IsWrite/IsDeallocate should be
// set; neither set means "read".
type Request struct {
	PageID       int64
	Data         []byte
	IsWrite      bool
	IsDeallocate bool

	done chan error
}

// Scheduler is a single-consumer asynchronous I/O queue in front of a
// Manager. One dedicated worker goroutine drains requests in the order they
// were enqueued and signals each one's completion independently, so callers
// of different pages never block on one another beyond actual disk time.
type Scheduler struct {
	manager *Manager
	queue   chan *Request
	wg      sync.WaitGroup
}

// NewScheduler starts the worker goroutine and returns a ready Scheduler.
func NewScheduler(manager *Manager) *Scheduler {
	s := &Scheduler{
		manager: manager,
		queue:   make(chan *Request, 64),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for req := range s.queue {
		var err error
		switch {
		case req.IsDeallocate:
			err = s.manager.DeallocatePage(req.PageID)
		case req.IsWrite:
			err = s.manager.WritePage(req.PageID, req.Data)
		default:
			err = s.manager.ReadPage(req.PageID, req.Data)
		}
		req.done <- err
	}
}

// Schedule enqueues req without waiting for completion. The result is
// discarded; use ScheduleAndWait to observe it. ScheduleAndWait is the
// usual entry point.
func (s *Scheduler) Schedule(req *Request) {
	req.done = make(chan error, 1)
	s.queue <- req
}

// ScheduleAndWait enqueues req and blocks until the worker has processed
// it, returning the resulting error (if any). This is the only mode the
// buffer pool manager uses: every page acquisition in this subsystem is
// synchronous by design.
func (s *Scheduler) ScheduleAndWait(req *Request) error {
	s.Schedule(req)
	return <-req.done
}

// Shutdown stops the worker goroutine once the queue drains and waits for
// it to exit. Shutdown must not be called concurrently with Schedule.
func (s *Scheduler) Shutdown() {
	close(s.queue)
	s.wg.Wait()
}
