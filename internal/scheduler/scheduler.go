// Package scheduler implements the deferred-work FIFO a Context drains at
// its yield points, so user callbacks are never invoked while the context
// lock is held. Modeled on BusManager.Handle's lock/copy-listeners/unlock/
// invoke pattern in the teacher repo.
package scheduler

import "sync"

// Item is one deferred unit of work: Run is the user-visible callback to
// invoke outside the context lock, Cleanup (optional) releases any resource
// the item held (e.g. an FB chain reference) once Run has returned.
type Item struct {
	Run     func()
	Cleanup func()
}

// Scheduler is a FIFO queue of Items, safe for concurrent Put calls from
// any context entry point or timer callback. It owns the queued items
// exclusively between Put and the Yield call that drains them.
type Scheduler struct {
	mu    sync.Mutex
	items []Item
}

// Put enqueues item under the scheduler's own lock. Safe to call while the
// context lock is held; Put never invokes user code itself.
func (s *Scheduler) Put(item Item) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
}

// Yield drains the queue and invokes each item's Run and then its Cleanup,
// in FIFO order, entirely outside the scheduler's own lock. Must be called
// without the context lock held. Items enqueued by a callback invoked
// during this Yield (re-entrant Put) are picked up by the next Yield call,
// not this one, since the queue is swapped out up front.
func (s *Scheduler) Yield() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	for _, item := range items {
		if item.Run != nil {
			item.Run()
		}
		if item.Cleanup != nil {
			item.Cleanup()
		}
	}
}

// Pending reports whether any items are currently queued.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) > 0
}
